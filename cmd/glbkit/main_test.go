package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samcharles93/glbkit/internal/config"
	"github.com/samcharles93/glbkit/pkg/glb"
	"github.com/samcharles93/glbkit/pkg/scene"
)

const triangleGLTF = `{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [{"name": "tri", "mesh": 0}],
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
  "accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}],
  "bufferViews": [{"buffer": 0, "byteLength": 36}],
  "buffers": [{"uri": "tri.bin", "byteLength": 36}],
  "materials": [{"name": "matte"}]
}`

// runApp runs the CLI with an empty config file so the user's own config is
// never read.
func runApp(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cfg := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(cfg); err != nil {
		if err := os.WriteFile(cfg, []byte("generator: test-suite\n"), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}
	var out bytes.Buffer
	full := append([]string{"glbkit", "--config", cfg, "--log-level", "error"}, args...)
	err := newApp(&out).Run(context.Background(), full)
	return out.String(), err
}

func TestPackInspectUnpackValidate(t *testing.T) {
	dir := t.TempDir()
	gltfPath := filepath.Join(dir, "tri.gltf")
	binPath := filepath.Join(dir, "tri.bin")
	glbPath := filepath.Join(dir, "tri.glb")
	payload := bytes.Repeat([]byte{0, 0, 0x80, 0x3F}, 9)
	if err := os.WriteFile(gltfPath, []byte(triangleGLTF), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(binPath, payload, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := runApp(t, dir, "pack", "--descriptor", gltfPath, "--payload", binPath, "--out", glbPath, "--validate", "--stamp-generator"); err != nil {
		t.Fatalf("pack: %v", err)
	}
	doc, bin, err := glb.ReadFile(glbPath)
	if err != nil {
		t.Fatalf("read packed: %v", err)
	}
	if doc.Buffers[0].URI != "" {
		t.Fatalf("packed buffer 0 should be embedded, uri=%q", doc.Buffers[0].URI)
	}
	if doc.Asset.Generator != "test-suite" {
		t.Fatalf("generator not stamped from config: %q", doc.Asset.Generator)
	}
	if _, ok := doc.Extras["materials"]; !ok {
		t.Fatalf("unmodelled members were dropped: %v", doc.Extras)
	}
	if !bytes.Equal(bin, payload) {
		t.Fatalf("payload mismatch")
	}

	out, err := runApp(t, dir, "inspect", "--in", glbPath)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"JSON", "BIN", "descriptor", "binary", "Structure: ok", `generator="test-suite"`, "Other members: [materials]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("inspect output missing %q:\n%s", want, out)
		}
	}

	out, err = runApp(t, dir, "inspect", "--in", glbPath, "--json")
	if err != nil {
		t.Fatalf("inspect --json: %v", err)
	}
	if !strings.Contains(out, `"kind": "binary"`) || !strings.Contains(out, `"issues": []`) {
		t.Fatalf("unexpected json report:\n%s", out)
	}

	outDesc := filepath.Join(dir, "out.gltf")
	outBin := filepath.Join(dir, "out.bin")
	if _, err := runApp(t, dir, "unpack", "--in", glbPath, "--descriptor-out", outDesc, "--payload-out", outBin); err != nil {
		t.Fatalf("unpack: %v", err)
	}
	gotBin, err := os.ReadFile(outBin)
	if err != nil || !bytes.Equal(gotBin, payload) {
		t.Fatalf("unpacked payload mismatch: %v", err)
	}
	js, err := os.ReadFile(outDesc)
	if err != nil {
		t.Fatal(err)
	}
	unpacked, err := scene.Unmarshal(js)
	if err != nil {
		t.Fatalf("unpacked descriptor: %v", err)
	}
	if unpacked.Buffers[0].URI != "out.bin" {
		t.Fatalf("buffer 0 should link the payload file, got %q", unpacked.Buffers[0].URI)
	}

	for _, path := range []string{glbPath, outDesc} {
		out, err := runApp(t, dir, "validate", "--in", path)
		if err != nil {
			t.Fatalf("validate %s: %v", path, err)
		}
		if !strings.Contains(out, ": ok") {
			t.Fatalf("validate %s: unexpected output %q", path, out)
		}
	}
}

func TestValidateReportsIssues(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.gltf")
	if err := os.WriteFile(bad, []byte(`{"asset":{},"scenes":[{"nodes":[4]}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := runApp(t, dir, "validate", "--in", bad)
	if !errors.Is(err, errIssuesFound) {
		t.Fatalf("expected errIssuesFound, got %v", err)
	}
	for _, want := range []string{string(scene.CodeMissingAssetVersion), "/scenes/0/nodes/0"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	garbage := filepath.Join(dir, "garbage.glb")
	if err := os.WriteFile(garbage, []byte("glTF\x01\x00\x00\x00\x0c\x00\x00\x00"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := runApp(t, dir, "validate", "--in", garbage); !errors.Is(err, glb.ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestPackValidateRefuses(t *testing.T) {
	dir := t.TempDir()
	desc := filepath.Join(dir, "empty.gltf")
	if err := os.WriteFile(desc, []byte(`{"asset":{"version":"2.0"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "empty.glb")
	if _, err := runApp(t, dir, "pack", "--descriptor", desc, "--out", out, "--validate"); !errors.Is(err, errIssuesFound) {
		t.Fatalf("expected errIssuesFound, got %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("refused pack must not write output")
	}

	if _, err := runApp(t, dir, "pack", "--descriptor", desc, "--out", out); err != nil {
		t.Fatalf("pack without --validate: %v", err)
	}
}

func TestEmbedPayload(t *testing.T) {
	t.Parallel()

	doc := &scene.Document{}
	if !embedPayload(doc, 12) || len(doc.Buffers) != 1 || doc.Buffers[0].ByteLength != 12 {
		t.Fatalf("missing buffer not created: %+v", doc.Buffers)
	}
	if embedPayload(doc, 12) {
		t.Fatal("already embedded buffer should be unchanged")
	}

	doc.Buffers[0].URI = "data.bin"
	if !embedPayload(doc, 12) || doc.Buffers[0].URI != "" {
		t.Fatalf("uri not dropped: %+v", doc.Buffers[0])
	}
	if embedPayload(&scene.Document{}, 0) {
		t.Fatal("empty payload should not touch the document")
	}
}

func TestLinkPayload(t *testing.T) {
	t.Parallel()

	doc := &scene.Document{Buffers: []scene.Buffer{{ByteLength: 4}}}
	if !linkPayload(doc, "a.bin") || doc.Buffers[0].URI != "a.bin" {
		t.Fatalf("buffer not linked: %+v", doc.Buffers)
	}
	if linkPayload(doc, "b.bin") {
		t.Fatal("external buffer must not be relinked")
	}
	if linkPayload(&scene.Document{}, "c.bin") {
		t.Fatal("no buffers, nothing to link")
	}
}

func TestIsContainer(t *testing.T) {
	t.Parallel()

	if !isContainer([]byte("glTF\x02\x00\x00\x00")) {
		t.Fatal("magic not recognised")
	}
	for _, data := range [][]byte{nil, []byte("glT"), []byte(`{"asset":{}}`)} {
		if isContainer(data) {
			t.Fatalf("%q is not a container", data)
		}
	}
}

func TestApplyLogFlags(t *testing.T) {
	logLevel, logFormat, logFile, debug = "warn", "json", "/tmp/glbkit.log", false
	t.Cleanup(func() { logLevel, logFormat, logFile, debug = "", "", "", false })

	base := config.Default()
	base.LogLevel = "error"

	none := applyLogFlags(base, func(string) bool { return false })
	if none.LogLevel != "error" || none.LogFormat != config.DefaultLogFormat || none.LogFile != "" {
		t.Fatalf("unset flags must not override config: %+v", none)
	}

	all := applyLogFlags(base, func(string) bool { return true })
	if all.LogLevel != "warn" || all.LogFormat != "json" || all.LogFile != "/tmp/glbkit.log" {
		t.Fatalf("set flags must override config: %+v", all)
	}

	debug = true
	if got := applyLogFlags(base, func(string) bool { return false }); got.LogLevel != "debug" {
		t.Fatalf("--debug should force debug level, got %q", got.LogLevel)
	}
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.00 KiB"},
		{3 << 20, "3.00 MiB"},
		{5 << 30, "5.00 GiB"},
	}
	for _, tc := range tests {
		if got := formatBytes(tc.in); got != tc.want {
			t.Errorf("formatBytes(%d): got %q want %q", tc.in, got, tc.want)
		}
	}
}
