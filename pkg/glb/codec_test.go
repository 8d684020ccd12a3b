package glb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"reflect"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/samcharles93/glbkit/pkg/scene"
)

// triangle returns a single-triangle document and its 44-byte payload
// (36 bytes of positions, 6 bytes of indices, 2 bytes of alignment).
func triangle() (*scene.Document, []byte) {
	doc := &scene.Document{
		Asset:  scene.Asset{Version: "2.0"},
		Scene:  scene.Index(0),
		Scenes: []scene.Scene{{Nodes: []int{0}}},
		Nodes: []scene.Node{{
			Name:      "tri",
			Mesh:      scene.Index(0),
			Transform: scene.TRS{Translation: &[3]float64{0, 1, 0}},
		}},
		Meshes: []scene.Mesh{{Primitives: []scene.Primitive{{
			Attributes: map[string]int{scene.AttributePosition: 0},
			Indices:    scene.Index(1),
		}}}},
		Accessors: []scene.Accessor{
			{BufferView: scene.Index(0), ComponentType: scene.ComponentFloat, Count: 3, Type: scene.TypeVec3},
			{BufferView: scene.Index(1), ComponentType: scene.ComponentUnsignedShort, Count: 3, Type: scene.TypeScalar},
		},
		BufferViews: []scene.BufferView{
			{Buffer: 0, ByteLength: 36, Target: scene.TargetArrayBuffer},
			{Buffer: 0, ByteOffset: 36, ByteLength: 6, Target: scene.TargetElementArray},
		},
		Buffers: []scene.Buffer{{ByteLength: 44}},
	}

	bin := make([]byte, 44)
	verts := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}
	for i, v := range verts {
		binary.LittleEndian.PutUint32(bin[i*4:], math.Float32bits(v))
	}
	for i, idx := range []uint16{0, 1, 2} {
		binary.LittleEndian.PutUint16(bin[36+i*2:], idx)
	}
	return doc, bin
}

type rawChunk struct {
	length uint32
	typ    ChunkType
	data   []byte
}

// rawContainer assembles container bytes without any of the encoder's checks.
func rawContainer(version, total uint32, chunks ...rawChunk) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, []uint32{Magic, version, total})
	for _, c := range chunks {
		_ = binary.Write(&buf, binary.LittleEndian, []uint32{c.length, uint32(c.typ)})
		buf.Write(c.data)
	}
	return buf.Bytes()
}

// chunkLengths walks an encoded container and returns each declared chunk length.
func chunkLengths(t *testing.T, data []byte) []uint32 {
	t.Helper()
	var out []uint32
	for off := HeaderSize; off < len(data); {
		h, err := ReadChunkHeader(data, off)
		if err != nil {
			t.Fatalf("walk chunks: %v", err)
		}
		out = append(out, h.Length)
		off += ChunkHeaderSize + int(h.Length)
	}
	return out
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	doc, bin := triangle()
	data, err := Encode(doc, bin)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	gotDoc, gotBin, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(gotDoc, doc) {
		t.Fatalf("descriptor mismatch:\n got %+v\nwant %+v", gotDoc, doc)
	}
	if !bytes.Equal(gotBin, bin) {
		t.Fatalf("payload mismatch: got %v want %v", gotBin, bin)
	}
	if issues := scene.ValidatePayload(gotDoc, gotBin); len(issues) != 0 {
		t.Fatalf("decoded triangle should be valid, got %v", issues)
	}
}

func TestEncodeDecodeRoundTripWithExtras(t *testing.T) {
	t.Parallel()

	doc, bin := triangle()
	doc.Extras = map[string]json.RawMessage{
		"materials":      json.RawMessage(`[{"name":"red","pbrMetallicRoughness":{"baseColorFactor":[1,0,0,1]}}]`),
		"extensionsUsed": json.RawMessage(`["KHR_materials_unlit"]`),
		"extensions":     json.RawMessage(`{"KHR_lights_punctual":{"lights":[{"type":"point"}]}}`),
	}
	doc.Meshes[0].Primitives[0].Material = scene.Index(0)

	data, err := Encode(doc, bin)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	gotDoc, gotBin, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(gotDoc, doc) {
		t.Fatalf("descriptor mismatch:\n got %+v\nwant %+v", gotDoc, doc)
	}
	if !bytes.Equal(gotBin, bin) {
		t.Fatalf("payload mismatch")
	}

	again, err := Encode(gotDoc, gotBin)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !bytes.Equal(again, data) {
		t.Fatalf("re-encoded container differs:\n got %q\nwant %q", again, data)
	}
}

func TestEncodeRawWithExtrasReencodes(t *testing.T) {
	t.Parallel()

	src := []byte(`{"asset":{"version":"2.0"},"scene":0,"scenes":[{"nodes":[0]}],"nodes":[{"name":"n"}],"materials":[ {"name":"m"} ]}`)
	data, err := EncodeRaw(src, nil)
	if err != nil {
		t.Fatalf("encode raw: %v", err)
	}
	doc, _, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, err := Encode(doc, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, _, err := Decode(out)
	if err != nil {
		t.Fatalf("decode re-encoded: %v", err)
	}
	if got := string(back.Extras["materials"]); got != `[{"name":"m"}]` {
		t.Fatalf("materials: got %s", got)
	}
}

func TestEncodeNodeOnlyWithoutPayload(t *testing.T) {
	t.Parallel()

	doc := &scene.Document{
		Asset: scene.Asset{Version: "2.0"},
		Nodes: []scene.Node{{Name: "lonely"}},
	}
	js, err := scene.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	data, err := Encode(doc, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if want := 12 + 8 + Align4(len(js)); len(data) != want {
		t.Fatalf("length: got %d want %d", len(data), want)
	}
	if n := len(chunkLengths(t, data)); n != 1 {
		t.Fatalf("expected only the descriptor chunk, got %d chunks", n)
	}

	gotDoc, gotBin, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotBin != nil {
		t.Fatalf("expected nil payload, got %d bytes", len(gotBin))
	}
	if !reflect.DeepEqual(gotDoc, doc) {
		t.Fatalf("descriptor mismatch:\n got %+v\nwant %+v", gotDoc, doc)
	}
}

func TestEncodeEmptyPayloadIsAbsent(t *testing.T) {
	t.Parallel()

	doc := &scene.Document{Asset: scene.Asset{Version: "2.0"}}
	withNil, err := Encode(doc, nil)
	if err != nil {
		t.Fatalf("encode nil payload: %v", err)
	}
	withEmpty, err := Encode(doc, []byte{})
	if err != nil {
		t.Fatalf("encode empty payload: %v", err)
	}
	if !bytes.Equal(withNil, withEmpty) {
		t.Fatalf("empty payload should encode like an absent one")
	}
}

func TestEncodeAlignmentInvariant(t *testing.T) {
	t.Parallel()

	for nameLen := 0; nameLen < 8; nameLen++ {
		for binLen := 0; binLen < 9; binLen++ {
			doc := &scene.Document{
				Asset: scene.Asset{Version: "2.0"},
				Nodes: []scene.Node{{Name: string(bytes.Repeat([]byte{'n'}, nameLen))}},
			}
			bin := bytes.Repeat([]byte{0xFF}, binLen)

			data, err := Encode(doc, bin)
			if err != nil {
				t.Fatalf("encode(%d,%d): %v", nameLen, binLen, err)
			}
			if got := binary.LittleEndian.Uint32(data[8:12]); int(got) != len(data) {
				t.Fatalf("encode(%d,%d): total length field %d, buffer %d", nameLen, binLen, got, len(data))
			}
			lengths := chunkLengths(t, data)
			for i, l := range lengths {
				if l%4 != 0 {
					t.Fatalf("encode(%d,%d): chunk %d length %d not aligned", nameLen, binLen, i, l)
				}
			}
			if wantChunks := 1 + min(binLen, 1); len(lengths) != wantChunks {
				t.Fatalf("encode(%d,%d): got %d chunks want %d", nameLen, binLen, len(lengths), wantChunks)
			}

			_, gotBin, err := Decode(data)
			if err != nil {
				t.Fatalf("decode(%d,%d): %v", nameLen, binLen, err)
			}
			if len(gotBin) != Align4(binLen) || !bytes.Equal(gotBin[:binLen], bin) {
				t.Fatalf("decode(%d,%d): payload %v", nameLen, binLen, gotBin)
			}
			for _, b := range gotBin[binLen:] {
				if b != 0 {
					t.Fatalf("decode(%d,%d): payload padding is not zero: %v", nameLen, binLen, gotBin)
				}
			}
		}
	}
}

func TestEncodeSerializationError(t *testing.T) {
	t.Parallel()

	if _, err := Encode(nil, nil); !errors.Is(err, ErrDescriptorSerialization) {
		t.Fatalf("nil document: expected ErrDescriptorSerialization, got %v", err)
	}

	doc := &scene.Document{
		Asset: scene.Asset{Version: "2.0"},
		Nodes: []scene.Node{{Transform: scene.Matrix{math.Inf(1)}}},
	}
	_, err := Encode(doc, []byte{1, 2, 3, 4})
	if !errors.Is(err, ErrDescriptorSerialization) {
		t.Fatalf("infinite matrix: expected ErrDescriptorSerialization, got %v", err)
	}
}

func TestDecodeTruncation(t *testing.T) {
	t.Parallel()

	doc, bin := triangle()
	data, err := Encode(doc, bin)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for cut := 1; cut <= len(data); cut++ {
		_, _, err := Decode(data[:len(data)-cut])
		if !errors.Is(err, ErrTruncatedContainer) && !errors.Is(err, ErrChunkOverrun) {
			t.Fatalf("truncated by %d: expected truncation error, got %v", cut, err)
		}
	}
}

func TestDecodeSkipsUnknownChunks(t *testing.T) {
	t.Parallel()

	doc, bin := triangle()
	js, err := scene.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	extra := Chunk{Type: ChunkType(0x54584554), Data: []byte("future data")}
	c := Container{Chunks: []Chunk{
		{Type: ChunkJSON, Data: js},
		extra,
		{Type: ChunkBIN, Data: bin},
	}}
	data, err := c.Marshal()
	if err != nil {
		t.Fatalf("marshal container: %v", err)
	}

	gotDoc, gotBin, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(gotDoc, doc) || !bytes.Equal(gotBin, bin) {
		t.Fatalf("known chunks not recovered")
	}

	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	unknown := parsed.Unknown()
	if len(unknown) != 1 || unknown[0].Type != extra.Type {
		t.Fatalf("unknown chunk not preserved: %+v", unknown)
	}
	if !bytes.Equal(unknown[0].Data[:len(extra.Data)], extra.Data) || unknown[0].Length != 12 {
		t.Fatalf("unknown chunk payload mismatch: %+v", unknown[0])
	}

	again, err := parsed.Marshal()
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	if !bytes.Equal(again, data) {
		t.Fatalf("re-emitted container differs from the original")
	}
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	t.Parallel()

	doc, bin := triangle()
	data, err := Encode(doc, bin)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	stream := append(bytes.Clone(data), []byte("next record")...)
	_, gotBin, err := Decode(stream)
	if err != nil {
		t.Fatalf("decode with trailing bytes: %v", err)
	}
	if !bytes.Equal(gotBin, bin) {
		t.Fatalf("payload mismatch")
	}
}

func TestDecodeDoesNotAliasInput(t *testing.T) {
	t.Parallel()

	doc, bin := triangle()
	data, err := Encode(doc, bin)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, gotBin, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i := range data {
		data[i] = 0xEE
	}
	if !bytes.Equal(gotBin, bin) {
		t.Fatalf("decoded payload aliases the container buffer")
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	descriptor := []byte(`{"asset":{"version":"2.0"}} `) // padded to 28 bytes
	jsonChunk := rawChunk{length: 28, typ: ChunkJSON, data: descriptor}
	binChunk := rawChunk{length: 4, typ: ChunkBIN, data: []byte{1, 2, 3, 4}}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "empty", data: nil, want: ErrTruncatedContainer},
		{name: "short header", data: []byte("glTF\x02\x00"), want: ErrTruncatedContainer},
		{name: "short garbage", data: []byte("PK\x03"), want: ErrMalformedContainer},
		{
			name: "bad magic",
			data: append([]byte("GLTF"), rawContainer(Version, 48, jsonChunk)[4:]...),
			want: ErrMalformedContainer,
		},
		{name: "version 1", data: rawContainer(1, 48, jsonChunk), want: ErrUnsupportedVersion},
		{name: "version 3", data: rawContainer(3, 48, jsonChunk), want: ErrUnsupportedVersion},
		{name: "declared length below header", data: rawContainer(Version, 8, jsonChunk), want: ErrMalformedContainer},
		{name: "declared length past buffer", data: rawContainer(Version, 52, jsonChunk), want: ErrTruncatedContainer},
		{name: "no chunks", data: rawContainer(Version, 12), want: ErrInvalidChunkSequence},
		{
			name: "partial chunk header",
			data: append(rawContainer(Version, 52, jsonChunk), 0, 0, 0, 0),
			want: ErrChunkOverrun,
		},
		{
			name: "chunk longer than container",
			data: rawContainer(Version, 48, rawChunk{length: 32, typ: ChunkJSON, data: descriptor}),
			want: ErrChunkOverrun,
		},
		{
			name: "unaligned chunk length",
			data: rawContainer(Version, 48, rawChunk{length: 27, typ: ChunkJSON, data: descriptor}),
			want: ErrMalformedContainer,
		},
		{name: "binary only", data: rawContainer(Version, 24, binChunk), want: ErrInvalidChunkSequence},
		{name: "binary first", data: rawContainer(Version, 60, binChunk, jsonChunk), want: ErrInvalidChunkSequence},
		{name: "two descriptors", data: rawContainer(Version, 84, jsonChunk, jsonChunk), want: ErrInvalidChunkSequence},
		{name: "two binaries", data: rawContainer(Version, 72, jsonChunk, binChunk, binChunk), want: ErrInvalidChunkSequence},
		{
			name: "descriptor not json",
			data: rawContainer(Version, 24, rawChunk{length: 4, typ: ChunkJSON, data: []byte("{{  ")}),
			want: ErrDescriptorParse,
		},
		{
			name: "empty descriptor",
			data: rawContainer(Version, 20, rawChunk{length: 0, typ: ChunkJSON}),
			want: ErrDescriptorParse,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			doc, bin, err := Decode(tc.data)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if doc != nil || bin != nil {
				t.Fatalf("failed decode returned partial output")
			}
		})
	}
}

func TestDecodeEmptyBinaryChunkIsAbsent(t *testing.T) {
	t.Parallel()

	descriptor := []byte(`{"asset":{"version":"2.0"}} `)
	data := rawContainer(Version, 56,
		rawChunk{length: 28, typ: ChunkJSON, data: descriptor},
		rawChunk{length: 0, typ: ChunkBIN},
	)
	doc, bin, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Asset.Version != "2.0" {
		t.Fatalf("unexpected asset: %+v", doc.Asset)
	}
	if bin != nil {
		t.Fatalf("expected nil payload for empty binary chunk, got %v", bin)
	}
}

func TestContainerMarshalChecksSequence(t *testing.T) {
	t.Parallel()

	c := Container{Chunks: []Chunk{{Type: ChunkBIN, Data: []byte{1}}}}
	if _, err := c.Marshal(); !errors.Is(err, ErrInvalidChunkSequence) {
		t.Fatalf("expected ErrInvalidChunkSequence, got %v", err)
	}
}

func TestTrimPayload(t *testing.T) {
	t.Parallel()

	doc := &scene.Document{Buffers: []scene.Buffer{{ByteLength: 42}}}
	padded := make([]byte, 44)
	if got := TrimPayload(doc, padded); len(got) != 42 {
		t.Fatalf("expected 42 bytes, got %d", len(got))
	}

	doc.Buffers[0].ByteLength = 50
	if got := TrimPayload(doc, padded); len(got) != 44 {
		t.Fatalf("oversized byteLength should leave payload alone, got %d", len(got))
	}

	doc.Buffers[0].URI = "external.bin"
	if got := TrimPayload(doc, padded); len(got) != 44 {
		t.Fatalf("external buffer should leave payload alone, got %d", len(got))
	}

	if got := TrimPayload(&scene.Document{Buffers: []scene.Buffer{{}}}, padded); got != nil {
		t.Fatalf("zero byteLength should yield nil, got %d bytes", len(got))
	}
	if got := TrimPayload(nil, padded); len(got) != 44 {
		t.Fatalf("nil document should leave payload alone")
	}
}
