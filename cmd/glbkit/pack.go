package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/glbkit/internal/logger"
	"github.com/samcharles93/glbkit/internal/version"
	"github.com/samcharles93/glbkit/pkg/glb"
	"github.com/samcharles93/glbkit/pkg/scene"
)

func packCmd() *cli.Command {
	return &cli.Command{
		Name:  "pack",
		Usage: "Pack a .gltf descriptor and an optional binary payload into a .glb",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "descriptor",
				Aliases:  []string{"d"},
				Usage:    "descriptor JSON (.gltf)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "payload",
				Aliases: []string{"p"},
				Usage:   "binary payload stored as buffer 0",
			},
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"out", "o"},
				Usage:    "output .glb path",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "validate",
				Usage: "refuse to write when the descriptor has structural issues",
			},
			&cli.BoolFlag{
				Name:  "stamp-generator",
				Usage: "set asset.generator (config 'generator' or the glbkit version)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			js, err := os.ReadFile(cmd.String("descriptor"))
			if err != nil {
				return fmt.Errorf("pack: %w", err)
			}
			doc, err := scene.Unmarshal(js)
			if err != nil {
				return fmt.Errorf("pack: %w: %w", glb.ErrDescriptorParse, err)
			}

			var bin []byte
			if p := cmd.String("payload"); p != "" {
				if bin, err = os.ReadFile(p); err != nil {
					return fmt.Errorf("pack: %w", err)
				}
				if embedPayload(doc, len(bin)) {
					log.Debug("buffer 0 now refers to the embedded payload", "bytes", len(bin))
				}
			}

			if cmd.Bool("stamp-generator") {
				doc.Asset.Generator = generatorName()
			}

			if cmd.Bool("validate") {
				if issues := scene.ValidatePayload(doc, bin); len(issues) > 0 {
					printIssues(cmd.Root().Writer, issues)
					return fmt.Errorf("pack: %w: %d", errIssuesFound, len(issues))
				}
			}

			out := cmd.String("output")
			if err := glb.WriteFile(out, doc, bin); err != nil {
				return fmt.Errorf("pack: %w", err)
			}
			if st, err := os.Stat(out); err == nil {
				log.Info("packed container", "path", out, "size", formatBytes(uint64(st.Size())), "payload", len(bin))
			}
			return nil
		},
	}
}

// embedPayload points buffer 0 at the container's binary chunk: an external
// URI is dropped and a missing buffer or byte length is filled in. It
// reports whether doc changed.
func embedPayload(doc *scene.Document, n int) bool {
	if n == 0 {
		return false
	}
	if len(doc.Buffers) == 0 {
		doc.Buffers = append(doc.Buffers, scene.Buffer{ByteLength: n})
		return true
	}
	b := &doc.Buffers[0]
	changed := false
	if b.URI != "" {
		b.URI = ""
		changed = true
	}
	if b.ByteLength == 0 {
		b.ByteLength = n
		changed = true
	}
	return changed
}

func generatorName() string {
	if settings.Generator != "" {
		return settings.Generator
	}
	return version.Generator()
}
