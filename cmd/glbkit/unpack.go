package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/glbkit/internal/logger"
	"github.com/samcharles93/glbkit/pkg/glb"
	"github.com/samcharles93/glbkit/pkg/scene"
)

func unpackCmd() *cli.Command {
	return &cli.Command{
		Name:  "unpack",
		Usage: "Split a .glb into its descriptor and binary payload",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"in", "i"},
				Usage:    "input .glb path",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "descriptor-out",
				Usage:    "where to write the descriptor JSON",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "payload-out",
				Usage: "where to write the binary payload; buffer 0 is linked to it by URI",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			c, err := glb.ParseFile(cmd.String("input"))
			if err != nil {
				return fmt.Errorf("unpack: %w", err)
			}
			doc, bin, err := c.Decode()
			if err != nil {
				return fmt.Errorf("unpack: %w", err)
			}
			if n := len(c.Unknown()); n > 0 {
				log.Warn("dropping chunks of unknown type", "count", n)
			}

			descriptor := c.Descriptor()
			if out := cmd.String("payload-out"); out != "" {
				if bin == nil {
					log.Warn("container has no binary payload; nothing written", "path", out)
				} else {
					payload := glb.TrimPayload(doc, bin)
					if err := os.WriteFile(out, payload, 0o644); err != nil {
						return fmt.Errorf("unpack: %w", err)
					}
					if linkPayload(doc, filepath.Base(out)) {
						if descriptor, err = scene.Marshal(doc); err != nil {
							return fmt.Errorf("unpack: %w", err)
						}
					}
					log.Info("wrote payload", "path", out, "bytes", len(payload))
				}
			}

			out := cmd.String("descriptor-out")
			if err := os.WriteFile(out, descriptor, 0o644); err != nil {
				return fmt.Errorf("unpack: %w", err)
			}
			log.Info("wrote descriptor", "path", out, "bytes", len(descriptor))
			return nil
		},
	}
}

// linkPayload sets buffer 0's URI to name when it currently refers to the
// container's binary chunk.
func linkPayload(doc *scene.Document, name string) bool {
	if len(doc.Buffers) == 0 || doc.Buffers[0].URI != "" {
		return false
	}
	doc.Buffers[0].URI = name
	return true
}
