package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/glbkit/internal/logger"
	"github.com/samcharles93/glbkit/pkg/glb"
	"github.com/samcharles93/glbkit/pkg/scene"
)

var errIssuesFound = errors.New("validation issues found")

func validateCmd() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check a .glb or .gltf for structural issues (exit status 1 when any are found)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"in", "i"},
				Usage:    "input .glb or .gltf path",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			path := cmd.String("input")

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("validate: %w", err)
			}
			issues, err := validateBytes(data)
			if err != nil {
				return fmt.Errorf("validate: %w", err)
			}

			w := cmd.Root().Writer
			if len(issues) == 0 {
				log.Debug("no structural issues", "path", path)
				fmt.Fprintf(w, "%s: ok\n", path)
				return nil
			}
			printIssues(w, issues)
			return fmt.Errorf("validate: %s: %w: %d", path, errIssuesFound, len(issues))
		},
	}
}

// validateBytes validates a container, or a bare descriptor when data does
// not start with the container magic.
func validateBytes(data []byte) ([]scene.Issue, error) {
	if isContainer(data) {
		doc, bin, err := glb.Decode(data)
		if err != nil {
			return nil, err
		}
		return scene.ValidatePayload(doc, bin), nil
	}
	doc, err := scene.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", glb.ErrDescriptorParse, err)
	}
	return scene.Validate(doc), nil
}

func isContainer(data []byte) bool {
	var magic [4]byte
	binary.LittleEndian.PutUint32(magic[:], glb.Magic)
	return bytes.HasPrefix(data, magic[:])
}

func printIssues(w io.Writer, issues []scene.Issue) {
	for _, is := range issues {
		fmt.Fprintf(w, "  [%s] %s\n", is.Code, is)
	}
}
