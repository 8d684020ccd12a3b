package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/glbkit/pkg/glb"
	"github.com/samcharles93/glbkit/pkg/scene"
)

type inspectReport struct {
	File       string        `json:"file"`
	Layout     glb.Info      `json:"layout"`
	Asset      scene.Asset   `json:"asset"`
	Scenes     int           `json:"scenes"`
	Nodes      int           `json:"nodes"`
	Meshes     int           `json:"meshes"`
	Accessors  int           `json:"accessors"`
	Views      int           `json:"buffer_views"`
	Buffers    int           `json:"buffers"`
	Members    []string      `json:"other_members,omitempty"`
	Issues     []scene.Issue `json:"issues"`
}

func inspectCmd() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Print the chunk table and descriptor summary of a .glb",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"in", "i"},
				Usage:    "input .glb path",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the report as JSON",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.String("input")
			c, err := glb.ParseFile(path)
			if err != nil {
				return fmt.Errorf("inspect: %w", err)
			}
			doc, bin, err := c.Decode()
			if err != nil {
				return fmt.Errorf("inspect: %w", err)
			}

			rep := inspectReport{
				File:      filepath.Base(path),
				Layout:    c.Info(),
				Asset:     doc.Asset,
				Scenes:    len(doc.Scenes),
				Nodes:     len(doc.Nodes),
				Meshes:    len(doc.Meshes),
				Accessors: len(doc.Accessors),
				Views:     len(doc.BufferViews),
				Buffers:   len(doc.Buffers),
				Issues:    scene.ValidatePayload(doc, bin),
			}
			for k := range doc.Extras {
				rep.Members = append(rep.Members, k)
			}
			slices.Sort(rep.Members)

			w := cmd.Root().Writer
			if cmd.Bool("json") {
				if rep.Issues == nil {
					rep.Issues = []scene.Issue{}
				}
				out, err := json.MarshalIndent(rep, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(w, string(out))
				return err
			}
			printReport(w, rep)
			return nil
		},
	}
}

func printReport(w io.Writer, rep inspectReport) {
	fmt.Fprintf(w, "File: %s (%s)\n", rep.File, formatBytes(rep.Layout.Length))
	fmt.Fprintf(w, "Header: magic=%s version=%d length=%d\n", rep.Layout.Magic, rep.Layout.Version, rep.Layout.Length)
	fmt.Fprintf(w, "%-3s  %-10s  %-10s  %10s  %10s\n", "#", "type", "kind", "offset", "length")
	for _, ch := range rep.Layout.Chunks {
		fmt.Fprintf(w, "%-3d  %-10s  %-10s  %10d  %10d\n", ch.Index, ch.Type, ch.Kind, ch.Offset, ch.Length)
	}
	fmt.Fprintf(w, "Asset: version=%s", rep.Asset.Version)
	if rep.Asset.Generator != "" {
		fmt.Fprintf(w, " generator=%q", rep.Asset.Generator)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Scenes=%d Nodes=%d Meshes=%d Accessors=%d BufferViews=%d Buffers=%d\n",
		rep.Scenes, rep.Nodes, rep.Meshes, rep.Accessors, rep.Views, rep.Buffers)
	if len(rep.Members) > 0 {
		fmt.Fprintf(w, "Other members: %v\n", rep.Members)
	}
	if len(rep.Issues) == 0 {
		fmt.Fprintln(w, "Structure: ok")
		return
	}
	fmt.Fprintf(w, "Structure: %d issue(s)\n", len(rep.Issues))
	printIssues(w, rep.Issues)
}
