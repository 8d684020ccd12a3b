package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/glbkit/internal/intake"
	"github.com/samcharles93/glbkit/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr          string
		readTimeout   time.Duration
		rejectInvalid bool
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the asset intake API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address (config: server_address)",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.BoolFlag{
				Name:        "reject-invalid",
				Usage:       "refuse uploads with structural issues (config: reject_invalid)",
				Destination: &rejectInvalid,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			if !cmd.IsSet("addr") {
				addr = settings.ServerAddress
			}
			if !cmd.IsSet("reject-invalid") {
				rejectInvalid = settings.Reject()
			}

			server := intake.NewServer(intake.NewAssetStore(), intake.Options{
				MaxUploadBytes: settings.UploadLimit(),
				RejectInvalid:  rejectInvalid,
				Logger:         log,
			})
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)

			log.Info("starting intake server", "address", addr, "max_upload", formatBytes(uint64(settings.UploadLimit())), "reject_invalid", rejectInvalid)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
