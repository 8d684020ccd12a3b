package main

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/glbkit/internal/config"
	"github.com/samcharles93/glbkit/internal/logger"
)

var (
	configPath string
	logLevel   string
	logFormat  string
	logFile    string
	debug      bool

	// settings is the merged configuration, filled in by setup.
	settings  = config.Default()
	logCloser io.Closer
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default: user config dir)",
			Destination: &configPath,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       config.DefaultLogLevel,
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       config.DefaultLogFormat,
			Destination: &logFormat,
		},
		&cli.StringFlag{
			Name:        "log-file",
			Usage:       "also write JSON logs to this file, rotated by size",
			Destination: &logFile,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

// setup loads the config file, lets explicitly set flags win over it and
// installs the resulting logger in the command context.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path, optional := configPath, false
	if path == "" {
		path, optional = config.Path(), true
	}
	cfg, err := config.Load(path, optional)
	if err != nil {
		return ctx, err
	}
	cfg = applyLogFlags(cfg, cmd.IsSet)
	settings = cfg

	format, err := logger.ParseFormat(cfg.LogFormat)
	if err != nil {
		return ctx, err
	}
	opts := logger.Options{
		Level:   logger.ParseLevel(cfg.LogLevel),
		Format:  format,
		Console: cmd.Root().ErrWriter,
	}
	if cfg.LogFile != "" {
		opts.File = logger.DefaultFileConfig(cfg.LogFile)
	}
	log, closer, err := logger.Setup(opts)
	if err != nil {
		return ctx, fmt.Errorf("logger: %w", err)
	}
	logCloser = closer
	if path != "" {
		log.Debug("configuration loaded", "path", path)
	}
	return logger.WithContext(ctx, log), nil
}

func teardown(ctx context.Context, cmd *cli.Command) error {
	if logCloser == nil {
		return nil
	}
	err := logCloser.Close()
	logCloser = nil
	return err
}

// applyLogFlags overrides cfg with the logging flags the user set.
func applyLogFlags(cfg config.Config, isSet func(string) bool) config.Config {
	if isSet("log-level") {
		cfg.LogLevel = logLevel
	}
	if isSet("log-format") {
		cfg.LogFormat = logFormat
	}
	if isSet("log-file") {
		cfg.LogFile = logFile
	}
	if debug {
		cfg.LogLevel = "debug"
	}
	return cfg
}

func formatBytes(b uint64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.2f GiB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.2f MiB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.2f KiB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
