// Package config loads the glbkit configuration file
// (~/.config/glbkit/config.yaml). Values set here are defaults that command
// line flags override.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DefaultServerAddress  = "127.0.0.1:8088"
	DefaultMaxUploadBytes = 64 << 20
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "pretty"
)

// Config mirrors the YAML file. Pointer fields distinguish "not set" from
// an explicit zero value.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`

	ServerAddress  string `yaml:"server_address"`
	MaxUploadBytes *int64 `yaml:"max_upload_bytes"`
	RejectInvalid  *bool  `yaml:"reject_invalid"`

	// Generator is stamped into asset.generator by pack --stamp-generator.
	Generator string `yaml:"generator"`
}

// Default returns the built-in settings.
func Default() Config {
	maxUpload := int64(DefaultMaxUploadBytes)
	reject := false
	return Config{
		LogLevel:       DefaultLogLevel,
		LogFormat:      DefaultLogFormat,
		ServerAddress:  DefaultServerAddress,
		MaxUploadBytes: &maxUpload,
		RejectInvalid:  &reject,
	}
}

// Path returns the default config file location, or "" when no user config
// directory can be determined.
func Path() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "glbkit", "config.yaml")
}

// Load reads path over Default. A missing file is not an error when
// optional is true, which is how the implicit default location is read.
func Load(path string, optional bool) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: %w", err)
	}
	defer func() { _ = f.Close() }()

	file, err := Decode(f)
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg.Merge(file), nil
}

// Decode parses YAML without applying defaults. Unknown keys are rejected
// so typos surface instead of being ignored.
func Decode(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Merge returns c with every field that is set in o replaced by o's value.
func (c Config) Merge(o Config) Config {
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		c.LogFormat = o.LogFormat
	}
	if o.LogFile != "" {
		c.LogFile = o.LogFile
	}
	if o.ServerAddress != "" {
		c.ServerAddress = o.ServerAddress
	}
	if o.MaxUploadBytes != nil {
		v := *o.MaxUploadBytes
		c.MaxUploadBytes = &v
	}
	if o.RejectInvalid != nil {
		v := *o.RejectInvalid
		c.RejectInvalid = &v
	}
	if o.Generator != "" {
		c.Generator = o.Generator
	}
	return c
}

// Validate rejects values no command could use.
func (c Config) Validate() error {
	if c.MaxUploadBytes != nil && *c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", *c.MaxUploadBytes)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// UploadLimit returns MaxUploadBytes or the default.
func (c Config) UploadLimit() int64 {
	if c.MaxUploadBytes == nil {
		return DefaultMaxUploadBytes
	}
	return *c.MaxUploadBytes
}

// Reject reports whether uploads with validation issues are refused.
func (c Config) Reject() bool {
	return c.RejectInvalid != nil && *c.RejectInvalid
}
