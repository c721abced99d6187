// Package config loads and validates ~/.imsgx/config.toml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/matheus3301/imsgx/internal/paths"
)

// Config holds everything an extraction run needs to know.
type Config struct {
	SourcePath string `toml:"source_path" validate:"required"`
	OutputPath string `toml:"output_path" validate:"required"`
	// Timezone is an IANA zone name for formatted_date. Empty means the system zone.
	Timezone string `toml:"timezone" validate:"omitempty,timezone"`
	// AttachmentPlaceholder replaces inline attachment markers in decoded text.
	// Empty drops them.
	AttachmentPlaceholder string `toml:"attachment_placeholder"`
	MinTextLength         int    `toml:"min_text_length" validate:"min=1,max=1000"`
	MinSuffixDigits       int    `toml:"min_suffix_digits" validate:"min=4,max=15"`
	// DecodeWorkers bounds parallel attributedBody decoding. 0 uses GOMAXPROCS.
	DecodeWorkers int    `toml:"decode_workers" validate:"min=0,max=256"`
	LogLevel      string `toml:"log_level" validate:"oneof=debug info warn error"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		SourcePath:      paths.DefaultSourcePath(),
		OutputPath:      paths.DefaultOutputPath(),
		MinTextLength:   1,
		MinSuffixDigits: 7,
		LogLevel:        "info",
	}
}

// Load reads config from path over the defaults and validates it. Returns an
// error if the file is missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.SourcePath = paths.Expand(cfg.SourcePath)
	cfg.OutputPath = paths.Expand(cfg.OutputPath)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default().
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Location returns the zone formatted_date is rendered in.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Overrides are command-line values that take precedence over the file.
// Zero values leave the file setting alone.
type Overrides struct {
	SourcePath    string
	OutputPath    string
	Timezone      string
	LogLevel      string
	DecodeWorkers int
	Placeholder   *string
}

// Resolve builds the effective config using precedence:
// 1. overrides (command-line flags)
// 2. the config file at path
// 3. defaults
func Resolve(path string, o Overrides) (*Config, error) {
	cfg, err := LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if o.SourcePath != "" {
		cfg.SourcePath = paths.Expand(o.SourcePath)
	}
	if o.OutputPath != "" {
		cfg.OutputPath = paths.Expand(o.OutputPath)
	}
	if o.Timezone != "" {
		cfg.Timezone = o.Timezone
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.DecodeWorkers > 0 {
		cfg.DecodeWorkers = o.DecodeWorkers
	}
	if o.Placeholder != nil {
		cfg.AttachmentPlaceholder = *o.Placeholder
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
