// Package config loads the ledgerql configuration file.
//
// A configuration file is YAML:
//
//	format: table
//	precision: 2
//	null: "-"
//	workers: 4
//	plan_cache_size: 256
//	sources:
//	  main: books/2024.parquet
//	  archive: books/archive.db
//
// Missing keys keep their defaults. Relative source paths are resolved
// against the directory holding the configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/vegasq/ledgerql/output"
)

// ErrInvalidConfig is returned for configuration values out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the settings shared by the CLI and the session.
type Config struct {
	Format        string            `yaml:"format"`
	Precision     int               `yaml:"precision"`
	Null          string            `yaml:"null"`
	Workers       int               `yaml:"workers"`
	PlanCacheSize int               `yaml:"plan_cache_size"`
	Sources       map[string]string `yaml:"sources"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Format:        "text",
		Precision:     -1,
		Workers:       1,
		PlanCacheSize: 128,
		Sources:       map[string]string{},
	}
}

// Load reads the configuration file at path. An empty path yields Default.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for name, src := range cfg.Sources {
		if !filepath.IsAbs(src) {
			cfg.Sources[name] = filepath.Join(dir, src)
		}
	}
	return cfg, nil
}

// Parse decodes a YAML configuration over the defaults and validates it.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Sources == nil {
		cfg.Sources = map[string]string{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every setting.
func (c *Config) Validate() error {
	if _, err := output.NewFormatter(c.Format, io.Discard, c.Options()); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.PlanCacheSize < 0 {
		return fmt.Errorf("%w: plan_cache_size must not be negative, got %d", ErrInvalidConfig, c.PlanCacheSize)
	}
	for name, src := range c.Sources {
		if name == "" || src == "" {
			return fmt.Errorf("%w: source %q has no path", ErrInvalidConfig, name)
		}
	}
	return nil
}

// Options returns the renderer options.
func (c *Config) Options() output.Options {
	return output.Options{Precision: c.Precision, Null: c.Null}
}

// SourceNames returns the configured source names in order.
func (c *Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
