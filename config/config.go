// Package config handles blok.toml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents a blok.toml configuration file.
type Config struct {
	Pool   Pool   `toml:"pool"`
	Limits Limits `toml:"limits"`
	Store  Store  `toml:"store"`
	Log    Log    `toml:"log"`

	// Dir is the directory containing the blok.toml file (set at load time).
	Dir string `toml:"-"`
}

// Pool configures the agent pool.
type Pool struct {
	Agents int `toml:"agents"`
}

// Limits bounds what the engine will accept.
type Limits struct {
	MaxCaptures    int `toml:"max-captures"`
	MaxSourceBytes int `toml:"max-source-bytes"`
}

// Store configures the definition cache.
type Store struct {
	Path string `toml:"path"`
}

// Log configures logging output.
type Log struct {
	Verbosity int `toml:"verbosity"`
}

// Default returns the configuration used when no blok.toml exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Pool.Agents <= 0 {
		c.Pool.Agents = 2
	}
	if c.Limits.MaxCaptures <= 0 {
		c.Limits.MaxCaptures = 64
	}
	if c.Limits.MaxSourceBytes <= 0 {
		c.Limits.MaxSourceBytes = 1 << 20
	}
}

// Load parses a blok.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "blok.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	c.applyDefaults()
	return &c, nil
}

// FindAndLoad walks up from startDir to find a blok.toml file, then
// loads and returns the configuration. Returns the defaults if no
// file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", startDir, err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "blok.toml")); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}
