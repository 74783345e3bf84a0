// Package config loads quiverkit's TOML configuration file.
//
// The file is optional: a missing file yields the defaults, and every key
// may be omitted. Command-line flags take precedence over the file; the CLI
// applies the file's values to flags the user did not set.
//
// Example:
//
//	[export]
//	ampersand_replacement = false
//	centre = true
//	sep = "2em"
//
//	[geometry]
//	cell_size = 60
//
//	[server]
//	addr = ":8080"
//	redis_url = "redis://localhost:6379/0"
//	mongo_uri = "mongodb://localhost:27017"
//	diagram_ttl = "720h"
//
//	[cache]
//	disabled = false
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/quiverkit/pkg/errors"
	"github.com/matzehuels/quiverkit/pkg/geometry"
)

// Defaults for values the file leaves out.
const (
	DefaultAddr       = ":8080"
	DefaultBaseURL    = "https://q.uiver.app/"
	DefaultCacheTTL   = 7 * 24 * time.Hour
	DefaultDiagramTTL = 30 * 24 * time.Hour
)

// Config is the whole configuration file.
type Config struct {
	Export   Export   `toml:"export"`
	Geometry Geometry `toml:"geometry"`
	Server   Server   `toml:"server"`
	Cache    Cache    `toml:"cache"`
}

// Export holds defaults for tikz-cd export.
type Export struct {
	AmpersandReplacement bool   `toml:"ampersand_replacement"`
	Centre               bool   `toml:"centre"`
	Cramped              bool   `toml:"cramped"`
	Sep                  string `toml:"sep"`
	BaseURL              string `toml:"base_url"`
}

// Geometry describes the grid diagrams are drawn on.
type Geometry struct {
	// CellSize is the distance between grid cells in points.
	CellSize float64 `toml:"cell_size"`
}

// Server configures quiverkit serve.
type Server struct {
	Addr          string        `toml:"addr"`
	RedisURL      string        `toml:"redis_url"`
	MongoURI      string        `toml:"mongo_uri"`
	MongoDatabase string        `toml:"mongo_database"`
	DataDir       string        `toml:"data_dir"`
	CacheTTL      time.Duration `toml:"cache_ttl"`
	DiagramTTL    time.Duration `toml:"diagram_ttl"`
}

// Cache configures the CLI's local cache.
type Cache struct {
	Dir      string `toml:"dir"`
	Disabled bool   `toml:"disabled"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	var c Config
	c.setDefaults()
	return c
}

// Path returns the default location of the configuration file,
// $XDG_CONFIG_HOME/quiverkit/config.toml or ~/.config/quiverkit/config.toml.
func Path() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home dir: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "quiverkit", "config.toml"), nil
}

// Load reads the file at path, or at [Path] when path is empty. A missing
// default file is not an error; a missing explicit path is.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		if os.IsNotExist(err) {
			return Config{}, errors.New(errors.ErrCodeFileNotFound, "config file not found: %s", path)
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a configuration file. Unknown keys are rejected so that
// typos do not go unnoticed.
func Parse(data []byte) (Config, error) {
	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.New(errors.ErrCodeInvalidInput, "unknown config key %q", undecoded[0].String())
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	c.setDefaults()
	return c, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Geometry.CellSize < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "geometry.cell_size must be positive, got %v", c.Geometry.CellSize)
	}
	if c.Server.CacheTTL < 0 || c.Server.DiagramTTL < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "server ttl values must not be negative")
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Export.BaseURL == "" {
		c.Export.BaseURL = DefaultBaseURL
	}
	if c.Geometry.CellSize == 0 {
		c.Geometry.CellSize = geometry.DefaultCellSize
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.CacheTTL == 0 {
		c.Server.CacheTTL = DefaultCacheTTL
	}
	if c.Server.DiagramTTL == 0 {
		c.Server.DiagramTTL = DefaultDiagramTTL
	}
}
