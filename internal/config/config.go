package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents an ewvm.yaml (or ewvm.toml) run configuration.
type Config struct {
	Optimize OptimizeConfig `yaml:"optimize" toml:"optimize"`
	Limits   LimitsConfig   `yaml:"limits" toml:"limits"`
	Debug    DebugConfig    `yaml:"debug" toml:"debug"`
	Cache    CacheConfig    `yaml:"cache" toml:"cache"`
	Log      LogConfig      `yaml:"log" toml:"log"`

	// path is the file the configuration was read from (empty for defaults).
	path string
}

// OptimizeConfig toggles the optimizer passes. Omitted fields default to on.
type OptimizeConfig struct {
	Fold     *bool `yaml:"fold,omitempty" toml:"fold,omitempty"`
	DeadCode *bool `yaml:"dead_code,omitempty" toml:"dead_code,omitempty"`
}

// LimitsConfig bounds array sizes and call depth. Both must be positive
// when given.
type LimitsConfig struct {
	ArraySize *int `yaml:"array_size,omitempty" toml:"array_size,omitempty"`
	Frames    *int `yaml:"frames,omitempty" toml:"frames,omitempty"`
}

type DebugConfig struct {
	// IRDump is the path the optimized IR is written to; empty disables it.
	IRDump string `yaml:"ir_dump,omitempty" toml:"ir_dump,omitempty"`
	Trace  bool   `yaml:"trace,omitempty" toml:"trace,omitempty"`
}

type CacheConfig struct {
	// Path is the sqlite database of optimized programs; empty disables it.
	Path string `yaml:"path,omitempty" toml:"path,omitempty"`
}

type LogConfig struct {
	Verbosity int    `yaml:"verbosity,omitempty" toml:"verbosity,omitempty"`
	File      string `yaml:"file,omitempty" toml:"file,omitempty"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Path returns the file the configuration came from, if any.
func (c *Config) Path() string {
	return c.path
}

func (c *Config) FoldEnabled() bool     { return c.Optimize.Fold == nil || *c.Optimize.Fold }
func (c *Config) DeadCodeEnabled() bool { return c.Optimize.DeadCode == nil || *c.Optimize.DeadCode }
func (c *Config) ArraySizeLimit() int   { return *c.Limits.ArraySize }
func (c *Config) MaxFrames() int        { return *c.Limits.Frames }

// LoadConfig reads and parses a configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses configuration content from bytes. The extension of
// path selects TOML or YAML; otherwise path is used only for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	cfg.path = path
	return &cfg, nil
}

// FindConfig searches for a configuration file starting from dir and
// walking up to parent directories.
// Returns the path to the config file and nil error if found,
// or empty string and nil error if not found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return "", nil
		}
		dir = parent
	}
}

// Discover loads the configuration governing a program in dir, falling back
// to Default when there is none.
func Discover(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return Default(), nil
	}
	return LoadConfig(path)
}

// validate checks the configuration for semantic errors.
func (c *Config) validate(path string) error {
	if n := c.Limits.ArraySize; n != nil && *n <= 0 {
		return fmt.Errorf("%s: limits.array_size must be positive, got %d", path, *n)
	}
	if n := c.Limits.Frames; n != nil && *n <= 0 {
		return fmt.Errorf("%s: limits.frames must be positive, got %d", path, *n)
	}
	return nil
}

// setDefaults fills in default values for omitted fields.
func (c *Config) setDefaults() {
	if c.Limits.ArraySize == nil {
		n := DefaultArraySizeLimit
		c.Limits.ArraySize = &n
	}
	if c.Limits.Frames == nil {
		n := DefaultMaxFrames
		c.Limits.Frames = &n
	}
}
