package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides. A double underscore selects a
// nested key: NEUROSPHERE_SCENE__SLICE sets scene.slice.
const EnvPrefix = "NEUROSPHERE_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (NEUROSPHERE_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: NEUROSPHERE_PORT -> port, etc.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.TelemetryFile == "" {
		return fmt.Errorf("telemetry_file is required")
	}
	if c.ConfigRoot == "" {
		return fmt.Errorf("config_root is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.PollInterval != "" {
		d, err := time.ParseDuration(c.PollInterval)
		if err != nil {
			return fmt.Errorf("invalid poll_interval %q: %w", c.PollInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("poll_interval must be positive")
		}
	}
	if c.Scene.Slice < 0 || c.Scene.Slice > 4 {
		return fmt.Errorf("scene.slice must be between 0 and 4")
	}
	if c.Scene.Device < -1 || c.Scene.Device > 11 {
		return fmt.Errorf("scene.device must be -1 or between 0 and 11")
	}
	return nil
}

// Poll returns the polling interval, or zero when unset or invalid.
func (c *Config) Poll() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 0
	}
	return d
}

// Resolve places a relative path under DataDir. Absolute paths and empty
// strings are returned unchanged.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.DataDir == "" {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// TelemetryPath is the basic scheme telemetry file.
func (c *Config) TelemetryPath() string { return c.Resolve(c.TelemetryFile) }

// PhasePath is the phased scheme telemetry file.
func (c *Config) PhasePath() string { return c.Resolve(c.PhaseFile) }

// ConfigRootPath is the directory configuration documents live under.
func (c *Config) ConfigRootPath() string { return c.Resolve(c.ConfigRoot) }

// DatabasePath is the sqlite database file.
func (c *Config) DatabasePath() string { return c.Resolve(c.DBPath) }
