package cmd

import (
	"fmt"

	"github.com/ziadkadry99/neurosphere/internal/config"
	"github.com/ziadkadry99/neurosphere/internal/telemetry"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `neurosphere init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// telemetryFiles returns the telemetry sources named by cfg.
func telemetryFiles(cfg *config.Config) telemetry.Files {
	return telemetry.Files{
		Devices: cfg.TelemetryPath(),
		Phases:  cfg.PhasePath(),
	}
}

// parseScheme validates a --scheme flag value.
func parseScheme(s string) (telemetry.Scheme, error) {
	scheme := telemetry.Scheme(s)
	if !scheme.Valid() {
		return "", fmt.Errorf("unknown scheme %q: must be basic or phased", s)
	}
	return scheme, nil
}
