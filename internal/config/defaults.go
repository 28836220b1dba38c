package config

// DefaultFile is the config file name used when --config is not given.
const DefaultFile = "neurosphere.yml"

// DefaultPatterns allow any JSON document below the config root.
var DefaultPatterns = []string{"**/*.json"}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:        "data",
		TelemetryFile:  "time_sliced_data.txt",
		PhaseFile:      "phase_data.txt",
		ConfigRoot:     "brain-config",
		ConfigPatterns: DefaultPatterns,
		DBPath:         "neurosphere.db",
		Port:           8080,
		PollInterval:   "500ms",
		Scene: SceneConfig{
			Slice:  0,
			Device: -1,
		},
	}
}
