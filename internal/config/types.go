package config

// Config is the top-level neurosphere configuration, corresponding to
// neurosphere.yml.
type Config struct {
	DataDir         string      `yaml:"data_dir" koanf:"data_dir"`
	TelemetryFile   string      `yaml:"telemetry_file" koanf:"telemetry_file"`
	PhaseFile       string      `yaml:"phase_file" koanf:"phase_file"`
	ConfigRoot      string      `yaml:"config_root" koanf:"config_root"`
	ConfigPatterns  []string    `yaml:"config_patterns" koanf:"config_patterns"`
	DBPath          string      `yaml:"db_path" koanf:"db_path"`
	Port            int         `yaml:"port" koanf:"port"`
	AllowAllOrigins bool        `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	PollInterval    string      `yaml:"poll_interval" koanf:"poll_interval"`
	Scene           SceneConfig `yaml:"scene" koanf:"scene"`
}

// SceneConfig selects what drives the live scene.
type SceneConfig struct {
	Slice  int `yaml:"slice" koanf:"slice"`
	Device int `yaml:"device" koanf:"device"` // -1 for the first device in the file
}
