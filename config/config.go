package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	SigmaSPL SigmaSPLConfig `yaml:"sigmaspl"`
}

// SigmaSPLConfig is the project configuration.
type SigmaSPLConfig struct {
	Store    StoreConfig    `yaml:"store"`
	Profiles ProfilesConfig `yaml:"profiles"`
	Coverage CoverageConfig `yaml:"coverage"`
	LLM      LLMConfig      `yaml:"llm"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// StoreConfig controls the persistence backend shared by the profile,
// config, and conversion-history repositories.
type StoreConfig struct {
	Backend string      `yaml:"backend"` // memory|redis
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig controls Redis-backed persistence.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	Timeout   time.Duration `yaml:"timeout"`
}

// ProfilesConfig controls profile bootstrapping.
type ProfilesConfig struct {
	DefaultProfilePath string `yaml:"default_profile_path"`
}

// CoverageConfig controls which Sysmon/audit config snapshot the coverage
// checker consults.
type CoverageConfig struct {
	SysmonConfigPath string `yaml:"sysmon_config_path"`
	AuditConfigPath  string `yaml:"audit_config_path"`
}

// LLMConfig controls the optional LLM post-processing adapter used only by
// text_to_sigma (spec.md §9: never on the forward SPL emission path).
type LLMConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

// MetricsConfig controls Prometheus metrics exposition.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
