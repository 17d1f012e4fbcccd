// Package config loads pipeline configuration from YAML with environment
// overrides. All fields have working defaults so library users need no
// config file at all.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file-based configuration.
const (
	EnvDataPath = "MNI_DATAPATH"
	EnvScratch  = "MNIPIPE_SCRATCH"
	EnvLogLevel = "MNIPIPE_LOG_LEVEL"
)

// Config is the top-level pipeline configuration.
type Config struct {
	// DataPath is the shared data root for bundled reference models.
	DataPath string `yaml:"data_path"`

	// ScratchDir is the base directory for intermediate files. Empty means
	// the system temporary directory.
	ScratchDir string `yaml:"scratch_dir"`

	// Journal configures invocation provenance recording.
	Journal JournalConfig `yaml:"journal"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Tracing configures trace export.
	Tracing TracingConfig `yaml:"tracing"`

	// Metrics configures Prometheus metrics exposure.
	Metrics MetricsConfig `yaml:"metrics"`
}

// JournalConfig configures the invocation journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=console json"`
	Output string `yaml:"output"`
}

// TracingConfig configures trace export.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter" validate:"omitempty,oneof=otlp stdout none"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate" validate:"gte=0,lte=1"`
}

// MetricsConfig configures Prometheus metrics exposure. When enabled, a
// /metrics endpoint is served on Listen for the duration of the run.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen" validate:"required_if=Enabled true"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Tracing: TracingConfig{
			Exporter:     "none",
			SamplingRate: 1.0,
		},
	}
}

// Load reads configuration from the YAML file at path, then applies
// environment overrides and validates the result. An empty path yields the
// defaults plus environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDataPath); v != "" {
		c.DataPath = v
	}
	if v := os.Getenv(EnvScratch); v != "" {
		c.ScratchDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
