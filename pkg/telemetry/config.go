package telemetry

import (
	"fmt"
	"time"
)

// Config contains the telemetry configuration for the pipeline.
type Config struct {
	// ServiceName identifies this service in traces and metrics.
	ServiceName string

	// ServiceVersion is the running version.
	ServiceVersion string

	// Logging configures structured logging.
	Logging LoggingConfig

	// Tracing configures distributed tracing.
	Tracing TracingConfig

	// Metrics configures metrics collection.
	Metrics MetricsConfig
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	Level string

	// Format specifies the log format (console, json).
	Format string

	// Output specifies where logs are written (stdout, stderr, file path).
	Output string
}

// TracingConfig configures trace export.
type TracingConfig struct {
	// Enabled turns tracing on.
	Enabled bool

	// Exporter selects the span exporter (otlp, stdout, none).
	Exporter string

	// Endpoint is the OTLP gRPC endpoint when Exporter is "otlp".
	Endpoint string

	// SamplingRate is the trace sampling ratio in [0, 1].
	SamplingRate float64

	// ExportTimeout bounds each export batch.
	ExportTimeout time.Duration
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns metrics collection on.
	Enabled bool

	// Namespace prefixes all metric names.
	Namespace string
}

// DefaultConfig returns a configuration suitable for library use: console
// logging at info level, no tracing, no metrics.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "mnipipe",
		ServiceVersion: "dev",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Tracing: TracingConfig{
			Exporter:      "none",
			SamplingRate:  1.0,
			ExportTimeout: 30 * time.Second,
		},
		Metrics: MetricsConfig{
			Namespace: "mnipipe",
		},
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("unsupported log format: %s", c.Logging.Format)
	}
	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case "otlp":
			if c.Tracing.Endpoint == "" {
				return fmt.Errorf("otlp exporter requires an endpoint")
			}
		case "stdout", "none":
		default:
			return fmt.Errorf("unsupported trace exporter: %s", c.Tracing.Exporter)
		}
		if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
			return fmt.Errorf("sampling rate must be in [0, 1], got %f", c.Tracing.SamplingRate)
		}
	}
	return nil
}
