package observability

import (
	"time"

	"resumescore/internal/config"
)

// Config holds the settings the manager needs
type Config struct {
	ServiceName        string
	ServiceVersion     string
	ServiceInstance    string
	Enabled            bool
	ConsoleOutput      bool
	TracingEnabled     bool
	SampleRate         float64
	MetricsEnabled     bool
	CollectionInterval time.Duration
	Prometheus         PrometheusConfig
	OTLP               config.OTLPConfig
}

// FromConfig builds the observability settings from the application config.
// version is used when observability.serviceVersion is empty.
func FromConfig(cfg *config.Config, version string) Config {
	if cfg == nil {
		return Config{
			ServiceName:        "resumescore",
			ServiceVersion:     version,
			Enabled:            false,
			SampleRate:         1.0,
			CollectionInterval: 15 * time.Second,
		}
	}

	obs := cfg.Observability
	serviceVersion := obs.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}

	return Config{
		ServiceName:        obs.ServiceName,
		ServiceVersion:     serviceVersion,
		ServiceInstance:    obs.ServiceInstance,
		Enabled:            obs.Enabled,
		ConsoleOutput:      obs.ConsoleOutput,
		TracingEnabled:     obs.Tracing.Enabled,
		SampleRate:         obs.Tracing.SampleRate,
		MetricsEnabled:     obs.Metrics.Enabled,
		CollectionInterval: obs.Metrics.CollectionInterval,
		Prometheus: PrometheusConfig{
			Enabled:  obs.Prometheus.Enabled,
			Endpoint: obs.Prometheus.Endpoint,
			Port:     obs.Prometheus.Port,
		},
		OTLP: obs.OTLP,
	}
}
