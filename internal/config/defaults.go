package config

import (
	"strings"
	"time"
)

// defaultConfig returns a Config populated with every default value; Load
// unmarshals on top of it so a config file only needs to specify what it
// wants to override.
func defaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in any zero-valued field with the bridge's default,
// mirroring the per-section default-application pattern: each config
// section gets its own apply function so Load can skip straight to
// validation once every section has been visited.
func ApplyDefaults(cfg *Config) {
	applyBrokerDefaults(&cfg.Broker)
	applyPublishPeriodDefaults(&cfg.PublishPeriods)
	applyReconnectDefaults(&cfg.Reconnect)
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)

	if cfg.ShutdownGrace == 0 {
		cfg.ShutdownGrace = 2 * time.Second
	}
}

func applyBrokerDefaults(cfg *BrokerConfig) {
	if cfg.ClientID == "" {
		cfg.ClientID = "vda5050-bridge"
	}
}

func applyPublishPeriodDefaults(cfg *PublishPeriods) {
	if cfg.State == 0 {
		cfg.State = 1000 * time.Millisecond
	}
	if cfg.Visualization == 0 {
		cfg.Visualization = 2000 * time.Millisecond
	}
	if cfg.Connection == 0 {
		cfg.Connection = 5000 * time.Millisecond
	}
	if cfg.Factsheet == 0 {
		cfg.Factsheet = 30000 * time.Millisecond
	}
}

func applyReconnectDefaults(cfg *ReconnectConfig) {
	if cfg.Interval == 0 {
		cfg.Interval = 30 * time.Second
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.OTLPEndpoint == "" {
		cfg.OTLPEndpoint = "localhost:4317"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "vda5050-bridge"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Addr == "" {
		cfg.Addr = ":9090"
	}
}
