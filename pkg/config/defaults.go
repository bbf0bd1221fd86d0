package config

import "time"

// Client modes.
const (
	ModeODD  = "odd"
	ModeEdge = "edge"
)

// Default values for configuration fields.
const (
	// Client defaults
	DefaultMode          = ModeODD
	DefaultClientTimeout = 10 * time.Second

	// Rules defaults
	DefaultRulesSource            = "http"
	DefaultRulesFilePath          = "rules.json"
	DefaultRulesMaxConditionDepth = 32

	// History defaults
	DefaultHistoryBackend            = "memory"
	DefaultHistorySQLitePath         = "data/history.db"
	DefaultHistorySQLiteDriver       = "sqlite"
	DefaultHistorySQLiteMaxOpenConns = 1
	DefaultHistorySQLiteBusyTimeout  = 5 * time.Second
	DefaultHistoryPruneSchedule      = "0 3 * * *"

	// Server defaults
	DefaultServerListenAddress   = ":8080"
	DefaultServerReadTimeout     = 10 * time.Second
	DefaultServerWriteTimeout    = 30 * time.Second
	DefaultServerIdleTimeout     = 120 * time.Second
	DefaultServerShutdownTimeout = 15 * time.Second
	DefaultServerMaxBodyBytes    = 5 << 20

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultPrometheusPath     = "/metrics"
	DefaultMetricsNamespace   = "odd"
	DefaultMetricsSubsystem   = "decisioning"
	DefaultTracingServiceName = "odd-decisioning"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 1.0
	DefaultOTLPTimeout        = 10 * time.Second
)

// DefaultEvaluationDurationBuckets spans 10µs to roughly 160ms.
var DefaultEvaluationDurationBuckets = []float64{
	0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.16,
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Client defaults
	if cfg.Client.Mode == "" {
		cfg.Client.Mode = DefaultMode
	}
	if cfg.Client.Timeout == 0 {
		cfg.Client.Timeout = DefaultClientTimeout
	}

	// Rules defaults
	if cfg.Rules.Source == "" {
		cfg.Rules.Source = DefaultRulesSource
	}
	if cfg.Rules.Source == "file" && cfg.Rules.FilePath == "" {
		cfg.Rules.FilePath = DefaultRulesFilePath
	}
	if cfg.Rules.MaxConditionDepth == 0 {
		cfg.Rules.MaxConditionDepth = DefaultRulesMaxConditionDepth
	}

	// History defaults
	if cfg.History.Backend == "" {
		cfg.History.Backend = DefaultHistoryBackend
	}
	if cfg.History.Backend == "sqlite" {
		if cfg.History.SQLite.Path == "" {
			cfg.History.SQLite.Path = DefaultHistorySQLitePath
		}
		if cfg.History.SQLite.Driver == "" {
			cfg.History.SQLite.Driver = DefaultHistorySQLiteDriver
		}
		if cfg.History.SQLite.MaxOpenConns == 0 {
			cfg.History.SQLite.MaxOpenConns = DefaultHistorySQLiteMaxOpenConns
		}
		if cfg.History.SQLite.BusyTimeout == 0 {
			cfg.History.SQLite.BusyTimeout = DefaultHistorySQLiteBusyTimeout
		}
	}
	if cfg.History.Retention > 0 && cfg.History.PruneSchedule == "" {
		cfg.History.PruneSchedule = DefaultHistoryPruneSchedule
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultServerListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultServerIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultServerMaxBodyBytes
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.EvaluationDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.EvaluationDurationBuckets = append([]float64(nil), DefaultEvaluationDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.OTLP.Timeout == 0 {
		cfg.Telemetry.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
