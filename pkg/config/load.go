package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "ODD_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	cfg, err := decodeFile(path)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Override adjusts a configuration after environment overrides and before
// validation, e.g. from command-line flags.
type Override func(*Config)

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention ODD_SECTION_FIELD (e.g., ODD_CLIENT_ORG_ID).
// Environment variables always take precedence over file-based configuration.
// An empty path loads defaults and overrides only.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides, then the given overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string, overrides ...Override) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		var err error
		if cfg, err = decodeFile(path); err != nil {
			return nil, err
		}
	}

	ApplyDefaults(cfg)
	applyEnvOverrides(cfg)
	for _, override := range overrides {
		override(cfg)
	}
	// Overrides may switch backends or sources, which have their own defaults.
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

func decodeFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Values that fail to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Client overrides
	envString("CLIENT_ORG_ID", &cfg.Client.OrgID)
	envString("CLIENT_DATASTREAM_ID", &cfg.Client.DatastreamID)
	envString("CLIENT_PROPERTY_TOKEN", &cfg.Client.PropertyToken)
	envString("CLIENT_EDGE_DOMAIN", &cfg.Client.EdgeDomain)
	envString("CLIENT_EDGE_BASE_PATH", &cfg.Client.EdgeBasePath)
	envString("CLIENT_MODE", &cfg.Client.Mode)
	envDuration("CLIENT_TIMEOUT", &cfg.Client.Timeout)

	// Rules overrides
	envString("RULES_SOURCE", &cfg.Rules.Source)
	envString("RULES_FILE_PATH", &cfg.Rules.FilePath)
	envBool("RULES_WATCH", &cfg.Rules.Watch)
	envString("RULES_DOMAIN", &cfg.Rules.Domain)
	envString("RULES_BASE_PATH", &cfg.Rules.BasePath)
	envDuration("RULES_POLLING_INTERVAL", &cfg.Rules.PollingInterval)
	envBool("RULES_VALIDATE_SCHEMA", &cfg.Rules.ValidateSchema)
	envInt("RULES_MAX_CONDITION_DEPTH", &cfg.Rules.MaxConditionDepth)

	// History overrides
	envBool("HISTORY_ENABLED", &cfg.History.Enabled)
	envString("HISTORY_BACKEND", &cfg.History.Backend)
	envString("HISTORY_SQLITE_PATH", &cfg.History.SQLite.Path)
	envString("HISTORY_SQLITE_DRIVER", &cfg.History.SQLite.Driver)
	envDuration("HISTORY_RETENTION", &cfg.History.Retention)
	envString("HISTORY_PRUNE_SCHEDULE", &cfg.History.PruneSchedule)

	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envString("SERVER_ORIGIN_URL", &cfg.Server.OriginURL)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	if val := os.Getenv(EnvPrefix + "SERVER_RATE_LIMIT_RPS"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Server.RateLimit.RequestsPerSecond = f
		}
	}

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envString("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
