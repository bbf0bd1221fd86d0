package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "client.org_id").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// HasField reports whether a validation error was raised for field.
func (e ValidationError) HasField(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateClient(&cfg.Client)...)
	errs = append(errs, validateRules(&cfg.Rules, &cfg.Client)...)
	errs = append(errs, validateHistory(&cfg.History)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateClient(cfg *ClientConfig) []FieldError {
	var errs []FieldError

	switch cfg.Mode {
	case ModeODD:
	case ModeEdge:
		if cfg.DatastreamID == "" {
			errs = append(errs, FieldError{
				Field:   "client.datastream_id",
				Message: "datastream id is required in edge mode",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "client.mode",
			Message: fmt.Sprintf("invalid mode %q: must be 'odd' or 'edge'", cfg.Mode),
		})
	}

	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "client.timeout",
			Message: "timeout must be positive",
		})
	}

	if cfg.EdgeDomain != "" && !validHost(cfg.EdgeDomain) {
		errs = append(errs, FieldError{
			Field:   "client.edge_domain",
			Message: fmt.Sprintf("invalid host %q", cfg.EdgeDomain),
		})
	}

	return errs
}

func validateRules(cfg *RulesConfig, client *ClientConfig) []FieldError {
	var errs []FieldError

	switch cfg.Source {
	case "http":
		// Rules are only fetched in on-device mode.
		if client.Mode == ModeODD {
			if client.OrgID == "" {
				errs = append(errs, FieldError{
					Field:   "client.org_id",
					Message: "org id is required to fetch rules",
				})
			}
			if client.PropertyToken == "" && client.DatastreamID == "" {
				errs = append(errs, FieldError{
					Field:   "client.property_token",
					Message: "property token or datastream id is required to fetch rules",
				})
			}
		}
		if cfg.Watch {
			errs = append(errs, FieldError{
				Field:   "rules.watch",
				Message: "watch is only supported for the file source",
			})
		}
	case "file":
		if cfg.FilePath == "" {
			errs = append(errs, FieldError{
				Field:   "rules.file_path",
				Message: "file path is required for the file source",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "rules.source",
			Message: fmt.Sprintf("invalid source %q: must be 'http' or 'file'", cfg.Source),
		})
	}

	if cfg.Domain != "" && !validHost(cfg.Domain) {
		errs = append(errs, FieldError{
			Field:   "rules.domain",
			Message: fmt.Sprintf("invalid host %q", cfg.Domain),
		})
	}
	if cfg.PollingInterval < 0 {
		errs = append(errs, FieldError{
			Field:   "rules.polling_interval",
			Message: "polling interval must be positive",
		})
	}
	if cfg.MaxConditionDepth < 1 {
		errs = append(errs, FieldError{
			Field:   "rules.max_condition_depth",
			Message: "max condition depth must be at least 1",
		})
	}

	return errs
}

func validateHistory(cfg *HistoryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "history.sqlite.path",
				Message: "sqlite path is required",
			})
		}
		if cfg.SQLite.Driver != "sqlite" && cfg.SQLite.Driver != "sqlite3" {
			errs = append(errs, FieldError{
				Field:   "history.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q: must be 'sqlite' or 'sqlite3'", cfg.SQLite.Driver),
			})
		}
		if cfg.SQLite.MaxOpenConns < 0 {
			errs = append(errs, FieldError{
				Field:   "history.sqlite.max_open_conns",
				Message: "max open connections must be non-negative",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "history.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Backend),
		})
	}

	if cfg.Retention < 0 {
		errs = append(errs, FieldError{
			Field:   "history.retention",
			Message: "retention must be positive",
		})
	}
	if cfg.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "history.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if _, port, err := net.SplitHostPort(cfg.ListenAddress); err != nil || port == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: must be host:port", cfg.ListenAddress),
		})
	}
	if cfg.ReadTimeout < 0 || cfg.WriteTimeout < 0 || cfg.IdleTimeout < 0 || cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server",
			Message: "timeouts must be positive",
		})
	}
	if cfg.OriginURL != "" {
		if u, err := url.Parse(cfg.OriginURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, FieldError{
				Field:   "server.origin_url",
				Message: fmt.Sprintf("invalid origin url %q", cfg.OriginURL),
			})
		}
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_body_bytes",
			Message: "max body bytes must be positive",
		})
	}
	if cfg.RateLimit.RequestsPerSecond < 0 || cfg.RateLimit.Burst < 0 || cfg.RateLimit.MaxClients < 0 {
		errs = append(errs, FieldError{
			Field:   "server.rate_limit",
			Message: "rate limits must be non-negative",
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Path == "" || cfg.Metrics.Path[0] != '/' {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with /",
			})
		}
		for i := 1; i < len(cfg.Metrics.EvaluationDurationBuckets); i++ {
			if cfg.Metrics.EvaluationDurationBuckets[i] <= cfg.Metrics.EvaluationDurationBuckets[i-1] {
				errs = append(errs, FieldError{
					Field:   "telemetry.metrics.evaluation_duration_buckets",
					Message: "buckets must be strictly increasing",
				})
				break
			}
		}
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
	if cfg.Tracing.Sampler != "" && !validSamplers[cfg.Tracing.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	return errs
}

// validHost reports whether h is a bare host name usable in an https URL.
func validHost(h string) bool {
	if strings.ContainsAny(h, "/ ") {
		return false
	}
	u, err := url.Parse("https://" + h)
	return err == nil && u.Host == h
}
