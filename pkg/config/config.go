package config

import "time"

// Config is the root configuration structure for the decisioning client.
// It is loaded from YAML, completed by ApplyDefaults and checked by Validate.
type Config struct {
	// Client configures the datastream identity and edge network endpoints.
	Client ClientConfig `yaml:"client"`

	// Rules configures where rulesets come from and how often they refresh.
	Rules RulesConfig `yaml:"rules"`

	// History configures the optional store of past events used by
	// historical conditions.
	History HistoryConfig `yaml:"history"`

	// Server configures the decide HTTP server of "odd serve".
	Server ServerConfig `yaml:"server"`

	// Telemetry configures logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ClientConfig holds the settings of a decisioning client.
type ClientConfig struct {
	// OrgID is the IMS organization identifier (e.g. "XXXX@AdobeOrg").
	OrgID string `yaml:"org_id"`

	// DatastreamID identifies the datastream events are sent to.
	DatastreamID string `yaml:"datastream_id"`

	// PropertyToken selects the rules artifact. Falls back to DatastreamID.
	PropertyToken string `yaml:"property_token"`

	// EdgeDomain overrides the edge network host.
	EdgeDomain string `yaml:"edge_domain"`

	// EdgeBasePath overrides the edge network base path.
	EdgeBasePath string `yaml:"edge_base_path"`

	// Mode selects "odd" (on-device decisioning) or "edge" (every event
	// forwarded to the edge interact endpoint).
	Mode string `yaml:"mode"`

	// Timeout bounds every outbound HTTP request.
	Timeout time.Duration `yaml:"timeout"`
}

// ODDEnabled reports whether on-device decisioning is selected.
func (c ClientConfig) ODDEnabled() bool {
	return c.Mode == ModeODD
}

// RulesConfig holds the ruleset source settings.
type RulesConfig struct {
	// Source is "http" (rules artifact CDN) or "file" (local rules.json).
	Source string `yaml:"source"`

	// FilePath is the rules.json path when Source is "file".
	FilePath string `yaml:"file_path"`

	// Watch reloads the file on change when Source is "file".
	Watch bool `yaml:"watch"`

	// Domain overrides the rules artifact host.
	Domain string `yaml:"domain"`

	// BasePath overrides the rules artifact base path.
	BasePath string `yaml:"base_path"`

	// PollingInterval refreshes the ruleset periodically. Zero disables polling.
	PollingInterval time.Duration `yaml:"polling_interval"`

	// ValidateSchema checks each ruleset document against the JSON schema
	// before parsing.
	ValidateSchema bool `yaml:"validate_schema"`

	// MaxConditionDepth bounds group nesting in parsed rulesets.
	MaxConditionDepth int `yaml:"max_condition_depth"`
}

// HistoryConfig holds the event history store settings.
type HistoryConfig struct {
	// Enabled turns on recording and lookup of past events.
	Enabled bool `yaml:"enabled"`

	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// SQLite holds the settings for the sqlite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention drops events older than this duration. Zero keeps everything.
	Retention time.Duration `yaml:"retention"`

	// PruneSchedule is the cron expression of the retention job.
	PruneSchedule string `yaml:"prune_schedule"`
}

// SQLiteConfig holds sqlite backend settings.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string `yaml:"path"`

	// Driver is "sqlite" (pure Go) or "sqlite3" (cgo).
	Driver string `yaml:"driver"`

	// MaxOpenConns limits open database connections.
	MaxOpenConns int `yaml:"max_open_conns"`

	// BusyTimeout is how long a writer waits on a locked database.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	// ListenAddress is the host:port the server binds to.
	ListenAddress string `yaml:"listen_address"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes limits /decide request bodies and origin pages read for
	// personalization.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// OriginURL is the site proxied and personalized on "/". Empty
	// disables page personalization.
	OriginURL string `yaml:"origin_url"`

	// AllowedOrigins enables CORS for the listed origins. "*" allows any.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// RateLimit bounds decision requests per visitor.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig holds per-client request limits. Clients are keyed by
// ECID cookie, else by address.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate. Zero disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the bucket size. Zero allows twice the per-second rate.
	Burst int `yaml:"burst"`

	// MaxClients bounds the number of tracked clients.
	MaxClients int `yaml:"max_clients"`
}

// TelemetryConfig contains observability settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`

	// AddSource includes the source file and line in log records.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path metrics are served on.
	Path string `yaml:"path"`

	// Namespace and Subsystem prefix every metric name.
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`

	// EvaluationDurationBuckets are histogram buckets, in seconds.
	EvaluationDurationBuckets []float64 `yaml:"evaluation_duration_buckets"`
}

// TracingConfig contains OpenTelemetry tracing settings.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address.
	Endpoint string `yaml:"endpoint"`

	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `yaml:"service_name"`

	// Sampler is "always", "never" or "ratio". Every sampler follows the
	// parent span decision when there is one.
	Sampler string `yaml:"sampler"`

	// SampleRatio is used by the "ratio" sampler.
	SampleRatio float64 `yaml:"sample_ratio"`

	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter settings.
type OTLPConfig struct {
	Insecure bool          `yaml:"insecure"`
	Timeout  time.Duration `yaml:"timeout"`
}
