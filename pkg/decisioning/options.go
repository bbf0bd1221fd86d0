package decisioning

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"odd-hq/decisioning/pkg/config"
	"odd-hq/decisioning/pkg/decisioning/engine"
	"odd-hq/decisioning/pkg/edge"
	"odd-hq/decisioning/pkg/history"
	"odd-hq/decisioning/pkg/identity"
	"odd-hq/decisioning/pkg/ruleset/source"
)

// DefaultTimeout bounds outbound requests when Options.Timeout is unset.
const DefaultTimeout = 10 * time.Second

// Recorder receives client measurements. *metrics.Collector implements it.
type Recorder interface {
	engine.Recorder
	source.RefreshRecorder
	history.Recorder
	RecordEvent(mode, outcome string, duration time.Duration)
	RecordNotification(err error)
	RecordMatches(ids ...string)
}

// Options configure a Client. Options are read once by NewClient.
type Options struct {
	OrgID         string
	DatastreamID  string
	PropertyToken string
	EdgeDomain    string
	EdgeBasePath  string
	RuleDomain    string
	RuleBasePath  string

	// ODDEnabled evaluates rules locally. Otherwise events go to the edge
	// interact endpoint.
	ODDEnabled bool

	// RulesPollingInterval reloads the rules periodically. Zero disables it.
	RulesPollingInterval time.Duration

	// Rules is a decoded rules document used instead of fetching one.
	Rules map[string]any

	// RulesSource replaces the default rules artifact download.
	RulesSource source.Source

	// WatchRules reloads a file RulesSource whenever the file changes.
	WatchRules bool

	// Timeout bounds outbound requests made by the default fetcher.
	Timeout time.Duration

	// EngineConfig configures rule parsing and matchers.
	EngineConfig *engine.EngineConfig

	Fetcher   edge.Fetcher
	IDs       *identity.Generator
	Logger    *slog.Logger
	Metrics   Recorder
	Tracer    trace.Tracer
	History   history.Store
	Allocator *engine.Allocator
}

// OptionsFromConfig maps a loaded configuration onto Options. Collaborators
// are left for the caller to set.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		OrgID:                cfg.Client.OrgID,
		DatastreamID:         cfg.Client.DatastreamID,
		PropertyToken:        cfg.Client.PropertyToken,
		EdgeDomain:           cfg.Client.EdgeDomain,
		EdgeBasePath:         cfg.Client.EdgeBasePath,
		RuleDomain:           cfg.Rules.Domain,
		RuleBasePath:         cfg.Rules.BasePath,
		ODDEnabled:           cfg.Client.ODDEnabled(),
		RulesPollingInterval: cfg.Rules.PollingInterval,
		WatchRules:           cfg.Rules.Watch,
		Timeout:              cfg.Client.Timeout,
		EngineConfig: &engine.EngineConfig{
			ValidateSchema:    cfg.Rules.ValidateSchema,
			MaxConditionDepth: cfg.Rules.MaxConditionDepth,
		},
	}
	if cfg.Rules.Source == "file" {
		opts.RulesSource = source.NewFileSource(cfg.Rules.FilePath)
	}
	return opts
}

func (o *Options) applyDefaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Fetcher == nil {
		o.Fetcher = edge.NewHTTPFetcher(o.Timeout, o.Logger)
	}
	if o.IDs == nil {
		o.IDs = identity.NewGenerator()
	}
	if o.EngineConfig == nil {
		o.EngineConfig = engine.DefaultEngineConfig()
	}
}

func (o *Options) urlOptions() source.URLOptions {
	return source.URLOptions{
		OrgID:         o.OrgID,
		DatastreamID:  o.DatastreamID,
		PropertyToken: o.PropertyToken,
		RuleDomain:    o.RuleDomain,
		RuleBasePath:  o.RuleBasePath,
	}
}
