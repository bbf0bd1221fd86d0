package metrics

import (
	"sync"
	"time"

	"odd-hq/decisioning/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// OtherLabel replaces label values once a cardinality limit is reached.
const OtherLabel = "other"

// DefaultMaxConsequenceLabels bounds the number of distinct consequence ids
// tracked by the consequence match counter.
const DefaultMaxConsequenceLabels = 1000

// Collector is the entry point for all Prometheus metrics of the decisioning
// client. It owns the registry and the metric groups and is safe for
// concurrent use.
//
// Every method is a no-op on a nil Collector or when metrics are disabled,
// so components can hold a *Collector without checking it.
//
// Collector satisfies the rules engine Recorder interface.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	decision *DecisionMetrics
	client   *ClientMetrics
	history  *HistoryMetrics

	consequenceLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a new registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "odd",
//		Subsystem: "decisioning",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		consequenceLimiter: NewCardinalityLimiter(DefaultMaxConsequenceLabels),
	}

	c.decision = NewDecisionMetrics(cfg, registry)
	c.client = NewClientMetrics(cfg, registry)
	c.history = NewHistoryMetrics(cfg, registry)

	return c
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordEvaluation records a completed ruleset evaluation.
func (c *Collector) RecordEvaluation(provider string, duration time.Duration, consequences int) {
	if !c.enabled() {
		return
	}
	c.decision.RecordEvaluation(provider, duration, consequences)
}

// RecordEngineFailure records a rules engine failure. Reason is the stage
// that failed, "load" or "execute".
func (c *Collector) RecordEngineFailure(provider, reason string) {
	if !c.enabled() {
		return
	}
	c.decision.RecordFailure(provider, reason)
}

// RecordRulesLoad records a successful ruleset swap.
func (c *Collector) RecordRulesLoad(provider string, rules int) {
	if !c.enabled() {
		return
	}
	c.decision.RecordLoad(provider, rules)
}

// RecordMatches counts each selected consequence id. Ids beyond the
// cardinality limit are aggregated under OtherLabel.
func (c *Collector) RecordMatches(ids ...string) {
	if !c.enabled() {
		return
	}
	for _, id := range ids {
		if !c.consequenceLimiter.Allow(id) {
			id = OtherLabel
		}
		c.decision.RecordMatch(id)
	}
}

// RecordEvent records a handled event.
//
// Parameters:
//   - mode: "odd" or "edge"
//   - outcome: "success", "engine_error" or "error"
//   - duration: Total SendEvent duration
func (c *Collector) RecordEvent(mode, outcome string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.client.RecordEvent(mode, outcome, duration)
}

// RecordNotification records a notification attempt.
func (c *Collector) RecordNotification(err error) {
	if !c.enabled() {
		return
	}
	c.client.RecordNotification(status(err))
}

// RecordRulesRefresh records a ruleset refresh attempt from the named source.
func (c *Collector) RecordRulesRefresh(source string, err error) {
	if !c.enabled() {
		return
	}
	c.client.RecordRefresh(source, status(err))
}

// RecordHistoryLookup records a history lookup. Result is "hit", "miss" or "error".
func (c *Collector) RecordHistoryLookup(backend, result string) {
	if !c.enabled() {
		return
	}
	c.history.RecordLookup(backend, result)
}

// RecordHistoryWrite records a history write.
func (c *Collector) RecordHistoryWrite(backend string, err error) {
	if !c.enabled() {
		return
	}
	c.history.RecordWrite(backend, status(err))
}

// RecordHistoryPruned records events removed by a retention run.
func (c *Collector) RecordHistoryPruned(backend string, n int64) {
	if !c.enabled() {
		return
	}
	c.history.RecordPruned(backend, n)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label value is allowed. Returns true if the value
// already exists or if the cardinality limit has not been reached yet.
func (cl *CardinalityLimiter) Allow(label string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[label]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[label]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[label] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
