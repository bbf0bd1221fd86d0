package metrics

import (
	"time"

	"odd-hq/decisioning/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// DecisionMetrics tracks rules engine activity.
//
// Metrics:
//   - odd_decisioning_evaluations_total: Ruleset evaluations by provider
//   - odd_decisioning_evaluation_duration_seconds: Ruleset evaluation duration
//   - odd_decisioning_consequences_total: Consequences produced by evaluations
//   - odd_decisioning_consequence_matches_total: Matches per consequence id
//   - odd_decisioning_engine_failures_total: Engine failures by provider and stage
//   - odd_decisioning_rules_loads_total: Successful ruleset loads
//   - odd_decisioning_rules_active: Rules in the active ruleset
type DecisionMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	consequencesTotal  *prometheus.CounterVec
	matchesTotal       *prometheus.CounterVec
	failuresTotal      *prometheus.CounterVec
	loadsTotal         *prometheus.CounterVec
	rulesActive        *prometheus.GaugeVec
}

// NewDecisionMetrics creates and registers decision metrics with the provided registry.
func NewDecisionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *DecisionMetrics {
	buckets := cfg.EvaluationDurationBuckets
	if len(buckets) == 0 {
		buckets = prometheus.ExponentialBuckets(0.00001, 2, 15) // 10µs to 160ms
	}

	dm := &DecisionMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluations_total",
				Help:      "Total number of ruleset evaluations",
			},
			[]string{"provider"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of ruleset evaluation in seconds",
				Buckets:   buckets,
			},
			[]string{"provider"},
		),

		consequencesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "consequences_total",
				Help:      "Total number of consequences produced by evaluations",
			},
			[]string{"provider"},
		),

		matchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "consequence_matches_total",
				Help:      "Total number of matches per consequence id",
			},
			[]string{"consequence"},
		),

		failuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "engine_failures_total",
				Help:      "Total number of rules engine failures",
			},
			[]string{"provider", "stage"},
		),

		loadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rules_loads_total",
				Help:      "Total number of successful ruleset loads",
			},
			[]string{"provider"},
		),

		rulesActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rules_active",
				Help:      "Number of rules in the active ruleset",
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(
		dm.evaluationsTotal,
		dm.evaluationDuration,
		dm.consequencesTotal,
		dm.matchesTotal,
		dm.failuresTotal,
		dm.loadsTotal,
		dm.rulesActive,
	)

	return dm
}

// RecordEvaluation records a completed ruleset evaluation.
func (dm *DecisionMetrics) RecordEvaluation(provider string, duration time.Duration, consequences int) {
	dm.evaluationsTotal.WithLabelValues(provider).Inc()
	dm.evaluationDuration.WithLabelValues(provider).Observe(duration.Seconds())
	dm.consequencesTotal.WithLabelValues(provider).Add(float64(consequences))
}

// RecordMatch records that a consequence was selected.
func (dm *DecisionMetrics) RecordMatch(consequenceID string) {
	dm.matchesTotal.WithLabelValues(consequenceID).Inc()
}

// RecordFailure records an engine failure at the given stage ("load" or "execute").
func (dm *DecisionMetrics) RecordFailure(provider, stage string) {
	dm.failuresTotal.WithLabelValues(provider, stage).Inc()
}

// RecordLoad records a ruleset swap and the size of the new ruleset.
func (dm *DecisionMetrics) RecordLoad(provider string, rules int) {
	dm.loadsTotal.WithLabelValues(provider).Inc()
	// Only the active provider reports a size.
	dm.rulesActive.Reset()
	dm.rulesActive.WithLabelValues(provider).Set(float64(rules))
}
