// Package metrics provides Prometheus metrics collection for the decisioning client.
//
// # Metrics Categories
//
//   - Decision Metrics: ruleset evaluations, duration, consequences, engine
//     failures and ruleset loads
//   - Client Metrics: events by mode and outcome, notifications, ruleset refreshes
//   - History Metrics: event history lookups, writes and retention pruning
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
//
//	// The collector is a rules engine Recorder.
//	eng, err := engine.New(engineCfg, logger, engine.WithRecorder(collector))
//
//	// Expose the registry.
//	http.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// # Cardinality
//
// Labels take a small fixed set of values, except the consequence id, which
// passes through a CardinalityLimiter and folds into "other" past
// DefaultMaxConsequenceLabels distinct values.
package metrics
