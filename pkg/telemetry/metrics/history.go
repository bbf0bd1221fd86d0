package metrics

import (
	"odd-hq/decisioning/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// HistoryMetrics tracks event history store usage.
//
// Metrics:
//   - odd_decisioning_history_lookups_total: Lookups by backend and result (hit, miss, error)
//   - odd_decisioning_history_records_total: Events recorded by backend and status
//   - odd_decisioning_history_pruned_total: Events removed by retention
type HistoryMetrics struct {
	lookupsTotal *prometheus.CounterVec
	recordsTotal *prometheus.CounterVec
	prunedTotal  *prometheus.CounterVec
}

// NewHistoryMetrics creates and registers history metrics with the provided registry.
func NewHistoryMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *HistoryMetrics {
	hm := &HistoryMetrics{
		lookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "history_lookups_total",
				Help:      "Total number of event history lookups",
			},
			[]string{"backend", "result"},
		),

		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "history_records_total",
				Help:      "Total number of events written to history",
			},
			[]string{"backend", "status"},
		),

		prunedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "history_pruned_total",
				Help:      "Total number of events removed by retention",
			},
			[]string{"backend"},
		),
	}

	registry.MustRegister(
		hm.lookupsTotal,
		hm.recordsTotal,
		hm.prunedTotal,
	)

	return hm
}

// RecordLookup records a history lookup result.
func (hm *HistoryMetrics) RecordLookup(backend, result string) {
	hm.lookupsTotal.WithLabelValues(backend, result).Inc()
}

// RecordWrite records a history write.
func (hm *HistoryMetrics) RecordWrite(backend, status string) {
	hm.recordsTotal.WithLabelValues(backend, status).Inc()
}

// RecordPruned records events removed by a retention run.
func (hm *HistoryMetrics) RecordPruned(backend string, n int64) {
	hm.prunedTotal.WithLabelValues(backend).Add(float64(n))
}
