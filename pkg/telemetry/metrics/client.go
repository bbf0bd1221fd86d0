package metrics

import (
	"time"

	"odd-hq/decisioning/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics tracks decisioning client requests.
//
// Metrics:
//   - odd_decisioning_events_total: Events handled by mode and outcome
//   - odd_decisioning_event_duration_seconds: End-to-end SendEvent duration
//   - odd_decisioning_notifications_total: Notifications sent by status
//   - odd_decisioning_rules_refresh_total: Ruleset refresh attempts by source and status
type ClientMetrics struct {
	eventsTotal        *prometheus.CounterVec
	eventDuration      *prometheus.HistogramVec
	notificationsTotal *prometheus.CounterVec
	refreshTotal       *prometheus.CounterVec
}

// NewClientMetrics creates and registers client metrics with the provided registry.
func NewClientMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ClientMetrics {
	cm := &ClientMetrics{
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "events_total",
				Help:      "Total number of events handled",
			},
			[]string{"mode", "outcome"},
		),

		eventDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "event_duration_seconds",
				Help:      "Duration of event handling in seconds",
				// On-device decisions are sub-millisecond, edge round trips are not.
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to 26s
			},
			[]string{"mode"},
		),

		notificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "notifications_total",
				Help:      "Total number of notifications sent to the edge network",
			},
			[]string{"status"},
		),

		refreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rules_refresh_total",
				Help:      "Total number of ruleset refresh attempts",
			},
			[]string{"source", "status"},
		),
	}

	registry.MustRegister(
		cm.eventsTotal,
		cm.eventDuration,
		cm.notificationsTotal,
		cm.refreshTotal,
	)

	return cm
}

// RecordEvent records a handled event.
func (cm *ClientMetrics) RecordEvent(mode, outcome string, duration time.Duration) {
	cm.eventsTotal.WithLabelValues(mode, outcome).Inc()
	cm.eventDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordNotification records a notification attempt.
func (cm *ClientMetrics) RecordNotification(status string) {
	cm.notificationsTotal.WithLabelValues(status).Inc()
}

// RecordRefresh records a ruleset refresh attempt.
func (cm *ClientMetrics) RecordRefresh(source, status string) {
	cm.refreshTotal.WithLabelValues(source, status).Inc()
}
