package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects client-side realtime metrics.
//
// Tracked series:
//   - inbound frame volume by frame type
//   - dropped frames by reason (malformed, no_subscriber)
//   - reconnect attempts on the broker link
//   - live subscription count
//   - outbound publishes by status
//   - history fetch latency and outcomes
type Metrics struct {
	// FramesReceived counts inbound frames by type.
	FramesReceived *prometheus.CounterVec

	// FramesDropped counts frames dropped before reaching a store.
	// Labels: reason (malformed|no_subscriber|stale_handle)
	FramesDropped *prometheus.CounterVec

	// ReconnectAttempts counts broker reconnect attempts.
	ReconnectAttempts prometheus.Counter

	// ActiveSubscriptions tracks the current live subscription count.
	ActiveSubscriptions prometheus.Gauge

	// PublishCounter counts outbound publishes.
	// Labels: status (ok|not_connected|error)
	PublishCounter *prometheus.CounterVec

	// HistoryFetchDuration measures history page fetch latency in seconds.
	HistoryFetchDuration prometheus.Histogram

	// HistoryFetchCounter counts history fetches.
	// Labels: status (ok|error)
	HistoryFetchCounter *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the default
// Prometheus registry. Call once at startup.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers all metrics with the given registerer.
// Tests pass a fresh prometheus.NewRegistry().
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FramesReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travelbuddy_frames_received_total",
				Help: "Total inbound broker frames by frame type",
			},
			[]string{"frame_type"},
		),
		FramesDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travelbuddy_frames_dropped_total",
				Help: "Frames dropped before reaching client state",
			},
			[]string{"reason"},
		),
		ReconnectAttempts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "travelbuddy_reconnect_attempts_total",
				Help: "Broker reconnect attempts",
			},
		),
		ActiveSubscriptions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "travelbuddy_active_subscriptions",
				Help: "Current number of live topic subscriptions",
			},
		),
		PublishCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travelbuddy_publishes_total",
				Help: "Outbound publishes by status",
			},
			[]string{"status"},
		),
		HistoryFetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "travelbuddy_history_fetch_duration_seconds",
				Help:    "Duration of history page fetches in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		HistoryFetchCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travelbuddy_history_fetches_total",
				Help: "History page fetches by status",
			},
			[]string{"status"},
		),
	}
}
