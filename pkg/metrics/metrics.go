package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records login attempts by result (success|failure|locked|inactive|error).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itemhub_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// RefreshOutcomes counts refresh token exchanges by result.
	RefreshOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itemhub_refresh_outcomes_total",
			Help: "Total number of refresh token exchanges",
		},
		[]string{"result"},
	)

	// TheftDetections counts refresh tokens presented from a foreign device.
	TheftDetections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "itemhub_refresh_theft_detections_total",
			Help: "Refresh tokens presented with a mismatched fingerprint",
		},
	)

	// ActiveSessions tracks refresh sessions created minus sessions ended.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "itemhub_active_sessions",
			Help: "Number of active refresh sessions",
		},
	)

	// SessionsReaped counts expired sessions removed by the background reaper.
	SessionsReaped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "itemhub_sessions_reaped_total",
			Help: "Expired refresh sessions removed by maintenance",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "itemhub_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
