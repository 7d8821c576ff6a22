package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks outbound API calls by endpoint, method and final status.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of Wedding OS API requests (by endpoint, method and status).",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Measures duration of API requests.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of Wedding OS API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 15),
		},
		[]string{"endpoint", "method"},
	)

	// Counts token refresh attempts triggered by 401 responses.
	AuthRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_auth_refresh_total",
			Help: "Token refresh attempts after authorization failures.",
		},
		[]string{"result"}, // ok | failed | skipped
	)

	// Counts toasts displayed by kind.
	ToastShownTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toast_shown_total",
			Help: "Number of toasts displayed, by kind.",
		},
		[]string{"kind"},
	)

	// Number of toasts waiting behind the visible one.
	ToastQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "toast_queue_depth",
			Help: "Toasts waiting to be displayed.",
		},
	)

	// Tracks 3-D invitation job status transitions.
	ThreeDJobTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invitation_threed_transitions_total",
			Help: "3-D invitation job status transitions observed by the poller.",
		},
		[]string{"status"},
	)
)

// ObserveRequest records one finished API call.
func ObserveRequest(endpoint, method, status string, start time.Time) {
	APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
	APIRequestDuration.WithLabelValues(endpoint, method).Observe(time.Since(start).Seconds())
}
