package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mika",
			Name:      "api_requests_total",
			Help:      "Count of API requests by method and status code.",
		},
		[]string{"method", "code"},
	)

	CacheOpErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mika",
			Name:      "cache_op_errors_total",
			Help:      "Errors from cache store operations.",
		},
		[]string{"op"},
	)

	CacheOpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mika",
			Name:      "cache_op_latency_seconds",
			Help:      "Latency of cache store operations.",
		},
		[]string{"op"},
	)

	CleanupFindings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mika",
			Name:      "cleanup_findings_total",
			Help:      "Problems found by the maintenance scan.",
		},
		[]string{"kind"},
	)

	WarmupRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mika",
			Name:      "warmup_records_total",
			Help:      "Records written to the cache by warm-up.",
		},
		[]string{"kind"},
	)

	EventSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mika",
			Name:      "event_subscribers",
			Help:      "Number of connected event stream subscribers.",
		},
	)
)

// Register registers the mika metrics into the default registry.
func Register() {
	prometheus.MustRegister(APIRequests, CacheOpErrors, CacheOpLatency, CleanupFindings, WarmupRecords, EventSubscribers)
}
