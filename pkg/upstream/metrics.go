package upstream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for upstream client operations.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_requests_total",
		Help: "Total upstream requests by path and status",
	}, []string{"path", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds by path",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"path"})

	upstreamRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upstream_retries_total",
		Help: "Total number of upstream retry attempts",
	})

	upstreamRetryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "upstream_retry_backoff_seconds",
		Help:    "Backoff duration slept between upstream attempts",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5},
	})

	upstreamRetryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upstream_retry_exhausted_total",
		Help: "Total number of times upstream retry attempts were exhausted",
	})
)
