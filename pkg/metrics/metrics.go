// Package metrics provides the centralized Prometheus registry reference
// for the backend. All metrics are defined in their respective packages
// (upstream, geocache, geocode) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the backend.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Postcode Cache Metrics (pkg/geocache):
//   - postcode_cache_hits_total (Counter): Cache hits
//   - postcode_cache_misses_total (Counter): Cache misses
//   - postcode_cache_evictions_total (Counter): Entries evicted because the cache was full
//   - postcode_cache_expirations_total (Counter): Entries dropped because their TTL elapsed
//   - postcode_cache_entries (Gauge): Current number of cached postcodes
//
// Geocode Metrics (pkg/geocode):
//   - geocode_requests_total{outcome} (Counter): Provider calls by outcome
//     (ok, not_found, malformed, network_error, server_error, error)
//   - geocode_retries_total (Counter): Provider retries
//
// Upstream Request Metrics (pkg/upstream):
//   - upstream_requests_total{path, status} (Counter): Total requests by path and HTTP status
//   - upstream_request_duration_seconds{path} (Histogram): Request duration by path
//
// Retry Metrics (pkg/upstream):
//   - upstream_retries_total (Counter): Retry attempts
//   - upstream_retry_backoff_seconds (Histogram): Backoff duration slept between attempts
//   - upstream_retry_exhausted_total (Counter): Requests that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(postcode_cache_hits_total[5m])) /
//   (sum(rate(postcode_cache_hits_total[5m])) + sum(rate(postcode_cache_misses_total[5m])))
//
//   # Geocode Failure Rate
//   rate(geocode_requests_total{outcome="server_error"}[5m])
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(upstream_request_duration_seconds_bucket[5m]))
//
//   # Retry Exhaustion
//   rate(upstream_retry_exhausted_total[5m])
