package geocache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits tracks postcode cache hits.
	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "postcode_cache_hits_total",
			Help: "Total number of postcode cache hits",
		},
	)

	// cacheMisses tracks postcode cache misses.
	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "postcode_cache_misses_total",
			Help: "Total number of postcode cache misses",
		},
	)

	// cacheEvictions tracks capacity evictions of the oldest entry.
	cacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "postcode_cache_evictions_total",
			Help: "Total number of entries evicted because the cache was full",
		},
	)

	// cacheExpirations tracks lazy TTL expirations observed on read.
	cacheExpirations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "postcode_cache_expirations_total",
			Help: "Total number of entries dropped because their TTL elapsed",
		},
	)

	// cacheSize tracks the current number of cached postcodes.
	cacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "postcode_cache_entries",
			Help: "Current number of entries in the postcode cache",
		},
	)
)
