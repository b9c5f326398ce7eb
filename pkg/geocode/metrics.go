package geocode

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// geocodeRequestsTotal tracks provider call outcomes.
	geocodeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geocode_requests_total",
		Help: "Total geocode provider calls by outcome",
	}, []string{"outcome"})

	// geocodeRetriesTotal tracks single-retry attempts against the provider.
	geocodeRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geocode_retries_total",
		Help: "Total number of geocode provider retries",
	})
)
