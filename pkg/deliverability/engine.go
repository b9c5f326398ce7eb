// Package deliverability decides whether an order can be delivered from a
// restaurant to a customer postcode.
package deliverability

import (
	"context"
	"errors"
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hutbite/hutbite-backend/pkg/geo"
	"github.com/hutbite/hutbite-backend/pkg/postcode"
)

// Reason explains a deliverability decision.
type Reason string

const (
	ReasonOK              Reason = "OK"
	ReasonInvalidPostcode Reason = "INVALID_POSTCODE"
	ReasonGeocodeError    Reason = "GEOCODE_ERROR"
	ReasonOutOfRange      Reason = "OUT_OF_RANGE"
)

// Source records whether the customer coordinates came from a live
// provider call or the cache.
type Source string

const (
	SourceAPI   Source = "api"
	SourceCache Source = "cache"
)

const (
	// DefaultRadiusMiles applies when the caller does not supply a radius.
	DefaultRadiusMiles = 3.0

	// BufferMiles is a fixed tolerance added to the radius so addresses
	// marginally over the boundary are not rejected.
	BufferMiles = 0.05
)

// ErrInvalidRestaurantCoordinates reports operator-configured restaurant
// coordinates outside the valid latitude/longitude ranges. This is an
// internal fault, not a user input error; the HTTP boundary validates
// request coordinates before the engine runs.
var ErrInvalidRestaurantCoordinates = errors.New("invalid restaurant coordinates")

// Decision is the outcome of a deliverability check. It is constructed
// fresh per request and never mutated after return.
type Decision struct {
	Deliverable        bool     `json:"deliverable"`
	DistanceMiles      *float64 `json:"distance_miles"`
	NormalizedPostcode string   `json:"normalized_postcode"`
	Reason             Reason   `json:"reason"`
	Source             Source   `json:"source"`
}

// Geocoder resolves postcodes to coordinates and exposes cache membership
// so the engine can attribute a result to cache or API before the lookup
// itself populates the cache.
type Geocoder interface {
	Geocode(ctx context.Context, rawPostcode string) *geo.Coordinates
	Cached(normalized string) bool
}

// Engine composes geocoding and great-circle distance into a single
// deliverability verdict. Provider-side failures never surface as errors;
// every failure mode resolves to a Decision with an explanatory reason.
// Retry policy lives entirely in the geocoder.
type Engine struct {
	geocoder Geocoder
	logger   zerolog.Logger
}

// NewEngine creates a deliverability engine.
func NewEngine(geocoder Geocoder) *Engine {
	return &Engine{
		geocoder: geocoder,
		logger:   log.With().Str("component", "deliverability-engine").Logger(),
	}
}

// Check decides whether delivery from restaurant to customerPostcode is
// possible within radiusMiles (0 or negative selects the default radius).
// The only error case is invalid restaurant coordinates; everything else
// resolves to a Decision.
func (e *Engine) Check(ctx context.Context, restaurant geo.Coordinates, customerPostcode string, radiusMiles float64) (Decision, error) {
	if !restaurant.Valid() {
		e.logger.Error().
			Float64("lat", restaurant.Lat).
			Float64("lon", restaurant.Lon).
			Msg("Invalid restaurant coordinates")
		return Decision{}, ErrInvalidRestaurantCoordinates
	}

	normalized := postcode.Normalize(customerPostcode)
	if normalized == "" {
		e.logger.Warn().Str("postcode", customerPostcode).Msg("Invalid postcode format")
		return Decision{
			Deliverable:        false,
			DistanceMiles:      nil,
			NormalizedPostcode: customerPostcode,
			Reason:             ReasonInvalidPostcode,
			Source:             SourceAPI,
		}, nil
	}

	// Source reflects the cache state before the geocode call, which may
	// itself populate the cache as a side effect.
	source := SourceAPI
	if e.geocoder.Cached(normalized) {
		source = SourceCache
	}

	customer := e.geocoder.Geocode(ctx, normalized)
	if customer == nil {
		e.logger.Warn().Str("postcode", normalized).Msg("Failed to geocode postcode")
		return Decision{
			Deliverable:        false,
			DistanceMiles:      nil,
			NormalizedPostcode: normalized,
			Reason:             ReasonGeocodeError,
			Source:             source,
		}, nil
	}

	distance := geo.DeliveryDistance(restaurant, *customer)

	radius := radiusMiles
	if radius <= 0 {
		radius = DefaultRadiusMiles
	}
	deliverable := distance <= radius+BufferMiles

	reason := ReasonOutOfRange
	if deliverable {
		reason = ReasonOK
	}

	rounded := math.Round(distance*100) / 100

	e.logger.Info().
		Str("postcode", normalized).
		Float64("distance_miles", rounded).
		Float64("radius_miles", radius).
		Bool("deliverable", deliverable).
		Str("reason", string(reason)).
		Str("source", string(source)).
		Msg("Deliverability check")

	return Decision{
		Deliverable:        deliverable,
		DistanceMiles:      &rounded,
		NormalizedPostcode: normalized,
		Reason:             reason,
		Source:             source,
	}, nil
}
