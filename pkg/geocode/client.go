// Package geocode resolves UK postcodes to coordinates via the
// postcodes.io API, with a bounded TTL cache in front of the network.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hutbite/hutbite-backend/pkg/geo"
	"github.com/hutbite/hutbite-backend/pkg/geocache"
	"github.com/hutbite/hutbite-backend/pkg/postcode"
)

// maxAttempts caps outbound calls per lookup at the original request plus
// one retry. This is a deliberately tighter, provider-specific budget and
// is independent of the generic upstream client's policy.
const maxAttempts = 2

// providerResponse mirrors the postcodes.io lookup payload.
type providerResponse struct {
	Status int `json:"status"`
	Result *struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"result"`
}

// Client geocodes postcodes with caching and a fixed two-attempt retry.
// Every failure mode is absorbed: a lookup either yields coordinates or
// nil, never an error.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *geocache.Cache
	logger     zerolog.Logger
}

// Config holds the geocode client configuration.
type Config struct {
	// BaseURL is the provider base, e.g. "https://api.postcodes.io".
	BaseURL string

	// Cache stores resolved coordinates. Required.
	Cache *geocache.Cache

	// Timeout bounds each individual provider call.
	Timeout time.Duration
}

// New creates a geocode client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 6 * time.Second
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cfg.Cache,
		logger:     log.With().Str("component", "geocode-client").Logger(),
	}, nil
}

// Cached reports whether a live cache entry exists for the normalized
// postcode. Callers that need to attribute a lookup to cache or API must
// check this before calling Geocode, since Geocode populates the cache as
// a side effect.
func (c *Client) Cached(normalized string) bool {
	return c.cache.Contains(normalized)
}

// Geocode resolves a free-form postcode to coordinates. It normalizes the
// input, consults the cache, and only then calls the provider. A 404 is
// definitive and never retried; a 5xx or transport failure is retried once
// after a short jittered delay. Any persistent failure returns nil.
func (c *Client) Geocode(ctx context.Context, rawPostcode string) *geo.Coordinates {
	normalized := postcode.Normalize(rawPostcode)
	if normalized == "" {
		c.logger.Warn().Str("postcode", rawPostcode).Msg("Invalid postcode format")
		return nil
	}

	if coords, ok := c.cache.Get(normalized); ok {
		c.logger.Debug().Str("postcode", normalized).Msg("Cache hit")
		return &coords
	}

	lookupURL := fmt.Sprintf("%s/postcodes/%s", c.baseURL, url.PathEscape(normalized))

	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := c.fetch(ctx, lookupURL)
		if err != nil {
			geocodeRequestsTotal.WithLabelValues("network_error").Inc()
			if attempt == 0 {
				c.logger.Warn().
					Err(err).
					Str("postcode", normalized).
					Msg("Network error, retrying")
				c.sleepJitter(attempt)
				continue
			}
			c.logger.Error().
				Err(err).
				Str("postcode", normalized).
				Msg("Network error after retry")
			return nil
		}

		switch {
		case resp.statusCode == http.StatusOK:
			coords := resp.coordinates()
			if coords == nil {
				geocodeRequestsTotal.WithLabelValues("malformed").Inc()
				c.logger.Error().Str("postcode", normalized).Msg("Provider returned 200 without coordinates")
				return nil
			}
			geocodeRequestsTotal.WithLabelValues("ok").Inc()
			c.cache.Put(normalized, *coords)
			c.logger.Info().
				Str("postcode", normalized).
				Float64("lat", coords.Lat).
				Float64("lon", coords.Lon).
				Msg("Geocoded postcode")
			return coords

		case resp.statusCode == http.StatusNotFound:
			// Absence is definitive, not transient.
			geocodeRequestsTotal.WithLabelValues("not_found").Inc()
			c.logger.Warn().Str("postcode", normalized).Msg("Postcode not found")
			return nil

		case resp.statusCode >= 500:
			// Classified by status regardless of which attempt failed.
			geocodeRequestsTotal.WithLabelValues("server_error").Inc()
			if attempt == 0 {
				c.logger.Warn().
					Int("status", resp.statusCode).
					Str("postcode", normalized).
					Msg("Server error, retrying")
				c.sleepJitter(attempt)
				continue
			}
			c.logger.Error().
				Int("status", resp.statusCode).
				Str("postcode", normalized).
				Msg("Server error after retry")
			return nil

		default:
			geocodeRequestsTotal.WithLabelValues("error").Inc()
			c.logger.Error().
				Int("status", resp.statusCode).
				Str("postcode", normalized).
				Msg("Provider error")
			return nil
		}
	}

	return nil
}

type lookupResult struct {
	statusCode int
	payload    providerResponse
}

// coordinates extracts a populated coordinate pair from the payload, or
// nil if the provider response lacks numeric latitude/longitude.
func (r *lookupResult) coordinates() *geo.Coordinates {
	result := r.payload.Result
	if result == nil || result.Latitude == nil || result.Longitude == nil {
		return nil
	}
	return &geo.Coordinates{Lat: *result.Latitude, Lon: *result.Longitude}
}

// fetch performs a single provider call and decodes the body.
func (c *Client) fetch(ctx context.Context, lookupURL string) (*lookupResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	result := &lookupResult{statusCode: resp.StatusCode}
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&result.payload); err != nil {
			// A 200 with an undecodable body counts as a malformed
			// success, not a transient failure.
			return result, nil
		}
	}
	return result, nil
}

// sleepJitter waits 0.1 + 0.2*(attempt+1) seconds before the retry.
func (c *Client) sleepJitter(attempt int) {
	geocodeRetriesTotal.Inc()
	delay := 100*time.Millisecond + time.Duration(attempt+1)*200*time.Millisecond
	time.Sleep(delay)
}
