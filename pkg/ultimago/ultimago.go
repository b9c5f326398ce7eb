// Package ultimago integrates the Ultimago point-of-sale system: store
// profile lookup and the table sections a store's floor plan exposes.
package ultimago

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hutbite/hutbite-backend/pkg/upstream"
)

// DefaultBaseURL is the Ultimago store services endpoint.
const DefaultBaseURL = "https://services.tgfpizza.com/ThirdPartyServices/StoreServices.svc"

var (
	// ErrNotConfigured is returned when Ultimago credentials are missing.
	ErrNotConfigured = errors.New("ultimago credentials not configured")

	// ErrMalformedPayload is returned when the POS answers 200 but the
	// double-encoded sections payload cannot be decoded.
	ErrMalformedPayload = errors.New("malformed ultimago payload")
)

// StoreProfile describes a store as the POS reports it.
type StoreProfile struct {
	StoreURL       string `json:"StoreURL"`
	DataSourceName string `json:"DeDataSourceName"`
}

// Table is a single table within a section.
type Table struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Section is a floor-plan section holding tables.
type Section struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Tables []Table `json:"table"`
}

// Client talks to the Ultimago POS. Store profiles live on the shared
// store-services endpoint; table sections live on each store's own menu
// server, whose URL comes from the caller.
type Client struct {
	profiles *upstream.Client
	headers  http.Header
	timeout  time.Duration
	enabled  bool
	logger   zerolog.Logger
}

// Config holds the Ultimago client configuration.
type Config struct {
	// BaseURL overrides the store-services endpoint (tests).
	BaseURL string

	// Username and Password are the Ultimago basic-auth credentials.
	// Missing credentials disable the client.
	Username string
	Password string

	// Timeout bounds each individual attempt.
	Timeout time.Duration
}

// New creates an Ultimago client. Missing credentials disable it rather
// than erroring, so the server can start without a POS connection.
func New(cfg Config) (*Client, error) {
	logger := log.With().Str("component", "ultimago-client").Logger()

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	enabled := cfg.Username != "" && cfg.Password != ""
	if !enabled {
		logger.Warn().Msg("Ultimago credentials missing, POS integration disabled")
		return &Client{enabled: false, logger: logger}, nil
	}

	auth := "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.Username+":"+cfg.Password))
	headers := http.Header{}
	headers.Set("Authorization", auth)
	headers.Set("Accept", "application/json")

	profiles, err := upstream.New(upstream.Config{
		BaseURL: baseURL,
		Headers: headers,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		profiles: profiles,
		headers:  headers,
		timeout:  cfg.Timeout,
		enabled:  true,
		logger:   logger,
	}, nil
}

// Enabled reports whether credentials are configured.
func (c *Client) Enabled() bool {
	return c.enabled
}

// GetStoreProfile fetches the profile for a store id.
func (c *Client) GetStoreProfile(ctx context.Context, storeID string) (*StoreProfile, error) {
	if !c.enabled {
		return nil, ErrNotConfigured
	}

	path := "/GetStoreProfile/" + url.PathEscape(storeID)
	resp, err := c.profiles.Do(ctx, http.MethodGet, path, nil, nil, upstream.DefaultRetryPolicy())
	if err != nil {
		return nil, err
	}

	var profile StoreProfile
	if err := json.Unmarshal(resp.Body, &profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	c.logger.Info().Str("store_id", storeID).Str("store_url", profile.StoreURL).Msg("Retrieved store profile")
	return &profile, nil
}

// sectionsEnvelope is the outer payload of the Tables endpoint. The
// sections themselves arrive double-encoded as a JSON string.
type sectionsEnvelope struct {
	WinPizzaObject string `json:"WinPizzaObject"`
}

// GetSections fetches the table sections for a store from its menu
// server. menuServerURL is store-specific and comes from the store
// profile, so a fresh client is built per call.
func (c *Client) GetSections(ctx context.Context, menuServerURL, storeID, databaseName string) ([]Section, error) {
	if !c.enabled {
		return nil, ErrNotConfigured
	}

	menuServer, err := upstream.New(upstream.Config{
		BaseURL: menuServerURL,
		Headers: c.headers,
		Timeout: c.timeout,
	})
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("StoreID", storeID)
	params.Set("DataBaseName", databaseName)

	resp, err := menuServer.Do(ctx, http.MethodGet, "/Tables?"+params.Encode(), nil, nil, upstream.DefaultRetryPolicy())
	if err != nil {
		return nil, err
	}

	var envelope sectionsEnvelope
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: envelope: %v", ErrMalformedPayload, err)
	}
	if envelope.WinPizzaObject == "" {
		return []Section{}, nil
	}

	var sections []Section
	if err := json.Unmarshal([]byte(envelope.WinPizzaObject), &sections); err != nil {
		return nil, fmt.Errorf("%w: sections: %v", ErrMalformedPayload, err)
	}

	c.logger.Info().Str("store_id", storeID).Int("sections", len(sections)).Msg("Retrieved table sections")
	return sections, nil
}
