// Package address provides address autocomplete backed by the Addressy
// (Loqate) interactive find API.
package address

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the Addressy API base.
const DefaultBaseURL = "https://api.addressy.com"

// findPath is the interactive find endpoint under the base URL.
const findPath = "/Capture/Interactive/Find/v1.10/json3.ws"

// DefaultLimit caps suggestions when the caller passes no limit.
const DefaultLimit = 20

var (
	// ErrNotConfigured is returned when no Addressy API key is set.
	ErrNotConfigured = errors.New("addressy api key not configured")

	// ErrProviderFailure is returned when the provider answers with an
	// error status or an undecodable body.
	ErrProviderFailure = errors.New("address provider error")
)

// descPattern splits a "70173 Stuttgart" style description into postal
// code and city.
var descPattern = regexp.MustCompile(`^(\d{5})\s+(.+)$`)

// Suggestion is a single autocomplete candidate.
type Suggestion struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Address     string `json:"address"`
	City        string `json:"city"`
	PostalCode  string `json:"postalCode"`
	CountryCode string `json:"countryCode"`
	Formatted   string `json:"formatted"`
}

// Service queries Addressy for suggestions. Autocomplete is interactive,
// so each query is a single short call with no retry.
type Service struct {
	baseURL    string
	key        string
	httpClient *http.Client
	enabled    bool
	logger     zerolog.Logger
}

// Config holds the address service configuration.
type Config struct {
	// BaseURL overrides the Addressy endpoint (tests).
	BaseURL string

	// APIKey authenticates requests. A missing key disables the service.
	APIKey string

	// Timeout bounds the outbound call (default 5s).
	Timeout time.Duration
}

// New creates an address service. A missing API key disables it.
func New(cfg Config) *Service {
	logger := log.With().Str("component", "address-service").Logger()

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	enabled := cfg.APIKey != ""
	if !enabled {
		logger.Warn().Msg("Addressy API key missing, address autocomplete disabled")
	}

	return &Service{
		baseURL:    strings.TrimRight(baseURL, "/"),
		key:        cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		enabled:    enabled,
		logger:     logger,
	}
}

// Enabled reports whether an API key is configured.
func (s *Service) Enabled() bool {
	return s.enabled
}

// findItem is one entry of the provider's Items array.
type findItem struct {
	ID          string `json:"Id"`
	Type        string `json:"Type"`
	Text        string `json:"Text"`
	Description string `json:"Description"`
}

type findResponse struct {
	Items []findItem `json:"Items"`
}

// Suggest returns address candidates for a free-form query. country
// defaults to "DE", limit to DefaultLimit. Container items (streets,
// localities) are filtered out; only concrete addresses are returned.
func (s *Service) Suggest(ctx context.Context, query, country string, limit int) ([]Suggestion, error) {
	if !s.enabled {
		return nil, ErrNotConfigured
	}

	if country == "" {
		country = "DE"
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	params := url.Values{}
	params.Set("Key", s.key)
	params.Set("Text", query)
	params.Set("Countries", country)
	params.Set("Limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+findPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Address provider unreachable")
		return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn().Int("status", resp.StatusCode).Msg("Address provider error status")
		return nil, fmt.Errorf("%w: status %d", ErrProviderFailure, resp.StatusCode)
	}

	var payload findResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrProviderFailure, err)
	}

	suggestions := make([]Suggestion, 0, len(payload.Items))
	for _, item := range payload.Items {
		if sg := mapItem(item, country); sg != nil {
			suggestions = append(suggestions, *sg)
		}
	}

	s.logger.Debug().Str("query", query).Int("results", len(suggestions)).Msg("Address suggestions resolved")
	return suggestions, nil
}

// mapItem converts a provider item to a suggestion, or nil for container
// items that only expand into further queries.
func mapItem(item findItem, country string) *Suggestion {
	if item.Type != "Address" {
		return nil
	}

	text := strings.TrimSpace(item.Text)
	desc := strings.TrimSpace(item.Description)

	postal, city := "", desc
	if m := descPattern.FindStringSubmatch(desc); m != nil {
		postal, city = m[1], strings.TrimSpace(m[2])
	}

	place := strings.TrimSpace(postal + " " + city)
	formatted := strings.Trim(text+", "+place+", "+country, ", ")

	return &Suggestion{
		ID:          item.ID,
		Label:       text,
		Description: desc,
		Address:     text,
		City:        city,
		PostalCode:  postal,
		CountryCode: country,
		Formatted:   formatted,
	}
}
