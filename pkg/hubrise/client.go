// Package hubrise provides a typed client for the HubRise order-management
// API, built on the resilient upstream client.
package hubrise

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hutbite/hutbite-backend/pkg/upstream"
)

const userAgent = "hutbite-backend/1.0"

// Client talks to the HubRise API for a single access token. All calls
// run under the upstream client's default retry policy (3 attempts,
// jittered exponential backoff, Retry-After honored).
type Client struct {
	upstream *upstream.Client
}

// Config holds the HubRise client configuration.
type Config struct {
	// APIURL is the HubRise API base, e.g. "https://api.hubrise.com/v1".
	APIURL string

	// AccessToken authenticates every request via X-Access-Token.
	AccessToken string

	// Timeout bounds each individual attempt.
	Timeout time.Duration
}

// New creates a HubRise client.
func New(cfg Config) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}

	up, err := upstream.New(upstream.Config{
		BaseURL: cfg.APIURL,
		Headers: http.Header{
			"X-Access-Token": []string{cfg.AccessToken},
			"Content-Type":   []string{"application/json"},
			"User-Agent":     []string{userAgent},
		},
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}

	return &Client{upstream: up}, nil
}

// CreateOrder creates an order at the given location.
func (c *Client) CreateOrder(ctx context.Context, locationID string, order Order) (*Order, error) {
	path := fmt.Sprintf("/locations/%s/orders", url.PathEscape(locationID))
	return c.orderCall(ctx, http.MethodPost, path, &order)
}

// RetrieveOrder fetches a single order.
func (c *Client) RetrieveOrder(ctx context.Context, locationID, orderID string) (*Order, error) {
	path := fmt.Sprintf("/locations/%s/orders/%s", url.PathEscape(locationID), url.PathEscape(orderID))
	return c.orderCall(ctx, http.MethodGet, path, nil)
}

// ListOrders lists orders scoped to a location or, when locationID is
// empty, to an account. Params are forwarded as query parameters
// (status, private_ref, customer_id...).
func (c *Client) ListOrders(ctx context.Context, locationID, accountID string, params url.Values) ([]Order, error) {
	var path string
	switch {
	case locationID != "":
		path = fmt.Sprintf("/locations/%s/orders", url.PathEscape(locationID))
	case accountID != "":
		path = fmt.Sprintf("/accounts/%s/orders", url.PathEscape(accountID))
	default:
		return nil, fmt.Errorf("location or account id required")
	}
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	resp, err := c.upstream.Do(ctx, http.MethodGet, path, nil, nil, upstream.DefaultRetryPolicy())
	if err != nil {
		return nil, err
	}

	var orders []Order
	if err := json.Unmarshal(resp.Body, &orders); err != nil {
		return nil, fmt.Errorf("decode order list: %w", err)
	}
	return orders, nil
}

// UpdateOrder patches an order (typically a status transition).
func (c *Client) UpdateOrder(ctx context.Context, locationID, orderID string, patch Order) (*Order, error) {
	path := fmt.Sprintf("/locations/%s/orders/%s", url.PathEscape(locationID), url.PathEscape(orderID))
	return c.orderCall(ctx, http.MethodPatch, path, &patch)
}

// CreateDeliveryQuote requests delivery quotes for an order.
func (c *Client) CreateDeliveryQuote(ctx context.Context, locationID, orderID string, body json.RawMessage) (json.RawMessage, error) {
	path := fmt.Sprintf("/locations/%s/orders/%s/delivery_quotes", url.PathEscape(locationID), url.PathEscape(orderID))
	return c.rawCall(ctx, http.MethodPost, path, body)
}

// AcceptDeliveryQuote accepts a previously created quote.
func (c *Client) AcceptDeliveryQuote(ctx context.Context, locationID, orderID, quoteID string) (json.RawMessage, error) {
	path := fmt.Sprintf("/locations/%s/orders/%s/delivery_quotes/%s/accept",
		url.PathEscape(locationID), url.PathEscape(orderID), url.PathEscape(quoteID))
	return c.rawCall(ctx, http.MethodPost, path, nil)
}

// CreateDelivery attaches a delivery to an order.
func (c *Client) CreateDelivery(ctx context.Context, locationID, orderID string, body json.RawMessage) (json.RawMessage, error) {
	path := fmt.Sprintf("/locations/%s/orders/%s/delivery", url.PathEscape(locationID), url.PathEscape(orderID))
	return c.rawCall(ctx, http.MethodPost, path, body)
}

// RetrieveDelivery fetches the delivery attached to an order.
func (c *Client) RetrieveDelivery(ctx context.Context, locationID, orderID string) (json.RawMessage, error) {
	path := fmt.Sprintf("/locations/%s/orders/%s/delivery", url.PathEscape(locationID), url.PathEscape(orderID))
	return c.rawCall(ctx, http.MethodGet, path, nil)
}

// UpdateDelivery patches the delivery attached to an order.
func (c *Client) UpdateDelivery(ctx context.Context, locationID, orderID string, body json.RawMessage) (json.RawMessage, error) {
	path := fmt.Sprintf("/locations/%s/orders/%s/delivery", url.PathEscape(locationID), url.PathEscape(orderID))
	return c.rawCall(ctx, http.MethodPatch, path, body)
}

// GetCatalog fetches a catalog (menus, products, SKUs).
func (c *Client) GetCatalog(ctx context.Context, catalogID string) (json.RawMessage, error) {
	return c.rawCall(ctx, http.MethodGet, "/catalogs/"+url.PathEscape(catalogID), nil)
}

// GetLocation fetches a location (opening hours, address).
func (c *Client) GetLocation(ctx context.Context, locationID string) (json.RawMessage, error) {
	return c.rawCall(ctx, http.MethodGet, "/locations/"+url.PathEscape(locationID), nil)
}

// orderCall executes a request whose response decodes into an Order.
func (c *Client) orderCall(ctx context.Context, method, path string, body *Order) (*Order, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode order: %w", err)
		}
	}

	resp, err := c.upstream.Do(ctx, method, path, nil, payload, upstream.DefaultRetryPolicy())
	if err != nil {
		return nil, err
	}

	var order Order
	if err := json.Unmarshal(resp.Body, &order); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	return &order, nil
}

// rawCall executes a pass-through request, returning the response body
// unmodified.
func (c *Client) rawCall(ctx context.Context, method, path string, body json.RawMessage) (json.RawMessage, error) {
	resp, err := c.upstream.Do(ctx, method, path, nil, body, upstream.DefaultRetryPolicy())
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
