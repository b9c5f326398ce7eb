// Package upstream provides a generic outbound HTTP client with
// classification-driven retries, jittered exponential backoff, and
// Retry-After support for calls to flaky upstream APIs.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Response is a fully-read upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client executes requests against a single upstream base URL. It holds no
// per-request state; every call runs its retry budget independently.
type Client struct {
	baseURL    string
	httpClient *http.Client
	headers    http.Header
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the upstream base, e.g. "https://api.hubrise.com/v1".
	BaseURL string

	// Headers are sent with every request (auth tokens, User-Agent).
	Headers http.Header

	// Timeout bounds each individual attempt.
	Timeout time.Duration
}

// New creates an upstream client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 6 * time.Second
	}

	logger := log.With().Str("component", "upstream-client").Logger()

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		headers:    cfg.Headers,
		logger:     logger,
	}, nil
}

// Do executes method+path against the base URL under the given retry
// policy. Retryable statuses and transport failures are retried with
// jittered exponential backoff until the policy's attempt budget runs out;
// an integer Retry-After response header overrides the computed delay for
// that attempt. A non-retryable non-2xx status, or exhaustion of the
// budget, yields an *UpstreamError.
func (c *Client) Do(ctx context.Context, method, path string, headers http.Header, body []byte, policy RetryPolicy) (*Response, error) {
	url := c.baseURL + path

	startTime := time.Now()
	defer func() {
		upstreamRequestDuration.WithLabelValues(path).Observe(time.Since(startTime).Seconds())
	}()

	attempt := 0
	for {
		attempt++

		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		c.applyHeaders(req, headers)

		resp, reqErr := c.httpClient.Do(req)

		// Transport-level failure: no Retry-After available, sleep per
		// computed backoff and retry until the budget runs out.
		if reqErr != nil {
			upstreamRequestsTotal.WithLabelValues(path, "network_error").Inc()
			if attempt < policy.MaxAttempts {
				c.logger.Warn().
					Err(reqErr).
					Str("path", path).
					Int("attempt", attempt).
					Msg("Transport error, retrying")
				if err := c.sleep(ctx, policy.Backoff(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			upstreamRetryExhaustedTotal.Inc()
			c.logger.Error().
				Err(reqErr).
				Str("path", path).
				Int("max_attempts", policy.MaxAttempts).
				Msg("Transport error, retry attempts exhausted")
			return nil, &UpstreamError{Err: fmt.Errorf("%w: %v", ErrRetryExhausted, reqErr)}
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			if attempt < policy.MaxAttempts {
				if err := c.sleep(ctx, policy.Backoff(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			upstreamRetryExhaustedTotal.Inc()
			return nil, &UpstreamError{Err: fmt.Errorf("%w: read body: %v", ErrRetryExhausted, readErr)}
		}

		upstreamRequestsTotal.WithLabelValues(path, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		// Retryable status within budget: honor Retry-After for this
		// attempt, otherwise use the computed backoff.
		if policy.Retryable(resp.StatusCode) && attempt < policy.MaxAttempts {
			delay, ok := retryAfterDelay(resp.Header)
			if !ok {
				delay = policy.Backoff(attempt)
			}
			c.logger.Warn().
				Str("path", path).
				Int("status", resp.StatusCode).
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("Retryable upstream status, retrying")
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		// Non-2xx after retry handling: structured error for the caller
		// to map to its own envelope.
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if policy.Retryable(resp.StatusCode) {
				upstreamRetryExhaustedTotal.Inc()
			}
			c.logger.Warn().
				Str("path", path).
				Int("status", resp.StatusCode).
				Int("attempt", attempt).
				Msg("Upstream request failed")
			return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: respBody}
		}

		if attempt > 1 {
			c.logger.Info().
				Str("path", path).
				Int("attempt", attempt).
				Msg("Upstream request succeeded after retry")
		}

		return &Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       respBody,
		}, nil
	}
}

// Get performs a GET request under the default retry policy.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, nil, DefaultRetryPolicy())
}

// applyHeaders merges the client-wide headers with per-request ones.
func (c *Client) applyHeaders(req *http.Request, headers http.Header) {
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}
}

// sleep waits for the backoff duration, aborting early on context
// cancellation.
func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	upstreamRetriesTotal.Inc()
	upstreamRetryBackoffSeconds.Observe(d.Seconds())

	select {
	case <-ctx.Done():
		c.logger.Warn().Msg("Context cancelled during retry backoff")
		return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
	case <-time.After(d):
		return nil
	}
}
