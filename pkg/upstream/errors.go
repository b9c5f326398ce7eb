package upstream

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned (wrapped in UpstreamError) when all
	// retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during
	// a backoff sleep.
	ErrContextCancelled = errors.New("context cancelled")
)

// UpstreamError reports a failed upstream call: a non-retryable non-2xx
// response, a retryable status that survived every attempt, or a transport
// failure that persisted through the retry budget. StatusCode is 0 when no
// HTTP response was received.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	Err        error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("upstream transport error: %v", e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("upstream error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream error (status %d)", e.StatusCode)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}
