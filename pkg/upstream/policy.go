package upstream

import (
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

// RetryPolicy controls how the client retries a request.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int

	// BackoffBase is the base delay, doubled per attempt.
	BackoffBase time.Duration

	// JitterMax bounds the uniform random offset added to each delay.
	JitterMax time.Duration

	// RetryableStatuses is the set of HTTP status codes worth retrying.
	RetryableStatuses map[int]struct{}
}

// DefaultRetryPolicy returns the client's standard policy: 3 attempts,
// 250ms base delay with up to 200ms of jitter, retrying 429 and the common
// transient 5xx statuses.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BackoffBase: 250 * time.Millisecond,
		JitterMax:   200 * time.Millisecond,
		RetryableStatuses: map[int]struct{}{
			http.StatusTooManyRequests:     {},
			http.StatusInternalServerError: {},
			http.StatusBadGateway:          {},
			http.StatusServiceUnavailable:  {},
			http.StatusGatewayTimeout:      {},
		},
	}
}

// Retryable reports whether status is in the retryable set.
func (p RetryPolicy) Retryable(status int) bool {
	_, ok := p.RetryableStatuses[status]
	return ok
}

// Backoff returns the jittered exponential delay for the given 1-based
// attempt: base * 2^(attempt-1) + uniform(0, jitterMax).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	backoff := time.Duration(float64(p.BackoffBase) * math.Pow(2, float64(attempt-1)))
	if p.JitterMax > 0 {
		backoff += time.Duration(rand.Int63n(int64(p.JitterMax)))
	}
	return backoff
}

// retryAfterDelay returns the delay mandated by an integer Retry-After
// header, overriding the computed backoff for this attempt only. The
// second return value is false when the header is absent or not a
// non-negative integer.
func retryAfterDelay(header http.Header) (time.Duration, bool) {
	raw := header.Get("Retry-After")
	if raw == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}
