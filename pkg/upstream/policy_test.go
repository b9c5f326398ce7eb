package upstream

import (
	"net/http"
	"testing"
	"time"
)

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()

	if policy.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", policy.MaxAttempts)
	}
	if policy.BackoffBase != 250*time.Millisecond {
		t.Errorf("BackoffBase = %v, want 250ms", policy.BackoffBase)
	}
	if policy.JitterMax != 200*time.Millisecond {
		t.Errorf("JitterMax = %v, want 200ms", policy.JitterMax)
	}

	for _, status := range []int{429, 500, 502, 503, 504} {
		if !policy.Retryable(status) {
			t.Errorf("status %d should be retryable", status)
		}
	}
	for _, status := range []int{200, 400, 401, 404, 501} {
		if policy.Retryable(status) {
			t.Errorf("status %d should not be retryable", status)
		}
	}
}

func TestBackoffDoublesWithJitterBound(t *testing.T) {
	policy := RetryPolicy{
		BackoffBase: 250 * time.Millisecond,
		JitterMax:   200 * time.Millisecond,
	}

	tests := []struct {
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{1, 250 * time.Millisecond, 450 * time.Millisecond},
		{2, 500 * time.Millisecond, 700 * time.Millisecond},
		{3, 1 * time.Second, 1200 * time.Millisecond},
	}

	for _, tt := range tests {
		for i := 0; i < 20; i++ {
			d := policy.Backoff(tt.attempt)
			if d < tt.min || d > tt.max {
				t.Errorf("Backoff(%d) = %v, want in [%v, %v]", tt.attempt, d, tt.min, tt.max)
			}
		}
	}
}

func TestBackoffWithoutJitter(t *testing.T) {
	policy := RetryPolicy{BackoffBase: 100 * time.Millisecond}

	if d := policy.Backoff(1); d != 100*time.Millisecond {
		t.Errorf("Backoff(1) = %v, want 100ms", d)
	}
	if d := policy.Backoff(3); d != 400*time.Millisecond {
		t.Errorf("Backoff(3) = %v, want 400ms", d)
	}
}

func TestRetryAfterDelay(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantDelay time.Duration
		wantOK    bool
	}{
		{"absent", "", 0, false},
		{"integer seconds", "2", 2 * time.Second, true},
		{"zero", "0", 0, true},
		{"negative rejected", "-1", 0, false},
		{"http date ignored", "Wed, 21 Oct 2025 07:28:00 GMT", 0, false},
		{"not a number", "soon", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.value != "" {
				header.Set("Retry-After", tt.value)
			}

			delay, ok := retryAfterDelay(header)
			if ok != tt.wantOK {
				t.Fatalf("retryAfterDelay ok = %v, want %v", ok, tt.wantOK)
			}
			if delay != tt.wantDelay {
				t.Errorf("retryAfterDelay = %v, want %v", delay, tt.wantDelay)
			}
		})
	}
}
