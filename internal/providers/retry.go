package providers

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy controls repeated attempts against a provider.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy retries transient failures twice with exponential
// backoff starting at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2}
}

// Retry runs fn until it succeeds, returns a non-retryable error, or the
// attempt budget is spent. A rate limit's Retry-After hint stretches the
// backoff when it is longer. Reports the number of attempts made.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) (int, error) {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if policy.Multiplier <= 0 {
		policy.Multiplier = 2
	}

	delay := policy.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return attempt, nil
		}
		if !IsRetryable(lastErr) || attempt == policy.MaxAttempts {
			return attempt, lastErr
		}

		wait := delay
		var rl *RateLimitError
		if errors.As(lastErr, &rl) && rl.RetryAfter > wait {
			wait = rl.RetryAfter
		}
		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(wait):
		}
		delay = time.Duration(float64(delay) * policy.Multiplier)
	}
	return policy.MaxAttempts, lastErr
}
