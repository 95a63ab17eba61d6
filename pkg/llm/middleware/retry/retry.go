// Package retry provides retry middleware for model gateway clients with
// per-error-type exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"intake/pkg/llm"
	"intake/pkg/llm/llmerrors"
)

// Policy controls retry behavior. The per-error-type configuration comes
// from llmerrors.DefaultRetryConfigs; MaxAttempts caps the total attempts
// across all error types.
type Policy struct {
	MaxAttempts int
}

// DefaultPolicy returns the standard retry policy.
func DefaultPolicy() *Policy {
	return &Policy{MaxAttempts: 5}
}

// ShouldRetry reports whether the error warrants another attempt.
func (p *Policy) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	return llmerrors.IsRetryable(err)
}

// Delay computes the backoff before the given attempt (attempt 2 is the
// first retry), using the configuration for the error's classified type.
func (p *Policy) Delay(attempt int, err error) time.Duration {
	var cfg llmerrors.RetryConfig
	var classified *llmerrors.Error
	if errors.As(err, &classified) {
		cfg = classified.GetRetryConfig()
	} else {
		cfg = llmerrors.DefaultRetryConfigs[llmerrors.ErrorTypeUnknown]
	}

	if cfg.InitialDelay <= 0 {
		return 0
	}

	delay := float64(cfg.InitialDelay) * math.Pow(cfg.BackoffFactor, float64(attempt-2))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		// Up to 25% random jitter to avoid thundering herd.
		delay += delay * 0.25 * rand.Float64() //nolint:gosec // Jitter does not need crypto randomness
	}
	return time.Duration(delay)
}

// Middleware wraps a client with retry logic. Retryable failures are
// re-attempted with backoff; exhausting retries on a retryable error yields
// an ErrorTypeUnavailable so callers can distinguish persistent outages.
func Middleware(policy *Policy) llm.Middleware {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				var lastErr error

				for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
					if attempt > 1 {
						delay := policy.Delay(attempt, lastErr)
						if delay > 0 {
							select {
							case <-ctx.Done():
								return llm.CompletionResponse{}, fmt.Errorf("retry cancelled: %w", ctx.Err())
							case <-time.After(delay):
							}
						}
					}

					resp, err := next.Complete(ctx, req)
					if err == nil {
						return resp, nil
					}
					lastErr = err

					if !policy.ShouldRetry(err) {
						break
					}
				}

				if policy.ShouldRetry(lastErr) {
					return llm.CompletionResponse{}, llmerrors.NewUnavailableError(lastErr, policy.MaxAttempts)
				}
				return llm.CompletionResponse{}, lastErr
			},
			next.GetModelName,
		)
	}
}
