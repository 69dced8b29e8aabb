package ai

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy bundles retry and circuit-breaker parameters so every
// call site wraps flaky dependencies the same way instead of growing
// its own ad hoc retry loop.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of attempts (must be > 0).
	MaxAttempts int

	// BaseDelay is the delay before the second attempt; it doubles on
	// each subsequent retry.
	BaseDelay time.Duration
}

// DefaultRetryPolicy suits network calls to vendor APIs.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Do runs operation under the policy, consulting the breaker (when non-nil)
// before each attempt and reporting the outcome to it afterward.
// Returns ErrBreakerOpen when the breaker refuses the attempt, the context
// error on cancellation, or the error from the last attempt.
func (p RetryPolicy) Do(ctx context.Context, breaker *CircuitBreaker, operation func() error) error {
	if p.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		// Check context before attempting
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if breaker != nil && !breaker.CanProceed() {
			return ErrBreakerOpen
		}

		lastErr = operation()
		if lastErr == nil {
			if breaker != nil {
				breaker.Succeed()
			}
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		if breaker != nil {
			breaker.Fail()
		}

		slog.Debug("operation failed, will retry",
			"attempt", attempt,
			"maxAttempts", p.MaxAttempts,
			"error", lastErr)

		// Don't sleep after the last attempt
		if attempt == p.MaxAttempts {
			break
		}

		// Exponential backoff: BaseDelay * 2^(attempt-1)
		delay := p.BaseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
