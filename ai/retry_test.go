package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_Success(t *testing.T) {
	attempts := 0
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond}

	err := policy.Do(context.Background(), nil, func() error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestRetryPolicy_EventualSuccess(t *testing.T) {
	attempts := 0
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: 10 * time.Millisecond}

	err := policy.Do(context.Background(), nil, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestRetryPolicy_AllAttemptsFail(t *testing.T) {
	attempts := 0
	expectedErr := errors.New("persistent error")
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond}

	err := policy.Do(context.Background(), nil, func() error {
		attempts++
		return expectedErr
	})

	require.Error(t, err)
	assert.Equal(t, expectedErr, err, "should return the original error")
	assert.Equal(t, 3, attempts, "should attempt exactly MaxAttempts times")
}

func TestRetryPolicy_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	policy := RetryPolicy{MaxAttempts: 10, BaseDelay: 10 * time.Millisecond}

	err := policy.Do(ctx, nil, func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, attempts, 2, "should stop when context is canceled")
}

func TestRetryPolicy_ZeroMaxAttempts(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 0}
	err := policy.Do(context.Background(), nil, func() error { return nil })
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestRetryPolicy_ReportsToBreaker(t *testing.T) {
	cb, _ := newTestBreaker(5, time.Minute)
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	err := policy.Do(context.Background(), cb, func() error {
		return errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, 3, cb.FailureCount(), "each failed attempt feeds the breaker")

	err = policy.Do(context.Background(), cb, func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 0, cb.FailureCount(), "success resets the breaker")
}

func TestRetryPolicy_StopsWhenBreakerOpens(t *testing.T) {
	cb, _ := newTestBreaker(2, time.Minute)
	attempts := 0
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}

	err := policy.Do(context.Background(), cb, func() error {
		attempts++
		return errors.New("boom")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, 2, attempts, "breaker opens at threshold and refuses the next attempt")
}

func TestRetryPolicy_BreakerAlreadyOpen(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Minute)
	cb.Fail()

	attempts := 0
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	err := policy.Do(context.Background(), cb, func() error {
		attempts++
		return nil
	})

	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Zero(t, attempts, "no attempts while the breaker is open")
}
