package errors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() *RetryHandler {
	return NewRetryHandler(RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Multiplier:  2,
	})
}

func TestRetry(t *testing.T) {
	t.Run("first attempt succeeds", func(t *testing.T) {
		calls := 0
		err := fastRetry().Retry(context.Background(), func() error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("recovers after transient failures", func(t *testing.T) {
		calls := 0
		err := fastRetry().Retry(context.Background(), func() error {
			calls++
			if calls < 3 {
				return NewRecoverableError(ErrorTypeRemoteIO, "upload interrupted", nil)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent failure is not retried", func(t *testing.T) {
		calls := 0
		err := fastRetry().Retry(context.Background(), func() error {
			calls++
			return NewValidationError("unknown mode", nil)
		})
		assert.Equal(t, 1, calls)
		assert.True(t, IsType(err, ErrorTypeValidation))
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := fastRetry().Retry(context.Background(), func() error {
			calls++
			return NewRecoverableError(ErrorTypeRemoteIO, "bucket unreachable", nil)
		})
		assert.Equal(t, 3, calls)
		var appErr *AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 3, appErr.Context["attempts"])
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := fastRetry().Retry(ctx, func() error { return nil })
		assert.True(t, IsType(err, ErrorTypeInterruption))
	})

	t.Run("zero config still runs once", func(t *testing.T) {
		calls := 0
		_ = NewRetryHandler(RetryConfig{}).Retry(context.Background(), func() error {
			calls++
			return NewRecoverableError(ErrorTypeRemoteIO, "x", nil)
		})
		assert.Equal(t, 1, calls)
	})
}

func TestCalculateDelay(t *testing.T) {
	handler := NewRetryHandler(RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    time.Second,
		Multiplier:  2,
	})

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second}
	for i, expected := range want {
		assert.Equal(t, expected, handler.calculateDelay(i+1), "attempt %d", i+1)
	}
}
