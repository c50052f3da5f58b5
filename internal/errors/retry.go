package errors

import (
	"context"
	"math"
	"time"
)

// RetryConfig is the backoff policy for remote and database calls
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	Multiplier  float64       `yaml:"multiplier" mapstructure:"multiplier"`
}

// DefaultRetryConfig tries three times, one then two seconds apart
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2,
	}
}

// RetryHandler repeats an operation while it fails with a recoverable error
type RetryHandler struct {
	config     RetryConfig
	classifier *ErrorClassifier
}

// NewRetryHandler clamps MaxAttempts to at least one and Multiplier to at
// least 1
func NewRetryHandler(config RetryConfig) *RetryHandler {
	config.MaxAttempts = max(config.MaxAttempts, 1)
	config.Multiplier = math.Max(config.Multiplier, 1)
	return &RetryHandler{config: config, classifier: NewErrorClassifier()}
}

func NewDefaultRetryHandler() *RetryHandler {
	return NewRetryHandler(DefaultRetryConfig())
}

// Retry runs operation until it succeeds, fails permanently or the attempts
// run out. The returned error is always an AppError.
func (rh *RetryHandler) Retry(ctx context.Context, operation func() error) error {
	var last *AppError
	for attempt := 1; attempt <= rh.config.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return NewAppError(ErrorTypeInterruption, "Operation cancelled", ctx.Err())
		}

		err := operation()
		if err == nil {
			return nil
		}
		last = rh.classifier.ClassifyError(err)
		if !last.IsRecoverable() || attempt == rh.config.MaxAttempts {
			break
		}

		timer := time.NewTimer(rh.calculateDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return NewAppError(ErrorTypeInterruption, "Operation cancelled while waiting to retry", ctx.Err())
		case <-timer.C:
		}
	}

	if last.IsRecoverable() {
		last.WithContext("attempts", rh.config.MaxAttempts)
	}
	return last
}

// calculateDelay is BaseDelay * Multiplier^(attempt-1), capped at MaxDelay
func (rh *RetryHandler) calculateDelay(attempt int) time.Duration {
	delay := time.Duration(float64(rh.config.BaseDelay) * math.Pow(rh.config.Multiplier, float64(attempt-1)))
	if rh.config.MaxDelay > 0 && delay > rh.config.MaxDelay {
		return rh.config.MaxDelay
	}
	return delay
}
