package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/jdziat/simple-triggers/pkg/core"
)

// RetryConfig controls how the dispatch loop retries failing store calls.
type RetryConfig struct {
	// MaxAttempts includes the first call.
	MaxAttempts       int           `yaml:"max_attempts"`
	InitialBackoff    time.Duration `yaml:"initial_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	// JitterFraction randomizes each wait by up to this share of it.
	JitterFraction float64 `yaml:"jitter_fraction"`
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFraction:    0.1,
	}
}

// retryWithBackoff runs operation until it succeeds, fails permanently or
// runs out of attempts, and returns the last error.
func retryWithBackoff(ctx context.Context, config RetryConfig, operation func() error) error {
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		lastErr = operation()
		if !IsRetryableError(lastErr) || attempt >= config.MaxAttempts {
			return lastErr
		}

		jitter := time.Duration(float64(backoff) * config.JitterFraction * (rand.Float64()*2 - 1))
		sleep := backoff + jitter
		if sleep < 0 {
			sleep = backoff
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}

		backoff = time.Duration(float64(backoff) * config.BackoffMultiplier)
		if backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}
	return lastErr
}

// IsRetryableError reports whether a store error may be transient.
// Context errors and the store's not-found and already-exists errors are
// permanent; anything else is assumed to be a connection or lock problem.
func IsRetryableError(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, core.ErrJobNotFound), errors.Is(err, core.ErrTriggerNotFound),
		errors.Is(err, core.ErrObjectAlreadyExists):
		return false
	}
	return true
}
