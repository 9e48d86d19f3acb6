package utils

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// RetryConfig holds the single-retry policy for upstream calls.
// The delay before the one retry is drawn uniformly from [MinDelay, MaxDelay].
type RetryConfig struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	// ShouldRetry decides whether a failed first attempt earns the retry.
	// Nil retries on any error.
	ShouldRetry func(err error) bool
	// OnRetry is called before sleeping, with the first attempt's error.
	OnRetry func(err error, delay time.Duration)
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MinDelay: 1 * time.Second,
		MaxDelay: 3 * time.Second,
	}
}

// Jitter returns a random duration in [min, max].
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}

// RetryOnceWithResult runs fn, and if it fails (and ShouldRetry agrees)
// waits a jittered delay and runs it exactly one more time. There is no
// further backoff: the second result is final.
func RetryOnceWithResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	result, err := fn()
	if err == nil {
		return result, nil
	}
	if cfg.ShouldRetry != nil && !cfg.ShouldRetry(err) {
		return result, err
	}

	delay := Jitter(cfg.MinDelay, cfg.MaxDelay)
	if cfg.OnRetry != nil {
		cfg.OnRetry(err, delay)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		// Keep the first attempt's error so callers still classify the failure.
		var zero T
		return zero, fmt.Errorf("retry abandoned: %w: %w", ctx.Err(), err)
	case <-timer.C:
	}

	return fn()
}
