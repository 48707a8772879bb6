package http

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryConfig bounds the retry loop shared by the remote backend clients.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultRetryConfig retries up to five times, backing off from 2s
// toward a 32s ceiling.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     5,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     32 * time.Second,
		Multiplier:     2.0,
	}
}

// Operation is one attempt of a retryable call.
type Operation func(ctx context.Context) error

// RetryWithBackoff runs the operation until it succeeds, fails with a
// non-retryable error, exhausts MaxRetries, or the context is done.
// The last attempt's error is returned on exhaustion.
func RetryWithBackoff(ctx context.Context, operation Operation, config RetryConfig) error {
	var lastErr error

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation(ctx)
		if lastErr == nil {
			return nil
		}
		if !ShouldRetry(lastErr) || attempt >= config.MaxRetries {
			return lastErr
		}

		select {
		case <-time.After(ExponentialBackoff(attempt, config)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ShouldRetry reports whether the error is a transient backend failure.
// Only typed client errors carry retryability; anything else fails fast.
func ShouldRetry(err error) bool {
	var clientErr *Error
	if errors.As(err, &clientErr) {
		return clientErr.IsRetryable()
	}
	return false
}

// ExponentialBackoff returns the wait before the next attempt:
// min(initial * multiplier^attempt, max), with 25% jitter either way
// so simultaneous clients do not retry in lockstep.
func ExponentialBackoff(attempt int, config RetryConfig) time.Duration {
	base := float64(config.InitialBackoff) * math.Pow(config.Multiplier, float64(attempt))
	ceiling := float64(config.MaxBackoff)
	if base > ceiling {
		base = ceiling
	}

	jitter := (rand.Float64()*2 - 1) * 0.25 * base
	wait := base + jitter
	if wait > ceiling {
		wait = ceiling
	}
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
