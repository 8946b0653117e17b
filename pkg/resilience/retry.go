package resilience

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/marcheroute/marcheroute/pkg/logger"
	"go.uber.org/zap"
)

// RetryConfig controls the retry loop.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	Jitter         float64
}

// DefaultRetryConfig returns a conservative retry policy for upstream calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.2,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retryable. The retry loop stops immediately
// and returns the wrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry runs fn with exponential backoff until it succeeds, the attempts
// are exhausted, the error is permanent, or ctx is cancelled.
func Retry(ctx context.Context, config RetryConfig, fn func(ctx context.Context) error) error {
	return RetryWithName(ctx, config, "operation", fn)
}

// RetryWithName is Retry with an operation name used for logs and metrics.
func RetryWithName(ctx context.Context, config RetryConfig, name string, fn func(ctx context.Context) error) error {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.Multiplier < 1 {
		config.Multiplier = 2.0
	}

	backoff := config.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		recordRetryAttempt(name)

		lastErr = fn(ctx)
		if lastErr == nil {
			recordRetryOperation(name, "success")
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			recordRetryOperation(name, "permanent_failure")
			return perm.err
		}

		if attempt == config.MaxAttempts {
			break
		}

		delay := backoff
		if config.Jitter > 0 {
			jitter := time.Duration(rand.Float64() * config.Jitter * float64(backoff))
			delay += jitter
		}

		logger.WarnContext(ctx, "Operation failed, retrying",
			zap.String("operation", name),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(lastErr),
		)
		recordRetryBackoff(name, delay)

		select {
		case <-ctx.Done():
			recordRetryOperation(name, "cancelled")
			return ctx.Err()
		case <-time.After(delay):
		}

		backoff = time.Duration(float64(backoff) * config.Multiplier)
		if config.MaxBackoff > 0 && backoff > config.MaxBackoff {
			backoff = config.MaxBackoff
		}
	}

	recordRetryOperation(name, "exhausted")
	return lastErr
}

// IsRetryableHTTPStatus reports whether an HTTP status is worth retrying.
func IsRetryableHTTPStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
