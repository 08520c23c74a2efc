// Package retry wraps fallible operations with bounded attempts and jittered
// exponential backoff. The wrapper holds no state between invocations and is
// safe to share across operations.
package retry

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Config controls retry behavior. One instance per call site.
type Config struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
	Jitter          bool
}

// DefaultConfig mirrors the defaults used for most external calls.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		InitialDelay:    time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
	}
}

// ExhaustedError is returned once every attempt has failed. It wraps the last
// underlying error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Option customizes a single Do invocation.
type Option func(*options)

type options struct {
	retryIf func(error) bool
	onRetry func(err error, attempt int)
	sleep   func(time.Duration)
}

// RetryIf marks which errors are transient. Errors the predicate rejects
// propagate immediately without another attempt. Without this option every
// error is treated as transient.
func RetryIf(pred func(error) bool) Option {
	return func(o *options) { o.retryIf = pred }
}

// OnRetry observes each failed attempt before the backoff sleep.
func OnRetry(fn func(err error, attempt int)) Option {
	return func(o *options) { o.onRetry = fn }
}

// withSleep overrides the sleep function. Tests use it to avoid real delays.
func withSleep(fn func(time.Duration)) Option {
	return func(o *options) { o.sleep = fn }
}

// BackoffDelay computes the delay before retrying after attempt n (1-indexed):
// min(initial * base^(n-1), max), scaled by a uniform factor in [0.5, 1.0)
// when jitter is enabled so concurrent sessions don't retry in lockstep.
func BackoffDelay(attempt int, cfg Config) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.ExponentialBase, float64(attempt-1))
	if max := float64(cfg.MaxDelay); delay > max {
		delay = max
	}
	if cfg.Jitter {
		delay *= 0.5 + rand.Float64()*0.5
	}
	return time.Duration(delay)
}

// Do executes op, retrying transient failures with backoff. Sleeps are
// synchronous; callers on a cooperative scheduler should run Do on its own
// goroutine. After MaxAttempts failures it returns an *ExhaustedError
// wrapping the last error.
func Do[T any](cfg Config, op func() (T, error), opts ...Option) (T, error) {
	var zero T
	o := options{sleep: time.Sleep}
	for _, opt := range opts {
		opt(&o)
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := op()
		if err == nil {
			return result, nil
		}
		if o.retryIf != nil && !o.retryIf(err) {
			return zero, err
		}
		lastErr = err
		if o.onRetry != nil {
			o.onRetry(err, attempt)
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		o.sleep(BackoffDelay(attempt, cfg))
	}
	return zero, &ExhaustedError{Attempts: cfg.MaxAttempts, Err: lastErr}
}
