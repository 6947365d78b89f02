package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/kbukum/reqkit/errors"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	// InitialBackoff is the initial delay between retries.
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	// MaxBackoff is the maximum delay between retries.
	MaxBackoff time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	// BackoffFactor is the multiplier for exponential backoff.
	BackoffFactor float64 `yaml:"backoff_factor" mapstructure:"backoff_factor"`
	// Jitter adds randomness to backoff (0.0 to 1.0).
	Jitter float64 `yaml:"jitter" mapstructure:"jitter"`
	// RetryIf determines if an error should be retried.
	RetryIf func(error) bool `yaml:"-" mapstructure:"-"`
	// OnRetry is called before each retry.
	OnRetry func(attempt int, err error, backoff time.Duration) `yaml:"-" mapstructure:"-"`
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         0.1,
		RetryIf:        DefaultRetryIf,
	}
}

// DefaultRetryIf retries errors classified as retryable: connection
// failures, timeouts, 5xx and 429 responses.
func DefaultRetryIf(err error) bool {
	return errors.IsRetryable(err)
}

// ApplyDefaults fills zero fields with defaults.
func (c *RetryConfig) ApplyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 100 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 10 * time.Second
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = 2.0
	}
	if c.RetryIf == nil {
		c.RetryIf = DefaultRetryIf
	}
}

// Backoff returns the delay before the retry that follows attempt
// (1-based): initial * factor^(attempt-1), jittered and capped.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	backoff := float64(c.InitialBackoff) * math.Pow(c.BackoffFactor, float64(attempt-1))

	if c.Jitter > 0 {
		spread := backoff * c.Jitter
		backoff += (rand.Float64()*2 - 1) * spread
	}
	if backoff > float64(c.MaxBackoff) {
		backoff = float64(c.MaxBackoff)
	}
	if backoff < 0 {
		backoff = float64(c.InitialBackoff)
	}
	return time.Duration(backoff)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry executes fn until it succeeds, RetryIf rejects the error, or the
// attempts run out. It returns the last error.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	cfg.ApplyDefaults()

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !cfg.RetryIf(err) || attempt == cfg.MaxAttempts {
			break
		}

		backoff := cfg.Backoff(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, backoff)
		}
		if err := Sleep(ctx, backoff); err != nil {
			return zero, err
		}
	}

	return zero, lastErr
}

// RetryFunc executes a function that returns only an error.
func RetryFunc(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := Retry(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
