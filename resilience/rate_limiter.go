package resilience

import (
	"context"
	stderrors "errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a request cannot get a token in time.
var ErrRateLimited = stderrors.New("rate limit exceeded")

// RateLimiterConfig configures a rate limiter.
type RateLimiterConfig struct {
	// Name identifies this rate limiter for metrics/logging.
	Name string `yaml:"name" mapstructure:"name"`
	// Rate is the number of requests allowed per second.
	Rate float64 `yaml:"rate" mapstructure:"rate"`
	// Burst is the maximum burst size.
	Burst int `yaml:"burst" mapstructure:"burst"`
	// MaxWait bounds how long Wait may block. 0 waits as long as ctx allows.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
	// OnLimit is called when a request has to wait or is rejected.
	OnLimit func(name string) `yaml:"-" mapstructure:"-"`
}

// DefaultRateLimiterConfig returns sensible defaults.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{
		Name:  name,
		Rate:  10.0,
		Burst: 20,
	}
}

// RateLimiter is a token bucket shared by every request through one client.
type RateLimiter struct {
	config RateLimiterConfig

	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a new rate limiter with a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 10.0
	}
	if config.Burst <= 0 {
		config.Burst = max(int(config.Rate), 1)
	}

	return &RateLimiter{
		config:     config,
		tokens:     float64(config.Burst),
		lastRefill: time.Now(),
	}
}

// Allow takes a token without blocking.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	rl.limited()
	return false
}

// Wait blocks until a token is available. It returns ErrRateLimited when the
// wait would exceed MaxWait, or ctx.Err() when ctx ends first.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	wait, ok := rl.reserve()
	if !ok {
		return ErrRateLimited
	}
	if wait <= 0 {
		return nil
	}
	if err := Sleep(ctx, wait); err != nil {
		rl.cancelReservation()
		return err
	}
	return nil
}

// reserve takes a token, possibly going into debt, and returns how long the
// caller must wait for it.
func (rl *RateLimiter) reserve() (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens >= 1 {
		rl.tokens--
		return 0, true
	}

	wait := time.Duration((1 - rl.tokens) / rl.config.Rate * float64(time.Second))
	rl.limited()
	if rl.config.MaxWait > 0 && wait > rl.config.MaxWait {
		return 0, false
	}
	rl.tokens--
	return wait, true
}

func (rl *RateLimiter) cancelReservation() {
	rl.mu.Lock()
	rl.tokens++
	rl.mu.Unlock()
}

func (rl *RateLimiter) limited() {
	if rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name)
	}
}

// refill adds tokens for the time elapsed since the last refill.
func (rl *RateLimiter) refill() {
	now := time.Now()
	rl.tokens += now.Sub(rl.lastRefill).Seconds() * rl.config.Rate
	rl.lastRefill = now
	if rl.tokens > float64(rl.config.Burst) {
		rl.tokens = float64(rl.config.Burst)
	}
}

// Tokens returns the current number of available tokens.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

// Rate returns the rate limit (requests per second).
func (rl *RateLimiter) Rate() float64 {
	return rl.config.Rate
}

// Burst returns the burst size.
func (rl *RateLimiter) Burst() int {
	return rl.config.Burst
}
