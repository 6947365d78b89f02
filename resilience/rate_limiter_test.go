package resilience

import (
	"context"
	stderrors "errors"
	"testing"
	"time"
)

func TestRateLimiter_AllowsBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Name: "test", Rate: 1, Burst: 3})

	for i := range 3 {
		if !rl.Allow() {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if rl.Allow() {
		t.Error("request beyond burst should be limited")
	}
}

func TestRateLimiter_OnLimit(t *testing.T) {
	limited := 0
	rl := NewRateLimiter(RateLimiterConfig{Name: "test", Rate: 1, Burst: 1, OnLimit: func(string) { limited++ }})
	rl.Allow()
	rl.Allow()
	if limited != 1 {
		t.Errorf("expected OnLimit once, got %d", limited)
	}
}

func TestRateLimiter_WaitRefills(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Name: "test", Rate: 100, Burst: 1})
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Errorf("expected to wait for a token, waited %v", elapsed)
	}
}

func TestRateLimiter_WaitMaxWait(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Name: "test", Rate: 1, Burst: 1, MaxWait: 10 * time.Millisecond})
	_ = rl.Wait(context.Background())

	if err := rl.Wait(context.Background()); !stderrors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestRateLimiter_WaitContextCancelled(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Name: "test", Rate: 1, Burst: 1})
	_ = rl.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); !stderrors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if rl.Tokens() < -0.5 {
		t.Errorf("cancelled wait must give its reservation back, tokens=%v", rl.Tokens())
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{})
	if rl.Rate() != 10 || rl.Burst() != 10 {
		t.Errorf("unexpected defaults rate=%v burst=%d", rl.Rate(), rl.Burst())
	}
	cfg := DefaultRateLimiterConfig("x")
	if cfg.Rate != 10 || cfg.Burst != 20 {
		t.Errorf("unexpected default config %+v", cfg)
	}
}
