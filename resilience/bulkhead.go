package resilience

import (
	"context"
	stderrors "errors"
	"sync"
	"time"
)

// Bulkhead errors.
var (
	ErrBulkheadFull    = stderrors.New("bulkhead is full")
	ErrBulkheadTimeout = stderrors.New("bulkhead wait timeout")
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies this bulkhead for metrics/logging.
	Name string `yaml:"name" mapstructure:"name"`
	// MaxConcurrent is the maximum number of in-flight requests.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	// MaxWait is how long to wait for a slot. 0 means fail immediately.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
	// OnReject is called when a request is rejected.
	OnReject func(name string) `yaml:"-" mapstructure:"-"`
}

// DefaultBulkheadConfig returns sensible defaults.
func DefaultBulkheadConfig(name string) BulkheadConfig {
	return BulkheadConfig{
		Name:          name,
		MaxConcurrent: 10,
	}
}

// Bulkhead caps the number of requests in flight at once.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}

	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// Acquire takes a slot and returns the function that gives it back. The
// release function is safe to call more than once.
func (b *Bulkhead) Acquire(ctx context.Context) (release func(), err error) {
	if err := b.acquire(ctx); err != nil {
		if b.config.OnReject != nil {
			b.config.OnReject(b.config.Name)
		}
		return nil, err
	}
	var once sync.Once
	return func() { once.Do(func() { <-b.sem }) }, nil
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}

	if b.config.MaxWait <= 0 {
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()

	select {
	case b.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBulkheadTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Available returns the number of free slots.
func (b *Bulkhead) Available() int {
	return b.config.MaxConcurrent - len(b.sem)
}

// InUse returns the number of slots currently in use.
func (b *Bulkhead) InUse() int {
	return len(b.sem)
}

// MaxConcurrent returns the maximum number of in-flight requests.
func (b *Bulkhead) MaxConcurrent() int {
	return b.config.MaxConcurrent
}
