package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/reqkit/logger"
)

// DefaultStopTimeout bounds the Stop call of each component.
const DefaultStopTimeout = 10 * time.Second

type componentEntry struct {
	component Component
	started   bool
}

// Registry manages component lifecycle with deterministic ordering.
// Components are started in registration order and stopped in reverse order.
type Registry struct {
	entries     []*componentEntry
	lookup      map[string]*componentEntry
	stopTimeout time.Duration
	log         *logger.Logger
	mu          sync.RWMutex
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *logger.Logger) RegistryOption {
	return func(r *Registry) { r.log = l.WithComponent("registry") }
}

// WithStopTimeout sets the per-component stop deadline.
func WithStopTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.stopTimeout = d }
}

// NewRegistry creates a new component registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		lookup:      make(map[string]*componentEntry),
		stopTimeout: DefaultStopTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.WithComponent("registry")
	}
	return r
}

// Register adds a component to the registry. Register dependencies first.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, exists := r.lookup[name]; exists {
		return fmt.Errorf("component %s already registered", name)
	}

	entry := &componentEntry{component: c}
	r.entries = append(r.entries, entry)
	r.lookup[name] = entry

	r.log.Debug("component registered", logger.Fields("component", name))
	return nil
}

// StartAll starts all components in registration order. On failure the
// components started so far stay started; call StopAll to release them.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range r.entries {
		if entry.started {
			continue
		}
		name := entry.component.Name()
		if err := entry.component.Start(ctx); err != nil {
			r.log.Error("component start failed", logger.ErrorFields("start", err), logger.Fields("component", name))
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		entry.started = true
		r.log.Debug("component started", logger.Fields("component", name))
	}

	r.log.Info("components started", logger.Fields("count", len(r.entries)))
	return nil
}

// StopAll stops all started components in reverse registration order.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.entries) - 1; i >= 0; i-- {
		entry := r.entries[i]
		if !entry.started {
			continue
		}

		name := entry.component.Name()
		stopCtx, cancel := context.WithTimeout(ctx, r.stopTimeout)
		if err := entry.component.Stop(stopCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", name, err))
			r.log.Error("component stop failed", logger.ErrorFields("stop", err), logger.Fields("component", name))
		} else {
			r.log.Debug("component stopped", logger.Fields("component", name))
		}
		entry.started = false
		cancel()
	}

	return errors.Join(errs...)
}

// HealthAll returns health status for all registered components.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]Health, 0, len(r.entries))
	for _, entry := range r.entries {
		results = append(results, entry.component.Health(ctx))
	}
	return results
}

// Get returns a registered component by name, or nil if not found.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, exists := r.lookup[name]; exists {
		return entry.component
	}
	return nil
}

// All returns all registered components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Component, 0, len(r.entries))
	for _, entry := range r.entries {
		result = append(result, entry.component)
	}
	return result
}
