package resilience

import (
	stderrors "errors"
	"sync"
	"time"

	"github.com/kbukum/reqkit/errors"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows requests to pass through.
	StateClosed State = iota
	// StateOpen blocks all requests.
	StateOpen
	// StateHalfOpen allows limited requests to test recovery.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned by Allow while the circuit rejects requests.
var ErrCircuitOpen = stderrors.New("circuit breaker is open")

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies this circuit breaker for metrics/logging.
	Name string `yaml:"name" mapstructure:"name"`
	// MaxFailures is the number of consecutive failures before opening.
	MaxFailures int `yaml:"max_failures" mapstructure:"max_failures"`
	// Timeout is how long to wait before transitioning from open to half-open.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// HalfOpenMaxCalls is the number of probe calls allowed in half-open state.
	HalfOpenMaxCalls int `yaml:"half_open_max_calls" mapstructure:"half_open_max_calls"`
	// IsFailure decides which outcomes count against the circuit.
	IsFailure func(error) bool `yaml:"-" mapstructure:"-"`
	// OnStateChange is called when state changes.
	OnStateChange func(name string, from, to State) `yaml:"-" mapstructure:"-"`
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 1,
		IsFailure:        DefaultIsFailure,
	}
}

// DefaultIsFailure counts transport failures and 5xx responses. Client
// errors and cancellations say nothing about upstream health.
func DefaultIsFailure(err error) bool {
	if err == nil {
		return false
	}
	e, ok := errors.As(err)
	if !ok {
		return true
	}
	switch e.Code {
	case errors.ErrCodeConnect, errors.ErrCodeTimeout, errors.ErrCodeServer:
		return true
	default:
		return false
	}
}

// CircuitBreaker fails fast while an upstream is unhealthy.
//
// States:
//   - Closed: requests pass through
//   - Open: requests fail immediately with ErrCircuitOpen
//   - Half-Open: a limited number of probes test recovery
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu              sync.Mutex
	state           State
	failures        int
	successes       int
	lastFailureTime time.Time
	halfOpenCalls   int
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = DefaultIsFailure
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Name returns the breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}

// Allow reports whether a request may be dispatched now. Every nil return
// must be followed by exactly one Record call.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentState() {
	case StateClosed:
		return nil
	case StateHalfOpen:
		if cb.halfOpenCalls < cb.config.HalfOpenMaxCalls {
			cb.halfOpenCalls++
			return nil
		}
	}
	return ErrCircuitOpen
}

// Record reports the outcome of an allowed request.
func (cb *CircuitBreaker) Record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.config.IsFailure(err) {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
}

// Execute runs fn through the circuit breaker.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.Allow(); err != nil {
		return err
	}
	err := fn()
	cb.Record(err)
	return err
}

// State returns the current circuit breaker state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// Reset resets the circuit breaker to closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.toState(StateClosed)
	cb.failures = 0
}

// Failures returns the current failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

func (cb *CircuitBreaker) onSuccess() {
	switch cb.currentState() {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.HalfOpenMaxCalls {
			cb.toState(StateClosed)
		}
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	cb.lastFailureTime = time.Now()

	switch cb.currentState() {
	case StateClosed:
		if cb.failures >= cb.config.MaxFailures {
			cb.toState(StateOpen)
		}
	case StateHalfOpen:
		cb.toState(StateOpen)
	}
}

// currentState returns the current state, moving open to half-open once
// the timeout has elapsed.
func (cb *CircuitBreaker) currentState() State {
	if cb.state == StateOpen && time.Since(cb.lastFailureTime) >= cb.config.Timeout {
		cb.toState(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) toState(to State) {
	if cb.state == to {
		return
	}

	from := cb.state
	cb.state = to
	cb.halfOpenCalls = 0
	cb.successes = 0
	if to == StateClosed {
		cb.failures = 0
	}

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}
