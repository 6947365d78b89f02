package stack

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kbukum/reqkit/logger"
)

// entry is one middleware layer. Unnamed entries have an empty name.
type entry struct {
	mw   Middleware
	name string
}

// Stack is an ordered set of middleware wrapped around a terminal handler.
//
// Mutation and Resolve are not synchronized: configure the stack before
// dispatching requests. The Handler returned by Resolve is safe for
// concurrent use.
type Stack struct {
	handler Handler
	entries []entry
	index   map[string]int

	generation uint64
	cached     Handler
	cachedGen  uint64

	checks bool
	log    *logger.Logger
}

// Option configures a Stack.
type Option func(*Stack)

// WithHandler sets the terminal handler.
func WithHandler(h Handler) Option {
	return func(s *Stack) { s.handler = h }
}

// WithLogger sets the logger used for rebuild diagnostics.
func WithLogger(l *logger.Logger) Option {
	return func(s *Stack) { s.log = l }
}

// WithContractChecks toggles runtime contract enforcement (default on).
// Resolve-time checks always run.
func WithContractChecks(enabled bool) Option {
	return func(s *Stack) { s.checks = enabled }
}

// New creates an empty stack.
func New(opts ...Option) *Stack {
	s := &Stack{
		index:      make(map[string]int),
		generation: 1,
		checks:     true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.WithComponent("stack")
	}
	return s
}

// SetHandler replaces the terminal handler.
func (s *Stack) SetHandler(h Handler) {
	s.handler = h
	s.invalidate()
}

// HasHandler reports whether a terminal handler is set.
func (s *Stack) HasHandler() bool {
	return s.handler != nil
}

// Push appends mw as the new innermost layer.
func (s *Stack) Push(mw Middleware, name string) error {
	if err := s.check("push", mw, name, ""); err != nil {
		return err
	}
	s.insert(len(s.entries), mw, name)
	return nil
}

// Unshift prepends mw as the new outermost layer.
func (s *Stack) Unshift(mw Middleware, name string) error {
	if err := s.check("unshift", mw, name, ""); err != nil {
		return err
	}
	s.insert(0, mw, name)
	return nil
}

// Before inserts mw immediately outside the entry named target.
func (s *Stack) Before(target string, mw Middleware, name string) error {
	if err := s.check("before", mw, name, target); err != nil {
		return err
	}
	s.insert(s.index[target], mw, name)
	return nil
}

// After inserts mw immediately inside the entry named target.
func (s *Stack) After(target string, mw Middleware, name string) error {
	if err := s.check("after", mw, name, target); err != nil {
		return err
	}
	s.insert(s.index[target]+1, mw, name)
	return nil
}

// Remove deletes the entry named name. Removing an absent name is a no-op.
func (s *Stack) Remove(name string) {
	i, ok := s.index[name]
	if !ok {
		return
	}
	s.entries = slices.Delete(s.entries, i, i+1)
	s.reindex()
	s.invalidate()
}

// Resolve returns the composed handler, rebuilding it only if the stack
// changed since the last call.
func (s *Stack) Resolve() (Handler, error) {
	if s.handler == nil {
		return nil, &ConfigError{Op: "resolve", Err: ErrMissingHandler}
	}
	if s.cached != nil && s.cachedGen == s.generation {
		return s.cached, nil
	}

	s.cached = s.compose()
	s.cachedGen = s.generation
	s.log.Debug("Handler chain rebuilt", logger.Fields(
		"layers", len(s.entries),
		"generation", s.generation,
	))
	return s.cached, nil
}

// Len returns the number of entries.
func (s *Stack) Len() int {
	return len(s.entries)
}

// Names returns entry names from outermost to innermost. Unnamed entries
// appear as empty strings.
func (s *Stack) Names() []string {
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.name
	}
	return names
}

// Has reports whether an entry named name exists.
func (s *Stack) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// String renders the layers from outermost to innermost.
func (s *Stack) String() string {
	var b strings.Builder
	for i, e := range s.entries {
		name := e.name
		if name == "" {
			name = "(anonymous)"
		}
		fmt.Fprintf(&b, "> %d) %s\n", i, name)
	}
	if s.handler != nil {
		b.WriteString("> handler\n")
	} else {
		b.WriteString("> (no handler)\n")
	}
	return b.String()
}

// compose folds entries last to first so entry 0 ends up outermost.
func (s *Stack) compose() Handler {
	acc := s.handler
	if s.checks {
		acc = guardTerminal(acc)
	}
	c := &chain{generation: s.generation}
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		inner := acc
		if s.checks {
			inner = c.inner(i, e.name, acc)
		}
		outer := e.mw(inner)
		if outer == nil {
			panic(&ContractViolation{Layer: i, Name: e.name, Reason: "middleware returned a nil handler"})
		}
		if s.checks {
			outer = c.outer(i, e.name, outer)
		}
		acc = outer
	}
	return acc
}

func (s *Stack) check(op string, mw Middleware, name, target string) error {
	if mw == nil {
		return &ConfigError{Op: op, Name: name, Target: target, Err: ErrNilMiddleware}
	}
	if op == "before" || op == "after" {
		if _, ok := s.index[target]; !ok {
			return &ConfigError{Op: op, Name: name, Target: target, Err: ErrNameNotFound}
		}
	}
	if name != "" {
		if _, ok := s.index[name]; ok {
			return &ConfigError{Op: op, Name: name, Target: target, Err: ErrDuplicateName}
		}
	}
	return nil
}

func (s *Stack) insert(at int, mw Middleware, name string) {
	s.entries = slices.Insert(s.entries, at, entry{mw: mw, name: name})
	s.reindex()
	s.invalidate()
}

func (s *Stack) reindex() {
	clear(s.index)
	for i, e := range s.entries {
		if e.name != "" {
			s.index[e.name] = i
		}
	}
}

func (s *Stack) invalidate() {
	s.generation++
	s.cached = nil
}
