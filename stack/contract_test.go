package stack_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/kbukum/reqkit/future"
	"github.com/kbukum/reqkit/logger"
	"github.com/kbukum/reqkit/stack"
)

func expectViolation(t *testing.T, fn func()) *stack.ContractViolation {
	t.Helper()
	var got any
	func() {
		defer func() { got = recover() }()
		fn()
	}()
	v, ok := got.(*stack.ContractViolation)
	if !ok {
		t.Fatalf("expected *ContractViolation panic, got %#v", got)
	}
	if !errors.Is(v, stack.ErrContractViolation) {
		t.Fatal("expected violation to unwrap to ErrContractViolation")
	}
	return v
}

// twice dispatches its inner handler two times, optionally marking the
// second dispatch as deliberate.
func twice(redispatch bool) stack.Middleware {
	return func(next stack.Handler) stack.Handler {
		return func(req *http.Request, opts stack.Options) *future.Future[*http.Response] {
			first := next(req, opts)
			if _, err := first.Result(); err != nil {
				return first
			}
			if redispatch {
				req = stack.Redispatch(req)
			}
			return next(req, opts)
		}
	}
}

func TestContract_NilHandlerFromDecorator(t *testing.T) {
	tr := &trace{}
	s := newStack(tr)
	mustPush(t, s, func(stack.Handler) stack.Handler { return nil }, "broken")

	v := expectViolation(t, func() { s.Resolve() })
	if v.Layer != 0 || v.Name != "broken" {
		t.Fatalf("expected violation on layer 0 (broken), got %+v", v)
	}
}

func TestContract_NilFuture(t *testing.T) {
	tr := &trace{}
	s := newStack(tr)
	mustPush(t, s, tr.record("outer"), "outer")
	mustPush(t, s, func(stack.Handler) stack.Handler {
		return func(*http.Request, stack.Options) *future.Future[*http.Response] { return nil }
	}, "nil_future")

	h, err := s.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	v := expectViolation(t, func() { h(newRequest(t), nil) })
	if v.Name != "nil_future" {
		t.Fatalf("expected violation on nil_future, got %+v", v)
	}
}

func TestContract_NilFutureFromTerminal(t *testing.T) {
	s := stack.New(stack.WithLogger(logger.NewNop()), stack.WithHandler(
		func(*http.Request, stack.Options) *future.Future[*http.Response] { return nil }))

	h, _ := s.Resolve()
	v := expectViolation(t, func() { h(newRequest(t), nil) })
	if v.Layer != -1 {
		t.Fatalf("expected terminal handler violation, got %+v", v)
	}
}

func TestContract_DoubleDispatch(t *testing.T) {
	tr := &trace{}
	s := newStack(tr)
	mustPush(t, s, tr.record("outer"), "outer")
	mustPush(t, s, twice(false), "greedy")
	mustPush(t, s, tr.record("inner"), "inner")

	h, _ := s.Resolve()
	v := expectViolation(t, func() { h(newRequest(t), nil) })
	if v.Layer != 1 || v.Name != "greedy" {
		t.Fatalf("expected violation on layer 1 (greedy), got %+v", v)
	}
}

func TestContract_RedispatchExempt(t *testing.T) {
	tr := &trace{}
	s := newStack(tr)
	mustPush(t, s, twice(true), "retry")
	mustPush(t, s, tr.record("inner"), "inner")

	dispatch(t, s)
	assertEvents(t, tr.get(),
		"pre:inner", "handler", "post:inner", "pre:inner", "handler", "post:inner")
}

func TestContract_SeparateInvocationsCountedSeparately(t *testing.T) {
	tr := &trace{}
	s := newStack(tr)
	mustPush(t, s, tr.record("a"), "a")

	h, _ := s.Resolve()
	req := newRequest(t)
	for range 3 {
		if _, err := h(req, nil).Result(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestContract_NestedStacks(t *testing.T) {
	tr := &trace{}
	inner := newStack(tr)
	mustPush(t, inner, tr.record("inner"), "")
	innerHandler, _ := inner.Resolve()

	outer := stack.New(stack.WithLogger(logger.NewNop()), stack.WithHandler(innerHandler))
	mustPush(t, outer, tr.record("outer"), "")

	dispatch(t, outer)
	assertEvents(t, tr.get(), "pre:outer", "pre:inner", "handler", "post:inner", "post:outer")
}

func TestContract_ChecksDisabled(t *testing.T) {
	tr := &trace{}
	s := stack.New(
		stack.WithHandler(tr.terminal(http.StatusOK)),
		stack.WithLogger(logger.NewNop()),
		stack.WithContractChecks(false),
	)
	mustPush(t, s, twice(false), "greedy")

	dispatch(t, s)
	assertEvents(t, tr.get(), "handler", "handler")
}
