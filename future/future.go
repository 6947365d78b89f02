package future

import (
	"context"
	"sync"
)

// Future is a write-once asynchronous result. It is settled exactly once
// with a value and an error; later settlement attempts are ignored.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

// Settle completes a pending future created by New.
type Settle[T any] func(T, error)

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// New returns a pending future and the function that settles it.
// Only the first call to the settle function has any effect.
func New[T any]() (*Future[T], Settle[T]) {
	f := newFuture[T]()
	return f, func(v T, err error) { f.settle(v, err) }
}

// Go runs fn on a new goroutine and settles the returned future with its result.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	go func() {
		f.settle(fn())
	}()
	return f
}

// Resolved returns a future already settled with v.
func Resolved[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.settle(v, nil)
	return f
}

// Rejected returns a future already settled with err.
func Rejected[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.settle(zero, err)
	return f
}

func (f *Future[T]) settle(v T, err error) {
	f.once.Do(func() {
		f.val = v
		f.err = err
		close(f.done)
	})
}

// Done returns a channel closed once the future is settled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the future has a result.
func (f *Future[T]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the future settles or ctx is done. Cancelling ctx only
// stops the wait; the future itself keeps running.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result blocks until the future settles.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.val, f.err
}

// Then returns a future settled with fn applied to this future's result.
// fn runs inline when the receiver is already settled, otherwise on a new
// goroutine after settlement.
func (f *Future[T]) Then(fn func(T, error) (T, error)) *Future[T] {
	return Map(f, fn)
}

// Compose chains an asynchronous continuation. The returned future settles
// with the result of the future produced by fn.
func (f *Future[T]) Compose(fn func(T, error) *Future[T]) *Future[T] {
	out := newFuture[T]()
	run := func() {
		next := fn(f.val, f.err)
		if next == nil {
			panic("future: Compose callback returned a nil future")
		}
		if next.Settled() {
			out.settle(next.val, next.err)
			return
		}
		go func() {
			<-next.done
			out.settle(next.val, next.err)
		}()
	}
	if f.Settled() {
		run()
		return out
	}
	go func() {
		<-f.done
		run()
	}()
	return out
}

// Map is Then for continuations that change the result type.
func Map[T, U any](f *Future[T], fn func(T, error) (U, error)) *Future[U] {
	out := newFuture[U]()
	if f.Settled() {
		out.settle(fn(f.val, f.err))
		return out
	}
	go func() {
		<-f.done
		out.settle(fn(f.val, f.err))
	}()
	return out
}

// All settles once every input future has settled. The values keep argument
// order; the first error in argument order rejects the combined future.
func All[T any](fs ...*Future[T]) *Future[[]T] {
	return Go(func() ([]T, error) {
		out := make([]T, len(fs))
		var firstErr error
		for i, f := range fs {
			v, err := f.Result()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			out[i] = v
		}
		if firstErr != nil {
			return nil, firstErr
		}
		return out, nil
	})
}
