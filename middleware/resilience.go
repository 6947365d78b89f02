package middleware

import (
	stderrors "errors"
	"net/http"

	"github.com/kbukum/reqkit/errors"
	"github.com/kbukum/reqkit/future"
	"github.com/kbukum/reqkit/resilience"
	"github.com/kbukum/reqkit/stack"
)

// CircuitBreaker rejects requests with CIRCUIT_OPEN while cb is open and
// records each outcome. 5xx responses count as server failures.
func CircuitBreaker(cb *resilience.CircuitBreaker) stack.Middleware {
	return func(next stack.Handler) stack.Handler {
		return func(req *http.Request, opts stack.Options) *result {
			if err := cb.Allow(); err != nil {
				e := errors.New(errors.ErrCodeCircuitOpen, "circuit breaker "+cb.Name()+" is open")
				e.Request = req
				e.Cause = err
				return reject(e)
			}
			return next(req, opts).Then(func(resp *http.Response, err error) (*http.Response, error) {
				outcome := err
				if err == nil && resp != nil && resp.StatusCode >= 500 {
					outcome = errors.New(errors.ErrCodeServer, resp.Status)
				}
				cb.Record(outcome)
				return resp, err
			})
		}
	}
}

// RateLimit waits for a token from rl before dispatching. A request that
// cannot get one in time is rejected with RATE_LIMITED.
func RateLimit(rl *resilience.RateLimiter) stack.Middleware {
	return func(next stack.Handler) stack.Handler {
		return func(req *http.Request, opts stack.Options) *result {
			if rl.Allow() {
				return next(req, opts)
			}
			return future.Go(func() (*http.Response, error) {
				return nil, rl.Wait(req.Context())
			}).Compose(func(_ *http.Response, err error) *result {
				if err != nil {
					return reject(limitError(req, err, errors.ErrCodeRateLimited, resilience.ErrRateLimited))
				}
				return next(req, opts)
			})
		}
	}
}

// Bulkhead holds a slot of b for every in-flight request. Requests that
// find no free slot in time are rejected with BULKHEAD_FULL.
func Bulkhead(b *resilience.Bulkhead) stack.Middleware {
	return func(next stack.Handler) stack.Handler {
		return func(req *http.Request, opts stack.Options) *result {
			var release func()
			return future.Go(func() (*http.Response, error) {
				var err error
				release, err = b.Acquire(req.Context())
				return nil, err
			}).Compose(func(_ *http.Response, err error) *result {
				if err != nil {
					return reject(limitError(req, err, errors.ErrCodeBulkheadFull, resilience.ErrBulkheadFull, resilience.ErrBulkheadTimeout))
				}
				return next(req, opts).Then(func(resp *http.Response, err error) (*http.Response, error) {
					release()
					return resp, err
				})
			})
		}
	}
}

func limitError(req *http.Request, err error, code errors.ErrorCode, sentinels ...error) error {
	for _, s := range sentinels {
		if stderrors.Is(err, s) {
			e := errors.New(code, err.Error())
			e.Request = req
			e.Cause = err
			return e
		}
	}
	return errors.FromTransport(req, err)
}
