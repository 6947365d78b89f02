package middleware

import (
	"net/http"

	"github.com/kbukum/reqkit/stack"
)

// Tap calls before ahead of dispatch and after once the exchange settles.
// Either hook may be nil.
func Tap(before func(*http.Request, stack.Options), after func(*http.Request, stack.Options, *http.Response, error)) stack.Middleware {
	return func(next stack.Handler) stack.Handler {
		return func(req *http.Request, opts stack.Options) *result {
			if before != nil {
				before(req, opts)
			}
			out := next(req, opts)
			if after == nil {
				return out
			}
			return out.Then(func(resp *http.Response, err error) (*http.Response, error) {
				after(req, opts, resp, err)
				return resp, err
			})
		}
	}
}

// MapRequest replaces each request with fn(req) before dispatch.
func MapRequest(fn func(*http.Request) *http.Request) stack.Middleware {
	return func(next stack.Handler) stack.Handler {
		return func(req *http.Request, opts stack.Options) *result {
			return next(fn(req), opts)
		}
	}
}

// MapResponse replaces each successful response with fn(resp).
func MapResponse(fn func(*http.Response) *http.Response) stack.Middleware {
	return func(next stack.Handler) stack.Handler {
		return func(req *http.Request, opts stack.Options) *result {
			return next(req, opts).Then(func(resp *http.Response, err error) (*http.Response, error) {
				if err != nil {
					return nil, err
				}
				return fn(resp), nil
			})
		}
	}
}
