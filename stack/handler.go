package stack

import (
	"net/http"

	"github.com/kbukum/reqkit/future"
)

// Handler sends a request and returns the eventual response.
// Transport failures reject the future; the call itself never fails.
type Handler func(req *http.Request, opts Options) *future.Future[*http.Response]

// Middleware wraps a Handler with additional behavior.
type Middleware func(next Handler) Handler

// Chain composes middlewares into one. The first middleware is outermost.
//
// Chain(a, b, c)(h) is equivalent to a(b(c(h))).
func Chain(middlewares ...Middleware) Middleware {
	return func(inner Handler) Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			inner = middlewares[i](inner)
		}
		return inner
	}
}
