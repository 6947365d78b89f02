package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/kbukum/reqkit/stack"
)

// DefaultRequestIDHeader carries the request ID.
const DefaultRequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestIDFromContext returns the ID set by the RequestID middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID sets header to a new UUID unless the request already carries
// one. The ID is also stored in the request context.
func RequestID(header string) stack.Middleware {
	if header == "" {
		header = DefaultRequestIDHeader
	}
	return func(next stack.Handler) stack.Handler {
		return func(req *http.Request, opts stack.Options) *result {
			id := req.Header.Get(header)
			if id == "" {
				id = uuid.NewString()
			}
			out := req.Clone(context.WithValue(req.Context(), requestIDKey{}, id))
			out.Header.Set(header, id)
			return next(out, opts)
		}
	}
}
