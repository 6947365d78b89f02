package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/reqkit/errors"
	"github.com/kbukum/reqkit/observability"
	"github.com/kbukum/reqkit/stack"
)

// Metrics records request counts, durations and error codes on m.
func Metrics(m *observability.ClientMetrics) stack.Middleware {
	return func(next stack.Handler) stack.Handler {
		return func(req *http.Request, opts stack.Options) *result {
			ctx := req.Context()
			host := req.URL.Host
			start := time.Now()
			m.RecordStart(ctx, req.Method, host)

			return next(req, opts).Then(func(resp *http.Response, err error) (*http.Response, error) {
				code := ""
				if err != nil {
					code = "UNKNOWN"
					if e, ok := errors.As(err); ok {
						code = string(e.Code)
					}
				}
				m.RecordEnd(ctx, req.Method, host, statusOf(resp, err), code, time.Since(start))
				return resp, err
			})
		}
	}
}
