package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kbukum/reqkit/errors"
	"github.com/kbukum/reqkit/observability"
	"github.com/kbukum/reqkit/stack"
)

// Tracing opens a client span per exchange on the tracer called name and
// injects the trace context into the request headers.
func Tracing(name string) stack.Middleware {
	if name == "" {
		name = observability.TracerName
	}
	tracer := observability.Tracer(name)

	return func(next stack.Handler) stack.Handler {
		return func(req *http.Request, opts stack.Options) *result {
			ctx, span := observability.StartClientSpan(req.Context(), tracer, req)
			if id := RequestIDFromContext(ctx); id != "" {
				span.SetAttributes(attribute.String(observability.AttrRequestID, id))
			}

			out := req.Clone(ctx)
			observability.InjectHeaders(ctx, out.Header)

			return next(out, opts).Then(func(resp *http.Response, err error) (*http.Response, error) {
				defer span.End()
				if s := statusOf(resp, err); s != 0 {
					span.SetAttributes(attribute.Int(observability.AttrHTTPStatusCode, s))
				}
				if err != nil {
					if e, ok := errors.As(err); ok {
						span.SetAttributes(attribute.String(observability.AttrErrorCode, string(e.Code)))
					}
					observability.SetSpanError(span, err)
					span.SetStatus(codes.Error, err.Error())
				} else if resp.StatusCode >= 500 {
					span.SetStatus(codes.Error, resp.Status)
				}
				return resp, err
			})
		}
	}
}
