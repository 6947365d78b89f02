package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kbukum/reqkit/errors"
	"github.com/kbukum/reqkit/future"
	"github.com/kbukum/reqkit/logger"
	"github.com/kbukum/reqkit/observability"
	"github.com/kbukum/reqkit/resilience"
	"github.com/kbukum/reqkit/stack"
)

// Decider reports whether the outcome of attempt (1-based) should be
// retried.
type Decider func(attempt int, req *http.Request, resp *http.Response, err error) bool

// RetryOptions configures the retry middleware.
type RetryOptions struct {
	// Config holds attempts and backoff. Config.RetryIf is consulted for
	// rejected exchanges when Decider is nil.
	Config resilience.RetryConfig
	// Decider overrides the default decision.
	Decider Decider
	// Metrics records retries when set.
	Metrics *observability.ClientMetrics
	// Logger logs retries at warn level when set.
	Logger *logger.Logger
}

// Retry re-dispatches a request while the decider allows it, sleeping the
// configured backoff between attempts. A Retry-After header on 429 and 503
// responses takes precedence when it is shorter than MaxBackoff. The retries
// option overrides the number of retries for one request; 0 disables them.
func Retry(o RetryOptions) stack.Middleware {
	cfg := o.Config
	cfg.ApplyDefaults()
	decide := o.Decider
	if decide == nil {
		decide = defaultDecider(cfg.RetryIf)
	}

	return func(next stack.Handler) stack.Handler {
		var attempt func(req *http.Request, opts stack.Options, n int) *result
		attempt = func(req *http.Request, opts stack.Options, n int) *result {
			maxAttempts := opts.Int(OptRetries, cfg.MaxAttempts-1) + 1
			return next(req, opts).Compose(func(resp *http.Response, err error) *result {
				if n >= maxAttempts || !decide(n, req, resp, err) {
					return settled(resp, err)
				}
				retryReq, ok := rewind(req)
				if !ok {
					return settled(resp, err)
				}

				delay := cfg.Backoff(n)
				if ra, ok := retryAfter(resp, err); ok && ra <= cfg.MaxBackoff {
					delay = ra
				}
				if cfg.OnRetry != nil {
					cfg.OnRetry(n, err, delay)
				}
				if o.Metrics != nil {
					o.Metrics.RecordRetry(req.Context(), req.Method, req.URL.Host, n)
				}
				if o.Logger != nil {
					o.Logger.WithContext(req.Context()).Warn("retrying request", logger.Fields(
						logger.FieldMethod, req.Method,
						logger.FieldURL, req.URL.Redacted(),
						logger.FieldAttempt, n,
						"backoff", delay.String(),
						logger.FieldStatusCode, statusOf(resp, err),
					))
				}
				if resp != nil {
					discardBody(resp)
				}

				return future.Go(func() (*http.Response, error) {
					return nil, resilience.Sleep(req.Context(), delay)
				}).Compose(func(_ *http.Response, err error) *result {
					if err != nil {
						return reject(errors.FromTransport(req, err))
					}
					return attempt(stack.Redispatch(retryReq), opts, n+1)
				})
			})
		}
		return func(req *http.Request, opts stack.Options) *result {
			return attempt(req, opts, 1)
		}
	}
}

func defaultDecider(retryIf func(error) bool) Decider {
	return func(_ int, _ *http.Request, resp *http.Response, err error) bool {
		if err != nil {
			return retryIf(err)
		}
		return resp != nil && retryableStatus(resp.StatusCode)
	}
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// rewind returns a request that can be sent again. Bodies without GetBody
// cannot be replayed.
func rewind(req *http.Request) (*http.Request, bool) {
	if !hasBody(req) {
		return req, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	out := req.Clone(req.Context())
	out.Body = body
	return out, true
}

func retryAfter(resp *http.Response, err error) (time.Duration, bool) {
	if resp == nil {
		if e, ok := errors.As(err); ok {
			resp = e.Response
		}
	}
	if resp == nil {
		return 0, false
	}
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
		return 0, false
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		return max(time.Until(t), 0), true
	}
	return 0, false
}

func statusOf(resp *http.Response, err error) int {
	if resp != nil {
		return resp.StatusCode
	}
	return errors.StatusCode(err)
}
