package middleware

import (
	"net/http"

	"github.com/kbukum/reqkit/future"
)

// Layer names used when registering middleware on a stack.
const (
	NamePrepareBody    = "prepare_body"
	NameHTTPErrors     = "http_errors"
	NameRedirects      = "allow_redirects"
	NameCookies        = "cookies"
	NameRetry          = "retry"
	NameHistory        = "history"
	NameLog            = "log"
	NameTracing        = "tracing"
	NameMetrics        = "metrics"
	NameCircuitBreaker = "circuit_breaker"
	NameRateLimit      = "rate_limit"
	NameBulkhead       = "bulkhead"
	NameCache          = "cache"
	NameAuth           = "auth"
	NameRequestID      = "request_id"
	NameTimeout        = "timeout"
)

// Request option keys read by the middleware in this package.
const (
	OptBody           = "body"
	OptJSON           = "json"
	OptFormParams     = "form_params"
	OptMultipart      = "multipart"
	OptExpect         = "expect"
	OptHTTPErrors     = "http_errors"
	OptAllowRedirects = "allow_redirects"
	OptCookies        = "cookies"
	OptRetries        = "retries"
	OptCache          = "cache"
	OptAuth           = "auth"
	OptStream         = "stream"
)

type result = future.Future[*http.Response]

func reject(err error) *result {
	return future.Rejected[*http.Response](err)
}

func settled(resp *http.Response, err error) *result {
	if err != nil {
		return reject(err)
	}
	return future.Resolved(resp)
}
