package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Transport errors, raised by terminal handlers.
const (
	// ErrCodeConnect indicates the connection could not be established or broke mid-exchange.
	ErrCodeConnect ErrorCode = "CONNECT_FAILED"
	// ErrCodeTimeout indicates the exchange hit a deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeCanceled indicates the request context was canceled.
	ErrCodeCanceled ErrorCode = "CANCELED"
)

// Response errors, raised by middleware inspecting a completed exchange.
const (
	// ErrCodeClient indicates a 4xx response.
	ErrCodeClient ErrorCode = "CLIENT_ERROR"
	// ErrCodeServer indicates a 5xx response.
	ErrCodeServer ErrorCode = "SERVER_ERROR"
	// ErrCodeTooManyRedirects indicates the redirect limit was exceeded.
	ErrCodeTooManyRedirects ErrorCode = "TOO_MANY_REDIRECTS"
	// ErrCodeBadResponse indicates a malformed or unusable response.
	ErrCodeBadResponse ErrorCode = "BAD_RESPONSE"
)

// Request and configuration errors.
const (
	// ErrCodeInvalidRequest indicates the request could not be built or sent as given.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	// ErrCodeInvalidConfig indicates client configuration failed validation.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Policy errors, raised by resilience layers that short-circuit a dispatch.
const (
	// ErrCodeCircuitOpen indicates a circuit breaker rejected the request.
	ErrCodeCircuitOpen ErrorCode = "CIRCUIT_OPEN"
	// ErrCodeRateLimited indicates the rate limiter rejected the request.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
	// ErrCodeBulkheadFull indicates no concurrency slot was available.
	ErrCodeBulkheadFull ErrorCode = "BULKHEAD_FULL"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeConnect:     true,
	ErrCodeTimeout:     true,
	ErrCodeServer:      true,
	ErrCodeRateLimited: true,
}

// IsRetryableCode reports whether errors with this code are safe to retry by default.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
