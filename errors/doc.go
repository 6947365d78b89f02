// Package errors provides the runtime error taxonomy of reqkit.
//
// Every failure that travels inside a request future is an *Error carrying a
// machine-readable Code, a retryable flag and, when available, the request and
// response of the exchange. Transport failures (connect, timeout, cancel) and
// HTTP status failures (4xx, 5xx) share the same type so layers can inspect
// them with IsRetryable, IsTimeout, StatusCode and friends.
package errors
