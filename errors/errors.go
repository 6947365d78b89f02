package errors

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"unicode/utf8"
)

// summaryLimit is the number of body bytes kept on status errors.
const summaryLimit = 120

// Error is the unified error type for failed exchanges.
type Error struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the exchange can be retried.
	Retryable bool `json:"retryable"`
	// StatusCode is the HTTP status code (0 for transport-level errors).
	StatusCode int `json:"status_code,omitempty"`
	// Request is the request that failed, when known.
	Request *http.Request `json:"-"`
	// Response is the received response for status errors.
	Response *http.Response `json:"-"`
	// Body holds a short prefix of the response body.
	Body []byte `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	target := ""
	if e.Request != nil && e.Request.URL != nil {
		target = fmt.Sprintf(" %s %s", e.Request.Method, e.Request.URL.Redacted())
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s%s: %s (cause: %v)", e.Code, target, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s%s: %s", e.Code, target, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *Error) Unwrap() error { return e.Cause }

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an Error with retryable detection from its code.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Transport errors ---

// Connect creates an error for a failed connection.
func Connect(req *http.Request, cause error) *Error {
	return &Error{
		Code: ErrCodeConnect, Message: "connection failed",
		Retryable: true, Request: req, Cause: cause,
	}
}

// Timeout creates an error for an exchange that hit a deadline.
func Timeout(req *http.Request, cause error) *Error {
	return &Error{
		Code: ErrCodeTimeout, Message: "request timed out",
		Retryable: true, Request: req, Cause: cause,
	}
}

// Canceled creates an error for an exchange whose context was canceled.
func Canceled(req *http.Request, cause error) *Error {
	return &Error{
		Code: ErrCodeCanceled, Message: "request canceled",
		Retryable: false, Request: req, Cause: cause,
	}
}

// FromTransport classifies an error returned by an HTTP round trip.
// Errors that already are *Error are returned unchanged.
func FromTransport(req *http.Request, err error) *Error {
	if e, ok := As(err); ok {
		return e
	}
	if stderrors.Is(err, context.Canceled) {
		return Canceled(req, err)
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return Timeout(req, err)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return Timeout(req, err)
	}
	return Connect(req, err)
}

// --- Response errors ---

// FromStatus creates a client or server error for a >= 400 response.
// It returns nil for statuses below 400. The response body is replaced with
// an equivalent reader so callers can still consume it in full.
func FromStatus(req *http.Request, resp *http.Response) *Error {
	if resp == nil || resp.StatusCode < 400 {
		return nil
	}
	code := ErrCodeClient
	label := "client error"
	if resp.StatusCode >= 500 {
		code = ErrCodeServer
		label = "server error"
	}
	body := summarize(resp)
	msg := fmt.Sprintf("%s: %s", label, resp.Status)
	if len(body) > 0 {
		msg += " response: " + string(body)
		if len(body) >= summaryLimit {
			msg += " (truncated...)"
		}
	}
	return &Error{
		Code:       code,
		Message:    msg,
		Retryable:  code == ErrCodeServer || resp.StatusCode == http.StatusTooManyRequests,
		StatusCode: resp.StatusCode,
		Request:    req,
		Response:   resp,
		Body:       body,
	}
}

// TooManyRedirects creates an error for an exceeded redirect limit.
func TooManyRedirects(req *http.Request, resp *http.Response, max int) *Error {
	return &Error{
		Code:       ErrCodeTooManyRedirects,
		Message:    fmt.Sprintf("will not follow more than %d redirects", max),
		StatusCode: statusOf(resp),
		Request:    req,
		Response:   resp,
		Details:    map[string]any{"max": max},
	}
}

// BadResponse creates an error for a response that cannot be used.
func BadResponse(req *http.Request, resp *http.Response, message string) *Error {
	return &Error{
		Code:       ErrCodeBadResponse,
		Message:    message,
		StatusCode: statusOf(resp),
		Request:    req,
		Response:   resp,
	}
}

// --- Request and configuration errors ---

// InvalidRequest creates an error for a request that cannot be sent as given.
func InvalidRequest(req *http.Request, message string) *Error {
	return &Error{Code: ErrCodeInvalidRequest, Message: message, Request: req}
}

// InvalidConfig creates an error for configuration that failed validation.
func InvalidConfig(message string) *Error {
	return &Error{Code: ErrCodeInvalidConfig, Message: message}
}

// --- Inspection ---

// As returns err as an *Error if it is one (or wraps one).
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HasCode reports whether err is an *Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

// IsRetryable reports whether err is an *Error marked retryable.
func IsRetryable(err error) bool {
	e, ok := As(err)
	return ok && e.Retryable
}

// IsTimeout reports whether err is a timeout error.
func IsTimeout(err error) bool { return HasCode(err, ErrCodeTimeout) }

// IsConnect reports whether err is a connection error.
func IsConnect(err error) bool { return HasCode(err, ErrCodeConnect) }

// IsClientError reports whether err is a 4xx status error.
func IsClientError(err error) bool { return HasCode(err, ErrCodeClient) }

// IsServerError reports whether err is a 5xx status error.
func IsServerError(err error) bool { return HasCode(err, ErrCodeServer) }

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	if e, ok := As(err); ok {
		return e.StatusCode
	}
	return 0
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

// summarize reads a short prefix of the body and stitches it back in front of
// the remaining stream.
func summarize(resp *http.Response) []byte {
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil
	}
	prefix, _ := io.ReadAll(io.LimitReader(resp.Body, summaryLimit))
	resp.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(prefix), resp.Body), resp.Body}

	summary := prefix
	for len(summary) > 0 && !utf8.Valid(summary) {
		summary = summary[:len(summary)-1]
	}
	return bytes.Clone(summary)
}
