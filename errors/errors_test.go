package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, "http://example.com/items?x=1", nil)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func newResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func TestNew_RetryableFromCode(t *testing.T) {
	if !New(ErrCodeConnect, "x").Retryable {
		t.Error("connect errors should be retryable")
	}
	if New(ErrCodeClient, "x").Retryable {
		t.Error("client errors should not be retryable")
	}
}

func TestError_Message(t *testing.T) {
	req := newRequest(t)
	err := Connect(req, stderrors.New("refused"))
	msg := err.Error()
	for _, want := range []string{"CONNECT_FAILED", "GET http://example.com/items", "refused"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := stderrors.New("root")
	err := Timeout(nil, cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestWithDetail(t *testing.T) {
	err := New(ErrCodeBadResponse, "bad").WithDetail("attempt", 2)
	if err.Details["attempt"] != 2 {
		t.Errorf("expected detail attempt=2, got %v", err.Details)
	}
}

func TestFromTransport(t *testing.T) {
	req := newRequest(t)
	tests := []struct {
		name string
		err  error
		code ErrorCode
	}{
		{"canceled", context.Canceled, ErrCodeCanceled},
		{"deadline", fmt.Errorf("wrap: %w", context.DeadlineExceeded), ErrCodeTimeout},
		{"net timeout", timeoutErr{}, ErrCodeTimeout},
		{"other", stderrors.New("connection refused"), ErrCodeConnect},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FromTransport(req, tc.err)
			if got.Code != tc.code {
				t.Errorf("expected %s, got %s", tc.code, got.Code)
			}
			if got.Request != req {
				t.Error("expected request to be attached")
			}
		})
	}
}

func TestFromTransport_KeepsExisting(t *testing.T) {
	orig := New(ErrCodeCircuitOpen, "open")
	if FromTransport(nil, fmt.Errorf("wrapped: %w", orig)) != orig {
		t.Error("expected existing *Error to pass through")
	}
}

func TestFromStatus(t *testing.T) {
	req := newRequest(t)
	if FromStatus(req, newResponse(http.StatusOK, "")) != nil {
		t.Fatal("expected nil for 200")
	}

	e := FromStatus(req, newResponse(http.StatusNotFound, "missing"))
	if e.Code != ErrCodeClient || e.Retryable || e.StatusCode != 404 {
		t.Errorf("unexpected 404 error: %+v", e)
	}
	if !strings.Contains(e.Message, "missing") {
		t.Errorf("expected body summary in message, got %q", e.Message)
	}

	e = FromStatus(req, newResponse(http.StatusBadGateway, ""))
	if e.Code != ErrCodeServer || !e.Retryable {
		t.Errorf("unexpected 502 error: %+v", e)
	}

	e = FromStatus(req, newResponse(http.StatusTooManyRequests, ""))
	if !e.Retryable {
		t.Error("429 should be retryable")
	}
}

func TestFromStatus_BodyStillReadable(t *testing.T) {
	body := strings.Repeat("a", 300)
	resp := newResponse(http.StatusInternalServerError, body)
	e := FromStatus(newRequest(t), resp)

	if len(e.Body) != summaryLimit {
		t.Errorf("expected %d summary bytes, got %d", summaryLimit, len(e.Body))
	}
	if !strings.Contains(e.Message, "truncated") {
		t.Errorf("expected truncation marker, got %q", e.Message)
	}
	all, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if string(all) != body {
		t.Errorf("expected full body after summary, got %d bytes", len(all))
	}
}

func TestTooManyRedirects(t *testing.T) {
	e := TooManyRedirects(newRequest(t), newResponse(http.StatusFound, ""), 5)
	if e.Code != ErrCodeTooManyRedirects || e.StatusCode != 302 {
		t.Errorf("unexpected error: %+v", e)
	}
	if e.Details["max"] != 5 {
		t.Errorf("expected max detail, got %v", e.Details)
	}
}

func TestPredicates(t *testing.T) {
	req := newRequest(t)
	wrapped := fmt.Errorf("outer: %w", FromStatus(req, newResponse(http.StatusServiceUnavailable, "")))

	if !IsServerError(wrapped) || IsClientError(wrapped) {
		t.Error("expected server error classification through wrapping")
	}
	if !IsRetryable(wrapped) {
		t.Error("expected retryable")
	}
	if StatusCode(wrapped) != 503 {
		t.Errorf("expected 503, got %d", StatusCode(wrapped))
	}
	if !IsTimeout(Timeout(req, nil)) || !IsConnect(Connect(req, nil)) {
		t.Error("timeout/connect predicates failed")
	}
	if IsRetryable(stderrors.New("plain")) || StatusCode(stderrors.New("plain")) != 0 {
		t.Error("plain errors carry no classification")
	}
	if _, ok := As(nil); ok {
		t.Error("As(nil) should report false")
	}
}

func TestInvalidConstructors(t *testing.T) {
	if InvalidRequest(nil, "no url").Code != ErrCodeInvalidRequest {
		t.Error("expected INVALID_REQUEST")
	}
	if InvalidConfig("bad").Code != ErrCodeInvalidConfig {
		t.Error("expected INVALID_CONFIG")
	}
	if BadResponse(nil, nil, "x").StatusCode != 0 {
		t.Error("expected zero status without a response")
	}
}
