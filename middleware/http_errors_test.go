package middleware_test

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/kbukum/reqkit/errors"
	"github.com/kbukum/reqkit/middleware"
	"github.com/kbukum/reqkit/stack"
	"github.com/kbukum/reqkit/transport"
)

func TestHTTPErrors_ClientError(t *testing.T) {
	mock := transport.NewMock(respond(404, "no such user"))
	h := chain(t, mock.Handle, middleware.HTTPErrors())

	_, err := send(t, h, newRequest(t, http.MethodGet, "http://example.test/users/9", nil), nil)
	if !errors.IsClientError(err) {
		t.Fatalf("expected client error, got %v", err)
	}
	if errors.StatusCode(err) != 404 || errors.IsRetryable(err) {
		t.Errorf("unexpected classification %v", err)
	}
	e, _ := errors.As(err)
	if e.Response == nil || !strings.Contains(e.Message, "no such user") {
		t.Fatalf("expected response and body summary, got %+v", e)
	}
	if b, _ := io.ReadAll(e.Response.Body); string(b) != "no such user" {
		t.Errorf("expected full body to stay readable, got %q", b)
	}
}

func TestHTTPErrors_ServerErrorRetryable(t *testing.T) {
	h := chain(t, transport.NewMock(respond(502, "")).Handle, middleware.HTTPErrors())
	_, err := send(t, h, newRequest(t, http.MethodGet, "http://example.test/", nil), nil)
	if !errors.IsServerError(err) || !errors.IsRetryable(err) {
		t.Fatalf("expected retryable server error, got %v", err)
	}
}

func TestHTTPErrors_Disabled(t *testing.T) {
	h := chain(t, transport.NewMock(respond(500, "")).Handle, middleware.HTTPErrors())
	resp, err := send(t, h, newRequest(t, http.MethodGet, "http://example.test/", nil), stack.Options{middleware.OptHTTPErrors: false})
	if err != nil || resp.StatusCode != 500 {
		t.Fatalf("expected raw 500 response, got %v, %v", resp, err)
	}
}

func TestHTTPErrors_PassesSuccessAndTransportErrors(t *testing.T) {
	connErr := errors.Connect(nil, io.ErrUnexpectedEOF)
	mock := transport.NewMock(respond(204, "")).AddError(connErr)
	h := chain(t, mock.Handle, middleware.HTTPErrors())

	if resp, err := send(t, h, newRequest(t, http.MethodGet, "http://example.test/", nil), nil); err != nil || resp.StatusCode != 204 {
		t.Fatalf("expected 204, got %v, %v", resp, err)
	}
	if _, err := send(t, h, newRequest(t, http.MethodGet, "http://example.test/", nil), nil); err != connErr {
		t.Fatalf("expected transport error unchanged, got %v", err)
	}
}
