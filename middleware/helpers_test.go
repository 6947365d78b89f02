package middleware_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/kbukum/reqkit/logger"
	"github.com/kbukum/reqkit/stack"
	"github.com/kbukum/reqkit/transport"
)

// chain composes mws (outermost first) over terminal with contract checks on.
func chain(t *testing.T, terminal stack.Handler, mws ...stack.Middleware) stack.Handler {
	t.Helper()
	s := stack.New(stack.WithHandler(terminal), stack.WithLogger(logger.NewNop()))
	for _, mw := range mws {
		if err := s.Push(mw, ""); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
	h, err := s.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return h
}

func newRequest(t *testing.T, method, url string, body io.Reader) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func send(t *testing.T, h stack.Handler, req *http.Request, opts stack.Options) (*http.Response, error) {
	t.Helper()
	return h(req, opts).Wait(context.Background())
}

func respond(status int, body string) *http.Response {
	return transport.NewResponse(status, nil, body)
}

func readBody(t *testing.T, r io.Reader) string {
	t.Helper()
	if r == nil {
		return ""
	}
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func redirectTo(status int, location string) *http.Response {
	return transport.NewResponse(status, http.Header{"Location": {location}}, "")
}

func bodyContains(t *testing.T, resp *http.Response, want string) {
	t.Helper()
	if got := readBody(t, resp.Body); !strings.Contains(got, want) {
		t.Errorf("expected body containing %q, got %q", want, got)
	}
}
