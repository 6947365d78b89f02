package middleware_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/kbukum/reqkit/middleware"
	"github.com/kbukum/reqkit/stack"
	"github.com/kbukum/reqkit/transport"
)

func TestCookies_StoresAndSends(t *testing.T) {
	login := transport.NewResponse(200, http.Header{"Set-Cookie": {"sid=abc; Path=/"}}, "")
	mock := transport.NewMock(login, respond(200, ""))
	h := chain(t, mock.Handle, middleware.Cookies())

	jar := middleware.NewCookieJar()
	opts := stack.Options{middleware.OptCookies: jar}

	if _, err := send(t, h, newRequest(t, http.MethodPost, "http://example.test/login", nil), opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, _ := url.Parse("http://example.test/")
	if cs := jar.Cookies(u); len(cs) != 1 || cs[0].Value != "abc" {
		t.Fatalf("expected sid cookie in jar, got %v", cs)
	}

	orig := newRequest(t, http.MethodGet, "http://example.test/me", nil)
	if _, err := send(t, h, orig, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, err := mock.LastRequest().Cookie("sid")
	if err != nil || c.Value != "abc" {
		t.Errorf("expected sid cookie on request, got %v, %v", c, err)
	}
	if orig.Header.Get("Cookie") != "" {
		t.Error("original request must not be modified")
	}
}

func TestCookies_NoJarPassesThrough(t *testing.T) {
	mock := transport.NewMock(respond(200, ""))
	h := chain(t, mock.Handle, middleware.Cookies())

	req := newRequest(t, http.MethodGet, "http://example.test/", nil)
	send(t, h, req, nil)
	if mock.LastRequest().Header.Get("Cookie") != "" {
		t.Error("expected no cookie header")
	}
}

func TestCookies_OtherDomainNotSent(t *testing.T) {
	set := transport.NewResponse(200, http.Header{"Set-Cookie": {"sid=abc"}}, "")
	mock := transport.NewMock(set, respond(200, ""))
	h := chain(t, mock.Handle, middleware.Cookies())
	opts := stack.Options{middleware.OptCookies: middleware.NewCookieJar()}

	send(t, h, newRequest(t, http.MethodGet, "http://a.example.test/", nil), opts)
	send(t, h, newRequest(t, http.MethodGet, "http://b.example.test/", nil), opts)
	if mock.LastRequest().Header.Get("Cookie") != "" {
		t.Error("expected host-only cookie to stay on its host")
	}
}
