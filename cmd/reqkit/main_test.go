package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/hello", func(c *gin.Context) {
		c.Header("X-Upstream", "gin")
		c.String(http.StatusOK, "hello %s", c.GetHeader("X-Who"))
	})
	r.POST("/echo", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.Header("X-Content-Type", c.GetHeader("Content-Type"))
		c.Data(http.StatusCreated, "text/plain", body)
	})
	r.GET("/old", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/hello")
	})
	r.GET("/missing", func(c *gin.Context) {
		c.String(http.StatusNotFound, "no such thing")
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := run(context.Background(), args, &out, &errOut)
	return out.String(), err
}

func TestRun_Version(t *testing.T) {
	out, err := runCLI(t, "-version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) == "" {
		t.Fatal("expected version output")
	}
}

func TestRun_Get(t *testing.T) {
	srv := upstream(t)
	out, err := runCLI(t, "-i", "-H", "X-Who: world", srv.URL+"/hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\n") {
		t.Errorf("expected status line, got %q", out)
	}
	if !strings.Contains(out, "X-Upstream: gin\n") {
		t.Errorf("expected response headers, got %q", out)
	}
	if !strings.HasSuffix(out, "hello world") {
		t.Errorf("expected body, got %q", out)
	}
}

func TestRun_PostJSON(t *testing.T) {
	srv := upstream(t)
	out, err := runCLI(t, "-i", "-json", `{"name":"ada"}`, srv.URL+"/echo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "201 Created") {
		t.Errorf("expected 201, got %q", out)
	}
	if !strings.Contains(out, "X-Content-Type: application/json\n") {
		t.Errorf("expected JSON content type upstream, got %q", out)
	}
	if !strings.HasSuffix(out, `{"name":"ada"}`) {
		t.Errorf("expected echoed body, got %q", out)
	}
}

func TestRun_Redirects(t *testing.T) {
	srv := upstream(t)

	out, err := runCLI(t, srv.URL+"/old")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(out, "hello ") {
		t.Errorf("expected redirect to be followed, got %q", out)
	}

	out, err = runCLI(t, "-no-redirects", srv.URL+"/old")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "302 Found") {
		t.Errorf("expected the 302 itself, got %q", out)
	}
}

func TestRun_StatusError(t *testing.T) {
	srv := upstream(t)
	out, err := runCLI(t, srv.URL+"/missing")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected 404 error, got %v", err)
	}
	if !strings.HasSuffix(out, "no such thing") {
		t.Errorf("expected body printed, got %q", out)
	}
}

func TestRun_Format(t *testing.T) {
	srv := upstream(t)
	out, err := runCLI(t, "-format", "{method} {code}", srv.URL+"/hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "GET 200\n") {
		t.Errorf("expected summary line first, got %q", out)
	}
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantErr    string
		wantMethod string
	}{
		{"default get", []string{"http://x"}, "", http.MethodGet},
		{"body implies post", []string{"-d", "a=b", "http://x"}, "", http.MethodPost},
		{"explicit method", []string{"-X", "put", "-json", "{}", "http://x"}, "", http.MethodPut},
		{"no url", nil, "exactly one URL", ""},
		{"two urls", []string{"http://x", "http://y"}, "exactly one URL", ""},
		{"conflicting bodies", []string{"-d", "a", "-json", "{}", "http://x"}, "mutually exclusive", ""},
		{"bad header", []string{"-H", "nocolon", "http://x"}, "Name: value", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, err := parseFlags(tc.args, io.Discard)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f.method != tc.wantMethod {
				t.Errorf("expected method %s, got %s", tc.wantMethod, f.method)
			}
		})
	}
}
