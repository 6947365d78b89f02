package stack

import (
	"testing"
	"time"
)

func TestOptions_Typed(t *testing.T) {
	o := Options{
		"http_errors": false,
		"flag":        "true",
		"retries":     3,
		"timeout":     1.5,
		"delay":       "250ms",
		"wait":        2 * time.Second,
		"name":        "svc",
	}

	if o.Bool("http_errors", true) {
		t.Error("expected http_errors false")
	}
	if !o.Bool("flag", false) {
		t.Error("expected string bool to parse")
	}
	if !o.Bool("missing", true) {
		t.Error("expected default for missing key")
	}
	if o.Int("retries", 0) != 3 {
		t.Errorf("expected 3 retries, got %d", o.Int("retries", 0))
	}
	if o.Duration("timeout", 0) != 1500*time.Millisecond {
		t.Errorf("expected 1.5s, got %v", o.Duration("timeout", 0))
	}
	if o.Duration("delay", 0) != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", o.Duration("delay", 0))
	}
	if o.Duration("wait", 0) != 2*time.Second {
		t.Errorf("expected 2s, got %v", o.Duration("wait", 0))
	}
	if o.String("name", "") != "svc" || o.String("retries", "def") != "def" {
		t.Error("unexpected String results")
	}
	if _, ok := o.Get("name"); !ok || !o.Has("name") || o.Has("nope") {
		t.Error("unexpected Get/Has results")
	}
}

func TestOptions_MergeAndClone(t *testing.T) {
	defaults := Options{"timeout": 5, "http_errors": true}
	call := Options{"timeout": 1}

	merged := call.Merge(defaults)
	if merged["timeout"] != 1 || merged["http_errors"] != true {
		t.Fatalf("unexpected merge result %v", merged)
	}
	if len(call) != 1 || len(defaults) != 2 {
		t.Fatal("merge must not modify its inputs")
	}

	var nilOpts Options
	c := nilOpts.Clone()
	if c == nil || len(c) != 0 {
		t.Fatal("expected empty non-nil clone")
	}
	w := call.With("stream", true)
	if !w.Bool("stream", false) || call.Has("stream") {
		t.Fatal("With must copy before setting")
	}
}
