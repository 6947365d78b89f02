package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	cfg := &Config{Level: "invalid-level", Format: "json", Output: "stdout"}
	l := New(cfg, "test")
	if l == nil {
		t.Fatal("expected logger to be created even with invalid level")
	}
	if l.GetLogger().GetLevel() != zerolog.InfoLevel {
		t.Errorf("expected fallback to info, got %v", l.GetLogger().GetLevel())
	}
}

func TestNewWithWriter_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug")
	l.WithComponent("stack").Debug("chain rebuilt", Fields("layers", 3))

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if line["message"] != "chain rebuilt" {
		t.Errorf("expected message, got %v", line["message"])
	}
	if line[FieldComponent] != "stack" {
		t.Errorf("expected component 'stack', got %v", line[FieldComponent])
	}
	if line["layers"] != float64(3) {
		t.Errorf("expected layers 3, got %v", line["layers"])
	}
}

func TestNewWithWriter_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn")
	l.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
	l.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("expected warn line, got %q", buf.String())
	}
}

func TestEnabled(t *testing.T) {
	l := NewWithWriter(&bytes.Buffer{}, "info")
	if l.Enabled(zerolog.DebugLevel) {
		t.Error("debug should be disabled at info level")
	}
	if !l.Enabled(zerolog.ErrorLevel) {
		t.Error("error should be enabled at info level")
	}
}

func TestLog_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug")
	l.Log(zerolog.ErrorLevel, "exchange failed")
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error level, got %q", buf.String())
	}
}

func TestWithContext_AddsTraceIDs(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	var buf bytes.Buffer
	NewWithWriter(&buf, "info").WithContext(ctx).Info("traced")

	if !strings.Contains(buf.String(), span.SpanContext().TraceID().String()) {
		t.Fatalf("expected trace id in %q", buf.String())
	}
}

func TestWithContext_NoSpan(t *testing.T) {
	l := NewNop()
	if l.WithContext(context.Background()) != l {
		t.Error("expected the same logger when ctx carries no span")
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "info").WithError(fmt.Errorf("boom")).Error("failed")
	if !strings.Contains(buf.String(), "boom") {
		t.Fatalf("expected error field, got %q", buf.String())
	}
}

func TestGlobalLogger(t *testing.T) {
	l := NewNop()
	SetGlobalLogger(l)
	if GetGlobalLogger() != l {
		t.Error("expected SetGlobalLogger to set the global logger")
	}

	Init(Config{Level: "debug", Format: "json", Output: "stdout"})
	if GetGlobalLogger() == l {
		t.Error("expected Init to replace the global logger")
	}
	// package-level helpers must not panic
	Debug("debug msg")
	Info("info msg")
	Warn("warn msg")
	Error("error msg")
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got %q", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("expected format 'console', got %q", cfg.Format)
	}
	if cfg.Output != "stdout" {
		t.Errorf("expected output 'stdout', got %q", cfg.Output)
	}
	if !cfg.Timestamp {
		t.Error("expected Timestamp to be true")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "info", Format: "json", Output: "stdout"}, false},
		{"valid console", Config{Level: "debug", Format: "console", Output: "stderr"}, false},
		{"invalid level", Config{Level: "bad", Format: "json", Output: "stdout"}, true},
		{"invalid format", Config{Level: "info", Format: "xml", Output: "stdout"}, true},
		{"invalid output", Config{Level: "info", Format: "json", Output: "file"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestRegisterAndGet(t *testing.T) {
	l := NewNop()
	Register("my-component", l)

	if Get("my-component") != l {
		t.Error("expected Get to return the registered logger")
	}
	if Get("unregistered-component") == nil {
		t.Fatal("expected non-nil logger for unregistered component")
	}
}

func TestFields(t *testing.T) {
	tests := []struct {
		name     string
		input    []interface{}
		expected map[string]interface{}
	}{
		{"key-value pairs", []interface{}{"op", "send", "id", 42}, map[string]interface{}{"op": "send", "id": 42}},
		{"odd number of args", []interface{}{"op", "send", "trailing"}, map[string]interface{}{"op": "send"}},
		{"non-string key skipped", []interface{}{123, "value", "key", "val"}, map[string]interface{}{"key": "val"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Fields(tc.input...)
			if len(result) != len(tc.expected) {
				t.Fatalf("expected %d fields, got %v", len(tc.expected), result)
			}
			for k, v := range tc.expected {
				if result[k] != v {
					t.Errorf("Fields[%q] = %v, expected %v", k, result[k], v)
				}
			}
		})
	}
}

func TestErrorAndDurationFields(t *testing.T) {
	ef := ErrorFields("send", fmt.Errorf("refused"))
	if ef[FieldOperation] != "send" || ef[FieldError] != "refused" {
		t.Errorf("unexpected error fields %v", ef)
	}

	df := DurationFields("send", 150*time.Millisecond)
	if df[FieldDuration] != int64(150) {
		t.Errorf("expected duration 150, got %v", df[FieldDuration])
	}
}
