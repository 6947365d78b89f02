package component

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kbukum/reqkit/logger"
)

// mockComponent implements Component for testing.
type mockComponent struct {
	name       string
	startErr   error
	stopErr    error
	health     Health
	startOrder *[]string
	stopOrder  *[]string
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	if m.startOrder != nil {
		*m.startOrder = append(*m.startOrder, m.name)
	}
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	if m.stopOrder != nil {
		*m.stopOrder = append(*m.stopOrder, m.name)
	}
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) Health {
	return m.health
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("expected non-nil registry")
	}
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	c := &mockComponent{name: "client", health: Health{Name: "client", Status: StatusHealthy}}

	if err := r.Register(c); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	c := &mockComponent{name: "db"}
	r.Register(c)

	err := r.Register(&mockComponent{name: "db"})
	if err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestGet(t *testing.T) {
	r := NewRegistry()
	c := &mockComponent{name: "db"}
	r.Register(c)

	got := r.Get("db")
	if got == nil {
		t.Fatal("expected to get registered component")
	}
	if got.Name() != "db" {
		t.Errorf("expected 'db', got %q", got.Name())
	}
}

func TestGetNotFound(t *testing.T) {
	r := NewRegistry()
	got := r.Get("missing")
	if got != nil {
		t.Error("expected nil for unregistered component")
	}
}

func TestStartAll(t *testing.T) {
	r := NewRegistry()
	order := []string{}

	r.Register(&mockComponent{
		name: "db", startOrder: &order,
		health: Health{Name: "db", Status: StatusHealthy},
	})
	r.Register(&mockComponent{
		name: "cache", startOrder: &order,
		health: Health{Name: "cache", Status: StatusHealthy},
	})

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}

	if len(order) != 2 {
		t.Fatalf("expected 2 starts, got %d", len(order))
	}
	if order[0] != "db" || order[1] != "cache" {
		t.Errorf("expected start order [db, cache], got %v", order)
	}
}

func TestStartAllError(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockComponent{name: "db", startErr: fmt.Errorf("connection refused")})

	err := r.StartAll(context.Background())
	if err == nil {
		t.Error("expected error from StartAll")
	}
}

func TestStopAllReverseOrder(t *testing.T) {
	r := NewRegistry()
	order := []string{}

	r.Register(&mockComponent{name: "db", stopOrder: &order, health: Health{Name: "db", Status: StatusHealthy}})
	r.Register(&mockComponent{name: "cache", stopOrder: &order, health: Health{Name: "cache", Status: StatusHealthy}})
	r.Register(&mockComponent{name: "tracing", stopOrder: &order, health: Health{Name: "tracing", Status: StatusHealthy}})

	r.StartAll(context.Background())
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}

	if len(order) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(order))
	}
	if order[0] != "tracing" || order[1] != "cache" || order[2] != "db" {
		t.Errorf("expected reverse stop order [tracing, cache, db], got %v", order)
	}
}

func TestStopAllSkipsUnstarted(t *testing.T) {
	r := NewRegistry()
	order := []string{}
	r.Register(&mockComponent{name: "db", stopOrder: &order})

	// Don't start, then stop
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if len(order) != 0 {
		t.Errorf("expected 0 stops for unstarted components, got %d", len(order))
	}
}

func TestStopAllWithErrors(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockComponent{
		name: "db", stopErr: fmt.Errorf("stop failed"),
		health: Health{Name: "db", Status: StatusHealthy},
	})
	r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if err == nil {
		t.Error("expected error from StopAll")
	}
}

func TestHealthAll(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockComponent{
		name:   "db",
		health: Health{Name: "db", Status: StatusHealthy, Message: "connected"},
	})
	r.Register(&mockComponent{
		name:   "cache",
		health: Health{Name: "cache", Status: StatusUnhealthy, Message: "timeout"},
	})

	results := r.HealthAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Status != StatusHealthy {
		t.Errorf("expected db healthy, got %s", results[0].Status)
	}
	if results[1].Status != StatusUnhealthy {
		t.Errorf("expected cache unhealthy, got %s", results[1].Status)
	}
}

func TestHealthStatusConstants(t *testing.T) {
	if StatusHealthy != "healthy" {
		t.Errorf("expected 'healthy', got %q", StatusHealthy)
	}
	if StatusUnhealthy != "unhealthy" {
		t.Errorf("expected 'unhealthy', got %q", StatusUnhealthy)
	}
	if StatusDegraded != "degraded" {
		t.Errorf("expected 'degraded', got %q", StatusDegraded)
	}
}

type describedComponent struct {
	mockComponent
	desc Description
}

func (d *describedComponent) Describe() Description { return d.desc }

func TestDescribe(t *testing.T) {
	plain := Describe(&mockComponent{name: "cache"})
	if plain.Name != "cache" {
		t.Errorf("expected fallback name 'cache', got %q", plain.Name)
	}

	c := &describedComponent{
		mockComponent: mockComponent{name: "api"},
		desc:          Description{Type: "http-client", Details: "layers=4"},
	}
	got := Describe(c)
	if got.Name != "api" || got.Type != "http-client" || got.Details != "layers=4" {
		t.Errorf("unexpected description %+v", got)
	}
}

func TestStartAllSkipsStarted(t *testing.T) {
	r := NewRegistry(WithLogger(logger.NewNop()))
	order := []string{}
	r.Register(&mockComponent{name: "db", startOrder: &order})

	r.StartAll(context.Background())
	r.StartAll(context.Background())
	if len(order) != 1 {
		t.Errorf("expected a single start, got %v", order)
	}
}

func TestStopTimeoutApplied(t *testing.T) {
	r := NewRegistry(WithStopTimeout(time.Millisecond))
	c := &deadlineComponent{mockComponent: mockComponent{name: "slow"}}
	r.Register(c)
	r.StartAll(context.Background())

	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if !c.hadDeadline {
		t.Error("expected stop context to carry a deadline")
	}
}

type deadlineComponent struct {
	mockComponent
	hadDeadline bool
}

func (d *deadlineComponent) Stop(ctx context.Context) error {
	_, d.hadDeadline = ctx.Deadline()
	return nil
}
