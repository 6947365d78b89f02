package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a lifecycle-managed piece of client infrastructure such as a
// configured HTTP client or a response cache store.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start initializes the component.
	Start(ctx context.Context) error

	// Stop releases resources held by the component.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Description holds summary information printed by the CLI.
type Description struct {
	// Name is the display name. If empty, the component's Name() is used.
	Name string
	// Type categorizes the component: "http-client", "cache", ...
	Type string
	// Details is a one-liner, e.g. "base=https://api.example.com layers=9".
	Details string
}

// Describable is optionally implemented by components that can summarize
// their configuration.
type Describable interface {
	Describe() Description
}

// Describe returns the description of c, falling back to its name.
func Describe(c Component) Description {
	d, ok := c.(Describable)
	if !ok {
		return Description{Name: c.Name()}
	}
	desc := d.Describe()
	if desc.Name == "" {
		desc.Name = c.Name()
	}
	return desc
}
