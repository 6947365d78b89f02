package client

import (
	"context"
	"fmt"

	"github.com/kbukum/reqkit/component"
)

// Component wraps a Client with lifecycle management. The client is created
// in Start.
type Component struct {
	client *Client
	config Config
	opts   []Option
}

// compile-time assertions
var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// NewComponent creates a client component.
func NewComponent(cfg Config, opts ...Option) *Component {
	return &Component{config: cfg, opts: opts}
}

// Name returns the component name.
func (c *Component) Name() string {
	name := c.config.Name
	if name == "" {
		name = defaultName
	}
	return name
}

// Start creates the client and waits for its redis cache, if any.
func (c *Component) Start(ctx context.Context) error {
	cl, err := New(c.config, c.opts...)
	if err != nil {
		return err
	}
	if rs := cl.RedisStore(); rs != nil {
		if err := rs.Start(ctx); err != nil {
			_ = cl.Close()
			return fmt.Errorf("client %s: %w", c.Name(), err)
		}
	}
	c.client = cl
	return nil
}

// Stop closes the client.
func (c *Component) Stop(_ context.Context) error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// Health reports unhealthy before Start and degraded while the redis cache
// is unreachable, since cache failures never fail requests.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if c.client == nil {
		h.Status = component.StatusUnhealthy
		h.Message = "not started"
		return h
	}
	if rs := c.client.RedisStore(); rs != nil {
		if rh := rs.Health(ctx); rh.Status != component.StatusHealthy {
			h.Status = component.StatusDegraded
			h.Message = "cache: " + rh.Message
		}
	}
	return h
}

// Describe returns the component description for the CLI summary.
func (c *Component) Describe() component.Description {
	details := c.config.BaseURL
	if c.client != nil {
		details = fmt.Sprintf("base=%s layers=%d", c.config.BaseURL, len(c.client.Layers()))
	}
	return component.Description{
		Name:    c.Name(),
		Type:    "http-client",
		Details: details,
	}
}

// Client returns the underlying client. Must be called after Start.
func (c *Component) Client() *Client {
	return c.client
}
