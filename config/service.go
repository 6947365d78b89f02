package config

import (
	"fmt"
	"slices"

	"github.com/kbukum/reqkit/logger"
)

// ServiceConfig contains the fields every reqkit program needs.
// Programs embed it in their own config structs.
//
// Example:
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Client client.Config `yaml:"client" mapstructure:"client"`
//	}
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

var environments = []string{"development", "staging", "production"}

// GetServiceConfig returns the base ServiceConfig. The method is promoted
// to embedding structs.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// ApplyDefaults applies default values to the base configuration.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
}

// Validate validates the base configuration fields.
func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config.name is required")
	}
	if !slices.Contains(environments, c.Environment) {
		return fmt.Errorf("config.environment must be one of %v (got: %s)", environments, c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}
