package client

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/kbukum/reqkit/cache"
	"github.com/kbukum/reqkit/errors"
	"github.com/kbukum/reqkit/middleware"
	"github.com/kbukum/reqkit/resilience"
	"github.com/kbukum/reqkit/transport"
	"github.com/kbukum/reqkit/validation"
	"github.com/kbukum/reqkit/version"
)

const (
	defaultName     = "http"
	defaultLogLevel = "info"
)

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config configures a Client.
type Config struct {
	// Name identifies the client in logs, metrics and the component registry.
	Name string `yaml:"name" mapstructure:"name" validate:"required"`

	// BaseURL is resolved against relative request URIs.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	// Timeout is the default "timeout" option of every request. Zero means none.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// UserAgent defaults to reqkit/<version>.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// HTTPErrors turns >= 400 responses into errors. Defaults to true.
	HTTPErrors *bool `yaml:"http_errors" mapstructure:"http_errors"`

	Redirects RedirectConfig `yaml:"redirects" mapstructure:"redirects"`

	// Cookies keeps a cookie jar shared by all requests of the client.
	Cookies bool `yaml:"cookies" mapstructure:"cookies"`

	Transport transport.Config `yaml:"transport" mapstructure:"transport"`

	// Optional layers. Nil disables them.
	Retry          *resilience.RetryConfig          `yaml:"retry" mapstructure:"retry"`
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
	RateLimit      *resilience.RateLimiterConfig    `yaml:"rate_limit" mapstructure:"rate_limit"`
	Bulkhead       *resilience.BulkheadConfig       `yaml:"bulkhead" mapstructure:"bulkhead"`
	Cache          *CacheConfig                     `yaml:"cache" mapstructure:"cache"`
	Auth           *middleware.AuthConfig           `yaml:"auth" mapstructure:"auth"`

	// RequestIDHeader enables the request ID layer with this header.
	RequestIDHeader string `yaml:"request_id_header" mapstructure:"request_id_header"`

	Logging LogConfig     `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`

	// DisableContractChecks turns off runtime middleware contract checks.
	DisableContractChecks bool `yaml:"disable_contract_checks" mapstructure:"disable_contract_checks"`
}

// RedirectConfig configures redirect following.
type RedirectConfig struct {
	Disabled bool `yaml:"disabled" mapstructure:"disabled"`
	Max      int  `yaml:"max" mapstructure:"max" validate:"gte=0"`
	// Strict keeps the method and body on 301 and 302.
	Strict    bool     `yaml:"strict" mapstructure:"strict"`
	Referer   bool     `yaml:"referer" mapstructure:"referer"`
	Protocols []string `yaml:"protocols" mapstructure:"protocols" validate:"dive,oneof=http https"`
	// Track adds the redirect history headers to final responses.
	Track bool `yaml:"track" mapstructure:"track"`
}

// CacheConfig configures the response cache layer.
type CacheConfig struct {
	Backend  string             `yaml:"backend" mapstructure:"backend" validate:"omitempty,oneof=memory redis"`
	TTL      time.Duration      `yaml:"ttl" mapstructure:"ttl" validate:"gte=0"`
	Methods  []string           `yaml:"methods" mapstructure:"methods"`
	Statuses []int              `yaml:"statuses" mapstructure:"statuses" validate:"dive,gte=100,lte=599"`
	Vary     []string           `yaml:"vary" mapstructure:"vary"`
	Redis    *cache.RedisConfig `yaml:"redis" mapstructure:"redis"`

	// SharedAuth lets requests with different credentials share entries.
	SharedAuth bool `yaml:"shared_auth" mapstructure:"shared_auth"`
}

// LogConfig configures the per-exchange log layer.
type LogConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Format is a log line template; empty uses the common log format.
	Format string `yaml:"format" mapstructure:"format"`
	// Level of successful exchanges. Failures always log at error.
	Level string `yaml:"level" mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error"`
}

// TracingConfig configures the tracing layer. Providers are set up by the
// application through the observability package.
type TracingConfig struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	TracerName string `yaml:"tracer_name" mapstructure:"tracer_name"`
}

// MetricsConfig configures the metrics layer.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = defaultName
	}
	if c.UserAgent == "" {
		c.UserAgent = version.UserAgent()
	}
	if c.HTTPErrors == nil {
		on := true
		c.HTTPErrors = &on
	}
	if c.Redirects.Max == 0 {
		c.Redirects.Max = middleware.DefaultRedirectOptions().Max
	}
	if len(c.Redirects.Protocols) == 0 {
		c.Redirects.Protocols = middleware.DefaultRedirectOptions().Protocols
	}
	if c.Retry != nil {
		c.Retry.ApplyDefaults()
	}
	if c.CircuitBreaker != nil && c.CircuitBreaker.Name == "" {
		c.CircuitBreaker.Name = c.Name
	}
	if c.RateLimit != nil && c.RateLimit.Name == "" {
		c.RateLimit.Name = c.Name
	}
	if c.Bulkhead != nil && c.Bulkhead.Name == "" {
		c.Bulkhead.Name = c.Name
	}
	if c.Cache != nil {
		if c.Cache.Backend == "" {
			c.Cache.Backend = CacheBackendMemory
		}
		if c.Cache.Redis != nil {
			c.Cache.Redis.ApplyDefaults()
		}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Transport.ApplyDefaults()
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if c.Cache != nil && c.Cache.Backend == CacheBackendRedis && c.Cache.Redis == nil {
		return errors.InvalidConfig("validation failed: cache.redis is required for the redis backend")
	}
	if c.Auth != nil && c.Auth.Type == middleware.AuthJWT && c.Auth.JWT == nil {
		return errors.InvalidConfig("validation failed: auth.jwt is required for jwt auth")
	}
	return c.Transport.Validate()
}

// logLevel returns the configured level of successful exchanges.
func (c LogConfig) logLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// redirectOptions maps the config onto the allow_redirects option value.
func (c RedirectConfig) redirectOptions() any {
	if c.Disabled {
		return false
	}
	return middleware.RedirectOptions{
		Max:            c.Max,
		Strict:         c.Strict,
		Referer:        c.Referer,
		Protocols:      c.Protocols,
		TrackRedirects: c.Track,
	}
}
