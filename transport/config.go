package transport

import (
	"time"

	"github.com/kbukum/reqkit/security"
	"github.com/kbukum/reqkit/validation"
)

const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
	defaultHTTP2ReadIdle       = 30 * time.Second
	defaultMaxResponseBytes    = 32 << 20
)

// Config configures the net/http terminal handler.
type Config struct {
	// Timeout is the default per-request deadline. Zero means none; the
	// "timeout" request option overrides it.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// ConnectTimeout bounds dialing a new connection.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout" validate:"gte=0"`

	// ResponseHeaderTimeout bounds waiting for response headers.
	ResponseHeaderTimeout time.Duration `yaml:"response_header_timeout" mapstructure:"response_header_timeout" validate:"gte=0"`

	MaxIdleConns        int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns" validate:"gte=0"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host" mapstructure:"max_idle_conns_per_host" validate:"gte=0"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout" mapstructure:"idle_conn_timeout" validate:"gte=0"`
	DisableKeepAlives   bool          `yaml:"disable_keep_alives" mapstructure:"disable_keep_alives"`
	DisableCompression  bool          `yaml:"disable_compression" mapstructure:"disable_compression"`

	// Proxy is an explicit proxy URL. Empty uses the environment.
	Proxy string `yaml:"proxy" mapstructure:"proxy" validate:"omitempty,url"`

	// HTTP2 configures the transport through golang.org/x/net/http2 and
	// enables connection health checks.
	HTTP2 bool `yaml:"http2" mapstructure:"http2"`
	// HTTP2ReadIdleTimeout is the idle time after which a health-check ping
	// is sent on an HTTP/2 connection.
	HTTP2ReadIdleTimeout time.Duration `yaml:"http2_read_idle_timeout" mapstructure:"http2_read_idle_timeout" validate:"gte=0"`

	// MaxResponseBytes caps a buffered response body. Zero means 32 MiB and
	// a negative value disables the cap. Streamed and sunk bodies are not
	// buffered and not capped.
	MaxResponseBytes int64 `yaml:"max_response_bytes" mapstructure:"max_response_bytes"`

	// TLS configures the transport's TLS client settings.
	TLS *security.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = defaultMaxIdleConns
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = defaultIdleConnTimeout
	}
	if c.MaxResponseBytes == 0 {
		c.MaxResponseBytes = defaultMaxResponseBytes
	}
	if c.HTTP2 && c.HTTP2ReadIdleTimeout == 0 {
		c.HTTP2ReadIdleTimeout = defaultHTTP2ReadIdle
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	return c.TLS.Validate()
}
