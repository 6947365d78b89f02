package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
)

// TLSConfig holds the TLS settings of an HTTP transport.
type TLSConfig struct {
	// SkipVerify disables server certificate verification.
	// Not recommended for production.
	SkipVerify bool `yaml:"skip_verify" mapstructure:"skip_verify"`

	// CAFile is the path to the CA certificate file for verifying the server.
	CAFile string `yaml:"ca_file" mapstructure:"ca_file"`

	// CertFile is the path to the client TLS certificate file (for mTLS).
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`

	// KeyFile is the path to the client TLS key file (for mTLS).
	KeyFile string `yaml:"key_file" mapstructure:"key_file"`

	// ServerName overrides the server name used for certificate verification.
	ServerName string `yaml:"server_name" mapstructure:"server_name"`

	// MinVersion is the minimum TLS version: "1.0", "1.1", "1.2" or "1.3".
	// Defaults to 1.2.
	MinVersion string `yaml:"min_version" mapstructure:"min_version" validate:"omitempty,oneof=1.0 1.1 1.2 1.3"`
}

var tlsVersions = map[string]uint16{
	"1.0": tls.VersionTLS10,
	"1.1": tls.VersionTLS11,
	"1.2": tls.VersionTLS12,
	"1.3": tls.VersionTLS13,
}

// Build creates a *tls.Config from the configuration.
// Returns nil if no TLS settings are configured.
func (c *TLSConfig) Build() (*tls.Config, error) {
	if !c.IsEnabled() {
		return nil, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	minVersion := uint16(tls.VersionTLS12)
	if c.MinVersion != "" {
		minVersion = tlsVersions[c.MinVersion]
	}

	cfg := &tls.Config{
		InsecureSkipVerify: c.SkipVerify,
		ServerName:         c.ServerName,
		MinVersion:         minVersion,
	}

	if err := c.loadCA(cfg); err != nil {
		return nil, err
	}
	if err := c.loadClientCert(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Apply builds the TLS configuration and installs it on t. A disabled
// configuration leaves t untouched.
func (c *TLSConfig) Apply(t *http.Transport) error {
	cfg, err := c.Build()
	if err != nil || cfg == nil {
		return err
	}
	t.TLSClientConfig = cfg
	return nil
}

// Validate checks that the TLS configuration is consistent.
func (c *TLSConfig) Validate() error {
	if c == nil {
		return nil
	}
	if (c.CertFile != "") != (c.KeyFile != "") {
		return fmt.Errorf("security/tls: both cert_file and key_file must be provided together")
	}
	if _, ok := tlsVersions[c.MinVersion]; c.MinVersion != "" && !ok {
		return fmt.Errorf("security/tls: unsupported min_version %q", c.MinVersion)
	}
	return nil
}

// IsEnabled returns true if any TLS setting is configured.
func (c *TLSConfig) IsEnabled() bool {
	if c == nil {
		return false
	}
	return c.SkipVerify || c.CAFile != "" || c.CertFile != "" || c.ServerName != "" || c.MinVersion != ""
}

func (c *TLSConfig) loadCA(cfg *tls.Config) error {
	if c.CAFile == "" {
		return nil
	}
	ca, err := os.ReadFile(c.CAFile)
	if err != nil {
		return fmt.Errorf("security/tls: failed to read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(ca) {
		return fmt.Errorf("security/tls: failed to parse CA certificate")
	}
	cfg.RootCAs = pool
	return nil
}

func (c *TLSConfig) loadClientCert(cfg *tls.Config) error {
	if c.CertFile == "" {
		return nil
	}
	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return fmt.Errorf("security/tls: failed to load client certificate: %w", err)
	}
	cfg.Certificates = []tls.Certificate{cert}
	return nil
}
