package security

import (
	"crypto/tls"
	"net/http"
	"strings"
	"testing"

	"github.com/kbukum/reqkit/security/tlstest"
)

func TestTLSConfig_Build_NilAndZero(t *testing.T) {
	var nilCfg *TLSConfig
	if result, err := nilCfg.Build(); err != nil || result != nil {
		t.Fatalf("expected nil for nil config, got %v, %v", result, err)
	}
	if result, err := (&TLSConfig{}).Build(); err != nil || result != nil {
		t.Fatalf("expected nil for zero config, got %v, %v", result, err)
	}
}

func TestTLSConfig_Build_SkipVerify(t *testing.T) {
	result, err := (&TLSConfig{SkipVerify: true, ServerName: "example.com"}).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.InsecureSkipVerify {
		t.Error("expected InsecureSkipVerify=true")
	}
	if result.ServerName != "example.com" {
		t.Errorf("expected ServerName example.com, got %q", result.ServerName)
	}
	if result.MinVersion != tls.VersionTLS12 {
		t.Errorf("expected MinVersion=TLS12, got %d", result.MinVersion)
	}
}

func TestTLSConfig_Build_MinVersion(t *testing.T) {
	result, err := (&TLSConfig{MinVersion: "1.3"}).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MinVersion != tls.VersionTLS13 {
		t.Errorf("expected TLS13, got %d", result.MinVersion)
	}

	if _, err := (&TLSConfig{MinVersion: "2.0"}).Build(); err == nil {
		t.Error("expected error for unsupported version")
	}
}

func TestTLSConfig_Build_InvalidFiles(t *testing.T) {
	if _, err := (&TLSConfig{CAFile: "/nonexistent/ca.pem"}).Build(); err == nil {
		t.Error("expected error for missing CA file")
	}
	if _, err := (&TLSConfig{CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"}).Build(); err == nil {
		t.Error("expected error for missing cert files")
	}

	bad := tlstest.WriteInvalidPEM(t, "bad-ca.pem")
	_, err := (&TLSConfig{CAFile: bad}).Build()
	if err == nil || !strings.Contains(err.Error(), "parse CA") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestTLSConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TLSConfig
		wantErr bool
	}{
		{"nil", nil, false},
		{"empty", &TLSConfig{}, false},
		{"pair", &TLSConfig{CertFile: "c", KeyFile: "k"}, false},
		{"cert only", &TLSConfig{CertFile: "c"}, true},
		{"key only", &TLSConfig{KeyFile: "k"}, true},
		{"bad version", &TLSConfig{MinVersion: "9"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTLSConfig_IsEnabled(t *testing.T) {
	var nilCfg *TLSConfig
	if nilCfg.IsEnabled() || (&TLSConfig{}).IsEnabled() {
		t.Error("expected disabled")
	}
	if !(&TLSConfig{CAFile: "ca.pem"}).IsEnabled() {
		t.Error("expected enabled with CA file")
	}
}

func TestTLSConfig_Build_GeneratedCerts(t *testing.T) {
	ca := tlstest.NewAuthority(t)
	leaf := ca.Issue(t, "client.internal")

	result, err := (&TLSConfig{
		CAFile:   ca.CAFile,
		CertFile: leaf.CertFile,
		KeyFile:  leaf.KeyFile,
	}).Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RootCAs == nil {
		t.Error("expected RootCAs to be set")
	}
	if len(result.Certificates) != 1 {
		t.Errorf("expected 1 client certificate, got %d", len(result.Certificates))
	}
}

func TestTLSConfig_Apply(t *testing.T) {
	tr := &http.Transport{}
	if err := (&TLSConfig{}).Apply(tr); err != nil || tr.TLSClientConfig != nil {
		t.Fatalf("disabled config must leave transport untouched, err=%v", err)
	}
	if err := (&TLSConfig{SkipVerify: true}).Apply(tr); err != nil {
		t.Fatal(err)
	}
	if tr.TLSClientConfig == nil || !tr.TLSClientConfig.InsecureSkipVerify {
		t.Fatal("expected TLS config on transport")
	}
	if err := (&TLSConfig{CertFile: "only"}).Apply(&http.Transport{}); err == nil {
		t.Fatal("expected validation error")
	}
}
