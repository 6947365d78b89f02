// Package tlstest issues throwaway certificates for TLS tests.
//
// An Authority is a self-signed CA whose PEM file can be handed to
// security.TLSConfig as CAFile. StartServer runs an httptest server presenting
// a certificate issued by that CA, so transport tests verify real chains.
//
//	ca := tlstest.NewAuthority(t)
//	srv := ca.StartServer(t, handler)
//	cfg := &security.TLSConfig{CAFile: ca.CAFile}
package tlstest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// Authority is a test certificate authority.
type Authority struct {
	// CAFile is the PEM file holding the CA certificate.
	CAFile string
	// Pool trusts the CA.
	Pool *x509.CertPool

	cert   *x509.Certificate
	key    *ecdsa.PrivateKey
	dir    string
	serial atomic.Int64
}

// Leaf is a certificate issued by an Authority, both on disk and parsed.
type Leaf struct {
	CertFile string
	KeyFile  string
	TLS      tls.Certificate
}

// NewAuthority creates a CA valid for one day. Files live in t.TempDir().
func NewAuthority(t testing.TB) *Authority {
	t.Helper()
	key := newKey(t)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{Organization: []string{"reqkit test authority"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("tlstest: sign CA: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("tlstest: parse CA: %v", err)
	}

	a := &Authority{cert: cert, key: key, dir: t.TempDir(), Pool: x509.NewCertPool()}
	a.Pool.AddCert(cert)
	a.serial.Store(1)
	a.CAFile = a.write(t, "ca.pem", "CERTIFICATE", der)
	return a
}

// Issue signs a leaf certificate usable for both server and client auth.
// Hosts default to localhost and the loopback addresses.
func (a *Authority) Issue(t testing.TB, hosts ...string) *Leaf {
	t.Helper()
	if len(hosts) == 0 {
		hosts = []string{"localhost", "127.0.0.1", "::1"}
	}
	serial := a.serial.Add(1)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject:      pkix.Name{CommonName: hosts[0]},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
		} else {
			tmpl.DNSNames = append(tmpl.DNSNames, h)
		}
	}

	key := newKey(t)
	der, err := x509.CreateCertificate(rand.Reader, tmpl, a.cert, &key.PublicKey, a.key)
	if err != nil {
		t.Fatalf("tlstest: sign leaf: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("tlstest: marshal leaf key: %v", err)
	}

	name := big.NewInt(serial).String()
	leaf := &Leaf{
		CertFile: a.write(t, "leaf-"+name+".pem", "CERTIFICATE", der),
		KeyFile:  a.write(t, "leaf-"+name+"-key.pem", "EC PRIVATE KEY", keyDER),
	}
	leaf.TLS, err = tls.LoadX509KeyPair(leaf.CertFile, leaf.KeyFile)
	if err != nil {
		t.Fatalf("tlstest: load leaf: %v", err)
	}
	return leaf
}

// StartServer starts an HTTPS test server presenting a leaf issued by a.
// The server is closed when the test ends.
func (a *Authority) StartServer(t testing.TB, h http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewUnstartedServer(h)
	srv.TLS = &tls.Config{Certificates: []tls.Certificate{a.Issue(t).TLS}}
	srv.EnableHTTP2 = true
	srv.StartTLS()
	t.Cleanup(srv.Close)
	return srv
}

// WriteInvalidPEM writes a PEM-framed file whose payload is not a certificate.
func WriteInvalidPEM(t testing.TB, filename string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), filename)
	content := []byte("-----BEGIN CERTIFICATE-----\nnot-valid-base64-data\n-----END CERTIFICATE-----\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("tlstest: write %s: %v", path, err)
	}
	return path
}

func newKey(t testing.TB) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("tlstest: generate key: %v", err)
	}
	return key
}

func (a *Authority) write(t testing.TB, name, blockType string, der []byte) string {
	t.Helper()
	path := filepath.Join(a.dir, name)
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("tlstest: write %s: %v", path, err)
	}
	return path
}
