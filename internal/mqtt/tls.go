package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// Credentials configures the secured transport session.
type Credentials struct {
	// RootCAPath is the PEM bundle trusted to sign the broker
	// certificate. Required.
	RootCAPath string

	// CertPath and KeyPath hold the client certificate and private key
	// for mutual authentication. Both or neither.
	CertPath string
	KeyPath  string

	// ALPNProtocols lists application protocols offered during the
	// handshake, in preference order.
	ALPNProtocols []string

	// ServerName overrides the SNI hostname; the broker host is used
	// when empty.
	ServerName string
}

// TLSConfig builds the tls.Config for the broker connection. The
// broker must present a certificate chaining to the configured root
// CA; TLS 1.2 is the floor, matching what IoT endpoints negotiate.
func (c Credentials) TLSConfig() (*tls.Config, error) {
	if c.RootCAPath == "" {
		return nil, newError(KindInvalidParameter, "connect", "root CA path is required", nil)
	}
	if (c.CertPath == "") != (c.KeyPath == "") {
		return nil, newError(KindInvalidParameter, "connect", "client certificate and key must be set together", nil)
	}

	caPEM, err := os.ReadFile(c.RootCAPath)
	if err != nil {
		return nil, newError(KindCredentials, "connect", fmt.Sprintf("failed to read root CA %s", c.RootCAPath), err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, newError(KindCredentials, "connect", fmt.Sprintf("no certificates found in %s", c.RootCAPath), nil)
	}

	cfg := &tls.Config{
		RootCAs:    pool,
		NextProtos: c.ALPNProtocols,
		ServerName: c.ServerName,
		MinVersion: tls.VersionTLS12,
	}

	if c.CertPath != "" {
		cert, err := tls.LoadX509KeyPair(c.CertPath, c.KeyPath)
		if err != nil {
			return nil, newError(KindCredentials, "connect", "failed to load client certificate", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}
