// Package tls builds the server-side TLS configuration for pathfinderd.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"
)

// DefaultValidFor is the lifetime of generated certificates
const DefaultValidFor = 365 * 24 * time.Hour

// Config selects where the server certificate comes from.
// CertFile and KeyFile win over AutoGenerate.
type Config struct {
	CertFile string
	KeyFile  string

	// ClientCAFile enables verification of client certificates when set
	ClientCAFile string

	AutoGenerate bool
	Hosts        []string
	ValidFor     time.Duration
}

// DefaultConfig returns a disabled configuration with generation defaults filled in
func DefaultConfig() Config {
	return Config{
		Hosts:    []string{"localhost", "127.0.0.1"},
		ValidFor: DefaultValidFor,
	}
}

// Enabled reports whether the server should terminate TLS
func (c Config) Enabled() bool {
	return c.CertFile != "" || c.KeyFile != "" || c.AutoGenerate
}

// Validate checks that the certificate pair is complete
func (c Config) Validate() error {
	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.New("certificate and key must be set together")
	}
	if c.ClientCAFile != "" && !c.Enabled() {
		return errors.New("client CA requires a server certificate")
	}
	return nil
}

// ServerConfig loads or generates the server certificate. It returns nil
// when TLS is disabled.
func ServerConfig(cfg Config) (*tls.Config, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		cert tls.Certificate
		err  error
	)
	if cfg.CertFile != "" {
		cert, err = tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load TLS certificate: %w", err)
		}
	} else {
		cert, err = GenerateSelfSignedCert(cfg.Hosts, cfg.ValidFor)
		if err != nil {
			return nil, fmt.Errorf("generate self-signed certificate: %w", err)
		}
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if cfg.ClientCAFile != "" {
		pool, err := LoadCAPool(cfg.ClientCAFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return tlsConfig, nil
}

// LoadCAPool loads a PEM bundle into a certificate pool
func LoadCAPool(caFile string) (*x509.CertPool, error) {
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read CA certificate: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("no certificates found in %s", caFile)
	}
	return pool, nil
}
