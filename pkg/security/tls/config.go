package tls

import (
	"crypto/tls"
	"fmt"
	"os"

	"glucobridge/relay/pkg/config"
)

// NewServerConfig builds the listener TLS configuration. When reloader is
// non-nil certificates are served from it; otherwise the key pair is loaded
// once.
func NewServerConfig(cfg config.TLSConfig, reloader *CertificateReloader) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.CertFile == "" {
		return nil, fmt.Errorf("cert_file is required when TLS is enabled")
	}
	if cfg.KeyFile == "" {
		return nil, fmt.Errorf("key_file is required when TLS is enabled")
	}

	minVersion, err := ParseVersion(cfg.MinVersion)
	if err != nil {
		return nil, err
	}

	// #nosec G402 - MinVersion is validated, 1.0 and 1.1 are rejected
	tlsConfig := &tls.Config{MinVersion: minVersion}

	if reloader != nil {
		tlsConfig.GetCertificate = reloader.GetCertificateFunc()
		return tlsConfig, nil
	}

	if _, err := os.Stat(cfg.CertFile); err != nil {
		return nil, fmt.Errorf("certificate file not found: %s: %w", cfg.CertFile, err)
	}
	if _, err := os.Stat(cfg.KeyFile); err != nil {
		return nil, fmt.Errorf("key file not found: %s: %w", cfg.KeyFile, err)
	}
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}
	if err := ValidateCertificate(&cert); err != nil {
		return nil, fmt.Errorf("certificate validation failed: %w", err)
	}
	tlsConfig.Certificates = []tls.Certificate{cert}
	return tlsConfig, nil
}

// ParseVersion maps "1.2" and "1.3" to their tls constants. Empty means 1.2.
func ParseVersion(v string) (uint16, error) {
	switch v {
	case "", "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported TLS version %q (use 1.2 or 1.3)", v)
	}
}
