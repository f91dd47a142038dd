package globals

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	"github.com/aceeric/layerimport/impl/config"
)

// ParseTls builds the TLS configuration for the query API server from 'tlsCfg'.
// Supports:
//   - 1-way: the server presents its certs and does not request client certs
//   - mTls: the server presents its certs and requires and verifies client certs
//
// Client certs are verified against the passed CA, or the OS trust store if there is
// none. A nil config with a nil error means the server should serve plain HTTP.
func ParseTls(tlsCfg config.ServerTlsConfig) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	hasCfg := false
	if tlsCfg.Cert != "" && tlsCfg.Key != "" {
		cert, err := tls.LoadX509KeyPair(tlsCfg.Cert, tlsCfg.Key)
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{cert}
		hasCfg = true
	}
	switch strings.ToLower(tlsCfg.ClientAuth) {
	case "", "none":
	case "verify":
		hasCfg = true
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
		if tlsCfg.CA != "" {
			pool, err := loadCA(tlsCfg.CA)
			if err != nil {
				return nil, err
			}
			cfg.ClientCAs = pool
		}
	default:
		return nil, fmt.Errorf("unsupported client auth value: %s", tlsCfg.ClientAuth)
	}
	if !hasCfg {
		return nil, nil
	}
	if len(cfg.Certificates) == 0 {
		return nil, fmt.Errorf("client verification requires a server cert and key")
	}
	return cfg, nil
}

func loadCA(caFile string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in CA file: %s", caFile)
	}
	return pool, nil
}
