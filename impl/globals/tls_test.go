package globals_test

import (
	"crypto/tls"
	"path/filepath"
	"testing"

	"github.com/aceeric/layerimport/impl/config"
	"github.com/aceeric/layerimport/impl/globals"
	"github.com/aceeric/layerimport/mock"
)

// Tests empty server TLS config should return nil tls config
func TestNoTls(t *testing.T) {
	cfg, err := globals.ParseTls(config.ServerTlsConfig{})
	if err != nil || cfg != nil {
		t.FailNow()
	}
}

func TestTls(t *testing.T) {
	td := t.TempDir()
	certs, err := mock.NewCerts()
	if err != nil {
		t.FailNow()
	}
	files, err := certs.WriteFiles(td)
	if err != nil {
		t.FailNow()
	}
	tests := []struct {
		name       string
		tlsCfg     config.ServerTlsConfig
		clientAuth tls.ClientAuthType
		ok         bool
	}{
		{"one way", config.ServerTlsConfig{Cert: files.ServerCert, Key: files.ServerKey}, tls.NoClientCert, true},
		{"mtls", config.ServerTlsConfig{Cert: files.ServerCert, Key: files.ServerKey, CA: files.CA, ClientAuth: "verify"}, tls.RequireAndVerifyClientCert, true},
		{"bad client auth", config.ServerTlsConfig{Cert: files.ServerCert, Key: files.ServerKey, ClientAuth: "sometimes"}, 0, false},
		{"verify without cert", config.ServerTlsConfig{ClientAuth: "verify"}, 0, false},
		{"missing files", config.ServerTlsConfig{Cert: filepath.Join(td, "nope.pem"), Key: files.ServerKey}, 0, false},
		{"bad ca", config.ServerTlsConfig{Cert: files.ServerCert, Key: files.ServerKey, CA: files.ServerKey, ClientAuth: "verify"}, 0, false},
	}
	for _, tt := range tests {
		cfg, err := globals.ParseTls(tt.tlsCfg)
		if tt.ok != (err == nil) {
			t.Errorf("%s: unexpected error result: %v", tt.name, err)
			continue
		}
		if tt.ok && cfg.ClientAuth != tt.clientAuth {
			t.Errorf("%s: expected client auth %v, got %v", tt.name, tt.clientAuth, cfg.ClientAuth)
		}
	}
}
