package mock

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// Certs is a throwaway CA with a server and a client certificate it signed,
// all PEM encoded.
type Certs struct {
	CaPEM         []byte
	ServerCertPEM []byte
	ServerKeyPEM  []byte
	ClientCertPEM []byte
	ClientKeyPEM  []byte
}

// CertFiles has the paths written by Certs.WriteFiles
type CertFiles struct {
	CA         string
	ServerCert string
	ServerKey  string
	ClientCert string
	ClientKey  string
}

// NewCerts generates a CA and a server and client certificate valid for the
// loopback addresses. Adapted from https://gist.github.com/shaneutt/5e1995295cff6721c89a71d13a71c251
func NewCerts() (Certs, error) {
	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return Certs{}, err
	}
	caTmpl := newX509("root", true, 1)
	caDER, err := x509.CreateCertificate(rand.Reader, &caTmpl, &caTmpl, &caKey.PublicKey, caKey)
	if err != nil {
		return Certs{}, err
	}
	caCert, err := x509.ParseCertificate(caDER)
	if err != nil {
		return Certs{}, err
	}
	certs := Certs{CaPEM: pemBlock("CERTIFICATE", caDER)}
	if certs.ServerCertPEM, certs.ServerKeyPEM, err = signedCert("server", 2, caCert, caKey); err != nil {
		return Certs{}, err
	}
	if certs.ClientCertPEM, certs.ClientKeyPEM, err = signedCert("client", 3, caCert, caKey); err != nil {
		return Certs{}, err
	}
	return certs, nil
}

// WriteFiles writes every PEM in the receiver to 'dir'.
func (c Certs) WriteFiles(dir string) (CertFiles, error) {
	files := CertFiles{
		CA:         filepath.Join(dir, "ca.pem"),
		ServerCert: filepath.Join(dir, "cert.pem"),
		ServerKey:  filepath.Join(dir, "key.pem"),
		ClientCert: filepath.Join(dir, "client-cert.pem"),
		ClientKey:  filepath.Join(dir, "client-key.pem"),
	}
	for path, data := range map[string][]byte{
		files.CA:         c.CaPEM,
		files.ServerCert: c.ServerCertPEM,
		files.ServerKey:  c.ServerKeyPEM,
		files.ClientCert: c.ClientCertPEM,
		files.ClientKey:  c.ClientKeyPEM,
	} {
		if err := os.WriteFile(path, data, 0600); err != nil {
			return CertFiles{}, err
		}
	}
	return files, nil
}

// ClientTls returns a client config that trusts the CA and presents the client
// certificate.
func (c Certs) ClientTls() (*tls.Config, error) {
	cert, err := tls.X509KeyPair(c.ClientCertPEM, c.ClientKeyPEM)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(c.CaPEM)
	return &tls.Config{
		RootCAs:      pool,
		Certificates: []tls.Certificate{cert},
	}, nil
}

func signedCert(cn string, serial int64, ca *x509.Certificate, caKey *ecdsa.PrivateKey) ([]byte, []byte, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	tmpl := newX509(cn, false, serial)
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, ca, &key.PublicKey, caKey)
	if err != nil {
		return nil, nil, err
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, nil, err
	}
	return pemBlock("CERTIFICATE", der), pemBlock("EC PRIVATE KEY", keyDER), nil
}

func pemBlock(typ string, der []byte) []byte {
	buf := new(bytes.Buffer)
	pem.Encode(buf, &pem.Block{Type: typ, Bytes: der})
	return buf.Bytes()
}

// newX509 returns a certificate template for the loopback addresses. If isCA is
// true the template can sign other certificates.
func newX509(cn string, isCA bool, serial int64) x509.Certificate {
	keyUsage := x509.KeyUsageDigitalSignature
	if isCA {
		keyUsage |= x509.KeyUsageCertSign
	}
	return x509.Certificate{
		SerialNumber:          big.NewInt(serial),
		Subject:               pkix.Name{CommonName: cn},
		IsCA:                  isCA,
		BasicConstraintsValid: true,
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		DNSNames:              []string{"localhost"},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().AddDate(1, 0, 0),
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth},
		KeyUsage:              keyUsage,
	}
}
