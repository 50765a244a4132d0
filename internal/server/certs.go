package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"time"
)

// CertParams holds parameters for generating a self-signed server certificate.
type CertParams struct {
	// CommonName is the CN field (default: the host name)
	CommonName string
	// Organization is the O field
	Organization string
	// DNSNames and IPs become Subject Alternative Names
	DNSNames []string
	IPs      []net.IP
	// ValidDays is certificate validity in days
	ValidDays int
}

// DefaultCertParams covers the local host name, localhost and loopback.
func DefaultCertParams() CertParams {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	names := []string{host, "localhost"}
	if host == "localhost" {
		names = names[:1]
	} else {
		names = append(names, host+".local")
	}
	return CertParams{
		CommonName:   host,
		Organization: "mikettle",
		DNSNames:     names,
		IPs:          []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		ValidDays:    365,
	}
}

// ServerCert represents a generated server certificate.
type ServerCert struct {
	CertPEM     []byte
	KeyPEM      []byte
	Certificate *x509.Certificate
}

// GenerateSelfSigned creates an ECDSA P-256 certificate signed by its own key.
// The certificate is kept in memory only and never written to disk.
func GenerateSelfSigned(params CertParams) (*ServerCert, error) {
	if params.ValidDays <= 0 {
		return nil, fmt.Errorf("certificate validity must be positive, got %d days", params.ValidDays)
	}

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial: %w", err)
	}

	notBefore := time.Now().Add(-time.Minute)
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{params.Organization},
			CommonName:   params.CommonName,
		},
		NotBefore: notBefore,
		NotAfter:  notBefore.AddDate(0, 0, params.ValidDays),

		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},

		DNSNames:    params.DNSNames,
		IPAddresses: params.IPs,

		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encode key: %w", err)
	}

	return &ServerCert{
		CertPEM:     pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}),
		KeyPEM:      pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}),
		Certificate: cert,
	}, nil
}

// generateCert creates a self-signed certificate for the local host
func generateCert() (*ServerCert, error) {
	return GenerateSelfSigned(DefaultCertParams())
}
