package config

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTLSConfig(t *testing.T) {
	tests := []struct {
		name        string
		tls         TLSConfig
		expectError bool
		errorMsg    string
	}{
		{
			name: "disabled mode",
			tls:  TLSConfig{Mode: "disabled"},
		},
		{
			name: "server mode with files",
			tls: TLSConfig{
				Mode:     "server",
				CertFile: "/path/to/cert.pem",
				KeyFile:  "/path/to/key.pem",
			},
		},
		{
			name: "server mode with vault content",
			tls: TLSConfig{
				Mode:        "server",
				CertContent: "cert",
				KeyContent:  "key",
			},
		},
		{
			name:        "server mode missing key",
			tls:         TLSConfig{Mode: "server", CertFile: "/path/to/cert.pem"},
			expectError: true,
			errorMsg:    "certificate and key are required",
		},
		{
			name: "duplicate cert source",
			tls: TLSConfig{
				Mode:        "server",
				CertFile:    "/path/to/cert.pem",
				CertContent: "cert",
				KeyFile:     "/path/to/key.pem",
			},
			expectError: true,
			errorMsg:    "both certFile and certContent",
		},
		{
			name:        "mutual mode no longer supported",
			tls:         TLSConfig{Mode: "mutual"},
			expectError: true,
			errorMsg:    "invalid TLS mode: mutual",
		},
		{
			name: "bad min version",
			tls: TLSConfig{
				Mode:       "server",
				CertFile:   "/path/to/cert.pem",
				KeyFile:    "/path/to/key.pem",
				MinVersion: "1.1",
			},
			expectError: true,
			errorMsg:    "invalid TLS minVersion",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Server: ServerConfig{TLS: tt.tls}}
			err := c.ValidateTLSConfig()

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildServerTLS(t *testing.T) {
	t.Run("disabled returns nil", func(t *testing.T) {
		cfg, err := TLSConfig{Mode: "disabled"}.BuildServerTLS()
		require.NoError(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("missing files", func(t *testing.T) {
		_, err := TLSConfig{
			Mode:     "server",
			CertFile: "/nonexistent/cert.pem",
			KeyFile:  "/nonexistent/key.pem",
		}.BuildServerTLS()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load server certificate")
	})

	t.Run("invalid content", func(t *testing.T) {
		_, err := TLSConfig{Mode: "server", CertContent: "nope", KeyContent: "nope"}.BuildServerTLS()
		assert.Error(t, err)
	})


	t.Run("pem content with tls 1.3", func(t *testing.T) {
		certPEM, keyPEM := selfSignedPEM(t)
		cfg, err := TLSConfig{
			Mode:        "server",
			CertContent: string(certPEM),
			KeyContent:  string(keyPEM),
			MinVersion:  "1.3",
		}.BuildServerTLS()
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Len(t, cfg.Certificates, 1)
		assert.Equal(t, uint16(tls.VersionTLS13), cfg.MinVersion)
	})
}

func selfSignedPEM(t *testing.T) ([]byte, []byte) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM
}
