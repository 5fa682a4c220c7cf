package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"resumescore/internal/errors"

	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *errors.Logger {
	return errors.Discard()
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{name: "int64 value", input: int64(42), expected: 42},
		{name: "float64 value", input: float64(42.0), expected: 42},
		{name: "json number", input: json.Number("7"), expected: 7},
		{name: "string value", input: "42", expected: 42},
		{name: "invalid string value", input: "not-a-number", expectError: true},
		{name: "invalid json number", input: json.Number("1.5"), expectError: true},
		{name: "unsupported type", input: []string{"42"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVersionValue(tt.input, "secret/data/test")

			if tt.expectError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestResolveVaultToken(t *testing.T) {
	logger := newTestLogger()

	t.Run("token from config", func(t *testing.T) {
		token, err := resolveVaultToken(VaultConfig{Token: "direct-token"}, logger)
		require.NoError(t, err)
		assert.Equal(t, "direct-token", token)
	})

	t.Run("token from file", func(t *testing.T) {
		tokenFile := filepath.Join(t.TempDir(), "vault-token")
		require.NoError(t, os.WriteFile(tokenFile, []byte("  file-token  \n"), 0600))

		token, err := resolveVaultToken(VaultConfig{TokenFile: tokenFile}, logger)
		require.NoError(t, err)
		assert.Equal(t, "file-token", token)
	})

	t.Run("missing token file", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{TokenFile: "/nonexistent/token/file"}, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read vault token file")
	})

	t.Run("no token provided", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{}, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "vault token is required")
	})
}

func TestVaultClientExtractSecretData(t *testing.T) {
	vc := &VaultClient{logger: newTestLogger()}

	data, err := vc.extractSecretData(&api.Secret{Data: map[string]any{
		"data": map[string]any{"secret": "s3cr3t"},
	}}, "secret/data/auth")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", data["secret"])

	_, err = vc.extractSecretData(&api.Secret{Data: map[string]any{"data": "flat"}}, "secret/data/auth")
	assert.Error(t, err)
}

func TestApplyTLSCerts(t *testing.T) {
	config := &Config{}
	n, err := applyTLSCerts(config, &VaultSecret{Data: map[string]any{"cert": "c", "key": "k"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "c", config.Server.TLS.CertContent)
	assert.Equal(t, "k", config.Server.TLS.KeyContent)

	_, err = applyTLSCerts(&Config{}, &VaultSecret{Data: map[string]any{"cert_file": "/path"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not supported")
}

func TestLoadTLSCertificateContent(t *testing.T) {
	config := &Config{}
	count := loadTLSCertificateContent(config, &VaultSecret{Data: map[string]any{
		"cert": "cert-content",
		"key":  123,
	}})

	assert.Equal(t, 1, count)
	assert.Equal(t, "cert-content", config.Server.TLS.CertContent)
	assert.Empty(t, config.Server.TLS.KeyContent)
}

func TestApplyAPIKeys(t *testing.T) {
	config := &Config{Server: ServerConfig{APIKeys: []string{"old"}}}

	n, err := applyAPIKeys(config, &VaultSecret{Data: map[string]any{"keys": " , "}})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []string{"old"}, config.Server.APIKeys)

	_, err = applyAPIKeys(config, &VaultSecret{Data: map[string]any{"keys": 42}})
	assert.Error(t, err)
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	config := &Config{Auth: AuthConfig{JWTSecret: "from-env"}}
	require.NoError(t, ApplyVaultSecrets(config, newTestLogger()))
	assert.Equal(t, "from-env", config.Auth.JWTSecret)
}

// fakeVault serves KV v2 responses for the given paths.
func fakeVault(t *testing.T, secrets map[string]map[string]any) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/v1/sys/health" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"initialized":  true,
				"sealed":       false,
				"version":      "1.15.0",
				"cluster_name": "test",
			})
			return
		}

		data, ok := secrets[strings.TrimPrefix(r.URL.Path, "/v1/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data":     data,
				"metadata": map[string]any{"version": 3},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestApplyVaultSecrets(t *testing.T) {
	srv := fakeVault(t, map[string]map[string]any{
		"secret/data/resumescore/api":  {"keys": "k1, k2"},
		"secret/data/resumescore/auth": {"secret": "signing-secret"},
		"secret/data/resumescore/db":   {"dsn": "postgres://u:p@db/resumescore"},
	})

	config := &Config{
		Vault: VaultConfig{
			Enabled: true,
			Address: srv.URL,
			Token:   "root",
			Secrets: VaultSecrets{
				APIKeys:   "secret/data/resumescore/api",
				JWTSecret: "secret/data/resumescore/auth",
				Database:  "secret/data/resumescore/db",
			},
		},
	}

	require.NoError(t, ApplyVaultSecrets(config, newTestLogger()))
	assert.Equal(t, []string{"k1", "k2"}, config.Server.APIKeys)
	assert.Equal(t, "signing-secret", config.Auth.JWTSecret)
	assert.Equal(t, "postgres://u:p@db/resumescore", config.Storage.DSN)
	assert.Empty(t, config.AI.APIKey)
}

func TestApplyVaultSecretsMissingSecret(t *testing.T) {
	srv := fakeVault(t, map[string]map[string]any{})

	config := &Config{
		Vault: VaultConfig{
			Enabled: true,
			Address: srv.URL,
			Token:   "root",
			Secrets: VaultSecrets{JWTSecret: "secret/data/missing"},
		},
	}

	err := ApplyVaultSecrets(config, newTestLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret")
}
