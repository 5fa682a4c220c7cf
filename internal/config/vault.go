package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/vault/api"

	"resumescore/internal/errors"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets names the KV v2 paths secrets are read from. An empty path leaves the
// configured value alone.
type VaultSecrets struct {
	APIKeys   string `mapstructure:"apiKeys"`   // key "keys", comma-separated
	JWTSecret string `mapstructure:"jwtSecret"` // key "secret"
	Database  string `mapstructure:"database"`  // key "dsn"
	GeminiKey string `mapstructure:"geminiKey"` // key "api_key"
	TLSCerts  string `mapstructure:"tlsCerts"`  // keys "cert" and "key", PEM content
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	client *api.Client
	logger *errors.Logger
}

// VaultSecret is the payload of a KV v2 secret.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// NewVaultClient connects to Vault and checks its health. It returns nil when Vault is disabled.
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !config.Enabled {
		return nil, nil
	}

	vaultConfig := api.DefaultConfig()
	if config.Address != "" {
		vaultConfig.Address = config.Address
	}
	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	token, err := resolveVaultToken(config, logger)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vault at %s: %w", config.Address, err)
	}
	logger.Info("Connected to Vault", "address", config.Address, "version", health.Version, "sealed", health.Sealed)

	return &VaultClient{client: client, logger: logger}, nil
}

// resolveVaultToken prefers the inline token over the token file
func resolveVaultToken(config VaultConfig, logger *errors.Logger) (string, error) {
	token := config.Token
	if token == "" && config.TokenFile != "" {
		logger.Debug("Reading Vault token from file", "file", config.TokenFile)
		raw, err := os.ReadFile(config.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// GetSecretV2 reads a KV v2 secret
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	data, err := vc.extractSecretData(secret, path)
	if err != nil {
		return nil, err
	}
	metadata, ok := secret.Data["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	version, err := parseVersionValue(metadata["version"], path)
	if err != nil {
		return nil, err
	}

	vc.logger.Debug("Read secret from Vault", "path", path, "version", version)
	return &VaultSecret{Data: data, Version: version}, nil
}

func (vc *VaultClient) extractSecretData(secret *api.Secret, path string) (map[string]any, error) {
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	return data, nil
}

// parseVersionValue accepts the shapes the Vault client decodes numbers into
func parseVersionValue(raw any, path string) (int64, error) {
	switch v := raw.(type) {
	case json.Number:
		version, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, raw)
	}
}

// secretBinding copies fields of one Vault secret into the config
type secretBinding struct {
	label string
	path  string
	apply func(cfg *Config, s *VaultSecret) (int, error)
}

// stringField sets *target from a string key. A blank value keeps the current setting.
func stringField(key string, target func(*Config) *string) func(*Config, *VaultSecret) (int, error) {
	return func(cfg *Config, s *VaultSecret) (int, error) {
		raw, ok := s.Data[key]
		if !ok {
			return 0, fmt.Errorf("key '%s' not found", key)
		}
		value, ok := raw.(string)
		if !ok {
			return 0, fmt.Errorf("value for key '%s' is not a string", key)
		}
		if value == "" {
			return 0, nil
		}
		*target(cfg) = value
		return 1, nil
	}
}

func applyAPIKeys(cfg *Config, s *VaultSecret) (int, error) {
	raw, ok := s.Data["keys"].(string)
	if !ok {
		return 0, fmt.Errorf("key 'keys' is missing or not a string")
	}
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return 0, nil
	}
	cfg.Server.APIKeys = keys
	return len(keys), nil
}

// loadTLSCertificateContent copies PEM content; non-string values are skipped
func loadTLSCertificateContent(cfg *Config, s *VaultSecret) int {
	loaded := 0
	for key, target := range map[string]*string{
		"cert": &cfg.Server.TLS.CertContent,
		"key":  &cfg.Server.TLS.KeyContent,
	} {
		if content, ok := s.Data[key].(string); ok && content != "" {
			*target = content
			loaded++
		}
	}
	return loaded
}

func applyTLSCerts(cfg *Config, s *VaultSecret) (int, error) {
	for _, field := range []string{"cert_file", "key_file"} {
		if _, ok := s.Data[field]; ok {
			return 0, fmt.Errorf("'%s' is not supported, store PEM content under '%s'", field, strings.TrimSuffix(field, "_file"))
		}
	}
	return loadTLSCertificateContent(cfg, s), nil
}

func (s VaultSecrets) bindings() []secretBinding {
	return []secretBinding{
		{"API keys", s.APIKeys, applyAPIKeys},
		{"JWT secret", s.JWTSecret, stringField("secret", func(c *Config) *string { return &c.Auth.JWTSecret })},
		{"database DSN", s.Database, stringField("dsn", func(c *Config) *string { return &c.Storage.DSN })},
		{"Gemini API key", s.GeminiKey, stringField("api_key", func(c *Config) *string { return &c.AI.APIKey })},
		{"TLS certificates", s.TLSCerts, applyTLSCerts},
	}
}

// ApplyVaultSecrets overlays secrets stored in Vault onto config
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if !config.Vault.Enabled {
		logger.Debug("Vault integration disabled, skipping secret loading")
		return nil
	}

	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		return errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to initialize vault client", err)
	}

	for _, b := range config.Vault.Secrets.bindings() {
		if b.path == "" {
			continue
		}
		secret, err := client.GetSecretV2(b.path)
		if err == nil {
			var n int
			if n, err = b.apply(config, secret); err == nil {
				if n == 0 {
					logger.Warn("Empty secret found in Vault", "secret", b.label, "path", b.path)
				} else {
					logger.Info("Secret loaded from Vault", "secret", b.label, "values", n)
				}
				continue
			}
		}
		return errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("failed to load %s from vault", b.label), err).WithContext("path", b.path)
	}
	return nil
}
