package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	// ErrSecretsPathMissing is returned when vault is enabled without VAULT_SECRETS_PATH.
	ErrSecretsPathMissing = errors.New("path to secrets not specified but vault is enabled")

	// ErrSecretsLoad is returned when the secret bundle could not be fetched.
	ErrSecretsLoad = errors.New("failed to load secrets from vault")

	// ErrNoSecretLoader is returned when vault is enabled but Load was not given a way to reach it.
	ErrNoSecretLoader = errors.New("vault is enabled but no secret loader is configured")
)

// SecretLoader fetches a key/value secret bundle stored at path.
type SecretLoader interface {
	LoadSecret(ctx context.Context, path string) (map[string]string, error)
}

// SecretLoaderFactory builds a SecretLoader from the vault settings.
// It is only invoked when vault is enabled.
type SecretLoaderFactory func(ctx context.Context, cfg VaultConfig) (SecretLoader, error)

// Option customizes Load.
type Option func(*loadOptions)

type loadOptions struct {
	envFile      string
	secretLoader SecretLoaderFactory
}

// WithEnvFile sets the dotenv file read before the environment. An empty
// path disables dotenv loading. The default is ".env".
func WithEnvFile(path string) Option {
	return func(o *loadOptions) {
		o.envFile = path
	}
}

// WithSecretLoader sets the factory used to reach the secret store.
func WithSecretLoader(f SecretLoaderFactory) Option {
	return func(o *loadOptions) {
		o.secretLoader = f
	}
}

// envBindings maps configuration keys to the environment variables they are read from.
var envBindings = []struct {
	key    string
	envVar string
}{
	{"server.port", "PORT"},
	{"server.log_level", "LOG_LEVEL"},
	{"server.openapi_path", "OPENAPI_PATH"},
	{"server.commit_id", "SVC_COMMIT_ID"},
	{"database.name", "DB_NAME"},
	{"database.username", "DB_USERNAME"},
	{"database.password", "DB_PASSWORD"},
	{"database.url", "DB_URL"},
	{"database.write_concern", "DEFAULT_WRITE_CONCERN"},
	{"database.write_ack_timeout", "DEFAULT_WRITE_ACK_TIMEOUT"},
	{"database.health_interval", "DB_HEALTH_INTERVAL"},
	{"kafka.brokers", "KAFKA_BROKERS"},
	{"kafka.client_id", "KAFKA_CLIENT_ID"},
	{"kafka.messaging_enabled", "KAFKA_MESSAGING_ENABLED"},
	{"auth.enabled", "AUTH_ENABLED"},
	{"auth.jwt_key_url", "JWT_KEY_URL"},
	{"auth.jwt_key", "JWT_KEY"},
	{"auth.write_scope", "WRITE_SCOPE"},
	{"auth.key_cache_ttl", "JWT_KEY_CACHE_TTL"},
	{"vault.enabled", "VAULT_ENABLED"},
	{"vault.secrets_path", "VAULT_SECRETS_PATH"},
	{"vault.url", "VAULT_URL"},
	{"vault.token", "VAULT_TOKEN"},
	{"vault.auth_method", "VAULT_AUTH_METHOD"},
	{"vault.role", "VAULT_ROLE"},
}

// secretOverrides lists the secret bundle entries that replace environment values.
var secretOverrides = []struct {
	secret string
	key    string
}{
	{"DB_NAME", "database.name"},
	{"DB_USERNAME", "database.username"},
	{"DB_PASSWORD", "database.password"},
	{"DB_URL", "database.url"},
}

// Load builds the configuration. It reads the dotenv file if present, then
// the environment, then (when VAULT_ENABLED is true) the secret bundle at
// VAULT_SECRETS_PATH. Any error here is meant to abort startup.
func Load(ctx context.Context, opts ...Option) (*Config, error) {
	o := loadOptions{envFile: ".env"}
	for _, opt := range opts {
		opt(&o)
	}

	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read env file %s: %w", o.envFile, err)
		}
	}

	v, err := newViper()
	if err != nil {
		return nil, err
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}

	if cfg.Vault.Enabled {
		secrets, err := loadSecrets(ctx, cfg.Vault, o.secretLoader)
		if err != nil {
			return nil, err
		}
		for _, s := range secretOverrides {
			if val := secrets[s.secret]; val != "" {
				v.Set(s.key, val)
			}
		}
		if cfg, err = unmarshal(v); err != nil {
			return nil, err
		}
	}

	slog.Debug("building app context")
	cfg.Kafka.Brokers = cleanList(cfg.Kafka.Brokers)

	validate := validator.New()
	validate.RegisterStructValidation(validateAuth, AuthConfig{})
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// defaultWriteAckTimeoutMS replaces a zero or unparsable DEFAULT_WRITE_ACK_TIMEOUT.
const defaultWriteAckTimeoutMS = 5000

// unmarshal decodes v into a Config. The enable flags and the ack timeout
// are matched literally rather than through viper's lenient conversions, so
// "0" or "no" never switch authorization off.
func unmarshal(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	cfg.Auth.Enabled = v.GetString("auth.enabled") != "false"
	cfg.Vault.Enabled = v.GetString("vault.enabled") == "true"
	cfg.Kafka.MessagingEnabled = v.GetString("kafka.messaging_enabled") == "true"
	cfg.Database.WriteAckTimeoutMS = parseAckTimeout(v.GetString("database.write_ack_timeout"))

	return cfg, nil
}

func parseAckTimeout(raw string) int {
	ms, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || ms == 0 {
		return defaultWriteAckTimeoutMS
	}
	return ms
}

func newViper() (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.openapi_path", "/api-docs")
	v.SetDefault("server.commit_id", "")
	v.SetDefault("database.url", "mongodb://localhost:27027/appdb")
	v.SetDefault("database.write_concern", "majority")
	v.SetDefault("database.write_ack_timeout", defaultWriteAckTimeoutMS)
	v.SetDefault("database.health_interval", 30*time.Second)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.client_id", "")
	v.SetDefault("kafka.messaging_enabled", "false")
	v.SetDefault("auth.enabled", "true")
	v.SetDefault("auth.write_scope", "SERVICE.WRITE")
	v.SetDefault("auth.key_cache_ttl", time.Hour)
	v.SetDefault("vault.enabled", "false")

	for _, b := range envBindings {
		if err := v.BindEnv(b.key, b.envVar); err != nil {
			return nil, fmt.Errorf("error binding environment variable %s: %w", b.envVar, err)
		}
	}

	return v, nil
}

func loadSecrets(ctx context.Context, cfg VaultConfig, factory SecretLoaderFactory) (map[string]string, error) {
	if cfg.SecretsPath == "" {
		return nil, ErrSecretsPathMissing
	}
	if factory == nil {
		return nil, ErrNoSecretLoader
	}

	loader, err := factory(ctx, cfg)
	if err != nil {
		slog.Error("failed to create secret loader", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSecretsLoad, err)
	}

	secrets, err := loader.LoadSecret(ctx, cfg.SecretsPath)
	if err != nil {
		slog.Error("failed to load secrets", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSecretsLoad, err)
	}

	return secrets, nil
}

// validateAuth rejects an enabled auth section with no way to obtain a verification key.
func validateAuth(sl validator.StructLevel) {
	auth := sl.Current().Interface().(AuthConfig)
	if auth.Enabled && auth.JWTKeyURL == "" && auth.JWTKey == "" {
		sl.ReportError(auth.JWTKeyURL, "JWTKeyURL", "JWTKeyURL", "required_with_auth", "")
	}
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
