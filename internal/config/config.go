package config

import "time"

// Config holds all application configuration.
// It is built once at startup and not modified afterwards.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Vault    VaultConfig    `mapstructure:"vault"`
}

// ServerConfig contains HTTP server and process level settings.
type ServerConfig struct {
	Port        int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel    string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	OpenAPIPath string `mapstructure:"openapi_path" validate:"required,startswith=/"`
	// CommitID is reported next to the build version by the health endpoint.
	CommitID string `mapstructure:"commit_id"`
}

// DatabaseConfig contains the document database connection settings.
type DatabaseConfig struct {
	Name     string `mapstructure:"name"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// URL overrides the whole connection string.
	URL          string `mapstructure:"url"`
	WriteConcern string `mapstructure:"write_concern"`
	// WriteAckTimeoutMS is the write concern acknowledgement timeout in
	// milliseconds. A zero or non-numeric setting falls back to 5000.
	WriteAckTimeoutMS int           `mapstructure:"-" validate:"gte=0"`
	HealthInterval    time.Duration `mapstructure:"health_interval" validate:"gt=0"`
}

// WriteAckTimeout returns the acknowledgement timeout as a duration.
func (c DatabaseConfig) WriteAckTimeout() time.Duration {
	return time.Duration(c.WriteAckTimeoutMS) * time.Millisecond
}

// KafkaConfig contains the messaging broker settings.
type KafkaConfig struct {
	MessagingEnabled bool     `mapstructure:"-"`
	ClientID         string   `mapstructure:"client_id"`
	Brokers          []string `mapstructure:"brokers"`
}

// AuthConfig contains the bearer token authorization settings.
// Enabled is true unless AUTH_ENABLED is exactly "false". When Enabled is
// true at least one of JWTKeyURL or JWTKey must be set.
type AuthConfig struct {
	Enabled     bool          `mapstructure:"-"`
	JWTKeyURL   string        `mapstructure:"jwt_key_url"`
	JWTKey      string        `mapstructure:"jwt_key"`
	WriteScope  string        `mapstructure:"write_scope" validate:"required"`
	KeyCacheTTL time.Duration `mapstructure:"key_cache_ttl" validate:"gt=0"`
}

// VaultConfig contains the secret store settings.
// Enabled is only true when VAULT_ENABLED is exactly "true".
type VaultConfig struct {
	Enabled     bool   `mapstructure:"-"`
	SecretsPath string `mapstructure:"secrets_path"`
	URL         string `mapstructure:"url"`
	Token       string `mapstructure:"token"`
	AuthMethod  string `mapstructure:"auth_method"`
	Role        string `mapstructure:"role"`
}
