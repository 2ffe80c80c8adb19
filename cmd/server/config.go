package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/icgc-argo/argo-service-template/internal/config"
	"github.com/icgc-argo/argo-service-template/internal/platform/vault"
)

// loadAppConfig loads the application configuration from the environment,
// reading secrets from vault when it is enabled.
func loadAppConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx, config.WithSecretLoader(newSecretLoader))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"auth_enabled", cfg.Auth.Enabled,
		"vault_enabled", cfg.Vault.Enabled)

	if cfg.Auth.Enabled {
		slog.Debug("Auth configuration",
			"key_url_present", cfg.Auth.JWTKeyURL != "",
			"key_present", cfg.Auth.JWTKey != "",
			"write_scope", cfg.Auth.WriteScope)
	}

	return cfg, nil
}

func newSecretLoader(ctx context.Context, cfg config.VaultConfig) (config.SecretLoader, error) {
	client, err := vault.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}
