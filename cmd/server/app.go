package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/icgc-argo/argo-service-template/internal/api"
	"github.com/icgc-argo/argo-service-template/internal/api/docs"
	"github.com/icgc-argo/argo-service-template/internal/api/middleware"
	"github.com/icgc-argo/argo-service-template/internal/auth"
	"github.com/icgc-argo/argo-service-template/internal/config"
	"github.com/icgc-argo/argo-service-template/internal/health"
	"github.com/icgc-argo/argo-service-template/internal/platform/mongo"
	driver "go.mongodb.org/mongo-driver/mongo"
)

// disconnectTimeout bounds closing the database client during cleanup.
const disconnectTimeout = 5 * time.Second

// application holds the shared dependencies and ensures proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	dbClient    *driver.Client
	dbHealth    *health.State
	stopMonitor context.CancelFunc

	authorizer  middleware.Authorizer
	openAPISpec []byte
}

// newApplication creates the application with all dependencies initialized.
// The database client is created but not dialed; connectivity is reported
// by the health monitor.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	authorizer, err := newAuthorizer(cfg.Auth, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize authorizer: %w", err)
	}

	spec, err := docs.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi document: %w", err)
	}

	client, err := mongo.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	logger.Info("Database client initialized", "write_concern", cfg.Database.WriteConcern)

	return &application{
		config:      cfg,
		logger:      logger,
		dbClient:    client,
		dbHealth:    health.NewState(),
		authorizer:  authorizer,
		openAPISpec: spec,
	}, nil
}

// newAuthorizer returns the scope authorizer, or a pass-through one when auth is disabled.
func newAuthorizer(cfg config.AuthConfig, logger *slog.Logger) (middleware.Authorizer, error) {
	if !cfg.Enabled {
		logger.Warn("auth is disabled, protected endpoints are open")
		return middleware.NoopAuthorizer{}, nil
	}

	authorizer, err := middleware.NewScopeAuthorizer(cfg.JWTKeyURL, cfg.JWTKey,
		middleware.WithErrorHandler(api.HandleError),
		middleware.WithKeyCacheTTL(cfg.KeyCacheTTL),
		middleware.WithAuthOptions(auth.WithLogger(logger.With("component", "auth"))),
	)
	if err != nil {
		return nil, err
	}
	return authorizer, nil
}

// startHealthMonitor pings the database in the background until cleanup.
func (app *application) startHealthMonitor() {
	if app.dbClient == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.stopMonitor = cancel

	monitor := health.NewMonitor(
		app.dbClient,
		app.dbHealth,
		app.config.Database.HealthInterval,
		app.logger.With("component", "db_health"),
	)
	go monitor.Run(ctx)
}

// cleanup stops background work and closes the database client.
func (app *application) cleanup() {
	if app.stopMonitor != nil {
		app.stopMonitor()
	}

	if app.dbClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
		defer cancel()
		if err := app.dbClient.Disconnect(ctx); err != nil {
			app.logger.Error("Failed to disconnect database client", "error", err)
		}
	}
}
