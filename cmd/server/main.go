// Package main implements the entry point for the service: it loads the
// configuration, connects the database health reporter and serves the HTTP
// API until it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"fmt"
	"log"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

// run wires the application together and blocks until the server stops.
func run(ctx context.Context) error {
	cfg, err := loadAppConfig(ctx)
	if err != nil {
		return err
	}

	logger, err := setupAppLogger(cfg)
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	app.startHealthMonitor()
	return app.startHTTPServer(ctx, app.setupRouter())
}
