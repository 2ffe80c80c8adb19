// Package mongo builds the MongoDB client from the database configuration.
// The service only uses it to report database health.
package mongo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/icgc-argo/argo-service-template/internal/config"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// ClientOptions translates cfg into driver options: the connection URL,
// credentials when a username is set, and the default write concern with
// its acknowledgement timeout.
func ClientOptions(cfg config.DatabaseConfig) (*options.ClientOptions, error) {
	opts := options.Client().ApplyURI(cfg.URL)

	if cfg.Username != "" {
		opts.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	if wc := writeConcern(cfg); wc != nil {
		opts.SetWriteConcern(wc)
	}

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}
	return opts, nil
}

// writeConcern accepts a node count ("1") or a tag such as "majority".
func writeConcern(cfg config.DatabaseConfig) *writeconcern.WriteConcern {
	if cfg.WriteConcern == "" {
		return nil
	}

	var w interface{} = cfg.WriteConcern
	if n, err := strconv.Atoi(cfg.WriteConcern); err == nil {
		w = n
	}
	return &writeconcern.WriteConcern{
		W:        w,
		WTimeout: cfg.WriteAckTimeout(),
	}
}

// Connect creates a client for cfg. The driver connects lazily, so an
// unreachable server is not an error here; it surfaces on the first Ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*driver.Client, error) {
	opts, err := ClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	client, err := driver.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create database client: %w", err)
	}
	return client, nil
}
