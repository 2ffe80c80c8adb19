package main

import (
	"net/http"

	"github.com/icgc-argo/argo-service-template/internal/api"
	"github.com/icgc-argo/argo-service-template/internal/health"
)

// setupRouter creates the application router from the application dependencies.
func (app *application) setupRouter() http.Handler {
	return api.NewRouter(api.RouterDeps{
		Logger:      app.logger,
		Authorizer:  app.authorizer,
		WriteScope:  app.config.Auth.WriteScope,
		Health:      health.NewHandler(app.dbHealth, health.Version(version, app.config.Server.CommitID)),
		OpenAPIPath: app.config.Server.OpenAPIPath,
		OpenAPISpec: app.openAPISpec,
	})
}
