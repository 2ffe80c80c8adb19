package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/icgc-argo/argo-service-template/internal/api/docs"
	"github.com/icgc-argo/argo-service-template/internal/api/middleware"
	"github.com/icgc-argo/argo-service-template/internal/api/shared"
)

// Response bodies of the example routes.
const (
	MsgHello     = "hello world"
	MsgProtected = "Hello World from Protected"
)

// RouterDeps holds what the router needs to register its routes.
type RouterDeps struct {
	Logger      *slog.Logger
	Authorizer  middleware.Authorizer
	WriteScope  string
	Health      http.Handler
	OpenAPIPath string
	OpenAPISpec []byte
}

// NewRouter creates the application router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.NewTraceMiddleware(deps.Logger))
	r.Use(Recoverer)

	r.Get("/", Wrap(func(w http.ResponseWriter, r *http.Request) error {
		shared.RespondWithText(w, r, http.StatusOK, MsgHello)
		return nil
	}))

	r.Method(http.MethodGet, "/health", deps.Health)

	r.With(deps.Authorizer.Require(deps.WriteScope)).
		Get("/protected", Wrap(func(w http.ResponseWriter, r *http.Request) error {
			shared.RespondWithText(w, r, http.StatusOK, MsgProtected)
			return nil
		}))

	docs.Mount(r, deps.OpenAPIPath, deps.OpenAPISpec)

	return r
}
