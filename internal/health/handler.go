package health

import (
	"net/http"

	"github.com/icgc-argo/argo-service-template/internal/api/shared"
)

// Response is the body of the health endpoint.
type Response struct {
	DB      DBHealth `json:"db"`
	Version string   `json:"version"`
}

// Handler serves GET /health: 200 when the database is healthy, 500 otherwise.
type Handler struct {
	state   *State
	version string
}

// NewHandler constructs a health Handler reporting state and version.
func NewHandler(state *State, version string) *Handler {
	return &Handler{state: state, version: version}
}

// Version formats the reported version as "<version> - <commit id>".
func Version(version, commitID string) string {
	return version + " - " + commitID
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	db := h.state.Snapshot()

	status := http.StatusInternalServerError
	if db.Status == StatusOK {
		status = http.StatusOK
	}

	shared.RespondWithJSON(w, r, status, Response{DB: db, Version: h.version})
}
