package api

import (
	"errors"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/icgc-argo/argo-service-template/internal/api/shared"
	"github.com/icgc-argo/argo-service-template/internal/platform/logger"
)

// Errors a handler can return to select the response status.
var (
	// ErrUnauthorized maps to 401
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden maps to 403
	ErrForbidden = errors.New("forbidden")
)

// Error names sent in the "error" field of error responses.
const (
	NameUnauthorized = "Unauthorized"
	NameForbidden    = "Forbidden"
	NameError        = "Error"
)

// MapErrorToStatusCode maps an error to its HTTP status code. Anything not
// recognised is a 500.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ErrorName returns the error class reported to clients.
func ErrorName(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return NameUnauthorized
	case errors.Is(err, ErrForbidden):
		return NameForbidden
	default:
		return NameError
	}
}

// HandleError is the central error handler. It answers with a JSON body
// {"error": <name>, "message": <redacted message>} unless the response has
// already been started, in which case it only logs.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Error("error handler received error", "error_name", ErrorName(err))

	if responseStarted(w) {
		log.Debug("error handler skipped")
		return
	}

	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), ErrorName(err), err)
}

// responseStarted reports whether a status has already been written. Only
// writers wrapped by chi's WrapResponseWriter can tell; others are assumed
// untouched.
func responseStarted(w http.ResponseWriter) bool {
	ww, ok := w.(chimw.WrapResponseWriter)
	return ok && ww.Status() != 0
}
