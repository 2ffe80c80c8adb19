package api

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/icgc-argo/argo-service-template/internal/platform/logger"
)

// ErrPanic is passed to HandleError when a handler panics.
var ErrPanic = errors.New("internal server error")

// HandlerFunc is an http handler that can fail. A returned error is passed
// to HandleError.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Wrap adapts h to http.HandlerFunc, forwarding any error to HandleError.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			HandleError(w, r, err)
		}
	}
}

// Recoverer turns a panic in next into a 500 answered by HandleError. The
// panic value and stack are logged, never sent to the client.
// http.ErrAbortHandler is re-raised so the server can abort the connection.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler { //nolint:errorlint
				panic(rec)
			}

			logger.FromContext(r.Context()).Error("recovered from panic",
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()))
			HandleError(w, r, ErrPanic)
		}()

		next.ServeHTTP(w, r)
	})
}
