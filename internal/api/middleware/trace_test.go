package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/icgc-argo/argo-service-template/internal/api/middleware"
	"github.com/icgc-argo/argo-service-template/internal/api/shared"
	"github.com/icgc-argo/argo-service-template/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceMiddleware(t *testing.T) {
	logBuf, log := logger.SetupTestLogger(t)

	var traceID string
	handler := middleware.NewTraceMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())

		_, wrapped := w.(chimw.WrapResponseWriter)
		assert.True(t, wrapped, "the response writer should be wrapped")

		logger.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusAccepted)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	_, err := uuid.Parse(traceID)
	require.NoError(t, err, "trace id should be a UUID")
	assert.Equal(t, traceID, w.Header().Get(middleware.TraceIDHeader))
	assert.Equal(t, http.StatusAccepted, w.Code)

	entries, err := logBuf.GetLogEntries()
	require.NoError(t, err)

	var sawHandler, sawCompleted bool
	for _, e := range entries {
		switch e["msg"] {
		case "inside handler":
			sawHandler = true
			assert.Equal(t, traceID, e["trace_id"])
		case "request completed":
			sawCompleted = true
			assert.EqualValues(t, http.StatusAccepted, e["status"])
		}
	}
	assert.True(t, sawHandler, "handler logs carry the trace id")
	assert.True(t, sawCompleted)
}

func TestTraceMiddleware_UniquePerRequest(t *testing.T) {
	_, log := logger.SetupTestLogger(t)

	seen := map[string]bool{}
	handler := middleware.NewTraceMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[shared.GetTraceID(r.Context())] = true
	}))

	for i := 0; i < 5; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}

	assert.Len(t, seen, 5)
}
