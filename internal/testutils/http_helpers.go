package testutils

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// CreateTestServer creates a httptest server with the given handler.
// Automatically registers cleanup via t.Cleanup() so callers don't need to manually close the server.
func CreateTestServer(t testing.TB, handler http.Handler) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(func() {
		server.Close()
	})
	return server
}

// KeyServer is a public key endpoint that answers every request with a
// fixed status and body.
type KeyServer struct {
	*httptest.Server
	hits atomic.Int32
}

// NewKeyServer serves pem with status 200.
func NewKeyServer(t testing.TB, pem string) *KeyServer {
	t.Helper()
	return NewKeyServerWithStatus(t, http.StatusOK, pem)
}

// NewKeyServerWithStatus serves body with the given status.
func NewKeyServerWithStatus(t testing.TB, status int, body string) *KeyServer {
	t.Helper()

	ks := &KeyServer{}
	ks.Server = CreateTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ks.hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	return ks
}

// Hits returns how many requests the server has received.
func (k *KeyServer) Hits() int {
	return int(k.hits.Load())
}
