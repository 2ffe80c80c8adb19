package vault

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/icgc-argo/argo-service-template/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVault serves a single secret path and the kubernetes login endpoint.
func fakeVault(t *testing.T, secretPath string, body interface{}) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/v1/auth/kubernetes/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req["role"] != "svc-role" || req["jwt"] != "sa-jwt" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"auth": map[string]interface{}{"client_token": "k8s-token"},
		})
	})
	mux.HandleFunc("/v1/"+secretPath, func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Vault-Token")
		if token != "root-token" && token != "k8s-token" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadSecret(t *testing.T) {
	t.Setenv("VAULT_TOKEN", "")

	tests := []struct {
		name string
		body interface{}
		want map[string]string
	}{
		{
			name: "kv version 2",
			body: map[string]interface{}{
				"data": map[string]interface{}{
					"data":     map[string]interface{}{"DB_USERNAME": "admin", "DB_PASSWORD": "secret"},
					"metadata": map[string]interface{}{"version": 3},
				},
			},
			want: map[string]string{"DB_USERNAME": "admin", "DB_PASSWORD": "secret"},
		},
		{
			name: "kv version 1",
			body: map[string]interface{}{
				"data": map[string]interface{}{"DB_URL": "mongodb://db:27017", "DB_PORT": 27017},
			},
			want: map[string]string{"DB_URL": "mongodb://db:27017", "DB_PORT": "27017"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakeVault(t, "kv/data/service", tt.body)

			client, err := New(context.Background(), config.VaultConfig{URL: srv.URL, Token: "root-token"})
			require.NoError(t, err)

			got, err := client.LoadSecret(context.Background(), "kv/data/service")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadSecret_Errors(t *testing.T) {
	t.Setenv("VAULT_TOKEN", "")

	srv := fakeVault(t, "kv/data/service", map[string]interface{}{"data": map[string]interface{}{}})

	t.Run("missing path", func(t *testing.T) {
		client, err := New(context.Background(), config.VaultConfig{URL: srv.URL, Token: "root-token"})
		require.NoError(t, err)

		_, err = client.LoadSecret(context.Background(), "kv/data/other")
		assert.ErrorIs(t, err, ErrSecretNotFound)
	})

	t.Run("permission denied", func(t *testing.T) {
		client, err := New(context.Background(), config.VaultConfig{URL: srv.URL, Token: "wrong"})
		require.NoError(t, err)

		_, err = client.LoadSecret(context.Background(), "kv/data/service")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "permission denied")
	})
}

func TestKubernetesLogin(t *testing.T) {
	t.Setenv("VAULT_TOKEN", "")

	srv := fakeVault(t, "kv/data/service", map[string]interface{}{
		"data": map[string]interface{}{
			"data":     map[string]interface{}{"DB_NAME": "appdb"},
			"metadata": map[string]interface{}{},
		},
	})

	tokenPath := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(tokenPath, []byte("sa-jwt\n"), 0o600))

	t.Run("login then read", func(t *testing.T) {
		client, err := New(context.Background(),
			config.VaultConfig{URL: srv.URL, AuthMethod: "kubernetes", Role: "svc-role"},
			WithServiceAccountTokenPath(tokenPath))
		require.NoError(t, err)

		got, err := client.LoadSecret(context.Background(), "kv/data/service")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"DB_NAME": "appdb"}, got)
	})

	t.Run("rejected role", func(t *testing.T) {
		_, err := New(context.Background(),
			config.VaultConfig{URL: srv.URL, AuthMethod: "kubernetes", Role: "other"},
			WithServiceAccountTokenPath(tokenPath))
		assert.ErrorIs(t, err, ErrLogin)
	})

	t.Run("missing service account token", func(t *testing.T) {
		_, err := New(context.Background(),
			config.VaultConfig{URL: srv.URL, AuthMethod: "kubernetes", Role: "svc-role"},
			WithServiceAccountTokenPath(filepath.Join(t.TempDir(), "absent")))
		assert.ErrorIs(t, err, ErrLogin)
	})
}
