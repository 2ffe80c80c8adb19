// Package vault reads secret bundles from HashiCorp Vault.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	vaultapi "github.com/hashicorp/vault/api"
	"github.com/icgc-argo/argo-service-template/internal/config"
)

// AuthMethodKubernetes selects the Kubernetes service account login.
const AuthMethodKubernetes = "kubernetes"

// DefaultServiceAccountTokenPath is where Kubernetes mounts the pod's service account token.
const DefaultServiceAccountTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

const kubernetesLoginPath = "auth/kubernetes/login"

var (
	// ErrSecretNotFound is returned when nothing is stored at the requested path.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrLogin is returned when the client could not obtain a vault token.
	ErrLogin = errors.New("vault login failed")
)

// Client reads secrets with a single attempt per call.
type Client struct {
	client *vaultapi.Client
}

// Option customizes New.
type Option func(*clientOptions)

type clientOptions struct {
	serviceAccountTokenPath string
}

// WithServiceAccountTokenPath overrides the file the Kubernetes login reads its JWT from.
func WithServiceAccountTokenPath(path string) Option {
	return func(o *clientOptions) {
		o.serviceAccountTokenPath = path
	}
}

// New creates a client for cfg.URL and authenticates it. With the
// kubernetes auth method it logs in using cfg.Role and the pod's service
// account token, otherwise it uses cfg.Token.
func New(ctx context.Context, cfg config.VaultConfig, opts ...Option) (*Client, error) {
	o := clientOptions{serviceAccountTokenPath: DefaultServiceAccountTokenPath}
	for _, opt := range opts {
		opt(&o)
	}

	conf := vaultapi.DefaultConfig()
	if conf.Error != nil {
		return nil, fmt.Errorf("failed to read vault environment: %w", conf.Error)
	}
	if cfg.URL != "" {
		conf.Address = cfg.URL
	}
	conf.MaxRetries = 0

	client, err := vaultapi.NewClient(conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	if strings.EqualFold(cfg.AuthMethod, AuthMethodKubernetes) {
		token, err := kubernetesLogin(ctx, client, cfg.Role, o.serviceAccountTokenPath)
		if err != nil {
			return nil, err
		}
		client.SetToken(token)
	} else if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	return &Client{client: client}, nil
}

func kubernetesLogin(ctx context.Context, client *vaultapi.Client, role, tokenPath string) (string, error) {
	jwt, err := os.ReadFile(tokenPath)
	if err != nil {
		return "", fmt.Errorf("%w: reading service account token: %w", ErrLogin, err)
	}

	secret, err := client.Logical().WriteWithContext(ctx, kubernetesLoginPath, map[string]interface{}{
		"role": role,
		"jwt":  strings.TrimSpace(string(jwt)),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLogin, err)
	}
	if secret == nil || secret.Auth == nil || secret.Auth.ClientToken == "" {
		return "", fmt.Errorf("%w: no client token in response", ErrLogin)
	}
	return secret.Auth.ClientToken, nil
}

// LoadSecret implements config.SecretLoader. Values of KV version 2
// secrets are unwrapped from their "data" envelope. Non-string values are
// formatted with fmt.
func (c *Client) LoadSecret(ctx context.Context, path string) (map[string]string, error) {
	secret, err := c.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, path)
	}

	data := secret.Data
	if inner, ok := data["data"].(map[string]interface{}); ok {
		if _, versioned := data["metadata"]; versioned {
			data = inner
		}
	}

	out := make(map[string]string, len(data))
	for k, v := range data {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out, nil
}
