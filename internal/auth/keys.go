package auth

import (
	"context"
	"crypto/rsa"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// maxKeySize bounds the body read from the key endpoint.
const maxKeySize = 64 << 10

// DefaultKeyCacheTTL is how long a fetched key is trusted before it is refetched.
const DefaultKeyCacheTTL = time.Hour

// KeySource resolves the public key used to verify token signatures.
type KeySource interface {
	PublicKey(ctx context.Context) (*rsa.PublicKey, error)
}

// NewKeySource returns an inline key source when key is set, otherwise a
// cached URL source. It returns ErrMissingKeyConfig when both are empty.
func NewKeySource(keyURL, key string, ttl time.Duration, opts ...Option) (KeySource, error) {
	switch {
	case key != "":
		return NewStaticKey(key)
	case keyURL != "":
		return NewURLKey(keyURL, ttl, opts...), nil
	default:
		return nil, ErrMissingKeyConfig
	}
}

// StaticKey is a key configured inline. It is parsed once.
type StaticKey struct {
	key *rsa.PublicKey
}

// NewStaticKey parses a PEM encoded RSA public key.
func NewStaticKey(pem string) (*StaticKey, error) {
	key, err := ParsePublicKey(pem)
	if err != nil {
		return nil, err
	}
	return &StaticKey{key: key}, nil
}

// PublicKey implements KeySource.
func (s *StaticKey) PublicKey(context.Context) (*rsa.PublicKey, error) {
	return s.key, nil
}

// URLKey fetches the key from an HTTP endpoint returning the PEM text and
// caches it for the configured TTL.
type URLKey struct {
	url    string
	client *http.Client
	cache  *KeyCache
}

// NewURLKey creates a key source for url whose fetched key lives for ttl.
func NewURLKey(url string, ttl time.Duration, opts ...Option) *URLKey {
	o := newOptions(opts)
	k := &URLKey{
		url:    url,
		client: o.httpClient,
	}
	k.cache = NewKeyCache(k.fetch, ttl, opts...)
	return k
}

// PublicKey implements KeySource.
func (k *URLKey) PublicKey(ctx context.Context) (*rsa.PublicKey, error) {
	return k.cache.Get(ctx)
}

// fetch makes a single attempt; failures are returned to the caller.
func (k *URLKey) fetch(ctx context.Context) (*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyFetch, err)
	}

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d from %s", ErrKeyFetch, resp.StatusCode, k.url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxKeySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrKeyFetch, err)
	}

	key, err := ParsePublicKey(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyFetch, err)
	}
	return key, nil
}

// ParsePublicKey parses an RSA public key from PEM. Bare base64 bodies
// without the BEGIN/END armour and escaped "\n" sequences, as commonly found
// in environment variables, are accepted too.
func ParsePublicKey(pem string) (*rsa.PublicKey, error) {
	pem = strings.TrimSpace(strings.ReplaceAll(pem, `\n`, "\n"))
	if pem == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if !strings.Contains(pem, "-----BEGIN") {
		pem = "-----BEGIN PUBLIC KEY-----\n" + pem + "\n-----END PUBLIC KEY-----"
	}

	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return key, nil
}
