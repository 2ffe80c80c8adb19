package testutils

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer signs RS256 tokens with a throwaway key pair, standing in for
// the identity provider in tests.
type TokenIssuer struct {
	Key *rsa.PrivateKey
}

// NewTokenIssuer generates a fresh 2048-bit key pair.
func NewTokenIssuer(t testing.TB) *TokenIssuer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	return &TokenIssuer{Key: key}
}

// PublicKeyPEM returns the PKIX PEM encoding of the public key.
func (i *TokenIssuer) PublicKeyPEM(t testing.TB) string {
	t.Helper()

	der, err := x509.MarshalPKIXPublicKey(&i.Key.PublicKey)
	if err != nil {
		t.Fatalf("failed to marshal public key: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

// Sign signs claims with RS256.
func (i *TokenIssuer) Sign(t testing.TB, claims jwt.Claims) string {
	t.Helper()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(i.Key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

// ScopedToken returns a token valid for an hour granting scopes through the
// "context.scope" claim.
func (i *TokenIssuer) ScopedToken(t testing.TB, scopes ...string) string {
	t.Helper()

	if scopes == nil {
		scopes = []string{}
	}
	now := time.Now()
	return i.Sign(t, jwt.MapClaims{
		"sub": "test-user",
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
		"context": map[string]interface{}{
			"scope": scopes,
		},
	})
}

// ExpiredToken returns a token granting scopes that expired a minute ago.
func (i *TokenIssuer) ExpiredToken(t testing.TB, scopes ...string) string {
	t.Helper()

	now := time.Now()
	return i.Sign(t, jwt.MapClaims{
		"sub": "test-user",
		"iat": now.Add(-2 * time.Hour).Unix(),
		"exp": now.Add(-time.Minute).Unix(),
		"context": map[string]interface{}{
			"scope": scopes,
		},
	})
}
