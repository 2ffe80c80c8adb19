package auth_test

import (
	"context"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/icgc-argo/argo-service-template/internal/auth"
	"github.com/icgc-argo/argo-service-template/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingKeySource struct{ err error }

func (f failingKeySource) PublicKey(context.Context) (*rsa.PublicKey, error) {
	return nil, f.err
}

func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	issuer := testutils.NewTokenIssuer(t)
	other := testutils.NewTokenIssuer(t)

	keys, err := auth.NewStaticKey(issuer.PublicKeyPEM(t))
	require.NoError(t, err)
	validator := auth.NewValidator(keys)

	hsToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "test-user",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	tests := []struct {
		name        string
		token       string
		wantOutcome auth.Outcome
		wantErr     error
	}{
		{
			name:        "valid token",
			token:       issuer.ScopedToken(t, "SERVICE.WRITE"),
			wantOutcome: auth.OutcomeValid,
		},
		{
			name:        "missing token",
			token:       "",
			wantOutcome: auth.OutcomeInvalid,
			wantErr:     auth.ErrMissingToken,
		},
		{
			name:        "expired token",
			token:       issuer.ExpiredToken(t, "SERVICE.WRITE"),
			wantOutcome: auth.OutcomeInvalid,
			wantErr:     auth.ErrExpiredToken,
		},
		{
			name:        "signed by another key",
			token:       other.ScopedToken(t, "SERVICE.WRITE"),
			wantOutcome: auth.OutcomeInvalid,
			wantErr:     auth.ErrInvalidToken,
		},
		{
			name:        "malformed token",
			token:       "not.a.jwt",
			wantOutcome: auth.OutcomeInvalid,
			wantErr:     auth.ErrInvalidToken,
		},
		{
			name:        "hmac signed token",
			token:       hsToken,
			wantOutcome: auth.OutcomeInvalid,
			wantErr:     auth.ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := validator.Validate(context.Background(), tt.token)

			assert.Equal(t, tt.wantOutcome, result.Outcome, "outcome %s", result.Outcome)
			if tt.wantErr != nil {
				assert.ErrorIs(t, result.Err, tt.wantErr)
				assert.Nil(t, result.Claims)
				return
			}
			require.NoError(t, result.Err)
			require.NotNil(t, result.Claims)
			assert.Equal(t, "test-user", result.Claims.Subject)

			ok, err := result.Claims.HasScope("SERVICE.WRITE")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestValidator_UsesClock(t *testing.T) {
	t.Parallel()

	issuer := testutils.NewTokenIssuer(t)
	keys, err := auth.NewStaticKey(issuer.PublicKeyPEM(t))
	require.NoError(t, err)

	token := issuer.ScopedToken(t, "SERVICE.WRITE")
	later := func() time.Time { return time.Now().Add(2 * time.Hour) }

	result := auth.NewValidator(keys, auth.WithClock(later)).Validate(context.Background(), token)

	assert.Equal(t, auth.OutcomeInvalid, result.Outcome)
	assert.ErrorIs(t, result.Err, auth.ErrExpiredToken)
}

func TestValidator_KeyError(t *testing.T) {
	t.Parallel()

	issuer := testutils.NewTokenIssuer(t)
	validator := auth.NewValidator(failingKeySource{err: errors.New("dial tcp: connection refused")})

	result := validator.Validate(context.Background(), issuer.ScopedToken(t))

	assert.Equal(t, auth.OutcomeKeyError, result.Outcome)
	assert.ErrorIs(t, result.Err, auth.ErrKeyFetch)
	assert.Nil(t, result.Claims)
}

func TestOutcome_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "valid", auth.OutcomeValid.String())
	assert.Equal(t, "invalid", auth.OutcomeInvalid.String())
	assert.Equal(t, "key_error", auth.OutcomeKeyError.String())
}
