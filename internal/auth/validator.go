package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/icgc-argo/argo-service-template/internal/platform/logger"
	"github.com/icgc-argo/argo-service-template/internal/redact"
)

// Outcome classifies the result of validating a token.
type Outcome int

const (
	// OutcomeInvalid means the token is absent, malformed, expired or not signed by the key.
	OutcomeInvalid Outcome = iota
	// OutcomeValid means the token verified and its claims can be trusted.
	OutcomeValid
	// OutcomeKeyError means the verification key could not be resolved.
	OutcomeKeyError
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeKeyError:
		return "key_error"
	default:
		return "invalid"
	}
}

// Result is the outcome of Validate. Claims is set only for OutcomeValid;
// Err explains the other outcomes.
type Result struct {
	Outcome Outcome
	Claims  *Claims
	Err     error
}

// Validator verifies RS256 tokens against a KeySource.
type Validator struct {
	keys KeySource
	now  func() time.Time
}

// NewValidator creates a Validator that resolves keys through keys.
func NewValidator(keys KeySource, opts ...Option) *Validator {
	o := newOptions(opts)
	return &Validator{
		keys: keys,
		now:  o.now,
	}
}

// Validate checks the token's structure, signature and time claims.
// It never returns an error; every failure is folded into the Result.
func (v *Validator) Validate(ctx context.Context, tokenString string) Result {
	log := logger.FromContext(ctx)

	if tokenString == "" {
		return Result{Outcome: OutcomeInvalid, Err: ErrMissingToken}
	}

	key, err := v.keys.PublicKey(ctx)
	if err != nil {
		if !errors.Is(err, ErrKeyFetch) {
			err = fmt.Errorf("%w: %w", ErrKeyFetch, err)
		}
		log.Error("failed to resolve token verification key", "error", redact.Error(err))
		return Result{Outcome: OutcomeKeyError, Err: err}
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(*jwt.Token) (interface{}, error) {
			return key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		reason := ErrInvalidToken
		if errors.Is(err, jwt.ErrTokenExpired) {
			reason = ErrExpiredToken
		}
		log.Debug("token validation failed",
			"reason", reason.Error(),
			"error", redact.Error(err),
			"error_type", fmt.Sprintf("%T", err))
		return Result{Outcome: OutcomeInvalid, Err: fmt.Errorf("%w: %w", reason, err)}
	}
	if !token.Valid {
		return Result{Outcome: OutcomeInvalid, Err: ErrInvalidToken}
	}

	log.Debug("token validated successfully",
		slog.String("subject", claims.Subject))

	return Result{Outcome: OutcomeValid, Claims: claims}
}
