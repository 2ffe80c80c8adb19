package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/icgc-argo/argo-service-template/internal/api/shared"
	"github.com/icgc-argo/argo-service-template/internal/auth"
	"github.com/icgc-argo/argo-service-template/internal/platform/logger"
	"github.com/icgc-argo/argo-service-template/internal/redact"
)

// Response bodies written by the authorizer.
const (
	MsgUnauthorized  = "this request needs a valid jwt to authenticate."
	MsgMissingScopes = "Forbidden, jwt missing the required scopes"
	MsgForbidden     = "Forbidden"
)

// Authorizer builds middleware that guards a route with a required scope.
type Authorizer interface {
	Require(scope string) func(http.Handler) http.Handler
}

// ErrorHandler writes the response for an error a middleware could not handle itself.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Option customizes a ScopeAuthorizer.
type Option func(*authorizerOptions)

type authorizerOptions struct {
	errorHandler ErrorHandler
	cacheTTL     time.Duration
	authOpts     []auth.Option
}

// WithErrorHandler sets the handler that receives key resolution failures.
// By default they are answered with a plain 500.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *authorizerOptions) {
		o.errorHandler = h
	}
}

// WithKeyCacheTTL sets how long a key fetched from the key URL is cached.
func WithKeyCacheTTL(ttl time.Duration) Option {
	return func(o *authorizerOptions) {
		if ttl > 0 {
			o.cacheTTL = ttl
		}
	}
}

// WithAuthOptions passes options through to the key source and validator.
func WithAuthOptions(opts ...auth.Option) Option {
	return func(o *authorizerOptions) {
		o.authOpts = append(o.authOpts, opts...)
	}
}

// ScopeAuthorizer validates bearer tokens and checks their scopes.
type ScopeAuthorizer struct {
	validator    *auth.Validator
	errorHandler ErrorHandler
}

// NewScopeAuthorizer creates an authorizer verifying tokens with the key at
// keyURL or the inline key. It returns auth.ErrMissingKeyConfig when both
// are empty.
func NewScopeAuthorizer(keyURL, key string, opts ...Option) (*ScopeAuthorizer, error) {
	o := authorizerOptions{
		errorHandler: defaultErrorHandler,
		cacheTTL:     auth.DefaultKeyCacheTTL,
	}
	for _, opt := range opts {
		opt(&o)
	}

	keys, err := auth.NewKeySource(keyURL, key, o.cacheTTL, o.authOpts...)
	if err != nil {
		return nil, err
	}

	return &ScopeAuthorizer{
		validator:    auth.NewValidator(keys, o.authOpts...),
		errorHandler: o.errorHandler,
	}, nil
}

// Require returns middleware admitting only requests whose token grants scope.
// Requests without a valid token get 401, tokens lacking the scope get 403.
// Verified claims are available downstream through ClaimsFromContext.
func (a *ScopeAuthorizer) Require(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.FromContext(r.Context())

			result := a.validator.Validate(r.Context(), extractToken(r))
			switch result.Outcome {
			case auth.OutcomeKeyError:
				a.errorHandler(w, r, result.Err)
				return
			case auth.OutcomeInvalid:
				log.Debug("rejected request without a valid token", "error", redact.Error(result.Err))
				shared.RespondWithText(w, r, http.StatusUnauthorized, MsgUnauthorized)
				return
			}

			scopes, err := result.Claims.Scopes()
			if err != nil {
				log.Error("failed to read token scopes", "error", redact.Error(err))
				shared.RespondWithText(w, r, http.StatusForbidden, MsgForbidden)
				return
			}
			if !slices.Contains(scopes, scope) {
				log.Debug("token missing required scope",
					"required_scope", scope,
					"subject", result.Claims.Subject)
				shared.RespondWithText(w, r, http.StatusForbidden, MsgMissingScopes)
				return
			}

			ctx := context.WithValue(r.Context(), shared.ClaimsContextKey, result.Claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NoopAuthorizer is used when auth is disabled. Every request passes.
type NoopAuthorizer struct{}

// Require implements Authorizer. It logs a warning for each request.
func (NoopAuthorizer) Require(string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.FromContext(r.Context()).Warn("calling protected endpoint without auth enabled")
			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromContext returns the claims of the token that authorized the request.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(shared.ClaimsContextKey).(*auth.Claims)
	return claims, ok
}

// extractToken looks for the token in the Authorization header, then the
// "authorization" field of a JSON body, then the "key" query parameter.
// The authorization value is expected as "<scheme> <token>".
func extractToken(r *http.Request) string {
	authorization := r.Header.Get("Authorization")
	if authorization == "" && shared.IsJSON(r) {
		var body struct {
			Authorization string `json:"authorization"`
		}
		if err := shared.PeekJSON(r, &body); err == nil {
			authorization = body.Authorization
		}
	}

	if authorization != "" {
		parts := strings.Split(authorization, " ")
		if len(parts) < 2 {
			return ""
		}
		return parts[1]
	}

	return r.URL.Query().Get("key")
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Error", err)
}
