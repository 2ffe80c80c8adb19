package auth

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of an identity provider token.
//
// Scopes are granted through the "context.scope" array. Tokens from plain
// OAuth servers carry a top-level "scope" claim instead, which is used when
// no context scopes are present. Both are decoded lazily by Scopes so that a
// malformed scope claim does not invalidate an otherwise valid token.
type Claims struct {
	Context json.RawMessage `json:"context,omitempty"`
	Scope   json.RawMessage `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Scopes returns the permission scopes granted by the token.
func (c *Claims) Scopes() ([]string, error) {
	if present(c.Context) {
		var tokenCtx struct {
			Scope []string `json:"scope"`
		}
		if err := json.Unmarshal(c.Context, &tokenCtx); err != nil {
			return nil, fmt.Errorf("%w: context: %w", ErrScopeClaim, err)
		}
		if tokenCtx.Scope != nil {
			return tokenCtx.Scope, nil
		}
	}

	if present(c.Scope) {
		return parseScopeClaim(c.Scope)
	}

	return nil, nil
}

// HasScope reports whether the token grants scope.
func (c *Claims) HasScope(scope string) (bool, error) {
	scopes, err := c.Scopes()
	if err != nil {
		return false, err
	}
	return slices.Contains(scopes, scope), nil
}

// parseScopeClaim accepts an OAuth space-delimited string or a JSON array.
func parseScopeClaim(raw json.RawMessage) ([]string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.Fields(s), nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: scope: %w", ErrScopeClaim, err)
	}
	return list, nil
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}
