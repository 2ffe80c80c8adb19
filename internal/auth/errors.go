package auth

import "errors"

// Common authorization errors
var (
	// ErrMissingKeyConfig indicates neither a key URL nor an inline key was configured
	ErrMissingKeyConfig = errors.New("must provide either key url or key to validate tokens")

	// ErrInvalidKey indicates the configured or fetched key is not an RSA public key
	ErrInvalidKey = errors.New("invalid token verification key")

	// ErrKeyFetch indicates the verification key could not be retrieved
	ErrKeyFetch = errors.New("failed to fetch token verification key")

	// ErrMissingToken indicates the request carried no bearer token
	ErrMissingToken = errors.New("authentication token is missing")

	// ErrInvalidToken indicates the token is malformed or its signature does not verify
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token has expired
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrScopeClaim indicates the token's scope claims could not be read
	ErrScopeClaim = errors.New("malformed scope claim")
)
