// Package testutils provides helpers shared by tests across the module:
// a token issuer standing in for the identity provider, and a public key
// endpoint that counts how often it is fetched.
package testutils
