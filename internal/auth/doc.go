// Package auth validates RS256 bearer tokens issued by the identity provider
// and extracts the permission scopes they grant.
//
// The verification key is either configured inline or fetched from a URL and
// kept in a single-entry cache with a refresh-ahead window. Validation
// reports an explicit Outcome so callers can map each case to a response.
package auth
