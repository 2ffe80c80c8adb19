// Package api assembles the HTTP surface of the service: the router, the
// route handlers and the central error handler that turns errors returned
// by handlers and middleware into responses.
package api
