// Package health tracks the database health status and serves it on the
// health endpoint. A Monitor keeps the status current by pinging the
// database on an interval.
package health
