// Package config loads the service configuration from environment variables,
// an optional .env file and, when enabled, a secret bundle fetched from the
// secret store. Secret values take precedence over the environment, which in
// turn takes precedence over built-in defaults.
package config
