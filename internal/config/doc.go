// Package config defines the application configuration structures and the
// loading logic that populates them from environment variables and optional
// config files. Configuration is validated on load; the rest of the
// application can assume a Config it receives is well-formed.
package config
