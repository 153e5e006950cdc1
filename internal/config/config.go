// Package config loads and validates polynote configuration from file,
// environment and defaults.
package config

import "errors"

// Config is the top-level configuration struct for polynote.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Session       SessionConfig       `mapstructure:"session"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// SessionConfig holds notebook session knobs.
type SessionConfig struct {
	// Resolver selects how library imports are resolved: "source" compiles
	// dependencies from source, "registry" restricts cells to packages
	// already registered in the session.
	Resolver string `mapstructure:"resolver"`

	// ImplicitCacheSize bounds the implicit-resolution memo. Zero disables
	// caching.
	ImplicitCacheSize int `mapstructure:"implicit_cache_size"`

	// Prune narrows each cell's dependency surface to what its body uses.
	Prune bool `mapstructure:"prune"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	ServiceName        string `mapstructure:"service_name"`
	OTLPEndpoint       string `mapstructure:"otlp_endpoint"`
	OTLPInsecure       bool   `mapstructure:"otlp_insecure"`
	LogLevel           string `mapstructure:"log_level"`
	LogJSON            bool   `mapstructure:"log_json"`
	MetricsAddr        string `mapstructure:"metrics_addr"`
	ShutdownTimeoutSec int    `mapstructure:"shutdown_timeout_sec"`
}

// Resolver modes.
const (
	ResolverSource   = "source"
	ResolverRegistry = "registry"
)

// Sentinel errors for configuration validation.
var (
	// ErrInvalidResolver indicates an unknown resolver mode.
	ErrInvalidResolver = errors.New("session.resolver must be source or registry")
	// ErrInvalidImplicitCacheSize indicates the cache size is negative.
	ErrInvalidImplicitCacheSize = errors.New("session.implicit_cache_size must be non-negative")
	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("observability.log_level must be debug, info, warn or error")
	// ErrInvalidShutdownTimeout indicates the shutdown timeout is not positive.
	ErrInvalidShutdownTimeout = errors.New("observability.shutdown_timeout_sec must be positive")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	sessionErr := c.validateSession()
	if sessionErr != nil {
		return sessionErr
	}

	return c.validateObservability()
}

func (c *Config) validateSession() error {
	switch c.Session.Resolver {
	case ResolverSource, ResolverRegistry:
	default:
		return ErrInvalidResolver
	}

	if c.Session.ImplicitCacheSize < 0 {
		return ErrInvalidImplicitCacheSize
	}

	return nil
}

func (c *Config) validateObservability() error {
	switch c.Observability.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}

	if c.Observability.ShutdownTimeoutSec <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}
