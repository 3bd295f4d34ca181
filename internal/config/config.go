// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load(ctx) layers defaults, an optional YAML file, and env vars.
// - External errors must be wrapped via this package's error helpers.
package config

import "time"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// DatabaseURL is the Postgres DSN. Empty selects the in-memory store.
	DatabaseURL string `koanf:"database_url"`

	// KoboServerURL points at the KoboToolbox deployment.
	KoboServerURL string `koanf:"kobo_server_url"`

	// KoboAPIToken authenticates against the Kobo API.
	KoboAPIToken string `koanf:"kobo_api_token"`

	// KoboTimeoutSeconds bounds each provider request.
	KoboTimeoutSeconds int `koanf:"kobo_timeout_seconds"`

	// KoboRetryCount sets how often failed provider requests are retried.
	KoboRetryCount int `koanf:"kobo_retry_count"`

	// SyncQueueSize bounds the in-memory provider sync queue.
	SyncQueueSize int `koanf:"sync_queue_size"`

	// SyncWorkerCount sets the number of sync workers.
	SyncWorkerCount int `koanf:"sync_worker_count"`

	// DedupeSize sets the size of the instance deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// SchemaCacheTTLSeconds bounds how long normalized schemas are reused.
	SchemaCacheTTLSeconds int `koanf:"schema_cache_ttl_seconds"`

	// MaxListLimit caps list endpoints' limit query parameter.
	MaxListLimit int `koanf:"max_list_limit"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":8000",
		KoboServerURL:         "https://kf.kobotoolbox.org",
		KoboTimeoutSeconds:    30,
		KoboRetryCount:        2,
		SyncQueueSize:         10_000,
		SyncWorkerCount:       4,
		DedupeSize:            50_000,
		SchemaCacheTTLSeconds: 300,
		MaxListLimit:          100,
	}
}

// KoboTimeout returns the provider timeout as a duration.
func (c *Config) KoboTimeout() time.Duration {
	return time.Duration(c.KoboTimeoutSeconds) * time.Second
}

// SchemaCacheTTL returns the schema cache TTL as a duration.
func (c *Config) SchemaCacheTTL() time.Duration {
	return time.Duration(c.SchemaCacheTTLSeconds) * time.Second
}
