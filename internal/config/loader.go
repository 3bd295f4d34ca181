package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if WILDLIFE_CONFIG is set
//  3. env (prefix WILDLIFE_)
func Load(_ context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("WILDLIFE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: WILDLIFE_ADDR, WILDLIFE_DATABASE_URL, ...
	// Map env keys like WILDLIFE_SYNC_QUEUE_SIZE -> sync_queue_size.
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("WILDLIFE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "wildlife_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.KoboServerURL == "" {
		return fmt.Errorf("%w: kobo_server_url must not be empty", ErrInvalidConfig)
	}
	if c.KoboTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: kobo_timeout_seconds must be positive", ErrInvalidConfig)
	}
	if c.SyncQueueSize <= 0 {
		return fmt.Errorf("%w: sync_queue_size must be positive", ErrInvalidConfig)
	}
	if c.SyncWorkerCount <= 0 {
		return fmt.Errorf("%w: sync_worker_count must be positive", ErrInvalidConfig)
	}
	return nil
}
