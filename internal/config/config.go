// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

// Package config provides layered application configuration:
// built-in defaults, an optional YAML file, and environment variable
// overrides, loaded through koanf v2 and validated at startup.
package config

import (
	"fmt"
	"time"

	"github.com/roamlab/questroute/internal/logging"
	"github.com/roamlab/questroute/internal/quest"
	"github.com/roamlab/questroute/internal/recommend"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Engine   EngineConfig   `koanf:"engine"`
	Reranker RerankerConfig `koanf:"reranker"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig configures the observability listener.
type ServerConfig struct {
	// Host is the listen address for /metrics and /healthz.
	// Default: 0.0.0.0
	Host string `koanf:"host"`

	// Port is the listen port.
	// Default: 9464
	Port int `koanf:"port"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StorageConfig configures the badger-backed quest catalog.
type StorageConfig struct {
	// Path is the badger data directory. Empty runs without
	// persistence, serving from the in-memory snapshot only.
	// Default: "" (no persistence)
	Path string `koanf:"path"`

	// SeedDemoData loads a small built-in catalog when the store is
	// empty. Intended for local development.
	// Default: false
	SeedDemoData bool `koanf:"seed_demo_data"`
}

// EngineConfig mirrors the recommendation engine parameters. It is
// converted to a recommend.Config at startup.
type EngineConfig struct {
	// Weights are the five scoring factor weights. They must sum to
	// exactly 1.0.
	Weights WeightsConfig `koanf:"weights"`

	// RadiusKm is the default candidate search radius.
	// Default: 15
	RadiusKm float64 `koanf:"radius_km"`

	// PoolCap is the maximum candidate pool size.
	// Default: 50
	PoolCap int `koanf:"pool_cap"`

	// MaxResults is the maximum itinerary length.
	// Default: 4
	MaxResults int `koanf:"max_results"`

	// CollectionOrder ranks the no-anchor fallback pool: "popularity"
	// or "recency".
	// Default: popularity
	CollectionOrder string `koanf:"collection_order"`
}

// WeightsConfig holds the scoring factor weights.
type WeightsConfig struct {
	// Default: 0.30
	Category float64 `koanf:"category"`
	// Default: 0.25
	Distance float64 `koanf:"distance"`
	// Default: 0.20
	Diversity float64 `koanf:"diversity"`
	// Default: 0.15
	Popularity float64 `koanf:"popularity"`
	// Default: 0.10
	Reward float64 `koanf:"reward"`
}

// RerankerConfig configures the optional AI reranker collaborator.
type RerankerConfig struct {
	// Enabled turns the rerank pass on. Requires URL.
	// Default: false
	Enabled bool `koanf:"enabled"`

	// URL is the collaborator endpoint for rerank calls.
	// Default: ""
	URL string `koanf:"url"`

	// APIKey is sent as a bearer token when non-empty.
	// Default: ""
	APIKey string `koanf:"api_key"`

	// TopK caps the candidates sent per call.
	// Default: 20
	TopK int `koanf:"top_k"`

	// MinPool is the smallest pool worth a rerank call.
	// Default: 5
	MinPool int `koanf:"min_pool"`

	// Timeout bounds a single rerank call.
	// Default: 4s
	Timeout time.Duration `koanf:"timeout"`

	// RatePerSecond and RateBurst configure the outbound limiter.
	// Defaults: 5, 10
	RatePerSecond float64 `koanf:"rate_per_second"`
	RateBurst     int     `koanf:"rate_burst"`

	// BreakerFailureThreshold consecutive failures open the breaker.
	// Default: 5
	BreakerFailureThreshold uint32 `koanf:"breaker_failure_threshold"`

	// BreakerOpenTimeout is the recovery probe delay.
	// Default: 30s
	BreakerOpenTimeout time.Duration `koanf:"breaker_open_timeout"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Default: info
	Level string `koanf:"level"`

	// Format is "json" or "console".
	// Default: json
	Format string `koanf:"format"`

	// Caller includes file and line in log events.
	// Default: false
	Caller bool `koanf:"caller"`
}

// EngineConfig converts the application settings into the engine's own
// configuration type.
func (c *Config) EngineConfig() *recommend.Config {
	return &recommend.Config{
		Weights: recommend.FactorWeights{
			Category:   c.Engine.Weights.Category,
			Distance:   c.Engine.Weights.Distance,
			Diversity:  c.Engine.Weights.Diversity,
			Popularity: c.Engine.Weights.Popularity,
			Reward:     c.Engine.Weights.Reward,
		},
		RadiusKm:        c.Engine.RadiusKm,
		PoolCap:         c.Engine.PoolCap,
		MaxResults:      c.Engine.MaxResults,
		CollectionOrder: quest.Order(c.Engine.CollectionOrder),
		Reranker: recommend.RerankerConfig{
			Enabled:                 c.Reranker.Enabled,
			TopK:                    c.Reranker.TopK,
			MinPool:                 c.Reranker.MinPool,
			Timeout:                 c.Reranker.Timeout,
			RatePerSecond:           c.Reranker.RatePerSecond,
			RateBurst:               c.Reranker.RateBurst,
			BreakerFailureThreshold: c.Reranker.BreakerFailureThreshold,
			BreakerOpenTimeout:      c.Reranker.BreakerOpenTimeout,
		},
	}
}

// LoggingConfig converts the logging section for logging.Init.
func (c *Config) LoggingConfig() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = c.Logging.Level
	lc.Format = c.Logging.Format
	lc.Caller = c.Logging.Caller
	return lc
}

// Validate checks the full configuration and fails fast on the first
// problem. The engine section is validated through the engine's own
// rules, including the weight-sum invariant.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive, got %v", c.Server.ShutdownTimeout)
	}

	if err := c.EngineConfig().Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	if c.Reranker.Enabled && c.Reranker.URL == "" {
		return fmt.Errorf("reranker.url is required when reranker.enabled is true")
	}

	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	return nil
}
