// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/roamlab/questroute/internal/quest"
)

// DefaultConfigPaths lists the paths searched for a config file, in
// priority order. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/questroute/config.yaml",
	"/etc/questroute/config.yml",
}

// ConfigPathEnvVar overrides the config file search when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults. They are applied first,
// then overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            9464,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Path:         "",
			SeedDemoData: false,
		},
		Engine: EngineConfig{
			Weights: WeightsConfig{
				Category:   0.30,
				Distance:   0.25,
				Diversity:  0.20,
				Popularity: 0.15,
				Reward:     0.10,
			},
			RadiusKm:        15,
			PoolCap:         50,
			MaxResults:      4,
			CollectionOrder: string(quest.OrderPopularity),
		},
		Reranker: RerankerConfig{
			Enabled:                 false,
			URL:                     "",
			APIKey:                  "",
			TopK:                    20,
			MinPool:                 5,
			Timeout:                 4 * time.Second,
			RatePerSecond:           5,
			RateBurst:               10,
			BreakerFailureThreshold: 5,
			BreakerOpenTimeout:      30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file (CONFIG_PATH or the default paths)
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or empty
// when none is present.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to config paths.
// Unmapped variables are skipped so unrelated environment noise cannot
// leak into the configuration.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - ENGINE_RADIUS_KM -> engine.radius_km
//   - RERANKER_URL -> reranker.url
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server mappings
		"http_host":        "server.host",
		"http_port":        "server.port",
		"shutdown_timeout": "server.shutdown_timeout",

		// Storage mappings
		"badger_path":    "storage.path",
		"seed_demo_data": "storage.seed_demo_data",

		// Engine mappings
		"engine_radius_km":        "engine.radius_km",
		"engine_pool_cap":         "engine.pool_cap",
		"engine_max_results":      "engine.max_results",
		"engine_collection_order": "engine.collection_order",
		"weight_category":         "engine.weights.category",
		"weight_distance":         "engine.weights.distance",
		"weight_diversity":        "engine.weights.diversity",
		"weight_popularity":       "engine.weights.popularity",
		"weight_reward":           "engine.weights.reward",

		// Reranker mappings
		"reranker_enabled":           "reranker.enabled",
		"reranker_url":               "reranker.url",
		"reranker_api_key":           "reranker.api_key",
		"reranker_top_k":             "reranker.top_k",
		"reranker_min_pool":          "reranker.min_pool",
		"reranker_timeout":           "reranker.timeout",
		"reranker_rate_per_second":   "reranker.rate_per_second",
		"reranker_rate_burst":        "reranker.rate_burst",
		"reranker_breaker_failures":  "reranker.breaker_failure_threshold",
		"reranker_breaker_open_time": "reranker.breaker_open_timeout",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
