// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

package recommend

import (
	"fmt"
	"math"
	"time"

	"github.com/roamlab/questroute/internal/quest"
)

// weightSumTolerance absorbs float formatting noise in config files;
// the weights still must sum to 1.0.
const weightSumTolerance = 1e-9

// Config contains all configuration for the recommendation engine.
// It is treated as immutable once the engine is constructed.
type Config struct {
	// Weights defines the contribution of each scoring factor.
	// These MUST sum to exactly 1.0; Validate rejects anything else.
	Weights FactorWeights `json:"weights"`

	// RadiusKm is the candidate search radius around the anchor.
	// Default: 15.
	RadiusKm float64 `json:"radius_km"`

	// PoolCap is the maximum candidate pool size.
	// Default: 50.
	PoolCap int `json:"pool_cap"`

	// MaxResults is the maximum number of quests in a result.
	// Default: 4.
	MaxResults int `json:"max_results"`

	// CollectionOrder ranks the no-anchor fallback pool.
	// Default: popularity.
	CollectionOrder quest.Order `json:"collection_order"`

	// Reranker contains parameters for the optional AI reranker.
	Reranker RerankerConfig `json:"reranker"`
}

// FactorWeights defines the contribution of each scoring factor.
type FactorWeights struct {
	// Category is the weight for theme/category matching.
	// Default: 0.30.
	Category float64 `json:"category"`

	// Distance is the weight for proximity to the anchor.
	// Default: 0.25.
	Distance float64 `json:"distance"`

	// Diversity is the weight for categories the user has not completed.
	// Default: 0.20.
	Diversity float64 `json:"diversity"`

	// Popularity is the weight for completion count.
	// Default: 0.15.
	Popularity float64 `json:"popularity"`

	// Reward is the weight for reward-point value.
	// Default: 0.10.
	Reward float64 `json:"reward"`
}

// Sum returns the total of all factor weights.
func (w FactorWeights) Sum() float64 {
	return w.Category + w.Distance + w.Diversity + w.Popularity + w.Reward
}

// ToMap returns the weights as a string-keyed map for logging and
// result breakdowns.
func (w FactorWeights) ToMap() map[string]float64 {
	return map[string]float64{
		"category":   w.Category,
		"distance":   w.Distance,
		"diversity":  w.Diversity,
		"popularity": w.Popularity,
		"reward":     w.Reward,
	}
}

// RerankerConfig contains parameters for the optional AI reranker.
type RerankerConfig struct {
	// Enabled controls whether reranking is attempted at all.
	// Default: false.
	Enabled bool `json:"enabled"`

	// TopK is the number of top-scored candidates sent for reranking.
	// Default: 20.
	TopK int `json:"top_k"`

	// MinPool is the minimum pool size worth reranking; smaller pools
	// skip straight to the deterministic path.
	// Default: 5.
	MinPool int `json:"min_pool"`

	// Timeout bounds a single rerank call.
	// Default: 4s.
	Timeout time.Duration `json:"timeout"`

	// RatePerSecond limits outbound rerank calls.
	// Default: 5.
	RatePerSecond float64 `json:"rate_per_second"`

	// RateBurst is the rate limiter burst size.
	// Default: 10.
	RateBurst int `json:"rate_burst"`

	// BreakerFailureThreshold is the consecutive failure count that
	// opens the circuit breaker.
	// Default: 5.
	BreakerFailureThreshold uint32 `json:"breaker_failure_threshold"`

	// BreakerOpenTimeout is how long the breaker stays open before
	// probing again.
	// Default: 30s.
	BreakerOpenTimeout time.Duration `json:"breaker_open_timeout"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		Weights: FactorWeights{
			Category:   0.30,
			Distance:   0.25,
			Diversity:  0.20,
			Popularity: 0.15,
			Reward:     0.10,
		},
		RadiusKm:        15,
		PoolCap:         50,
		MaxResults:      4,
		CollectionOrder: quest.OrderPopularity,
		Reranker: RerankerConfig{
			Enabled:                 false,
			TopK:                    20,
			MinPool:                 5,
			Timeout:                 4 * time.Second,
			RatePerSecond:           5,
			RateBurst:               10,
			BreakerFailureThreshold: 5,
			BreakerOpenTimeout:      30 * time.Second,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if w := c.Weights; w.Category < 0 || w.Distance < 0 || w.Diversity < 0 ||
		w.Popularity < 0 || w.Reward < 0 {
		return fmt.Errorf("weights must be non-negative, got %+v", c.Weights)
	}
	if sum := c.Weights.Sum(); math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("weights must sum to 1.0, got %f", sum)
	}

	if c.RadiusKm <= 0 {
		return fmt.Errorf("radius_km must be positive, got %f", c.RadiusKm)
	}
	if c.PoolCap < 1 {
		return fmt.Errorf("pool_cap must be positive, got %d", c.PoolCap)
	}
	if c.MaxResults < 1 {
		return fmt.Errorf("max_results must be positive, got %d", c.MaxResults)
	}
	if !c.CollectionOrder.Valid() {
		return fmt.Errorf("collection_order must be %q or %q, got %q",
			quest.OrderPopularity, quest.OrderRecency, c.CollectionOrder)
	}

	if c.Reranker.TopK < 1 {
		return fmt.Errorf("reranker.top_k must be positive, got %d", c.Reranker.TopK)
	}
	if c.Reranker.MinPool < 0 {
		return fmt.Errorf("reranker.min_pool must be non-negative, got %d", c.Reranker.MinPool)
	}
	if c.Reranker.Timeout <= 0 {
		return fmt.Errorf("reranker.timeout must be positive, got %v", c.Reranker.Timeout)
	}
	if c.Reranker.RatePerSecond <= 0 {
		return fmt.Errorf("reranker.rate_per_second must be positive, got %f", c.Reranker.RatePerSecond)
	}
	if c.Reranker.RateBurst < 1 {
		return fmt.Errorf("reranker.rate_burst must be positive, got %d", c.Reranker.RateBurst)
	}
	if c.Reranker.BreakerFailureThreshold < 1 {
		return fmt.Errorf("reranker.breaker_failure_threshold must be positive, got %d",
			c.Reranker.BreakerFailureThreshold)
	}
	if c.Reranker.BreakerOpenTimeout <= 0 {
		return fmt.Errorf("reranker.breaker_open_timeout must be positive, got %v",
			c.Reranker.BreakerOpenTimeout)
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	// All nested structs contain only value types.
	cp := *c
	return &cp
}
