// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

// Package quest defines the quest catalog model and its storage
// interfaces, with an in-memory spatially-indexed store and a
// Badger-backed persistent catalog.
package quest

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/roamlab/questroute/internal/geo"
	"github.com/roamlab/questroute/internal/taxonomy"
)

// ErrNotFound is returned when a quest identifier does not resolve.
var ErrNotFound = errors.New("quest not found")

// Order selects the ranking used for the no-anchor fallback pool.
type Order string

const (
	// OrderPopularity ranks by completion count, highest first.
	OrderPopularity Order = "popularity"
	// OrderRecency ranks by creation time, newest first.
	OrderRecency Order = "recency"
)

// Valid reports whether o is a known collection order.
func (o Order) Valid() bool {
	return o == OrderPopularity || o == OrderRecency
}

// Quest is one recommendable unit tied to a physical place.
type Quest struct {
	ID           string         `json:"id" validate:"required"`
	PlaceID      string         `json:"place_id" validate:"required"`
	Name         string         `json:"name" validate:"required"`
	Description  string         `json:"description,omitempty"`
	Category     string         `json:"category"`
	District     string         `json:"district,omitempty"`
	Group        taxonomy.Group `json:"group"`
	Location     geo.Point      `json:"location"`
	RewardPoints int            `json:"reward_points" validate:"gte=0"`
	Completions  int64          `json:"completions" validate:"gte=0"`
	Active       bool           `json:"active"`
	Metadata     string         `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`

	// SpecialEligible marks quests that may occupy the reserved
	// night-view slot. Derived once via DeriveSpecialEligible.
	SpecialEligible bool `json:"special_eligible"`
}

// Keyword sets checked against each text field. Metadata and
// description carry the longer phrase variants; the name field only
// matches the strongest markers to avoid false positives.
var (
	specialMetadataKeywords    = []string{"night_view", "night_scene", "night_viewing", "야경", "야경명소"}
	specialDescriptionKeywords = []string{"night view", "night scene", "야경", "야경명소", "야경 포인트"}
	specialNameKeywords        = []string{"night view", "야경"}
)

// DeriveSpecialEligible computes the special-slot eligibility flag from
// the quest's metadata, description, and name.
func (q *Quest) DeriveSpecialEligible() {
	q.SpecialEligible = containsAny(q.Metadata, specialMetadataKeywords) ||
		containsAny(q.Description, specialDescriptionKeywords) ||
		containsAny(q.Name, specialNameKeywords)
}

func containsAny(s string, keywords []string) bool {
	if s == "" {
		return false
	}
	s = strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (q *Quest) Clone() *Quest {
	cp := *q
	return &cp
}

// PlaceStore serves quest lookups for the recommendation engine.
// Implementations must never return inactive quests from the pool
// queries; Get returns inactive quests so callers can decide.
type PlaceStore interface {
	// Get resolves a quest by identifier. Returns ErrNotFound when absent.
	Get(ctx context.Context, id string) (*Quest, error)

	// WithinRadius returns active quests within radiusKm of the anchor,
	// nearest first, capped at limit.
	WithinRadius(ctx context.Context, anchor geo.Point, radiusKm float64, limit int) ([]*Quest, error)

	// TopActive returns up to limit active quests ranked by the given
	// order. Used when no anchor is available.
	TopActive(ctx context.Context, order Order, limit int) ([]*Quest, error)
}

// HistoryStore supplies a user's completion history. Implementations
// should degrade to empty sets rather than fail the recommendation.
type HistoryStore interface {
	// CompletedCategories returns the canonical categories the user has
	// finished, for diversity scoring.
	CompletedCategories(ctx context.Context, userID string) (map[taxonomy.Group]bool, error)

	// CompletedQuestIDs returns the quest IDs the user has finished;
	// these are excluded from the candidate pool.
	CompletedQuestIDs(ctx context.Context, userID string) (map[string]bool, error)
}
