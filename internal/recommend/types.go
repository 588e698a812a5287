// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

// Package recommend implements the quest itinerary recommendation
// engine: candidate collection, five-factor scoring, constrained slot
// selection, and an optional AI rerank pass with deterministic
// fallback.
//
// Pipeline: collect → score → select → (optionally) rerank. Every
// stage degrades gracefully; a request never fails because a
// collaborator (history, reranker) is unavailable.
package recommend

import (
	"time"

	"github.com/roamlab/questroute/internal/geo"
	"github.com/roamlab/questroute/internal/quest"
	"github.com/roamlab/questroute/internal/taxonomy"
)

// Request describes one recommendation call.
type Request struct {
	// UserID identifies the requesting user for history lookup and
	// session records. Optional; an empty ID yields no diversity data.
	UserID string `json:"user_id,omitempty"`

	// Start is the explicit itinerary start point, preferred over
	// Current when both are present.
	Start *geo.Point `json:"start,omitempty"`

	// Current is the device's current position.
	Current *geo.Point `json:"current,omitempty"`

	// Themes is an ordered list of preference tokens (at most 4).
	// Any match wins; order only matters for tie-breaks upstream.
	Themes []string `json:"themes,omitempty" validate:"omitempty,max=4,dive,min=1"`

	// CategoryHint is consulted only when Themes is empty.
	CategoryHint string `json:"category_hint,omitempty"`

	// Districts is informational only; it is recorded but never used
	// as a hard filter.
	Districts []string `json:"districts,omitempty"`

	// MustVisitID names a quest that must appear in the result if it
	// exists, fetched directly when not in the collected pool.
	MustVisitID string `json:"must_visit_id,omitempty"`

	// RadiusKm overrides the configured search radius when positive.
	RadiusKm float64 `json:"radius_km,omitempty" validate:"gte=0,lte=100"`

	// K caps the result length when positive; it never raises the
	// configured maximum.
	K int `json:"k,omitempty" validate:"gte=0,lte=20"`

	// UseReranker requests the AI rerank pass for this call. It is
	// still subject to the engine-level Reranker.Enabled switch.
	UseReranker bool `json:"use_reranker,omitempty"`
}

// Anchor resolves the distance reference point for this request.
func (r *Request) Anchor() *geo.Point {
	return geo.ResolveAnchor(r.Start, r.Current)
}

// Breakdown holds the per-factor sub-scores, each in [0, 1].
type Breakdown struct {
	Category   float64 `json:"category"`
	Distance   float64 `json:"distance"`
	Diversity  float64 `json:"diversity"`
	Popularity float64 `json:"popularity"`
	Reward     float64 `json:"reward"`
}

// ScoredQuest pairs a candidate with its final score and breakdown.
type ScoredQuest struct {
	Quest *quest.Quest `json:"quest"`

	// Score is the weighted sum of the breakdown factors, in [0, 1].
	Score float64 `json:"score"`

	Breakdown Breakdown `json:"breakdown"`

	// DistanceKm is the distance from the anchor; negative when no
	// anchor was available.
	DistanceKm float64 `json:"distance_km"`
}

// Group returns the quest's canonical category group.
func (s *ScoredQuest) Group() taxonomy.Group {
	return s.Quest.Group
}

// Response is the final recommendation result. It is constructed fresh
// per request and never mutated after being returned.
type Response struct {
	// SessionID identifies the session record written for this call.
	SessionID string `json:"session_id"`

	// Quests is the ordered itinerary, at most MaxResults long. A
	// special-slot pick, if present, is always last.
	Quests []*ScoredQuest `json:"quests"`

	// Reranked reports whether the AI reranker's ordering was applied.
	Reranked bool `json:"reranked"`

	// FallbackReason explains why a requested rerank was not applied.
	// Empty when Reranked is true or reranking was never requested.
	FallbackReason string `json:"fallback_reason,omitempty"`

	// AnchorUsed reports whether distance scoring had an anchor.
	AnchorUsed bool `json:"anchor_used"`

	// GeneratedAt is the response construction time.
	GeneratedAt time.Time `json:"generated_at"`
}
