// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

package recommend

import (
	"math"

	"github.com/roamlab/questroute/internal/geo"
	"github.com/roamlab/questroute/internal/quest"
	"github.com/roamlab/questroute/internal/taxonomy"
)

const (
	// popularityCeiling is the completion count that saturates the
	// popularity sub-score.
	popularityCeiling = 100.0

	// rewardCeiling is the reward-point value that saturates the
	// reward sub-score.
	rewardCeiling = 200.0

	// distanceFloor is the minimum distance sub-score, applied both
	// inside the radius (very far candidates) and outside it.
	distanceFloor = 0.1

	// neutralScore is used when a factor has nothing to measure.
	neutralScore = 0.5
)

// scorer computes the five-factor score for each candidate. It is
// stateless and deterministic: identical inputs produce identical
// scores.
type scorer struct {
	cfg   *Config
	table *taxonomy.Table
}

// scoreInput carries the per-request context the sub-scores depend on.
type scoreInput struct {
	anchor    *geo.Point
	radiusKm  float64
	themes    []string
	hint      string
	completed map[taxonomy.Group]bool
}

// score computes the weighted score and breakdown for one candidate.
func (s *scorer) score(q *quest.Quest, in scoreInput) *ScoredQuest {
	b := Breakdown{
		Category:   s.categoryScore(q.Group, in),
		Distance:   neutralScore,
		Diversity:  s.diversityScore(q.Group, in.completed),
		Popularity: math.Min(1.0, float64(q.Completions)/popularityCeiling),
		Reward:     math.Min(1.0, float64(q.RewardPoints)/rewardCeiling),
	}

	distKm := -1.0
	if in.anchor != nil {
		distKm = geo.DistanceKm(*in.anchor, q.Location)
		b.Distance = distanceScore(distKm, in.radiusKm)
	}

	w := s.cfg.Weights
	final := b.Category*w.Category +
		b.Distance*w.Distance +
		b.Diversity*w.Diversity +
		b.Popularity*w.Popularity +
		b.Reward*w.Reward

	return &ScoredQuest{
		Quest:      q,
		Score:      final,
		Breakdown:  b,
		DistanceKm: distKm,
	}
}

// scoreAll scores every candidate in the pool.
func (s *scorer) scoreAll(pool []*quest.Quest, in scoreInput) []*ScoredQuest {
	scored := make([]*ScoredQuest, len(pool))
	for i, q := range pool {
		scored[i] = s.score(q, in)
	}
	return scored
}

func (s *scorer) categoryScore(g taxonomy.Group, in scoreInput) float64 {
	if len(in.themes) > 0 {
		return s.table.ThemeMatchScore(g, in.themes)
	}
	return s.table.HintMatchScore(g, in.hint)
}

// distanceScore maps distance to [0.1, 1.0]: linear decay inside the
// radius with a floor, flat floor outside it.
func distanceScore(distKm, radiusKm float64) float64 {
	if distKm > radiusKm {
		return distanceFloor
	}
	return math.Max(distanceFloor, 1.0-distKm/radiusKm)
}

func (s *scorer) diversityScore(g taxonomy.Group, completed map[taxonomy.Group]bool) float64 {
	if len(completed) == 0 {
		return 1.0
	}
	if g == taxonomy.Unclassified {
		return neutralScore
	}
	if completed[g] {
		return 0.3
	}
	return 1.0
}
