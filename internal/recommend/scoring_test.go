// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

package recommend

import (
	"math"
	"testing"

	"github.com/roamlab/questroute/internal/geo"
	"github.com/roamlab/questroute/internal/quest"
	"github.com/roamlab/questroute/internal/taxonomy"
)

func newTestScorer() scorer {
	return scorer{cfg: DefaultConfig(), table: taxonomy.DefaultTable()}
}

func testQuest(id string, opts func(*quest.Quest)) *quest.Quest {
	q := &quest.Quest{
		ID:       id,
		PlaceID:  "place-" + id,
		Name:     "quest " + id,
		Category: "history",
		Group:    taxonomy.History,
		Location: geo.Point{Lat: 35.1796, Lon: 129.0756},
		Active:   true,
	}
	if opts != nil {
		opts(q)
	}
	return q
}

func TestDistanceScore(t *testing.T) {
	tests := []struct {
		name   string
		distKm float64
		radius float64
		want   float64
	}{
		{"at anchor", 0, 15, 1.0},
		{"half radius", 7.5, 15, 0.5},
		{"near edge keeps floor", 14.9, 15, 0.1},
		{"outside radius", 20, 15, 0.1},
		{"custom radius", 5, 10, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := distanceScore(tt.distKm, tt.radius)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("distanceScore(%v, %v) = %v, want %v", tt.distKm, tt.radius, got, tt.want)
			}
		})
	}
}

func TestScoreBreakdown(t *testing.T) {
	s := newTestScorer()
	anchor := &geo.Point{Lat: 35.1796, Lon: 129.0756}

	q := testQuest("q1", func(q *quest.Quest) {
		q.Completions = 50
		q.RewardPoints = 100
	})

	sq := s.score(q, scoreInput{
		anchor:   anchor,
		radiusKm: 15,
		themes:   []string{"history"},
		completed: map[taxonomy.Group]bool{
			taxonomy.Park: true,
		},
	})

	if sq.Breakdown.Category != 1.0 {
		t.Errorf("Category = %v, want 1.0", sq.Breakdown.Category)
	}
	if sq.Breakdown.Distance != 1.0 {
		t.Errorf("Distance = %v, want 1.0 (at anchor)", sq.Breakdown.Distance)
	}
	if sq.Breakdown.Diversity != 1.0 {
		t.Errorf("Diversity = %v, want 1.0 (new category)", sq.Breakdown.Diversity)
	}
	if sq.Breakdown.Popularity != 0.5 {
		t.Errorf("Popularity = %v, want 0.5 (50/100)", sq.Breakdown.Popularity)
	}
	if sq.Breakdown.Reward != 0.5 {
		t.Errorf("Reward = %v, want 0.5 (100/200)", sq.Breakdown.Reward)
	}

	// 0.30*1 + 0.25*1 + 0.20*1 + 0.15*0.5 + 0.10*0.5
	want := 0.30 + 0.25 + 0.20 + 0.075 + 0.05
	if math.Abs(sq.Score-want) > 1e-9 {
		t.Errorf("Score = %v, want %v", sq.Score, want)
	}
}

func TestScoreNoAnchorNeutralDistance(t *testing.T) {
	s := newTestScorer()
	q := testQuest("q1", nil)

	sq := s.score(q, scoreInput{radiusKm: 15})
	if sq.Breakdown.Distance != 0.5 {
		t.Errorf("Distance = %v, want 0.5 without anchor", sq.Breakdown.Distance)
	}
	if sq.DistanceKm >= 0 {
		t.Errorf("DistanceKm = %v, want negative sentinel", sq.DistanceKm)
	}
}

func TestScoreDiversity(t *testing.T) {
	s := newTestScorer()

	tests := []struct {
		name      string
		group     taxonomy.Group
		completed map[taxonomy.Group]bool
		want      float64
	}{
		{"no history", taxonomy.History, nil, 1.0},
		{"new category", taxonomy.History, map[taxonomy.Group]bool{taxonomy.Park: true}, 1.0},
		{"repeated category", taxonomy.History, map[taxonomy.Group]bool{taxonomy.History: true}, 0.3},
		{"unclassified neutral", taxonomy.Unclassified, map[taxonomy.Group]bool{taxonomy.Park: true}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.diversityScore(tt.group, tt.completed)
			if got != tt.want {
				t.Errorf("diversityScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreSaturation(t *testing.T) {
	s := newTestScorer()

	q := testQuest("q1", func(q *quest.Quest) {
		q.Completions = 100000
		q.RewardPoints = 100000
	})
	sq := s.score(q, scoreInput{radiusKm: 15})

	if sq.Breakdown.Popularity != 1.0 {
		t.Errorf("Popularity = %v, want saturation at 1.0", sq.Breakdown.Popularity)
	}
	if sq.Breakdown.Reward != 1.0 {
		t.Errorf("Reward = %v, want saturation at 1.0", sq.Breakdown.Reward)
	}
}

func TestScoreBounds(t *testing.T) {
	s := newTestScorer()
	anchor := &geo.Point{Lat: 35.1796, Lon: 129.0756}

	quests := []*quest.Quest{
		testQuest("a", nil),
		testQuest("b", func(q *quest.Quest) {
			q.Completions = 500
			q.RewardPoints = 500
			q.Location = geo.Point{Lat: 38.0, Lon: 128.0}
		}),
		testQuest("c", func(q *quest.Quest) { q.Group = taxonomy.Unclassified }),
	}
	inputs := []scoreInput{
		{radiusKm: 15},
		{anchor: anchor, radiusKm: 15, themes: []string{"park", "temple"}},
		{anchor: anchor, radiusKm: 15, completed: map[taxonomy.Group]bool{taxonomy.History: true}},
	}

	for _, q := range quests {
		for _, in := range inputs {
			sq := s.score(q, in)
			for name, v := range map[string]float64{
				"category":   sq.Breakdown.Category,
				"distance":   sq.Breakdown.Distance,
				"diversity":  sq.Breakdown.Diversity,
				"popularity": sq.Breakdown.Popularity,
				"reward":     sq.Breakdown.Reward,
				"final":      sq.Score,
			} {
				if v < 0 || v > 1 {
					t.Errorf("%s score %v out of [0,1] for quest %s", name, v, q.ID)
				}
			}
		}
	}
}

func TestScoreDeterminism(t *testing.T) {
	s := newTestScorer()
	anchor := &geo.Point{Lat: 35.1796, Lon: 129.0756}
	in := scoreInput{
		anchor:    anchor,
		radiusKm:  15,
		themes:    []string{"history", "park"},
		completed: map[taxonomy.Group]bool{taxonomy.Culture: true},
	}
	q := testQuest("q1", func(q *quest.Quest) {
		q.Completions = 33
		q.RewardPoints = 170
		q.Location = geo.Point{Lat: 35.21, Lon: 129.08}
	})

	a := s.score(q, in)
	b := s.score(q, in)
	if a.Score != b.Score || a.Breakdown != b.Breakdown {
		t.Errorf("score not deterministic: %+v vs %+v", a, b)
	}
}
