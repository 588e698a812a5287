// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

package quest

import (
	"context"
	"sort"
	"sync"

	"github.com/roamlab/questroute/internal/geo"
	"github.com/roamlab/questroute/internal/taxonomy"
)

// MemoryStore is an in-memory PlaceStore backed by a spatial grid for
// radius queries. It is safe for concurrent use. Quests returned by
// query methods are copies; mutating them does not affect the store.
type MemoryStore struct {
	mu     sync.RWMutex
	quests map[string]*Quest
	grid   *spatialGrid
	table  *taxonomy.Table
}

// NewMemoryStore creates an empty store classifying categories with
// the given taxonomy table.
func NewMemoryStore(table *taxonomy.Table) *MemoryStore {
	return &MemoryStore{
		quests: make(map[string]*Quest),
		grid:   newSpatialGrid(5),
		table:  table,
	}
}

// Upsert inserts or replaces a quest. The canonical group and the
// special-slot flag are derived here so every stored quest carries
// them consistently.
func (s *MemoryStore) Upsert(q *Quest) {
	cp := q.Clone()
	cp.Group = s.table.Classify(cp.Category)
	cp.DeriveSpecialEligible()

	s.mu.Lock()
	s.quests[cp.ID] = cp
	s.mu.Unlock()

	s.grid.insert(cp)
}

// Remove deletes a quest by ID.
func (s *MemoryStore) Remove(id string) bool {
	s.mu.Lock()
	_, ok := s.quests[id]
	delete(s.quests, id)
	s.mu.Unlock()

	s.grid.remove(id)
	return ok
}

// Get implements PlaceStore.
func (s *MemoryStore) Get(_ context.Context, id string) (*Quest, error) {
	s.mu.RLock()
	q, ok := s.quests[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return q.Clone(), nil
}

// WithinRadius implements PlaceStore. Results are nearest first, ties
// broken by quest ID for determinism.
func (s *MemoryStore) WithinRadius(_ context.Context, anchor geo.Point, radiusKm float64, limit int) ([]*Quest, error) {
	matched := s.grid.queryRadius(anchor, radiusKm)

	sort.Slice(matched, func(i, j int) bool {
		di := geo.DistanceKm(anchor, matched[i].Location)
		dj := geo.DistanceKm(anchor, matched[j].Location)
		if di != dj {
			return di < dj
		}
		return matched[i].ID < matched[j].ID
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*Quest, len(matched))
	for i, q := range matched {
		out[i] = q.Clone()
	}
	return out, nil
}

// TopActive implements PlaceStore. Ties are broken by quest ID.
func (s *MemoryStore) TopActive(_ context.Context, order Order, limit int) ([]*Quest, error) {
	s.mu.RLock()
	pool := make([]*Quest, 0, len(s.quests))
	for _, q := range s.quests {
		if q.Active {
			pool = append(pool, q)
		}
	}
	s.mu.RUnlock()

	switch order {
	case OrderRecency:
		sort.Slice(pool, func(i, j int) bool {
			if !pool[i].CreatedAt.Equal(pool[j].CreatedAt) {
				return pool[i].CreatedAt.After(pool[j].CreatedAt)
			}
			return pool[i].ID < pool[j].ID
		})
	default: // OrderPopularity
		sort.Slice(pool, func(i, j int) bool {
			if pool[i].Completions != pool[j].Completions {
				return pool[i].Completions > pool[j].Completions
			}
			return pool[i].ID < pool[j].ID
		})
	}

	if limit > 0 && len(pool) > limit {
		pool = pool[:limit]
	}

	out := make([]*Quest, len(pool))
	for i, q := range pool {
		out[i] = q.Clone()
	}
	return out, nil
}

// Len returns the number of stored quests, active or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quests)
}

// StaticHistory is a fixed HistoryStore, useful for tests and for
// callers that resolve history upstream.
type StaticHistory struct {
	Categories map[string][]taxonomy.Group
	QuestIDs   map[string][]string
}

// CompletedCategories implements HistoryStore.
func (h StaticHistory) CompletedCategories(_ context.Context, userID string) (map[taxonomy.Group]bool, error) {
	out := make(map[taxonomy.Group]bool)
	for _, g := range h.Categories[userID] {
		out[g] = true
	}
	return out, nil
}

// CompletedQuestIDs implements HistoryStore.
func (h StaticHistory) CompletedQuestIDs(_ context.Context, userID string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, id := range h.QuestIDs[userID] {
		out[id] = true
	}
	return out, nil
}
