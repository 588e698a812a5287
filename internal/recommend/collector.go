// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

package recommend

import (
	"context"
	"fmt"

	"github.com/roamlab/questroute/internal/geo"
	"github.com/roamlab/questroute/internal/quest"
)

// collector retrieves the bounded candidate pool for a request.
type collector struct {
	store quest.PlaceStore
	cfg   *Config
}

// collect returns active candidates, deduplicated by place ID and
// capped at the pool cap. With an anchor, candidates come from a
// radius query nearest first, so the cap keeps the nearest. Without
// one, the fallback pool is ranked by the configured collection order.
// Quest IDs in excludeIDs (already-completed quests) are skipped.
func (c *collector) collect(ctx context.Context, anchor *geo.Point, radiusKm float64, excludeIDs map[string]bool) ([]*quest.Quest, error) {
	var (
		raw []*quest.Quest
		err error
	)

	if anchor != nil {
		// Uncapped query; the cap is applied after place dedup so a
		// duplicate place cannot crowd out a distinct nearby one.
		raw, err = c.store.WithinRadius(ctx, *anchor, radiusKm, 0)
		if err != nil {
			return nil, fmt.Errorf("radius query: %w", err)
		}
	} else {
		raw, err = c.store.TopActive(ctx, c.cfg.CollectionOrder, 0)
		if err != nil {
			return nil, fmt.Errorf("fallback query: %w", err)
		}
	}

	seen := make(map[string]bool, len(raw))
	pool := make([]*quest.Quest, 0, c.cfg.PoolCap)
	for _, q := range raw {
		if !q.Active {
			continue
		}
		if excludeIDs[q.ID] || seen[q.PlaceID] {
			continue
		}
		seen[q.PlaceID] = true
		pool = append(pool, q)
		if len(pool) == c.cfg.PoolCap {
			break
		}
	}

	return pool, nil
}
