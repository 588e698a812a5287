// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

package quest

import (
	"math"
	"sync"

	"github.com/roamlab/questroute/internal/geo"
)

// spatialGrid divides geographic space into cells for fast radius
// queries over the quest catalog. Instead of O(n) distance checks per
// query, only the cells intersecting the search radius are scanned.
//
// Time Complexity:
//   - Insert: O(1)
//   - QueryRadius: O(k) where k = quests in nearby cells
//   - Remove: O(1)
type spatialGrid struct {
	mu       sync.RWMutex
	cells    map[cellKey]*cell
	cellSize float64 // degrees
	entries  map[string]*gridEntry
}

type cellKey struct {
	X, Y int
}

type cell struct {
	entries []*gridEntry
}

type gridEntry struct {
	quest   *Quest
	cellKey cellKey
}

// newSpatialGrid creates a grid with cells of approximately cellSizeKm.
// Smaller cells are more precise but cost more cells per query; 5km
// suits a 15km default search radius over a city-scale catalog.
func newSpatialGrid(cellSizeKm float64) *spatialGrid {
	if cellSizeKm <= 0 {
		cellSizeKm = 5
	}

	// 1 degree ≈ 111km at the equator.
	return &spatialGrid{
		cells:    make(map[cellKey]*cell),
		cellSize: cellSizeKm / 111.0,
		entries:  make(map[string]*gridEntry),
	}
}

func (g *spatialGrid) keyFor(p geo.Point) cellKey {
	lon := p.Lon
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}

	return cellKey{
		X: int(math.Floor(lon / g.cellSize)),
		Y: int(math.Floor(p.Lat / g.cellSize)),
	}
}

// insert adds or replaces a quest in the grid, keyed by quest ID.
func (g *spatialGrid) insert(q *Quest) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.entries[q.ID]; ok {
		g.removeFromCellLocked(existing)
	}

	key := g.keyFor(q.Location)
	entry := &gridEntry{quest: q, cellKey: key}

	c, ok := g.cells[key]
	if !ok {
		c = &cell{entries: make([]*gridEntry, 0, 4)}
		g.cells[key] = c
	}
	c.entries = append(c.entries, entry)
	g.entries[q.ID] = entry
}

func (g *spatialGrid) remove(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.entries[id]
	if !ok {
		return false
	}
	g.removeFromCellLocked(entry)
	delete(g.entries, id)
	return true
}

// removeFromCellLocked removes an entry from its cell (caller holds lock).
func (g *spatialGrid) removeFromCellLocked(entry *gridEntry) {
	c, ok := g.cells[entry.cellKey]
	if !ok {
		return
	}

	for i, e := range c.entries {
		if e.quest.ID == entry.quest.ID {
			c.entries[i] = c.entries[len(c.entries)-1]
			c.entries = c.entries[:len(c.entries)-1]
			break
		}
	}

	if len(c.entries) == 0 {
		delete(g.cells, entry.cellKey)
	}
}

// queryRadius returns active quests within radiusKm of the anchor,
// unordered. Callers sort by distance.
func (g *spatialGrid) queryRadius(anchor geo.Point, radiusKm float64) []*Quest {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// Longitude degrees shrink with latitude, so the east-west window
	// must widen by 1/cos(lat) or far candidates fall outside the
	// scanned cells.
	cosLat := math.Cos(anchor.Lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	spanX := int(math.Ceil(radiusKm/(111.0*cosLat)/g.cellSize)) + 1
	spanY := int(math.Ceil(radiusKm/111.0/g.cellSize)) + 1
	center := g.keyFor(anchor)

	var results []*Quest
	for dx := -spanX; dx <= spanX; dx++ {
		for dy := -spanY; dy <= spanY; dy++ {
			c, ok := g.cells[cellKey{X: center.X + dx, Y: center.Y + dy}]
			if !ok {
				continue
			}
			for _, e := range c.entries {
				if !e.quest.Active {
					continue
				}
				if geo.DistanceKm(anchor, e.quest.Location) <= radiusKm {
					results = append(results, e.quest)
				}
			}
		}
	}

	return results
}

func (g *spatialGrid) size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}
