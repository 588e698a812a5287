// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

package recommend

import "sort"

// selector applies the structural output rules on top of the scored
// pool: mandatory-stop inclusion, a single reserved special slot
// placed last, place deduplication, and the result cap.
type selector struct{}

// build assembles the final ordered list.
//
// The pool is partitioned into regular and special-eligible
// candidates. One special slot is reserved for the highest-scoring
// special candidate; it is always emitted as the last element. The
// mandatory stop is guaranteed a slot but sorts with the regulars
// rather than being pinned to an index. If the regular pool runs out
// before the regular slots are filled, the reservation is dropped and
// leftover special candidates fill in as regulars.
func (selector) build(scored []*ScoredQuest, mustVisit *ScoredQuest, anchored bool, maxResults int) []*ScoredQuest {
	var regulars, specials []*ScoredQuest
	for _, sq := range scored {
		if sq.Quest.SpecialEligible {
			specials = append(specials, sq)
		} else {
			regulars = append(regulars, sq)
		}
	}
	sortByScore(specials)

	// A special-eligible mandatory stop takes the reserved slot so
	// that both inclusion and last-position rules hold at once.
	var pick *ScoredQuest
	switch {
	case mustVisit != nil && mustVisit.Quest.SpecialEligible:
		pick = mustVisit
	case len(specials) > 0:
		pick = specials[0]
		specials = specials[1:]
	}

	seen := make(map[string]bool, maxResults)
	var chosen []*ScoredQuest

	if pick != nil {
		seen[pick.Quest.PlaceID] = true
	}
	if mustVisit != nil && pick != mustVisit && !seen[mustVisit.Quest.PlaceID] {
		seen[mustVisit.Quest.PlaceID] = true
		chosen = append(chosen, mustVisit)
	}

	slots := maxResults
	if pick != nil {
		slots = maxResults - 1
	}

	orderRegulars(regulars, anchored)
	chosen = fill(chosen, regulars, seen, slots)

	// Regulars exhausted: remaining special candidates serve as
	// regular fill so the result only falls short of the cap when the
	// whole pool does.
	if len(chosen) < slots {
		chosen = fill(chosen, specials, seen, slots)
	}

	orderRegulars(chosen, anchored)
	if pick != nil {
		chosen = append(chosen, pick)
	}
	return chosen
}

func fill(chosen, pool []*ScoredQuest, seen map[string]bool, slots int) []*ScoredQuest {
	for _, sq := range pool {
		if len(chosen) >= slots {
			break
		}
		if seen[sq.Quest.PlaceID] {
			continue
		}
		seen[sq.Quest.PlaceID] = true
		chosen = append(chosen, sq)
	}
	return chosen
}

// orderRegulars sorts non-special elements: nearest first when an
// anchor exists (ties by score then ID), otherwise best score first
// (ties by ID).
func orderRegulars(list []*ScoredQuest, anchored bool) {
	if anchored {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].DistanceKm != list[j].DistanceKm {
				return list[i].DistanceKm < list[j].DistanceKm
			}
			if list[i].Score != list[j].Score {
				return list[i].Score > list[j].Score
			}
			return list[i].Quest.ID < list[j].Quest.ID
		})
		return
	}
	sortByScore(list)
}

func sortByScore(list []*ScoredQuest) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Score != list[j].Score {
			return list[i].Score > list[j].Score
		}
		return list[i].Quest.ID < list[j].Quest.ID
	})
}
