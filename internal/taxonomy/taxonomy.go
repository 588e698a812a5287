// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

// Package taxonomy normalizes free-text quest categories into canonical
// groups and scores theme preferences against them.
//
// Category strings arrive from upstream data sources in mixed Korean and
// English ("궁궐", "Historical", "landmark"). A versioned lookup table maps
// every known synonym to one canonical group; everything else is
// Unclassified. Scoring code works exclusively with canonical groups so
// that synonym handling lives in one place.
package taxonomy

import "strings"

// Group is a canonical category bucket.
type Group string

const (
	History      Group = "history"
	Attractions  Group = "attractions"
	Culture      Group = "culture"
	Religion     Group = "religion"
	Park         Group = "park"
	Unclassified Group = "unclassified"
)

// Groups lists all canonical groups in declaration order, excluding
// Unclassified.
var Groups = []Group{History, Attractions, Culture, Religion, Park}

// Table is an immutable synonym and adjacency lookup, built once at
// startup and shared read-only afterwards.
type Table struct {
	version   string
	synonyms  map[string]Group
	adjacency map[Group]map[Group]bool
}

// DefaultTable returns the built-in bilingual table.
func DefaultTable() *Table {
	t := &Table{
		version:   "2026-08",
		synonyms:  make(map[string]Group),
		adjacency: make(map[Group]map[Group]bool),
	}

	add := func(g Group, tokens ...string) {
		t.synonyms[string(g)] = g
		for _, tok := range tokens {
			t.synonyms[tok] = g
		}
	}
	add(History, "역사", "역사유적", "문화재", "궁궐", "유적지", "historical")
	add(Attractions, "관광지", "명소", "전망대", "landmark", "tourist")
	add(Culture, "문화", "문화마을", "한옥마을", "전통마을", "traditional")
	add(Religion, "종교", "종교시설", "사찰", "성당", "교회", "temple")
	add(Park, "공원", "광장", "야외공간", "square", "outdoor")

	relate := func(a, b Group) {
		if t.adjacency[a] == nil {
			t.adjacency[a] = make(map[Group]bool)
		}
		if t.adjacency[b] == nil {
			t.adjacency[b] = make(map[Group]bool)
		}
		t.adjacency[a][b] = true
		t.adjacency[b][a] = true
	}
	relate(History, Culture)
	relate(Culture, Religion)
	relate(Attractions, Park)

	return t
}

// Version identifies the table revision for logging and diagnostics.
func (t *Table) Version() string { return t.version }

// Classify maps a raw category string to its canonical group.
// Matching is case-insensitive and whitespace-trimmed. Unknown strings
// map to Unclassified.
func (t *Table) Classify(raw string) Group {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return Unclassified
	}
	if g, ok := t.synonyms[key]; ok {
		return g
	}
	return Unclassified
}

// Related reports whether two canonical groups are adjacent in the
// table. A group is never related to itself or to Unclassified.
func (t *Table) Related(a, b Group) bool {
	if a == b || a == Unclassified || b == Unclassified {
		return false
	}
	return t.adjacency[a][b]
}

const (
	scoreExact    = 1.0
	scoreRelated  = 0.7
	scoreMismatch = 0.3
	scoreNeutral  = 0.5
)

// ThemeMatchScore scores a quest's canonical group against the user's
// theme preferences. With no themes the score is neutral (0.5). With
// themes, each one scores 1.0 for a group match, 0.7 for an adjacent
// group, 0.3 otherwise, and the maximum wins: picking several themes
// never penalizes a candidate that matches only one of them.
func (t *Table) ThemeMatchScore(quest Group, themes []string) float64 {
	if len(themes) == 0 {
		return scoreNeutral
	}
	best := 0.0
	for _, theme := range themes {
		s := t.matchScore(quest, t.Classify(theme))
		if s > best {
			best = s
		}
	}
	return best
}

// HintMatchScore scores a quest's group against a single category hint,
// used when the request carries no theme list.
func (t *Table) HintMatchScore(quest Group, hint string) float64 {
	if strings.TrimSpace(hint) == "" {
		return scoreNeutral
	}
	return t.matchScore(quest, t.Classify(hint))
}

func (t *Table) matchScore(quest, want Group) float64 {
	if quest == Unclassified || want == Unclassified {
		return scoreMismatch
	}
	if quest == want {
		return scoreExact
	}
	if t.Related(quest, want) {
		return scoreRelated
	}
	return scoreMismatch
}
