// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

package recommend

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/roamlab/questroute/internal/geo"
	"github.com/roamlab/questroute/internal/quest"
	"github.com/roamlab/questroute/internal/recommend/reranking"
	"github.com/roamlab/questroute/internal/taxonomy"
)

type clientFunc func(ctx context.Context, payload []byte) ([]byte, error)

func (f clientFunc) Rerank(ctx context.Context, payload []byte) ([]byte, error) {
	return f(ctx, payload)
}

// seoulStore seeds a small catalog around the Seoul city-hall anchor:
// three history quests q1-q3 nearest, a park quest q4, and a
// night-view quest q5 that derives special eligibility.
func seoulStore() *quest.MemoryStore {
	store := quest.NewMemoryStore(taxonomy.DefaultTable())
	add := func(id string, lat, lon float64, category, metadata string, completions int64, points int) {
		store.Upsert(&quest.Quest{
			ID:           id,
			PlaceID:      "place-" + id,
			Name:         "quest " + id,
			Category:     category,
			Location:     geo.Point{Lat: lat, Lon: lon},
			Metadata:     metadata,
			Completions:  completions,
			RewardPoints: points,
			Active:       true,
		})
	}
	add("q1", 37.5745, 126.9770, "역사", "", 80, 120)
	add("q2", 37.5565, 126.9780, "역사", "", 60, 100)
	add("q3", 37.5865, 126.9780, "역사", "", 40, 80)
	add("q4", 37.5665, 127.0100, "공원", "", 90, 60)
	add("q5", 37.5512, 126.9882, "관광지", "night_view", 70, 150)
	return store
}

func seoulAnchor() *geo.Point {
	return &geo.Point{Lat: 37.5665, Lon: 126.9780}
}

func newTestEngine(t *testing.T, store quest.PlaceStore, cfg *Config, opts ...Option) *Engine {
	t.Helper()
	eng, err := New(cfg, store, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return eng
}

func responseIDs(resp *Response) []string {
	ids := make([]string, len(resp.Quests))
	for i, sq := range resp.Quests {
		ids[i] = sq.Quest.ID
	}
	return ids
}

func assertResponseOrder(t *testing.T, resp *Response, want []string) {
	t.Helper()
	got := responseIDs(resp)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestRecommendAnchored(t *testing.T) {
	eng := newTestEngine(t, seoulStore(), nil)

	resp, err := eng.Recommend(context.Background(), &Request{
		UserID: "u1",
		Start:  seoulAnchor(),
		Themes: []string{"역사"},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Regular slots fill nearest first; the night-view quest holds the
	// final slot even though q4 is closer than it scores.
	assertResponseOrder(t, resp, []string{"q1", "q2", "q3", "q5"})

	if !resp.AnchorUsed {
		t.Error("AnchorUsed = false, want true")
	}
	if resp.Reranked {
		t.Error("Reranked = true for a plain request")
	}
	if resp.SessionID == "" {
		t.Error("SessionID is empty")
	}
	last := resp.Quests[len(resp.Quests)-1]
	if !last.Quest.SpecialEligible {
		t.Error("last quest is not special-eligible")
	}
	for _, sq := range resp.Quests {
		if sq.DistanceKm < 0 {
			t.Errorf("quest %s has no distance despite anchor", sq.Quest.ID)
		}
	}
}

func TestRecommendNoAnchorFallback(t *testing.T) {
	eng := newTestEngine(t, seoulStore(), nil)

	resp, err := eng.Recommend(context.Background(), &Request{UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}

	if resp.AnchorUsed {
		t.Error("AnchorUsed = true without coordinates")
	}
	if len(resp.Quests) != 4 {
		t.Fatalf("got %d quests, want 4", len(resp.Quests))
	}
	// Without an anchor regulars sort by score, and the special pick is
	// still last.
	if resp.Quests[len(resp.Quests)-1].Quest.ID != "q5" {
		t.Errorf("last quest = %q, want q5", resp.Quests[len(resp.Quests)-1].Quest.ID)
	}
	for i := 0; i+1 < len(resp.Quests)-1; i++ {
		if resp.Quests[i].Score < resp.Quests[i+1].Score {
			t.Errorf("regulars not sorted by score: %v", responseIDs(resp))
		}
	}
}

func TestRecommendPoolCap(t *testing.T) {
	store := quest.NewMemoryStore(taxonomy.DefaultTable())
	for i := 0; i < 60; i++ {
		id := fmt.Sprintf("q%02d", i)
		store.Upsert(&quest.Quest{
			ID:          id,
			PlaceID:     "place-" + id,
			Name:        "quest " + id,
			Category:    "공원",
			Location:    geo.Point{Lat: 37.5665, Lon: 126.9780},
			Completions: int64(i),
			Active:      true,
		})
	}
	eng := newTestEngine(t, store, nil)

	resp, err := eng.Recommend(context.Background(), &Request{UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}

	// The popularity factor is the only differentiator, so the most
	// completed quests win the four slots.
	assertResponseOrder(t, resp, []string{"q59", "q58", "q57", "q56"})
}

func TestRecommendMustVisitOutsidePool(t *testing.T) {
	store := seoulStore()
	// Well outside the search radius; reachable only by direct lookup.
	store.Upsert(&quest.Quest{
		ID:       "remote",
		PlaceID:  "place-remote",
		Name:     "remote quest",
		Category: "역사",
		Location: geo.Point{Lat: 37.80, Lon: 127.20},
		Active:   true,
	})
	eng := newTestEngine(t, store, nil)

	resp, err := eng.Recommend(context.Background(), &Request{
		UserID:      "u1",
		Start:       seoulAnchor(),
		MustVisitID: "remote",
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(resp.Quests) > 4 {
		t.Fatalf("got %d quests, cap is 4", len(resp.Quests))
	}
	count := 0
	for _, sq := range resp.Quests {
		if sq.Quest.ID == "remote" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("must-visit appears %d times, want 1: %v", count, responseIDs(resp))
	}
}

func TestRecommendMustVisitUnknownIgnored(t *testing.T) {
	eng := newTestEngine(t, seoulStore(), nil)

	resp, err := eng.Recommend(context.Background(), &Request{
		UserID:      "u1",
		Start:       seoulAnchor(),
		MustVisitID: "no-such-quest",
	})
	if err != nil {
		t.Fatal(err)
	}
	assertResponseOrder(t, resp, []string{"q1", "q2", "q3", "q5"})
}

func TestRecommendCompletedExcluded(t *testing.T) {
	history := quest.StaticHistory{
		QuestIDs: map[string][]string{"u1": {"q1"}},
	}
	eng := newTestEngine(t, seoulStore(), nil, WithHistory(history))

	resp, err := eng.Recommend(context.Background(), &Request{
		UserID: "u1",
		Start:  seoulAnchor(),
	})
	if err != nil {
		t.Fatal(err)
	}
	// q1 completed, so q4 moves into the regular slots.
	assertResponseOrder(t, resp, []string{"q2", "q3", "q4", "q5"})
}

func TestRecommendKOnlyLowers(t *testing.T) {
	eng := newTestEngine(t, seoulStore(), nil)

	resp, err := eng.Recommend(context.Background(), &Request{
		UserID: "u1",
		Start:  seoulAnchor(),
		K:      2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Quests) != 2 {
		t.Fatalf("K=2: got %d quests, want 2", len(resp.Quests))
	}

	resp, err = eng.Recommend(context.Background(), &Request{
		UserID: "u1",
		Start:  seoulAnchor(),
		K:      10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Quests) != 4 {
		t.Fatalf("K=10: got %d quests, want the configured 4", len(resp.Quests))
	}
}

func TestRecommendEmptyPool(t *testing.T) {
	eng := newTestEngine(t, quest.NewMemoryStore(taxonomy.DefaultTable()), nil)

	resp, err := eng.Recommend(context.Background(), &Request{
		UserID: "u1",
		Start:  seoulAnchor(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Quests) != 0 {
		t.Fatalf("got %d quests from empty catalog, want 0", len(resp.Quests))
	}
	if resp.SessionID == "" {
		t.Error("SessionID is empty")
	}
}

func TestRecommendInvalidRequest(t *testing.T) {
	eng := newTestEngine(t, seoulStore(), nil)

	tests := []struct {
		name string
		req  *Request
	}{
		{"nil request", nil},
		{"latitude out of range", &Request{Start: &geo.Point{Lat: 91, Lon: 0}}},
		{"too many themes", &Request{Themes: []string{"a", "b", "c", "d", "e"}}},
		{"empty theme token", &Request{Themes: []string{""}}},
		{"negative radius", &Request{RadiusKm: -1}},
		{"k too large", &Request{K: 21}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := eng.Recommend(context.Background(), tt.req); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestRecommendRerankerDisabledByConfig(t *testing.T) {
	eng := newTestEngine(t, seoulStore(), nil)

	resp, err := eng.Recommend(context.Background(), &Request{
		UserID:      "u1",
		Start:       seoulAnchor(),
		UseReranker: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Reranked {
		t.Error("Reranked = true with reranker disabled")
	}
	if resp.FallbackReason != string(reranking.ReasonDisabled) {
		t.Errorf("FallbackReason = %q, want %q", resp.FallbackReason, reranking.ReasonDisabled)
	}
}

func rerankTestConfig() (*Config, reranking.Config) {
	cfg := DefaultConfig()
	cfg.Reranker.Enabled = true
	rcfg := reranking.Config{
		TopK:                    20,
		MinPool:                 1,
		Timeout:                 time.Second,
		RatePerSecond:           100,
		RateBurst:               10,
		BreakerFailureThreshold: 5,
		BreakerOpenTimeout:      30 * time.Second,
	}
	return cfg, rcfg
}

func TestRecommendRerankAccepted(t *testing.T) {
	cfg, rcfg := rerankTestConfig()
	client := clientFunc(func(_ context.Context, _ []byte) ([]byte, error) {
		return []byte(`{"quest_ids":["q3","q1","q5"]}`), nil
	})
	eng := newTestEngine(t, seoulStore(), cfg,
		WithReranker(reranking.New(client, rcfg)))

	resp, err := eng.Recommend(context.Background(), &Request{
		UserID:      "u1",
		Start:       seoulAnchor(),
		UseReranker: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Reranked {
		t.Fatalf("Reranked = false, fallback reason %q", resp.FallbackReason)
	}
	// Accepted ordering applies, with the special pick screened to the
	// end.
	assertResponseOrder(t, resp, []string{"q3", "q1", "q5"})
}

func TestRecommendRerankTimeoutFallsBack(t *testing.T) {
	cfg, rcfg := rerankTestConfig()
	rcfg.Timeout = 20 * time.Millisecond
	blocking := clientFunc(func(ctx context.Context, _ []byte) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	eng := newTestEngine(t, seoulStore(), cfg,
		WithReranker(reranking.New(blocking, rcfg)))

	baseline := newTestEngine(t, seoulStore(), nil)
	want, err := baseline.Recommend(context.Background(), &Request{
		UserID: "u1",
		Start:  seoulAnchor(),
	})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := eng.Recommend(context.Background(), &Request{
		UserID:      "u1",
		Start:       seoulAnchor(),
		UseReranker: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Reranked {
		t.Error("Reranked = true after timeout")
	}
	if resp.FallbackReason != string(reranking.ReasonTimeout) {
		t.Errorf("FallbackReason = %q, want %q", resp.FallbackReason, reranking.ReasonTimeout)
	}
	// Fallback output is exactly the deterministic ordering.
	assertResponseOrder(t, resp, responseIDs(want))
}

func TestRecommendRerankBadOrderingFallsBack(t *testing.T) {
	cfg, rcfg := rerankTestConfig()
	client := clientFunc(func(_ context.Context, _ []byte) ([]byte, error) {
		return []byte(`{"quest_ids":["q1","made-up"]}`), nil
	})
	eng := newTestEngine(t, seoulStore(), cfg,
		WithReranker(reranking.New(client, rcfg)))

	resp, err := eng.Recommend(context.Background(), &Request{
		UserID:      "u1",
		Start:       seoulAnchor(),
		UseReranker: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Reranked {
		t.Error("Reranked = true for an ordering with an unknown ID")
	}
	if resp.FallbackReason != string(reranking.ReasonUnknownID) {
		t.Errorf("FallbackReason = %q, want %q", resp.FallbackReason, reranking.ReasonUnknownID)
	}
	assertResponseOrder(t, resp, []string{"q1", "q2", "q3", "q5"})
}

func TestRecommendDeterministic(t *testing.T) {
	eng := newTestEngine(t, seoulStore(), nil)
	req := func() *Request {
		return &Request{
			UserID: "u1",
			Start:  seoulAnchor(),
			Themes: []string{"역사"},
		}
	}

	first, err := eng.Recommend(context.Background(), req())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		resp, err := eng.Recommend(context.Background(), req())
		if err != nil {
			t.Fatal(err)
		}
		assertResponseOrder(t, resp, responseIDs(first))
		for j := range resp.Quests {
			if resp.Quests[j].Score != first.Quests[j].Score {
				t.Fatalf("run %d: score drift on %s", i, resp.Quests[j].Quest.ID)
			}
		}
	}
}

func TestRecommendRequestRadiusOverride(t *testing.T) {
	eng := newTestEngine(t, seoulStore(), nil)

	// A 1 km radius leaves only q1 within reach of the anchor.
	resp, err := eng.Recommend(context.Background(), &Request{
		UserID:   "u1",
		Start:    seoulAnchor(),
		RadiusKm: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	assertResponseOrder(t, resp, []string{"q1"})
}
