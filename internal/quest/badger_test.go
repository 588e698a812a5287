// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

package quest

import (
	"context"
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v4"

	"github.com/roamlab/questroute/internal/taxonomy"
)

func newTestCatalog(t *testing.T) *BadgerCatalog {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close badger: %v", err)
		}
	})

	return NewBadgerCatalog(db)
}

func TestBadgerCatalogPutGet(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	q := mkQuest("q1", 35.10, 129.03, func(q *Quest) {
		q.RewardPoints = 150
		q.Completions = 42
	})
	if err := c.Put(ctx, q); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := c.Get(ctx, "q1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != "q1" || got.RewardPoints != 150 || got.Completions != 42 {
		t.Errorf("Get() = %+v", got)
	}

	if _, err := c.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestBadgerCatalogDelete(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	if err := c.Put(ctx, mkQuest("q1", 35.10, 129.03, nil)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := c.Delete(ctx, "q1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := c.Get(ctx, "q1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	// Deleting again is fine.
	if err := c.Delete(ctx, "q1"); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestBadgerCatalogLoadInto(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	for _, q := range []*Quest{
		mkQuest("a", 35.10, 129.03, nil),
		mkQuest("b", 35.11, 129.04, nil),
		mkQuest("c", 35.12, 129.05, func(q *Quest) { q.Category = "공원" }),
	} {
		if err := c.Put(ctx, q); err != nil {
			t.Fatalf("Put(%s) error = %v", q.ID, err)
		}
	}

	store := NewMemoryStore(taxonomy.DefaultTable())
	loaded, err := c.LoadInto(ctx, store)
	if err != nil {
		t.Fatalf("LoadInto() error = %v", err)
	}
	if loaded != 3 {
		t.Errorf("loaded = %d, want 3", loaded)
	}
	if store.Len() != 3 {
		t.Errorf("store.Len() = %d, want 3", store.Len())
	}

	// Group is re-derived during hydration.
	q, err := store.Get(ctx, "c")
	if err != nil {
		t.Fatalf("Get(c) error = %v", err)
	}
	if q.Group != taxonomy.Park {
		t.Errorf("Group = %q, want %q", q.Group, taxonomy.Park)
	}
}
