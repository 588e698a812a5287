// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

package quest

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/roamlab/questroute/internal/logging"
)

const questKeyPrefix = "quest:"

// BadgerCatalog persists the quest catalog in BadgerDB so the engine
// survives restarts without re-syncing from the upstream place service.
// Radius and ranking queries are served by a MemoryStore hydrated from
// this catalog at startup; Badger is the durable source.
type BadgerCatalog struct {
	db *badger.DB
}

// NewBadgerCatalog wraps an open BadgerDB handle. The caller owns the
// handle's lifecycle.
func NewBadgerCatalog(db *badger.DB) *BadgerCatalog {
	return &BadgerCatalog{db: db}
}

// Put stores or replaces a quest.
func (c *BadgerCatalog) Put(_ context.Context, q *Quest) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal quest: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(questKeyPrefix+q.ID), data)
	})
}

// Get retrieves a quest by ID. Returns ErrNotFound when absent.
func (c *BadgerCatalog) Get(_ context.Context, id string) (*Quest, error) {
	var q Quest

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(questKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get quest: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &q)
		})
	})

	if err != nil {
		return nil, err
	}
	return &q, nil
}

// Delete removes a quest by ID. Deleting an absent quest is not an error.
func (c *BadgerCatalog) Delete(_ context.Context, id string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(questKeyPrefix + id))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete quest: %w", err)
		}
		return nil
	})
}

// LoadInto hydrates a MemoryStore with every persisted quest. Corrupt
// records are skipped and logged rather than aborting the load.
func (c *BadgerCatalog) LoadInto(ctx context.Context, store *MemoryStore) (int, error) {
	loaded := 0

	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(questKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			err := item.Value(func(val []byte) error {
				var q Quest
				if err := json.Unmarshal(val, &q); err != nil {
					logging.Warn().
						Str("key", string(item.Key())).
						Err(err).
						Msg("Skipping corrupt quest record")
					return nil
				}
				store.Upsert(&q)
				loaded++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return loaded, fmt.Errorf("load quest catalog: %w", err)
	}
	return loaded, nil
}
