// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

// Package sessionlog records recommendation sessions for later
// inspection. Writes are fire-and-forget: the caller gets a session ID
// immediately and a failed write never affects the response.
package sessionlog

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/roamlab/questroute/internal/logging"
	"github.com/roamlab/questroute/internal/metrics"
)

const sessionKeyPrefix = "session:"

// Entry is one recorded recommendation session.
type Entry struct {
	SessionID      string    `json:"session_id"`
	UserID         string    `json:"user_id,omitempty"`
	RequestedAt    time.Time `json:"requested_at"`
	Themes         []string  `json:"themes,omitempty"`
	Districts      []string  `json:"districts,omitempty"`
	AnchorUsed     bool      `json:"anchor_used"`
	PoolSize       int       `json:"pool_size"`
	QuestIDs       []string  `json:"quest_ids"`
	Reranked       bool      `json:"reranked"`
	FallbackReason string    `json:"fallback_reason,omitempty"`
	LatencyMs      int64     `json:"latency_ms"`
}

// Recorder writes session entries to BadgerDB asynchronously. A nil
// database disables persistence; Record still hands out session IDs.
type Recorder struct {
	db *badger.DB
	wg sync.WaitGroup
}

// NewRecorder wraps an open BadgerDB handle; nil disables writes.
func NewRecorder(db *badger.DB) *Recorder {
	return &Recorder{db: db}
}

// Record assigns a session ID, stamps the entry, and schedules the
// write. It returns the ID immediately.
func (r *Recorder) Record(entry Entry) string {
	id := uuid.NewString()
	entry.SessionID = id
	if entry.RequestedAt.IsZero() {
		entry.RequestedAt = time.Now().UTC()
	}

	if r.db == nil {
		metrics.SessionWrites.WithLabelValues("dropped").Inc()
		return id
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.write(entry); err != nil {
			metrics.SessionWrites.WithLabelValues("error").Inc()
			logging.Warn().
				Str("session_id", entry.SessionID).
				Err(err).
				Msg("Session record write failed")
			return
		}
		metrics.SessionWrites.WithLabelValues("ok").Inc()
	}()

	return id
}

func (r *Recorder) write(entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	key := fmt.Sprintf("%s%s:%s",
		sessionKeyPrefix, entry.RequestedAt.UTC().Format(time.RFC3339), entry.SessionID)

	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Flush blocks until all scheduled writes have finished. Used during
// shutdown and in tests.
func (r *Recorder) Flush() {
	r.wg.Wait()
}
