// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roamlab/questroute/internal/logging"
	"github.com/roamlab/questroute/internal/metrics"
	"github.com/roamlab/questroute/internal/quest"
	"github.com/roamlab/questroute/internal/recommend/reranking"
	"github.com/roamlab/questroute/internal/sessionlog"
	"github.com/roamlab/questroute/internal/taxonomy"
	"github.com/roamlab/questroute/internal/validation"
)

// Engine runs the recommendation pipeline. It is stateless across
// requests and safe for concurrent use; all state lives in the stores.
type Engine struct {
	cfg      *Config
	store    quest.PlaceStore
	history  quest.HistoryStore
	table    *taxonomy.Table
	reranker *reranking.Reranker
	recorder *sessionlog.Recorder

	collector collector
	scorer    scorer
	selector  selector
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithHistory attaches a completion-history store for diversity
// scoring and completed-quest exclusion.
func WithHistory(h quest.HistoryStore) Option {
	return func(e *Engine) { e.history = h }
}

// WithReranker attaches the AI reranker adapter.
func WithReranker(r *reranking.Reranker) Option {
	return func(e *Engine) { e.reranker = r }
}

// WithRecorder attaches a session recorder.
func WithRecorder(r *sessionlog.Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithTaxonomy overrides the default category table.
func WithTaxonomy(t *taxonomy.Table) Option {
	return func(e *Engine) { e.table = t }
}

// New validates the configuration and builds an engine over the given
// place store.
func New(cfg *Config, store quest.PlaceStore, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if store == nil {
		return nil, errors.New("place store is required")
	}

	e := &Engine{
		cfg:   cfg.Clone(),
		store: store,
		table: taxonomy.DefaultTable(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.collector = collector{store: e.store, cfg: e.cfg}
	e.scorer = scorer{cfg: e.cfg, table: e.table}

	return e, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.cfg.Clone()
}

// Recommend runs the full pipeline for one request. Collaborator
// failures (history, reranker) degrade to neutral defaults; an empty
// candidate pool yields an empty, successful response.
func (e *Engine) Recommend(ctx context.Context, req *Request) (*Response, error) {
	if err := e.validateRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()
	anchor := req.Anchor()
	anchored := anchor != nil
	defer metrics.ObserveRecommend(anchored, start)

	radiusKm := e.cfg.RadiusKm
	if req.RadiusKm > 0 {
		radiusKm = req.RadiusKm
	}
	maxResults := e.cfg.MaxResults
	if req.K > 0 && req.K < maxResults {
		maxResults = req.K
	}

	completed, completedIDs := e.lookupHistory(ctx, req.UserID)

	pool, err := e.collector.collect(ctx, anchor, radiusKm, completedIDs)
	if err != nil {
		return nil, fmt.Errorf("collect candidates: %w", err)
	}
	metrics.CandidatePoolSize.Observe(float64(len(pool)))

	in := scoreInput{
		anchor:    anchor,
		radiusKm:  radiusKm,
		themes:    req.Themes,
		hint:      req.CategoryHint,
		completed: completed,
	}

	pool, mustVisit := e.resolveMustVisit(ctx, req.MustVisitID, pool, in)
	scored := e.scorer.scoreAll(pool, in)

	quests := e.selector.build(scored, mustVisit, anchored, maxResults)

	resp := &Response{
		Quests:      quests,
		AnchorUsed:  anchored,
		GeneratedAt: time.Now().UTC(),
	}

	if req.UseReranker {
		e.applyRerank(ctx, req, resp, scored, mustVisit, maxResults)
	}

	metrics.ResultCount.Observe(float64(len(resp.Quests)))
	resp.SessionID = e.recordSession(req, resp, len(pool), anchored, start)

	return resp, nil
}

func (e *Engine) validateRequest(req *Request) error {
	if req == nil {
		return errors.New("nil request")
	}
	if err := validation.ValidateStruct(req); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	if req.Start != nil && !req.Start.Valid() {
		return fmt.Errorf("invalid start coordinate: %+v", *req.Start)
	}
	if req.Current != nil && !req.Current.Valid() {
		return fmt.Errorf("invalid current coordinate: %+v", *req.Current)
	}
	return nil
}

// lookupHistory fetches the user's completion history, degrading to
// empty sets when the user or the history store is unavailable.
func (e *Engine) lookupHistory(ctx context.Context, userID string) (map[taxonomy.Group]bool, map[string]bool) {
	if e.history == nil || userID == "" {
		return nil, nil
	}

	completed, err := e.history.CompletedCategories(ctx, userID)
	if err != nil {
		logging.Warn().Str("user_id", userID).Err(err).
			Msg("History categories unavailable, diversity defaults to neutral")
		completed = nil
	}

	ids, err := e.history.CompletedQuestIDs(ctx, userID)
	if err != nil {
		logging.Warn().Str("user_id", userID).Err(err).
			Msg("History quest IDs unavailable, completed quests not excluded")
		ids = nil
	}

	return completed, ids
}

// resolveMustVisit extracts the mandatory stop from the pool, or
// fetches it directly when absent. An unresolvable ID is logged and
// ignored rather than failing the request.
func (e *Engine) resolveMustVisit(ctx context.Context, id string, pool []*quest.Quest, in scoreInput) ([]*quest.Quest, *ScoredQuest) {
	if id == "" {
		return pool, nil
	}

	for i, q := range pool {
		if q.ID == id {
			pool = append(pool[:i], pool[i+1:]...)
			return pool, e.scorer.score(q, in)
		}
	}

	q, err := e.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, quest.ErrNotFound) {
			logging.Warn().Str("quest_id", id).Err(err).Msg("Must-visit lookup failed")
		} else {
			logging.Debug().Str("quest_id", id).Msg("Must-visit quest does not exist")
		}
		return pool, nil
	}

	return pool, e.scorer.score(q, in)
}

// applyRerank attempts the AI reorder and, when accepted, replaces the
// deterministic ordering. Any fallback leaves resp.Quests untouched.
func (e *Engine) applyRerank(ctx context.Context, req *Request, resp *Response, scored []*ScoredQuest, mustVisit *ScoredQuest, maxResults int) {
	if !e.cfg.Reranker.Enabled || e.reranker == nil {
		resp.FallbackReason = string(reranking.ReasonDisabled)
		return
	}

	ranked := make([]*ScoredQuest, len(scored), len(scored)+1)
	copy(ranked, scored)
	if mustVisit != nil {
		ranked = append(ranked, mustVisit)
	}
	sortByScore(ranked)

	byID := make(map[string]*ScoredQuest, len(ranked))
	candidates := make([]reranking.Candidate, len(ranked))
	for i, sq := range ranked {
		byID[sq.Quest.ID] = sq
		candidates[i] = reranking.Candidate{
			ID:              sq.Quest.ID,
			Name:            sq.Quest.Name,
			Category:        string(sq.Quest.Group),
			DistanceKm:      sq.DistanceKm,
			RewardPoints:    sq.Quest.RewardPoints,
			SpecialEligible: sq.Quest.SpecialEligible,
		}
	}

	outcome := e.reranker.Rerank(ctx, reranking.RerankRequest{
		Themes:     req.Themes,
		Hint:       req.CategoryHint,
		Candidates: candidates,
		MaxResults: maxResults,
	})

	if !outcome.IsAccepted() {
		resp.FallbackReason = string(outcome.Reason())
		return
	}

	resp.Quests = e.screenAccepted(outcome.IDs(), byID, mustVisit, maxResults)
	resp.Reranked = true
}

// screenAccepted turns an accepted ordering into the final list while
// preserving the structural invariants: place dedup, mandatory-stop
// inclusion, result cap, special pick last.
func (e *Engine) screenAccepted(ids []string, byID map[string]*ScoredQuest, mustVisit *ScoredQuest, maxResults int) []*ScoredQuest {
	seen := make(map[string]bool, len(ids))
	list := make([]*ScoredQuest, 0, len(ids)+1)
	for _, id := range ids {
		sq, ok := byID[id]
		if !ok || seen[sq.Quest.PlaceID] {
			continue
		}
		seen[sq.Quest.PlaceID] = true
		list = append(list, sq)
	}

	if mustVisit != nil && !seen[mustVisit.Quest.PlaceID] {
		list = append([]*ScoredQuest{mustVisit}, list...)
	}

	// Re-assert the special-last rule over the final objects.
	var regular, special []*ScoredQuest
	for _, sq := range list {
		if sq.Quest.SpecialEligible {
			special = append(special, sq)
		} else {
			regular = append(regular, sq)
		}
	}
	if mustVisit != nil && mustVisit.Quest.SpecialEligible {
		// The mandatory stop holds the special slot and stays last.
		for i, sq := range special {
			if sq == mustVisit {
				special = append(append(special[:i], special[i+1:]...), mustVisit)
				break
			}
		}
	}

	// The accepted ordering is already within the cap; only the
	// mandatory-stop prepend can overflow it by one. Drop the lowest
	// regular that is not the mandatory stop, then a surplus special.
	for len(regular)+len(special) > maxResults {
		if dropOne(&regular, mustVisit, true) {
			continue
		}
		if !dropOne(&special, mustVisit, false) {
			break
		}
	}

	return append(regular, special...)
}

// dropOne removes one element of list that is not keep, from the back
// for regulars and from the front for the special tail so the final
// element survives. Returns false when nothing could be removed.
func dropOne(list *[]*ScoredQuest, keep *ScoredQuest, fromBack bool) bool {
	l := *list
	if fromBack {
		for i := len(l) - 1; i >= 0; i-- {
			if l[i] == keep {
				continue
			}
			*list = append(l[:i], l[i+1:]...)
			return true
		}
		return false
	}
	for i := 0; i < len(l); i++ {
		if l[i] == keep {
			continue
		}
		*list = append(l[:i], l[i+1:]...)
		return true
	}
	return false
}

func (e *Engine) recordSession(req *Request, resp *Response, poolSize int, anchored bool, start time.Time) string {
	questIDs := make([]string, len(resp.Quests))
	for i, sq := range resp.Quests {
		questIDs[i] = sq.Quest.ID
	}

	entry := sessionlog.Entry{
		UserID:         req.UserID,
		RequestedAt:    start.UTC(),
		Themes:         req.Themes,
		Districts:      req.Districts,
		AnchorUsed:     anchored,
		PoolSize:       poolSize,
		QuestIDs:       questIDs,
		Reranked:       resp.Reranked,
		FallbackReason: resp.FallbackReason,
		LatencyMs:      time.Since(start).Milliseconds(),
	}

	if e.recorder == nil {
		// Session IDs are still issued so responses stay uniform.
		return sessionlog.NewRecorder(nil).Record(entry)
	}
	return e.recorder.Record(entry)
}
