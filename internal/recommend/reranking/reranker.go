// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

package reranking

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/roamlab/questroute/internal/logging"
	"github.com/roamlab/questroute/internal/metrics"
)

// State tracks the adapter's last attempt through its lifecycle.
type State int32

const (
	StateIdle State = iota
	StateRequested
	StateAccepted
	StateRejected
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequested:
		return "requested"
	case StateAccepted:
		return "accepted"
	case StateRejected:
		return "rejected"
	case StateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Client is the external reasoning collaborator. Implementations
// receive a JSON payload and return a JSON response; transport is
// their concern.
type Client interface {
	Rerank(ctx context.Context, payload []byte) ([]byte, error)
}

// Config holds the adapter's operational parameters.
type Config struct {
	// TopK caps the number of candidates sent out.
	TopK int

	// MinPool is the smallest pool worth a rerank call.
	MinPool int

	// Timeout bounds one call.
	Timeout time.Duration

	// RatePerSecond and RateBurst configure the outbound rate limiter.
	RatePerSecond float64
	RateBurst     int

	// BreakerFailureThreshold consecutive failures open the breaker;
	// BreakerOpenTimeout is the recovery probe delay.
	BreakerFailureThreshold uint32
	BreakerOpenTimeout      time.Duration
}

// Candidate is the summary sent to the collaborator. Raw scores are
// withheld so the collaborator reasons about fit, not our arithmetic.
type Candidate struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	DistanceKm      float64 `json:"distance_km,omitempty"`
	RewardPoints    int     `json:"reward_points"`
	SpecialEligible bool    `json:"special_eligible"`
}

// RerankRequest carries one rerank attempt's inputs.
type RerankRequest struct {
	Themes     []string
	Hint       string
	Candidates []Candidate
	MaxResults int
}

type payload struct {
	Themes     []string    `json:"themes,omitempty"`
	Hint       string      `json:"hint,omitempty"`
	Candidates []Candidate `json:"candidates"`
	MaxResults int         `json:"max_results"`
}

type response struct {
	QuestIDs []string `json:"quest_ids"`
}

// Reranker wraps a Client with a rate limiter and circuit breaker,
// validates every response, and reduces each attempt to an Outcome.
type Reranker struct {
	client  Client
	cfg     Config
	breaker *gobreaker.CircuitBreaker[[]byte]
	limiter *rate.Limiter
	state   atomic.Int32
}

// New builds a Reranker. A nil client yields an adapter whose every
// attempt falls back with ReasonDisabled.
func New(client Client, cfg Config) *Reranker {
	r := &Reranker{client: client, cfg: cfg}

	r.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst)
	r.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "reranker",
		Timeout: cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Reranker breaker state transition")
			metrics.RerankBreakerState.Set(breakerStateValue(to))
		},
	})

	return r
}

// State returns the lifecycle state of the most recent attempt.
func (r *Reranker) State() State {
	return State(r.state.Load())
}

// Rerank asks the collaborator to reorder the top candidates. The
// returned Outcome is always usable: accepted orderings have been
// validated against the candidate set and re-screened so a
// special-eligible pick sits last.
func (r *Reranker) Rerank(ctx context.Context, req RerankRequest) Outcome {
	outcome := r.attempt(ctx, req)

	metrics.RerankOutcomes.WithLabelValues(outcome.Label()).Inc()
	if !outcome.IsAccepted() && outcome.Reason() != ReasonDisabled {
		logging.Debug().
			Str("reason", string(outcome.Reason())).
			Int("candidates", len(req.Candidates)).
			Msg("Rerank fell back to deterministic ordering")
	}

	return outcome
}

func (r *Reranker) attempt(ctx context.Context, req RerankRequest) Outcome {
	if r.client == nil {
		r.state.Store(int32(StateIdle))
		return Fallback(ReasonDisabled)
	}
	if len(req.Candidates) < r.cfg.MinPool {
		r.state.Store(int32(StateRejected))
		return Fallback(ReasonPoolTooSmall)
	}
	if !r.limiter.Allow() {
		r.state.Store(int32(StateRejected))
		return Fallback(ReasonRateLimited)
	}

	candidates := req.Candidates
	if len(candidates) > r.cfg.TopK {
		candidates = candidates[:r.cfg.TopK]
	}

	body, err := json.Marshal(payload{
		Themes:     req.Themes,
		Hint:       req.Hint,
		Candidates: candidates,
		MaxResults: req.MaxResults,
	})
	if err != nil {
		return Fallback(ReasonCallError)
	}

	r.state.Store(int32(StateRequested))
	start := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	raw, err := r.breaker.Execute(func() ([]byte, error) {
		return r.client.Rerank(callCtx, body)
	})
	metrics.RerankDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			r.state.Store(int32(StateRejected))
			return Fallback(ReasonBreakerOpen)
		case errors.Is(err, context.DeadlineExceeded), errors.Is(callCtx.Err(), context.DeadlineExceeded):
			r.state.Store(int32(StateTimedOut))
			return Fallback(ReasonTimeout)
		default:
			r.state.Store(int32(StateRejected))
			return Fallback(ReasonCallError)
		}
	}

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		r.state.Store(int32(StateRejected))
		return Fallback(ReasonParseError)
	}

	if reason, ok := validate(resp.QuestIDs, candidates, req.MaxResults); !ok {
		r.state.Store(int32(StateRejected))
		return Fallback(reason)
	}

	r.state.Store(int32(StateAccepted))
	return Accepted(specialLast(resp.QuestIDs, candidates))
}

// validate checks the collaborator's ordering: non-empty, within the
// result cap, a set of known candidate IDs with no duplicates.
func validate(ids []string, candidates []Candidate, maxResults int) (Reason, bool) {
	if len(ids) == 0 {
		return ReasonEmpty, false
	}
	if len(ids) > maxResults {
		return ReasonTooMany, false
	}

	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c.ID] = true
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !known[id] || seen[id] {
			return ReasonUnknownID, false
		}
		seen[id] = true
	}
	return "", true
}

// specialLast moves special-eligible picks to the tail of the accepted
// ordering, preserving relative order within both partitions. Set
// membership is trusted; only positions are corrected.
func specialLast(ids []string, candidates []Candidate) []string {
	special := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if c.SpecialEligible {
			special[c.ID] = true
		}
	}

	out := make([]string, 0, len(ids))
	var tail []string
	for _, id := range ids {
		if special[id] {
			tail = append(tail, id)
			continue
		}
		out = append(out, id)
	}
	return append(out, tail...)
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
