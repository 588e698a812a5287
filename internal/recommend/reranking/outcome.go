// QuestRoute - Quest Itinerary Recommendation Engine
// Copyright 2026 Roamlab
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/roamlab/questroute

// Package reranking adapts an external reasoning collaborator for the
// final reordering pass. Every failure mode maps to a typed fallback
// outcome; the caller's deterministic ordering is never at risk.
package reranking

// Reason explains why a rerank attempt fell back to the deterministic
// ordering.
type Reason string

const (
	ReasonDisabled     Reason = "disabled"
	ReasonPoolTooSmall Reason = "pool_too_small"
	ReasonBreakerOpen  Reason = "breaker_open"
	ReasonRateLimited  Reason = "rate_limited"
	ReasonTimeout      Reason = "timeout"
	ReasonCallError    Reason = "call_error"
	ReasonParseError   Reason = "parse_error"
	ReasonUnknownID    Reason = "unknown_id"
	ReasonTooMany      Reason = "too_many"
	ReasonEmpty        Reason = "empty"
)

// Outcome is the typed result of a rerank attempt: either an accepted
// ordering or a fallback with a reason. Modeling failures as values
// keeps the selection path total; there is no exception to catch.
type Outcome struct {
	accepted bool
	ids      []string
	reason   Reason
}

// Accepted builds a successful outcome carrying the collaborator's
// ordering.
func Accepted(ids []string) Outcome {
	return Outcome{accepted: true, ids: ids}
}

// Fallback builds a failed outcome with the reason the deterministic
// path is used instead.
func Fallback(reason Reason) Outcome {
	return Outcome{reason: reason}
}

// IsAccepted reports whether the collaborator's ordering should be
// applied.
func (o Outcome) IsAccepted() bool { return o.accepted }

// IDs returns the accepted ordering; nil for fallbacks.
func (o Outcome) IDs() []string { return o.ids }

// Reason returns the fallback reason; empty for accepted outcomes.
func (o Outcome) Reason() Reason { return o.reason }

// Label returns the metrics label for this outcome.
func (o Outcome) Label() string {
	if o.accepted {
		return "accepted"
	}
	return string(o.reason)
}
