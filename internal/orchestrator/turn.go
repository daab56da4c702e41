package orchestrator

import (
	"time"

	"github.com/chessmate-ai/chessmate/internal/classify"
	"github.com/chessmate-ai/chessmate/internal/filter"
	"github.com/chessmate-ai/chessmate/internal/ledger"
	"github.com/chessmate-ai/chessmate/internal/retrieval"
)

// State is where a turn currently sits in the pipeline.
type State string

const (
	StateReceived   State = "received"
	StateClassified State = "classified"
	StatePushdown   State = "pushdown"
	StateReplay     State = "replay"
	StateAnswered   State = "answered"
)

// Outcome is how an answered turn was served.
type Outcome string

const (
	// OutcomeServedFresh means the answer came from a backend search, or
	// from the fallback answer when there was nothing to refine.
	OutcomeServedFresh Outcome = "served-fresh"
	// OutcomeServedRefinement means the answer was replayed from the prior
	// result set without touching the backend.
	OutcomeServedRefinement Outcome = "served-refinement"
)

// TurnRequest is one incoming utterance.
type TurnRequest struct {
	SessionID string `json:"session_id"`
	Utterance string `json:"utterance"`
	// FEN optionally pins the turn to a position regardless of what the
	// utterance text contains.
	FEN string `json:"fen,omitempty"`
	// Language optionally overrides detection ("en" or "ru").
	Language string `json:"language,omitempty"`
}

// TurnContext carries one turn through the pipeline. Every stage writes its
// decision here, so the finished context is both the response payload and
// the provenance record.
type TurnContext struct {
	TurnID     string
	SessionID  string
	Utterance  string
	ReceivedAt time.Time

	State    State
	Language string
	Intent   classify.Intent
	Filter   filter.Spec

	// Prior is the result set a refinement starts from, nil for fresh turns.
	Prior *ledger.ResultSetAttachment

	Response      string
	Games         []retrieval.Game
	OriginalCount int
	FilteredCount int
	Outcome       Outcome
	Took          time.Duration
}

// FilterSummary renders the turn's criteria for responses and logs.
func (tc *TurnContext) FilterSummary() string { return tc.Filter.Summary() }
