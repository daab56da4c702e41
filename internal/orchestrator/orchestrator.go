// Package orchestrator runs one conversational turn end to end: record the
// utterance, classify it, route it to a fresh backend search or an in-process
// replay over the previous result set, record the answer. Everything a stage
// decides lands in the TurnContext; the only blocking I/O is the retrieval
// backend call.
package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/chessmate-ai/chessmate/internal/classify"
	"github.com/chessmate-ai/chessmate/internal/compile"
	apperrors "github.com/chessmate-ai/chessmate/internal/errors"
	"github.com/chessmate-ai/chessmate/internal/filter"
	"github.com/chessmate-ai/chessmate/internal/ledger"
	"github.com/chessmate-ai/chessmate/internal/retrieval"
	"github.com/chessmate-ai/chessmate/internal/usage"
)

// Config tunes the orchestrator.
type Config struct {
	// SearchLimit caps fresh searches when the utterance names no limit.
	SearchLimit int `yaml:"search-limit" json:"search-limit"`
}

// DefaultConfig returns the orchestrator defaults.
func DefaultConfig() Config {
	return Config{SearchLimit: 50}
}

// Orchestrator wires the ledger, classifier and compiler around the
// retrieval client. All collaborators are injected; there is no package
// state.
type Orchestrator struct {
	ledger *ledger.Ledger
	search retrieval.Client
	config Config
	now    func() time.Time
}

// New builds an orchestrator. now is injectable for tests; nil means
// time.Now.
func New(l *ledger.Ledger, search retrieval.Client, cfg Config, now func() time.Time) *Orchestrator {
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = DefaultConfig().SearchLimit
	}
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{ledger: l, search: search, config: cfg, now: now}
}

// Run processes one turn synchronously. The user utterance is recorded
// before anything else, so even a rejected turn leaves its trace in the
// session. Errors come back as AppErrors ready for the transport layer.
func (o *Orchestrator) Run(ctx context.Context, req TurnRequest) (*TurnContext, error) {
	tc := &TurnContext{
		TurnID:     uuid.NewString(),
		SessionID:  req.SessionID,
		Utterance:  req.Utterance,
		ReceivedAt: o.now(),
		State:      StateReceived,
	}

	userMeta := map[string]string{"turn_id": tc.TurnID}
	if req.FEN != "" {
		userMeta["fen"] = req.FEN
	}
	userMsg := ledger.Message{Role: ledger.RoleUser, Content: req.Utterance, Metadata: userMeta}
	if _, err := o.ledger.Append(ctx, req.SessionID, userMsg); err != nil {
		return nil, apperrors.NotRecorded(err)
	}

	cls := classify.Classify(req.Utterance, req.Language)
	tc.Language = cls.Language
	tc.Intent = cls.Intent
	tc.Filter = cls.Filter
	if req.FEN != "" {
		// An explicit position wins over anything extracted from the text.
		tc.Filter.FEN = req.FEN
	}
	tc.State = StateClassified

	if err := tc.Filter.Validate(); err != nil {
		var ve *apperrors.ValidationErrors
		if errors.As(err, &ve) {
			return nil, ve.ToAppError()
		}
		return nil, err
	}

	var err error
	if tc.Intent == classify.IntentRefine {
		err = o.refine(ctx, tc)
	} else {
		err = o.fresh(ctx, tc)
	}
	if err != nil {
		return nil, err
	}

	if err := o.recordAnswer(ctx, tc); err != nil {
		return nil, err
	}
	tc.State = StateAnswered
	tc.Took = o.now().Sub(tc.ReceivedAt)
	usage.ObserveTurn(string(tc.Intent), string(tc.Outcome), tc.Took)
	log.WithFields(log.Fields{
		"session": tc.SessionID,
		"turn":    tc.TurnID,
		"intent":  tc.Intent,
		"outcome": tc.Outcome,
		"lang":    tc.Language,
		"matched": tc.FilteredCount,
	}).Info("turn answered")
	return tc, nil
}

// refine replays the turn's criteria over the previous result set. Without
// a prior set in the lookback window there is nothing to narrow, which is an
// answer, not an error.
func (o *Orchestrator) refine(ctx context.Context, tc *TurnContext) error {
	prior, ok, err := o.ledger.LastResultSet(ctx, tc.SessionID)
	if err != nil {
		return err
	}
	if !ok {
		tc.Filter = filter.Spec{}
		tc.Outcome = OutcomeServedFresh
		tc.Response = nothingToFilterText(tc.Language)
		return nil
	}

	tc.Prior = prior
	tc.State = StateReplay
	res, err := compile.Replay(prior.Items, &tc.Filter)
	if err != nil {
		return err
	}
	tc.Games = res.Items
	tc.OriginalCount = res.OriginalCount
	tc.FilteredCount = res.FilteredCount
	tc.Outcome = OutcomeServedRefinement
	tc.Response = refinementText(tc.Language, res.FilteredCount, res.OriginalCount)
	return nil
}

// fresh compiles the criteria into the backend filter tree and searches.
func (o *Orchestrator) fresh(ctx context.Context, tc *TurnContext) error {
	tc.State = StatePushdown
	qf, err := compile.Pushdown(&tc.Filter)
	if err != nil {
		return err
	}

	limit := tc.Filter.Limit
	if limit <= 0 {
		limit = o.config.SearchLimit
	}
	sreq := retrieval.SearchRequest{
		Query:  tc.Utterance,
		Filter: qf,
		Limit:  limit,
		Offset: tc.Filter.Offset,
		Kind:   retrieval.KindText,
	}
	if tc.Filter.FEN != "" {
		sreq.Kind = retrieval.KindPosition
		sreq.FEN = tc.Filter.FEN
	}

	resp, err := o.search.Search(ctx, sreq)
	usage.ObserveRetrieval(sreq.Kind, err)
	if err != nil {
		return apperrors.New(http.StatusBadGateway, apperrors.CodeRetrievalFailed,
			"retrieval backend unavailable", err)
	}

	tc.Games = resp.Games
	tc.OriginalCount = resp.Total
	if tc.OriginalCount < len(resp.Games) {
		tc.OriginalCount = len(resp.Games)
	}
	tc.FilteredCount = len(resp.Games)
	tc.Outcome = OutcomeServedFresh
	tc.Response = freshText(tc.Language, len(resp.Games))
	return nil
}

// recordAnswer appends the assistant message, attaching the served result
// set so a later refinement can replay it.
func (o *Orchestrator) recordAnswer(ctx context.Context, tc *TurnContext) error {
	msg := ledger.Message{
		Role:    ledger.RoleAssistant,
		Content: tc.Response,
		Metadata: map[string]string{
			"turn_id":  tc.TurnID,
			"intent":   string(tc.Intent),
			"language": tc.Language,
			"outcome":  string(tc.Outcome),
			"filter":   tc.Filter.Summary(),
		},
	}
	if tc.Games != nil || tc.Prior != nil {
		kind := retrieval.KindText
		query := tc.Utterance
		if tc.Prior != nil {
			kind = tc.Prior.Kind
			query = tc.Prior.Query
		} else if tc.Filter.FEN != "" {
			kind = retrieval.KindPosition
		}
		msg.ResultSet = &ledger.ResultSetAttachment{
			Kind:          kind,
			Query:         query,
			OriginalCount: tc.OriginalCount,
			FilteredCount: tc.FilteredCount,
			Filters:       tc.Filter.Summary(),
			Items:         tc.Games,
		}
	}
	if _, err := o.ledger.Append(ctx, tc.SessionID, msg); err != nil {
		return apperrors.NotRecorded(err)
	}
	return nil
}
