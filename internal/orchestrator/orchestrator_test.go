package orchestrator

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/chessmate-ai/chessmate/internal/errors"
	"github.com/chessmate-ai/chessmate/internal/ledger"
	"github.com/chessmate-ai/chessmate/internal/retrieval"
)

func newTestOrchestrator(t *testing.T, mock *retrieval.MockClient) (*Orchestrator, *ledger.Ledger) {
	t.Helper()
	store, err := ledger.NewSQLiteStore(":memory:", nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	led := ledger.New(store, ledger.NewMemoryCache(nil), ledger.DefaultConfig())
	return New(led, mock, DefaultConfig(), nil), led
}

func sampleGames() []retrieval.Game {
	return []retrieval.Game{
		{ID: "g1", White: "Carlsen, Magnus", Black: "Anand, Viswanathan", Result: "1-0", WhiteElo: 2850, BlackElo: 2820},
		{ID: "g2", White: "Anand, Viswanathan", Black: "Carlsen, Magnus", Result: "1/2-1/2", WhiteElo: 2780, BlackElo: 2850},
		{ID: "g3", White: "Carlsen, Magnus", Black: "Nakamura, Hikaru", Result: "0-1", WhiteElo: 2850, BlackElo: 2790},
	}
}

// TestFreshTurnSearchesBackend tests that a fresh filtered utterance reaches
// the backend with a compiled filter and records both turn messages.
func TestFreshTurnSearchesBackend(t *testing.T) {
	mock := &retrieval.MockClient{Games: sampleGames()}
	o, led := newTestOrchestrator(t, mock)

	tc, err := o.Run(context.Background(), TurnRequest{
		SessionID: "s1",
		Utterance: "show me Carlsen games",
	})
	if err != nil {
		t.Fatal(err)
	}
	if tc.Outcome != OutcomeServedFresh || tc.State != StateAnswered {
		t.Fatalf("outcome %q state %q", tc.Outcome, tc.State)
	}
	if tc.Filter.AnyPlayer != "Carlsen" {
		t.Fatalf("any_player = %q", tc.Filter.AnyPlayer)
	}
	req := mock.LastRequest()
	if req.Filter == nil || len(req.Filter.Must) == 0 {
		t.Fatal("backend request carried no filter")
	}
	if req.Kind != retrieval.KindText {
		t.Fatalf("kind = %q", req.Kind)
	}

	msgs, err := led.History(context.Background(), "s1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Role != ledger.RoleUser || msgs[1].Role != ledger.RoleAssistant {
		t.Fatalf("unexpected history: %+v", msgs)
	}
	if msgs[1].ResultSet == nil || msgs[1].ResultSet.OriginalCount != 3 {
		t.Fatalf("assistant message missing result set: %+v", msgs[1].ResultSet)
	}
}

// TestRefinementReplaysPriorSet tests that a follow-up filter is replayed
// over the stored result set without another backend call.
func TestRefinementReplaysPriorSet(t *testing.T) {
	mock := &retrieval.MockClient{Games: sampleGames()}
	o, _ := newTestOrchestrator(t, mock)
	ctx := context.Background()

	if _, err := o.Run(ctx, TurnRequest{SessionID: "s1", Utterance: "show me Carlsen games"}); err != nil {
		t.Fatal(err)
	}
	calls := len(mock.Requests)

	tc, err := o.Run(ctx, TurnRequest{SessionID: "s1", Utterance: "only the ones where white won"})
	if err != nil {
		t.Fatal(err)
	}
	if tc.Outcome != OutcomeServedRefinement {
		t.Fatalf("outcome = %q", tc.Outcome)
	}
	if len(mock.Requests) != calls {
		t.Fatal("refinement hit the backend")
	}
	if tc.OriginalCount != 3 || tc.FilteredCount != 1 || tc.Games[0].ID != "g1" {
		t.Fatalf("replay kept %d of %d: %+v", tc.FilteredCount, tc.OriginalCount, tc.Games)
	}
}

// TestRefinementChains tests that a second refinement starts from the
// narrowed set, not the original one.
func TestRefinementChains(t *testing.T) {
	mock := &retrieval.MockClient{Games: sampleGames()}
	o, _ := newTestOrchestrator(t, mock)
	ctx := context.Background()

	if _, err := o.Run(ctx, TurnRequest{SessionID: "s1", Utterance: "find Carlsen games"}); err != nil {
		t.Fatal(err)
	}
	first, err := o.Run(ctx, TurnRequest{SessionID: "s1", Utterance: "filter these games by elo above 2800"})
	if err != nil {
		t.Fatal(err)
	}
	if first.FilteredCount != 1 || first.Games[0].ID != "g1" {
		t.Fatalf("first refinement kept %+v", first.Games)
	}

	second, err := o.Run(ctx, TurnRequest{SessionID: "s1", Utterance: "from these, only draws"})
	if err != nil {
		t.Fatal(err)
	}
	if second.OriginalCount != 1 || second.FilteredCount != 0 {
		t.Fatalf("second refinement saw %d, kept %d", second.OriginalCount, second.FilteredCount)
	}
}

// TestRefineWithoutPriorResults tests the "nothing to filter yet" answer: a
// refinement with no prior result set serves a fresh outcome with an empty
// filter and no error.
func TestRefineWithoutPriorResults(t *testing.T) {
	mock := &retrieval.MockClient{}
	o, _ := newTestOrchestrator(t, mock)

	tc, err := o.Run(context.Background(), TurnRequest{
		SessionID: "s1",
		Utterance: "filter these games by elo above 2600",
	})
	if err != nil {
		t.Fatal(err)
	}
	if tc.Outcome != OutcomeServedFresh {
		t.Fatalf("outcome = %q", tc.Outcome)
	}
	if !tc.Filter.IsEmpty() {
		t.Fatalf("filter not emptied: %s", tc.Filter.Summary())
	}
	if len(mock.Requests) != 0 {
		t.Fatal("backend was called")
	}
	if tc.Response == "" {
		t.Fatal("no response text")
	}
}

// TestValidationRejectionListsAllViolations tests that an inconsistent
// filter rejects the turn with every violation in one error, while the user
// utterance itself stays recorded.
func TestValidationRejectionListsAllViolations(t *testing.T) {
	mock := &retrieval.MockClient{}
	o, led := newTestOrchestrator(t, mock)

	_, err := o.Run(context.Background(), TurnRequest{
		SessionID: "s1",
		Utterance: "show games with elo between 2800 and 2000 longer than 200 moves shorter than 10 moves",
	})
	if err == nil {
		t.Fatal("expected rejection")
	}
	var app *apperrors.AppError
	if !errors.As(err, &app) || app.Code != apperrors.CodeInvalidFilter {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(app.Details) < 2 {
		t.Fatalf("expected all violations collected, got %v", app.Details)
	}
	if len(mock.Requests) != 0 {
		t.Fatal("rejected turn reached the backend")
	}

	msgs, err := led.History(context.Background(), "s1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Role != ledger.RoleUser {
		t.Fatalf("utterance not recorded: %+v", msgs)
	}
}

// TestExplicitFENRoutesPositionSearch tests that a request-level FEN forces
// a position search carrying that exact string.
func TestExplicitFENRoutesPositionSearch(t *testing.T) {
	mock := &retrieval.MockClient{}
	o, _ := newTestOrchestrator(t, mock)

	fen := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	tc, err := o.Run(context.Background(), TurnRequest{
		SessionID: "s1",
		Utterance: "find games from this position",
		FEN:       fen,
	})
	if err != nil {
		t.Fatal(err)
	}
	req := mock.LastRequest()
	if req.Kind != retrieval.KindPosition || req.FEN != fen {
		t.Fatalf("kind %q fen %q", req.Kind, req.FEN)
	}
	if tc.Filter.FEN != fen {
		t.Fatalf("filter fen = %q", tc.Filter.FEN)
	}
}

// TestBackendFailureSurfacesAsRetrievalError tests the bad-gateway mapping
// of a backend failure.
func TestBackendFailureSurfacesAsRetrievalError(t *testing.T) {
	mock := &retrieval.MockClient{Err: errors.New("connection refused")}
	o, _ := newTestOrchestrator(t, mock)

	_, err := o.Run(context.Background(), TurnRequest{SessionID: "s1", Utterance: "find some games"})
	if err == nil {
		t.Fatal("expected error")
	}
	var app *apperrors.AppError
	if !errors.As(err, &app) || app.Code != apperrors.CodeRetrievalFailed {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestRussianTurnAnswersInRussian tests language plumbing end to end.
func TestRussianTurnAnswersInRussian(t *testing.T) {
	mock := &retrieval.MockClient{Games: sampleGames()}
	o, _ := newTestOrchestrator(t, mock)

	tc, err := o.Run(context.Background(), TurnRequest{
		SessionID: "s1",
		Utterance: "покажи партии Карлсена",
	})
	if err != nil {
		t.Fatal(err)
	}
	if tc.Language != "ru" {
		t.Fatalf("language = %q", tc.Language)
	}
	if tc.Response != "Найдено партий: 3." {
		t.Fatalf("response = %q", tc.Response)
	}
}
