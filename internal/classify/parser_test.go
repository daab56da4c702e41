package classify

import (
	"reflect"
	"testing"

	"github.com/chessmate-ai/chessmate/internal/filter"
)

// TestParseEloBothSides tests that a colourless rating bound applies to both
// sides.
func TestParseEloBothSides(t *testing.T) {
	s := ParseFilter("filter these games by elo above 2600")
	if s.WhiteElo.Min == nil || *s.WhiteElo.Min != 2600 {
		t.Errorf("WhiteElo.Min = %v, want 2600", s.WhiteElo.Min)
	}
	if s.BlackElo.Min == nil || *s.BlackElo.Min != 2600 {
		t.Errorf("BlackElo.Min = %v, want 2600", s.BlackElo.Min)
	}
}

// TestParseEloSideSpecific tests that a colour prefix narrows the bound to
// that side only.
func TestParseEloSideSpecific(t *testing.T) {
	s := ParseFilter("games with white rating above 2700")
	if s.WhiteElo.Min == nil || *s.WhiteElo.Min != 2700 {
		t.Errorf("WhiteElo.Min = %v, want 2700", s.WhiteElo.Min)
	}
	if s.BlackElo.Min != nil {
		t.Errorf("BlackElo.Min = %v, want unset", s.BlackElo.Min)
	}
}

// TestParsePlayerName tests substring player extraction with original casing
// preserved.
func TestParsePlayerName(t *testing.T) {
	s := ParseFilter("show me Carlsen games")
	if s.AnyPlayer != "Carlsen" {
		t.Errorf("AnyPlayer = %q, want Carlsen", s.AnyPlayer)
	}
	if s.White != "" || s.Black != "" {
		t.Error("colour-specific players must stay unset")
	}
}

// TestParseVersus tests that "X vs Y" assigns both colours and clears the
// either-player slot a broader rule may have filled.
func TestParseVersus(t *testing.T) {
	s := ParseFilter("Kasparov vs Karpov games in 1985")
	if s.White != "Kasparov" || s.Black != "Karpov" {
		t.Errorf("players = %q / %q, want Kasparov / Karpov", s.White, s.Black)
	}
	if s.AnyPlayer != "" {
		t.Errorf("AnyPlayer = %q, want empty after vs assignment", s.AnyPlayer)
	}
	if s.Year == nil || *s.Year != 1985 {
		t.Errorf("Year = %v, want 1985", s.Year)
	}
}

// TestLastMatchWins tests the table precedence policy: when two rules of the
// same category match, the later rule's assignment stands.
func TestLastMatchWins(t *testing.T) {
	s := ParseFilter("elo above 2500 and elo between 2400 and 2700")
	if s.WhiteElo.Min == nil || *s.WhiteElo.Min != 2400 {
		t.Errorf("WhiteElo.Min = %v, want 2400 (between rule is later in the table)", s.WhiteElo.Min)
	}
	if s.WhiteElo.Max == nil || *s.WhiteElo.Max != 2700 {
		t.Errorf("WhiteElo.Max = %v, want 2700", s.WhiteElo.Max)
	}
}

// TestDateRangeTakesOverYear tests that a range rule clears a year assigned
// from the same digits earlier in the date table.
func TestDateRangeTakesOverYear(t *testing.T) {
	s := ParseFilter("games since 2018")
	if s.Year != nil {
		t.Errorf("Year = %v, want unset once the range rule matched", *s.Year)
	}
	if s.Dates.From == nil || s.Dates.From.Year() != 2018 {
		t.Errorf("Dates.From = %v, want 2018-01-01", s.Dates.From)
	}
}

// TestParseOpenings tests ECO codes and named openings.
func TestParseOpenings(t *testing.T) {
	s := ParseFilter("find najdorf games, eco b33")
	if s.ECO != "B33" {
		t.Errorf("ECO = %q, want B33", s.ECO)
	}
	if s.Opening != "Sicilian Defense" {
		t.Errorf("Opening = %q, want Sicilian Defense", s.Opening)
	}
	if s.Variation != "Najdorf" {
		t.Errorf("Variation = %q, want Najdorf", s.Variation)
	}
}

// TestParseOutcomeAndLength tests outcome words, decisive flag and
// move-count bounds converted to half-moves.
func TestParseOutcomeAndLength(t *testing.T) {
	s := ParseFilter("decisive games longer than 40 moves where white won")
	if !s.DecisiveOnly {
		t.Error("DecisiveOnly not set")
	}
	if s.Result != filter.ResultWhiteWins {
		t.Errorf("Result = %q, want 1-0", s.Result)
	}
	if s.MinPlies == nil || *s.MinPlies != 80 {
		t.Errorf("MinPlies = %v, want 80", s.MinPlies)
	}
}

// TestParseFENPreservesCase tests that an embedded FEN keeps its original
// casing even though the rest of the text is folded for matching.
func TestParseFENPreservesCase(t *testing.T) {
	const fen = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	s := ParseFilter("Find endgame studies from position " + fen)
	if s.FEN != fen {
		t.Errorf("FEN = %q, want original casing preserved", s.FEN)
	}
}

// TestParseRussian tests the Russian pattern equivalents.
func TestParseRussian(t *testing.T) {
	s := ParseFilter("покажи партии Карлсена в блице с рейтингом выше 2700")
	if s.AnyPlayer != "Карлсена" {
		t.Errorf("AnyPlayer = %q, want Карлсена", s.AnyPlayer)
	}
	if s.TimeControl != "blitz" {
		t.Errorf("TimeControl = %q, want blitz", s.TimeControl)
	}
	if s.WhiteElo.Min == nil || *s.WhiteElo.Min != 2700 || s.BlackElo.Min == nil || *s.BlackElo.Min != 2700 {
		t.Errorf("elo bounds = %v/%v, want 2700 both sides", s.WhiteElo.Min, s.BlackElo.Min)
	}
}

// TestParseDeterministic tests that ParseFilter is a pure function.
func TestParseDeterministic(t *testing.T) {
	const text = "show decisive Carlsen games in the endgame, elo above 2600, top 10"
	first := ParseFilter(text)
	for i := 0; i < 10; i++ {
		if got := ParseFilter(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
	if first.Limit != 10 || first.Phase != filter.PhaseEndgame {
		t.Errorf("parsed controls wrong: %+v", first)
	}
}

// TestParseUnparseable tests that junk text yields an empty spec, never an
// error or panic.
func TestParseUnparseable(t *testing.T) {
	for _, text := range []string{"", "hello there!", "???", "thanks"} {
		if s := ParseFilter(text); !s.IsEmpty() {
			t.Errorf("ParseFilter(%q) = %+v, want empty", text, s)
		}
	}
}
