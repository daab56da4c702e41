package filter

import (
	"strings"
	"testing"
	"time"

	apperrors "github.com/chessmate-ai/chessmate/internal/errors"
)

// TestEloRangeValid tests the range validity table: a range is valid exactly
// when either bound is absent or min <= max.
func TestEloRangeValid(t *testing.T) {
	cases := []struct {
		name  string
		min   *int
		max   *int
		valid bool
	}{
		{"both nil", nil, nil, true},
		{"min only", IntPtr(2400), nil, true},
		{"max only", nil, IntPtr(2600), true},
		{"ordered", IntPtr(2400), IntPtr(2600), true},
		{"equal", IntPtr(2500), IntPtr(2500), true},
		{"inverted", IntPtr(2700), IntPtr(2600), false},
	}
	for _, tc := range cases {
		r := EloRange{Min: tc.min, Max: tc.max}
		if got := r.Valid(); got != tc.valid {
			t.Errorf("%s: Valid() = %v, want %v", tc.name, got, tc.valid)
		}
	}
}

// TestEloRangeContains tests that bounds are inclusive.
func TestEloRangeContains(t *testing.T) {
	r := EloRange{Min: IntPtr(2400), Max: IntPtr(2600)}
	if !r.Contains(2400) || !r.Contains(2600) {
		t.Error("bounds must be inclusive")
	}
	if r.Contains(2399) || r.Contains(2601) {
		t.Error("values outside the bounds must not match")
	}
	if !(EloRange{}).Contains(100) {
		t.Error("empty range matches everything")
	}
}

// TestDateRangeValid tests date range consistency.
func TestDateRangeValid(t *testing.T) {
	a := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if !(DateRange{From: &a, To: &b}).Valid() {
		t.Error("ordered range should be valid")
	}
	if (DateRange{From: &b, To: &a}).Valid() {
		t.Error("inverted range should be invalid")
	}
	if !(DateRange{From: &a, To: &a}).Valid() {
		t.Error("single-instant range should be valid")
	}
}

// TestSpecIsEmpty tests that pagination alone does not count as a criterion.
func TestSpecIsEmpty(t *testing.T) {
	s := &Spec{Limit: 20, Offset: 40, SortBy: "date"}
	if !s.IsEmpty() {
		t.Error("spec with only pagination/sort should be empty")
	}
	s.AnyPlayer = "Carlsen"
	if s.IsEmpty() {
		t.Error("spec with a player criterion is not empty")
	}
}

// TestValidateCollectsAllViolations tests that validation reports every
// violated field in one rejection instead of stopping at the first.
func TestValidateCollectsAllViolations(t *testing.T) {
	s := &Spec{
		WhiteElo: EloRange{Min: IntPtr(2800), Max: IntPtr(2500)},
		BlackElo: EloRange{Min: IntPtr(2700), Max: IntPtr(2600)},
		MinPlies: IntPtr(80),
		MaxPlies: IntPtr(40),
		Result:   "2-0",
	}
	err := s.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	verr, ok := err.(*apperrors.ValidationErrors)
	if !ok {
		t.Fatalf("expected *ValidationErrors, got %T", err)
	}
	if len(verr.Violations) != 4 {
		t.Fatalf("expected 4 violations, got %d: %v", len(verr.Violations), verr.Violations)
	}
	fields := map[string]bool{}
	for _, v := range verr.Violations {
		fields[v.Field] = true
	}
	for _, want := range []string{"white_elo", "black_elo", "plies", "result"} {
		if !fields[want] {
			t.Errorf("missing violation for %s", want)
		}
	}
}

// TestValidateAcceptsWellFormedSpec tests that a fully populated valid spec
// passes.
func TestValidateAcceptsWellFormedSpec(t *testing.T) {
	from := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC)
	s := &Spec{
		White:    "Carlsen",
		WhiteElo: EloRange{Min: IntPtr(2600)},
		ECO:      "B33",
		Dates:    DateRange{From: &from, To: &to},
		Result:   ResultWhiteWins,
		MinPlies: IntPtr(20),
		MaxPlies: IntPtr(120),
		Phase:    PhaseEndgame,
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

// TestSummaryStable tests that Summary output is deterministic and mentions
// the set criteria.
func TestSummaryStable(t *testing.T) {
	s := &Spec{AnyPlayer: "Tal", Result: ResultWhiteWins, WhiteElo: EloRange{Min: IntPtr(2600)}}
	first := s.Summary()
	for i := 0; i < 5; i++ {
		if got := s.Summary(); got != first {
			t.Fatalf("summary not deterministic: %q vs %q", first, got)
		}
	}
	for _, want := range []string{"player=Tal", "result=1-0", "white_elo=>=2600"} {
		if !strings.Contains(first, want) {
			t.Errorf("summary %q missing %q", first, want)
		}
	}
	if (&Spec{}).Summary() != "(none)" {
		t.Error("empty spec summary should be (none)")
	}
}
