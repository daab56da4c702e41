// Package filter defines the typed filter model extracted from free-text
// utterances: the FilterSpec criteria object, its range value types, and the
// validation rules they must satisfy before a spec may be compiled.
//
// A FilterSpec is constructed once per utterance by the classifier, is
// immutable by convention, and is consumed by exactly one compiler invocation
// (pushdown or replay) before being kept only as provenance.
package filter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "github.com/chessmate-ai/chessmate/internal/errors"
)

// Game results as recorded in PGN headers.
const (
	ResultWhiteWins = "1-0"
	ResultBlackWins = "0-1"
	ResultDraw      = "1/2-1/2"
)

// Coarse game phases for position filters.
const (
	PhaseOpening    = "opening"
	PhaseMiddlegame = "middlegame"
	PhaseEndgame    = "endgame"
)

// EloRange bounds a rating, both ends optional. A range with both bounds set
// and Min > Max is invalid and must be rejected before use.
type EloRange struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

// IsZero reports whether neither bound is set.
func (r EloRange) IsZero() bool { return r.Min == nil && r.Max == nil }

// Valid reports whether the range is internally consistent.
func (r EloRange) Valid() bool {
	return r.Min == nil || r.Max == nil || *r.Min <= *r.Max
}

// Contains reports whether elo falls inside the range, bounds inclusive.
func (r EloRange) Contains(elo int) bool {
	if r.Min != nil && elo < *r.Min {
		return false
	}
	if r.Max != nil && elo > *r.Max {
		return false
	}
	return true
}

func (r EloRange) String() string {
	switch {
	case r.Min != nil && r.Max != nil:
		return fmt.Sprintf("%d-%d", *r.Min, *r.Max)
	case r.Min != nil:
		return fmt.Sprintf(">=%d", *r.Min)
	case r.Max != nil:
		return fmt.Sprintf("<=%d", *r.Max)
	}
	return ""
}

// DateRange bounds game dates, both ends optional, same validity rule as
// EloRange.
type DateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool { return r.From == nil && r.To == nil }

// Valid reports whether the range is internally consistent.
func (r DateRange) Valid() bool {
	return r.From == nil || r.To == nil || !r.From.After(*r.To)
}

// Contains reports whether t falls inside the range, bounds inclusive.
func (r DateRange) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

// Spec is the structured query extracted from one utterance. Zero values mean
// "criterion not set"; IsEmpty reports whether any criterion is present.
type Spec struct {
	// Player criteria. Names match by case-insensitive substring.
	White     string `json:"white,omitempty"`
	Black     string `json:"black,omitempty"`
	AnyPlayer string `json:"any_player,omitempty"`
	// Title restricts to titled players, e.g. "GM".
	Title string `json:"title,omitempty"`

	// Rating criteria, one range per side plus aggregate average bounds.
	WhiteElo     EloRange `json:"white_elo,omitempty"`
	BlackElo     EloRange `json:"black_elo,omitempty"`
	AvgRatingMin *int     `json:"avg_rating_min,omitempty"`
	AvgRatingMax *int     `json:"avg_rating_max,omitempty"`

	// Opening criteria. A bare ECO category letter ("B") matches as a prefix,
	// a full code ("B33") matches exactly.
	ECO       string `json:"eco,omitempty"`
	Opening   string `json:"opening,omitempty"`
	Variation string `json:"variation,omitempty"`

	// Event criteria.
	Event         string `json:"event,omitempty"`
	EventCategory string `json:"event_category,omitempty"`
	Site          string `json:"site,omitempty"`
	Round         string `json:"round,omitempty"`

	// Date criteria: a range or an explicit year.
	Dates DateRange `json:"dates,omitempty"`
	Year  *int      `json:"year,omitempty"`

	// Outcome criteria: an exact PGN result, or any decisive result.
	Result       string `json:"result,omitempty"`
	DecisiveOnly bool   `json:"decisive_only,omitempty"`

	// Game length bounds in half-moves.
	MinPlies *int `json:"min_plies,omitempty"`
	MaxPlies *int `json:"max_plies,omitempty"`

	// TimeControl is a coarse tag: "bullet", "blitz", "rapid", "classical".
	TimeControl string `json:"time_control,omitempty"`

	// Position criteria: an exact FEN (case is significant) plus a coarse
	// phase tag.
	FEN   string `json:"fen,omitempty"`
	Phase string `json:"phase,omitempty"`

	// Pagination and sorting.
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
	SortBy   string `json:"sort_by,omitempty"`
	SortDesc bool   `json:"sort_desc,omitempty"`
}

// IsEmpty reports whether no filtering criterion is set. Pagination and sort
// controls alone do not make a spec non-empty.
func (s *Spec) IsEmpty() bool {
	return s.White == "" && s.Black == "" && s.AnyPlayer == "" && s.Title == "" &&
		s.WhiteElo.IsZero() && s.BlackElo.IsZero() &&
		s.AvgRatingMin == nil && s.AvgRatingMax == nil &&
		s.ECO == "" && s.Opening == "" && s.Variation == "" &&
		s.Event == "" && s.EventCategory == "" && s.Site == "" && s.Round == "" &&
		s.Dates.IsZero() && s.Year == nil &&
		s.Result == "" && !s.DecisiveOnly &&
		s.MinPlies == nil && s.MaxPlies == nil &&
		s.TimeControl == "" && s.FEN == "" && s.Phase == ""
}

// Validate checks every sub-range independently and collects all violations
// into a single error. It never stops at the first problem.
func (s *Spec) Validate() error {
	v := new(apperrors.ValidationErrors)
	if !s.WhiteElo.Valid() {
		v.Add("white_elo", "min exceeds max")
	}
	if !s.BlackElo.Valid() {
		v.Add("black_elo", "min exceeds max")
	}
	if s.AvgRatingMin != nil && s.AvgRatingMax != nil && *s.AvgRatingMin > *s.AvgRatingMax {
		v.Add("avg_rating", "min exceeds max")
	}
	if !s.Dates.Valid() {
		v.Add("dates", "from is after to")
	}
	if s.Year != nil && (*s.Year < 1475 || *s.Year > 2100) {
		v.Add("year", "outside the range of recorded chess")
	}
	if s.MinPlies != nil && *s.MinPlies < 0 {
		v.Add("min_plies", "negative")
	}
	if s.MaxPlies != nil && *s.MaxPlies < 0 {
		v.Add("max_plies", "negative")
	}
	if s.MinPlies != nil && s.MaxPlies != nil && *s.MinPlies > *s.MaxPlies {
		v.Add("plies", "min exceeds max")
	}
	if s.Result != "" && s.Result != ResultWhiteWins && s.Result != ResultBlackWins && s.Result != ResultDraw {
		v.Add("result", "not a recognized game result")
	}
	if s.Phase != "" && s.Phase != PhaseOpening && s.Phase != PhaseMiddlegame && s.Phase != PhaseEndgame {
		v.Add("phase", "not a recognized game phase")
	}
	if s.Limit < 0 {
		v.Add("limit", "negative")
	}
	if s.Offset < 0 {
		v.Add("offset", "negative")
	}
	return v.AsError()
}

// Summary renders the set criteria in a stable, compact form for logs,
// provenance records and user-facing responses.
func (s *Spec) Summary() string {
	parts := map[string]string{}
	add := func(k, v string) {
		if v != "" {
			parts[k] = v
		}
	}
	add("white", s.White)
	add("black", s.Black)
	add("player", s.AnyPlayer)
	add("title", s.Title)
	add("white_elo", s.WhiteElo.String())
	add("black_elo", s.BlackElo.String())
	if s.AvgRatingMin != nil {
		add("avg_rating_min", fmt.Sprintf("%d", *s.AvgRatingMin))
	}
	if s.AvgRatingMax != nil {
		add("avg_rating_max", fmt.Sprintf("%d", *s.AvgRatingMax))
	}
	add("eco", s.ECO)
	add("opening", s.Opening)
	add("variation", s.Variation)
	add("event", s.Event)
	add("category", s.EventCategory)
	add("site", s.Site)
	add("round", s.Round)
	if s.Dates.From != nil {
		add("from", s.Dates.From.Format("2006-01-02"))
	}
	if s.Dates.To != nil {
		add("to", s.Dates.To.Format("2006-01-02"))
	}
	if s.Year != nil {
		add("year", fmt.Sprintf("%d", *s.Year))
	}
	add("result", s.Result)
	if s.DecisiveOnly {
		add("decisive", "true")
	}
	if s.MinPlies != nil {
		add("min_plies", fmt.Sprintf("%d", *s.MinPlies))
	}
	if s.MaxPlies != nil {
		add("max_plies", fmt.Sprintf("%d", *s.MaxPlies))
	}
	add("time_control", s.TimeControl)
	add("fen", s.FEN)
	add("phase", s.Phase)
	if len(parts) == 0 {
		return "(none)"
	}
	keys := make([]string, 0, len(parts))
	for k := range parts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+parts[k])
	}
	return strings.Join(out, " ")
}

// IntPtr returns a pointer to n. Convenience for building specs in code.
func IntPtr(n int) *int { return &n }
