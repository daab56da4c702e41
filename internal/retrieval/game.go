// Package retrieval is the client side of the vector retrieval collaborator.
// The backend itself is a black box: this package defines the item shape it
// returns, the query/filter tree the pushdown compiler produces for it, the
// HTTP client, and a TTL cache in front of repeated identical searches.
package retrieval

import "time"

// Game is one retrieved item. It carries every field the filter model can
// test so that a later replay pass can re-filter the same items without
// another backend round trip.
type Game struct {
	ID            string    `json:"id"`
	White         string    `json:"white"`
	Black         string    `json:"black"`
	WhiteTitle    string    `json:"white_title,omitempty"`
	BlackTitle    string    `json:"black_title,omitempty"`
	WhiteElo      int       `json:"white_elo"`
	BlackElo      int       `json:"black_elo"`
	Result        string    `json:"result"`
	ECO           string    `json:"eco"`
	Opening       string    `json:"opening"`
	Variation     string    `json:"variation,omitempty"`
	Event         string    `json:"event"`
	EventCategory string    `json:"event_category,omitempty"`
	Site          string    `json:"site,omitempty"`
	Round         string    `json:"round,omitempty"`
	Date          time.Time `json:"date"`
	Year          int       `json:"year"`
	PlyCount      int       `json:"ply_count"`
	TimeControl   string    `json:"time_control,omitempty"`
	// FEN is the position the game was indexed under for position search.
	// Case is significant.
	FEN   string  `json:"fen,omitempty"`
	Phase string  `json:"phase,omitempty"`
	Score float64 `json:"score,omitempty"`
}

// AvgRating returns the mean of both ratings, rounded down.
func (g *Game) AvgRating() int {
	return (g.WhiteElo + g.BlackElo) / 2
}

// QueryFilter is the backend's native filter tree: a conjunction of
// field-level predicates, where a single predicate may itself be a
// disjunction over several fields (the "either player" case).
type QueryFilter struct {
	// Must predicates are ANDed together.
	Must []FieldPredicate `json:"must,omitempty"`
}

// FieldPredicate is one node of the tree. Exactly one of the match kinds is
// populated. Any lists alternative predicates ORed together in place of a
// single field match.
type FieldPredicate struct {
	Field string `json:"field,omitempty"`
	// Contains matches by case-insensitive substring.
	Contains string `json:"contains,omitempty"`
	// Prefix matches by case-insensitive prefix.
	Prefix string `json:"prefix,omitempty"`
	// Equals matches exactly.
	Equals string `json:"equals,omitempty"`
	// In matches any of the listed exact values.
	In []string `json:"in,omitempty"`
	// GTE/LTE bound numeric fields, inclusive.
	GTE *float64 `json:"gte,omitempty"`
	LTE *float64 `json:"lte,omitempty"`
	// Any is a disjunction of alternative predicates.
	Any []FieldPredicate `json:"any,omitempty"`
}

// SearchRequest is what the orchestrator hands the backend: the free-text
// query, the compiled filter tree and pagination.
type SearchRequest struct {
	Query  string       `json:"query"`
	Filter *QueryFilter `json:"filter,omitempty"`
	Limit  int          `json:"limit,omitempty"`
	Offset int          `json:"offset,omitempty"`
	// Kind selects the index to search: "text" or "position".
	Kind string `json:"kind,omitempty"`
	// FEN is set for position searches.
	FEN string `json:"fen,omitempty"`
}

// SearchResponse is the ranked result set.
type SearchResponse struct {
	Games []Game `json:"games"`
	Total int    `json:"total"`
	Took  time.Duration
}

// Search kinds.
const (
	KindText     = "text"
	KindPosition = "position"
)
