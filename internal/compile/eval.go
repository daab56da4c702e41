package compile

import (
	"strings"

	"github.com/chessmate-ai/chessmate/internal/retrieval"
)

// Filterable field names, shared by the tree builder and the in-process
// evaluator. They are the backend's index field names.
const (
	FieldWhite         = "white"
	FieldBlack         = "black"
	FieldWhiteTitle    = "white_title"
	FieldBlackTitle    = "black_title"
	FieldWhiteElo      = "white_elo"
	FieldBlackElo      = "black_elo"
	FieldAvgRating     = "avg_rating"
	FieldECO           = "eco"
	FieldOpening       = "opening"
	FieldVariation     = "variation"
	FieldEvent         = "event"
	FieldEventCategory = "event_category"
	FieldSite          = "site"
	FieldRound         = "round"
	FieldDate          = "date"
	FieldYear          = "year"
	FieldResult        = "result"
	FieldPlyCount      = "ply_count"
	FieldTimeControl   = "time_control"
	FieldFEN           = "fen"
	FieldPhase         = "phase"
)

var stringFields = map[string]func(*retrieval.Game) string{
	FieldWhite:         func(g *retrieval.Game) string { return g.White },
	FieldBlack:         func(g *retrieval.Game) string { return g.Black },
	FieldWhiteTitle:    func(g *retrieval.Game) string { return g.WhiteTitle },
	FieldBlackTitle:    func(g *retrieval.Game) string { return g.BlackTitle },
	FieldECO:           func(g *retrieval.Game) string { return g.ECO },
	FieldOpening:       func(g *retrieval.Game) string { return g.Opening },
	FieldVariation:     func(g *retrieval.Game) string { return g.Variation },
	FieldEvent:         func(g *retrieval.Game) string { return g.Event },
	FieldEventCategory: func(g *retrieval.Game) string { return g.EventCategory },
	FieldSite:          func(g *retrieval.Game) string { return g.Site },
	FieldRound:         func(g *retrieval.Game) string { return g.Round },
	FieldResult:        func(g *retrieval.Game) string { return g.Result },
	FieldTimeControl:   func(g *retrieval.Game) string { return g.TimeControl },
	FieldFEN:           func(g *retrieval.Game) string { return g.FEN },
	FieldPhase:         func(g *retrieval.Game) string { return g.Phase },
}

var numberFields = map[string]func(*retrieval.Game) float64{
	FieldWhiteElo:  func(g *retrieval.Game) float64 { return float64(g.WhiteElo) },
	FieldBlackElo:  func(g *retrieval.Game) float64 { return float64(g.BlackElo) },
	FieldAvgRating: func(g *retrieval.Game) float64 { return float64(g.AvgRating()) },
	FieldYear:      func(g *retrieval.Game) float64 { return float64(g.Year) },
	FieldPlyCount:  func(g *retrieval.Game) float64 { return float64(g.PlyCount) },
	FieldDate:      func(g *retrieval.Game) float64 { return float64(g.Date.Unix()) },
}

// Matches evaluates the compiled filter tree against one game, with the same
// semantics the backend applies: Must predicates AND, Any alternatives OR,
// Contains and Prefix fold case, Equals and In do not. A nil filter matches
// everything.
func Matches(f *retrieval.QueryFilter, g *retrieval.Game) bool {
	if f == nil {
		return true
	}
	for i := range f.Must {
		if !evalPredicate(&f.Must[i], g) {
			return false
		}
	}
	return true
}

func evalPredicate(p *retrieval.FieldPredicate, g *retrieval.Game) bool {
	if len(p.Any) > 0 {
		for i := range p.Any {
			if evalPredicate(&p.Any[i], g) {
				return true
			}
		}
		return false
	}

	if p.GTE != nil || p.LTE != nil {
		get, ok := numberFields[p.Field]
		if !ok {
			return false
		}
		v := get(g)
		if p.GTE != nil && v < *p.GTE {
			return false
		}
		if p.LTE != nil && v > *p.LTE {
			return false
		}
		return true
	}

	get, ok := stringFields[p.Field]
	if !ok {
		return false
	}
	v := get(g)
	switch {
	case p.Contains != "":
		return strings.Contains(strings.ToLower(v), strings.ToLower(p.Contains))
	case p.Prefix != "":
		return strings.HasPrefix(strings.ToLower(v), strings.ToLower(p.Prefix))
	case p.Equals != "":
		return v == p.Equals
	case len(p.In) > 0:
		for _, want := range p.In {
			if v == want {
				return true
			}
		}
		return false
	}
	// An empty predicate constrains nothing.
	return true
}
