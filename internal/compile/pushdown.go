// Package compile turns a validated FilterSpec into the retrieval backend's
// filter tree, and re-applies that same tree to an already-retrieved result
// set. Both paths share one compiled representation: Pushdown builds the
// tree the backend executes, Replay evaluates the identical tree in process,
// so a criterion can never mean one thing at search time and another at
// refinement time.
package compile

import (
	"github.com/chessmate-ai/chessmate/internal/filter"
	"github.com/chessmate-ai/chessmate/internal/retrieval"
)

// Pushdown compiles spec into the backend filter tree. The spec is validated
// first and a spec with no criteria compiles to a nil filter, meaning an
// unfiltered search.
func Pushdown(spec *filter.Spec) (*retrieval.QueryFilter, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.IsEmpty() {
		return nil, nil
	}

	var must []retrieval.FieldPredicate
	add := func(p retrieval.FieldPredicate) { must = append(must, p) }

	if spec.White != "" {
		add(retrieval.FieldPredicate{Field: FieldWhite, Contains: spec.White})
	}
	if spec.Black != "" {
		add(retrieval.FieldPredicate{Field: FieldBlack, Contains: spec.Black})
	}
	if spec.AnyPlayer != "" {
		add(retrieval.FieldPredicate{Any: []retrieval.FieldPredicate{
			{Field: FieldWhite, Contains: spec.AnyPlayer},
			{Field: FieldBlack, Contains: spec.AnyPlayer},
		}})
	}
	if spec.Title != "" {
		add(retrieval.FieldPredicate{Any: []retrieval.FieldPredicate{
			{Field: FieldWhiteTitle, Equals: spec.Title},
			{Field: FieldBlackTitle, Equals: spec.Title},
		}})
	}

	addRange := func(field string, r filter.EloRange) {
		if r.IsZero() {
			return
		}
		p := retrieval.FieldPredicate{Field: field}
		if r.Min != nil {
			p.GTE = f64(*r.Min)
		}
		if r.Max != nil {
			p.LTE = f64(*r.Max)
		}
		add(p)
	}
	addRange(FieldWhiteElo, spec.WhiteElo)
	addRange(FieldBlackElo, spec.BlackElo)
	if spec.AvgRatingMin != nil || spec.AvgRatingMax != nil {
		p := retrieval.FieldPredicate{Field: FieldAvgRating}
		if spec.AvgRatingMin != nil {
			p.GTE = f64(*spec.AvgRatingMin)
		}
		if spec.AvgRatingMax != nil {
			p.LTE = f64(*spec.AvgRatingMax)
		}
		add(p)
	}

	if spec.ECO != "" {
		// A bare category letter is a prefix over the whole category, a
		// full code is exact.
		if len(spec.ECO) == 1 {
			add(retrieval.FieldPredicate{Field: FieldECO, Prefix: spec.ECO})
		} else {
			add(retrieval.FieldPredicate{Field: FieldECO, Equals: spec.ECO})
		}
	}
	if spec.Opening != "" {
		add(retrieval.FieldPredicate{Field: FieldOpening, Contains: spec.Opening})
	}
	if spec.Variation != "" {
		add(retrieval.FieldPredicate{Field: FieldVariation, Contains: spec.Variation})
	}

	if spec.Event != "" {
		add(retrieval.FieldPredicate{Field: FieldEvent, Contains: spec.Event})
	}
	if spec.EventCategory != "" {
		add(retrieval.FieldPredicate{Field: FieldEventCategory, Equals: spec.EventCategory})
	}
	if spec.Site != "" {
		add(retrieval.FieldPredicate{Field: FieldSite, Contains: spec.Site})
	}
	if spec.Round != "" {
		add(retrieval.FieldPredicate{Field: FieldRound, Equals: spec.Round})
	}

	if !spec.Dates.IsZero() {
		p := retrieval.FieldPredicate{Field: FieldDate}
		if spec.Dates.From != nil {
			p.GTE = f64(spec.Dates.From.Unix())
		}
		if spec.Dates.To != nil {
			p.LTE = f64(spec.Dates.To.Unix())
		}
		add(p)
	}
	if spec.Year != nil {
		y := f64(*spec.Year)
		add(retrieval.FieldPredicate{Field: FieldYear, GTE: y, LTE: y})
	}

	if spec.Result != "" {
		add(retrieval.FieldPredicate{Field: FieldResult, Equals: spec.Result})
	} else if spec.DecisiveOnly {
		add(retrieval.FieldPredicate{Field: FieldResult, In: []string{
			filter.ResultWhiteWins, filter.ResultBlackWins,
		}})
	}

	if spec.MinPlies != nil || spec.MaxPlies != nil {
		p := retrieval.FieldPredicate{Field: FieldPlyCount}
		if spec.MinPlies != nil {
			p.GTE = f64(*spec.MinPlies)
		}
		if spec.MaxPlies != nil {
			p.LTE = f64(*spec.MaxPlies)
		}
		add(p)
	}

	if spec.TimeControl != "" {
		add(retrieval.FieldPredicate{Field: FieldTimeControl, Equals: spec.TimeControl})
	}
	// FEN equality is case-sensitive: side to move and castling rights
	// change meaning with case.
	if spec.FEN != "" {
		add(retrieval.FieldPredicate{Field: FieldFEN, Equals: spec.FEN})
	}
	if spec.Phase != "" {
		add(retrieval.FieldPredicate{Field: FieldPhase, Equals: spec.Phase})
	}

	return &retrieval.QueryFilter{Must: must}, nil
}

func f64[T int | int64](n T) *float64 {
	v := float64(n)
	return &v
}
