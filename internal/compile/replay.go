package compile

import (
	"sort"

	"github.com/chessmate-ai/chessmate/internal/filter"
	"github.com/chessmate-ai/chessmate/internal/retrieval"
)

// ReplayResult is the outcome of re-filtering a stored result set.
// OriginalCount and FilteredCount are reported so the response can say
// "12 of the 50 games match", and FilteredCount is taken before pagination.
type ReplayResult struct {
	Items         []retrieval.Game
	OriginalCount int
	FilteredCount int
}

// Replay applies spec to an already-retrieved result set without touching
// the backend. It compiles spec to the same tree Pushdown would send and
// evaluates it in process, then applies the spec's sort and pagination. The
// input slice is not modified.
func Replay(items []retrieval.Game, spec *filter.Spec) (*ReplayResult, error) {
	qf, err := Pushdown(spec)
	if err != nil {
		return nil, err
	}

	kept := make([]retrieval.Game, 0, len(items))
	for i := range items {
		if Matches(qf, &items[i]) {
			kept = append(kept, items[i])
		}
	}
	res := &ReplayResult{
		OriginalCount: len(items),
		FilteredCount: len(kept),
	}

	sortGames(kept, spec.SortBy, spec.SortDesc)

	if spec.Offset > 0 {
		if spec.Offset >= len(kept) {
			kept = nil
		} else {
			kept = kept[spec.Offset:]
		}
	}
	if spec.Limit > 0 && spec.Limit < len(kept) {
		kept = kept[:spec.Limit]
	}
	res.Items = kept
	return res, nil
}

func sortGames(games []retrieval.Game, by string, desc bool) {
	var less func(a, b *retrieval.Game) bool
	switch by {
	case "date":
		less = func(a, b *retrieval.Game) bool { return a.Date.Before(b.Date) }
	case "year":
		less = func(a, b *retrieval.Game) bool { return a.Year < b.Year }
	case "rating":
		less = func(a, b *retrieval.Game) bool { return a.AvgRating() < b.AvgRating() }
	case "length":
		less = func(a, b *retrieval.Game) bool { return a.PlyCount < b.PlyCount }
	default:
		// No sort key keeps the backend's relevance order.
		return
	}
	sort.SliceStable(games, func(i, j int) bool {
		if desc {
			return less(&games[j], &games[i])
		}
		return less(&games[i], &games[j])
	})
}
