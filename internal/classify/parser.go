package classify

import (
	"time"

	"github.com/chessmate-ai/chessmate/internal/filter"
	"github.com/chessmate-ai/chessmate/internal/util"
)

// ParseFilter extracts a filter spec from free text by running the ordered
// rule cascade. It is a pure function: identical input yields an identical
// spec on every invocation. Text is case-folded before matching, except for
// FEN extraction which preserves the original casing.
func ParseFilter(text string) filter.Spec {
	var s filter.Spec
	folded, indexable := util.FoldForMatch(text)
	for _, table := range ruleTables {
		for _, r := range table {
			applyRule(r, folded, text, indexable, &s)
		}
	}
	if fen := fenPattern.FindString(text); fen != "" {
		s.FEN = fen
	}
	return s
}

// applyRule matches against the folded text and hands the extractor captures
// sliced from the original text, so extracted names keep their casing.
func applyRule(r rule, folded, original string, indexable bool, s *filter.Spec) {
	idx := r.re.FindStringSubmatchIndex(folded)
	if idx == nil {
		return
	}
	caps := make([]string, 0, len(idx)/2)
	for i := 0; i < len(idx)/2; i++ {
		if idx[2*i] < 0 {
			caps = append(caps, "")
			continue
		}
		caps = append(caps, util.SliceOriginal(original, folded, indexable, idx[2*i], idx[2*i+1]))
	}
	r.apply(s, caps)
}

func yearStart(year int) *time.Time {
	t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return &t
}

func yearEnd(year int) *time.Time {
	t := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return &t
}
