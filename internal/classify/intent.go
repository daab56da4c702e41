package classify

import (
	"regexp"

	"github.com/chessmate-ai/chessmate/internal/filter"
	"github.com/chessmate-ai/chessmate/internal/util"
)

// Intent is the classifier's decision about what an utterance is.
type Intent string

const (
	// IntentRefine narrows the previous turn's result set.
	IntentRefine Intent = "refine"
	// IntentFreshFiltered is a new query carrying at least one criterion.
	IntentFreshFiltered Intent = "fresh-query-with-filter"
	// IntentFreshPlain is a new query with no extractable criteria.
	IntentFreshPlain Intent = "fresh-query-plain"
)

// Classification is the full classifier output for one utterance.
type Classification struct {
	Language string
	Intent   Intent
	Filter   filter.Spec
}

// refinementPatterns are the explicit contextual-refinement surface forms,
// checked in order before any parsing. The first match decides.
var refinementPatterns = []*regexp.Regexp{
	word(`filter\s+(?:these|those|them|the\s+results?)`),
	word(`from\s+(?:these|those)(?:\s+(?:results|games))?`),
	word(`(?:of|among)\s+(?:these|those)`),
	word(`narrow\s+(?:it|them|this|these)?\s*down`),
	word(`(?:only|just)\s+the\s+ones`),
	word(`refine`),
	word(`отфильтруй|отбери|оставь\s+только`),
	word(`из\s+(?:них|этих|тех)|среди\s+(?:них|этих)`),
}

// searchVerbs signal a fresh query. A criterion-bearing utterance without
// one of these is a bare filter shape and treated as a refinement.
var searchVerb = word(`show|find|search|get|give|list|display|fetch|look|what|which|покажи|найди|найти|поищи|дай|выведи|какие`)

// Classify produces the language tag, intent and filter spec for one
// utterance. languageOverride, when non-empty, skips detection. The decision
// never errors: unparseable text degrades to a plain fresh query with an
// empty spec.
func Classify(utterance, languageOverride string) Classification {
	lang := languageOverride
	if lang == "" {
		lang = DetectLanguage(utterance)
	}
	folded, _ := util.FoldForMatch(utterance)

	spec := ParseFilter(utterance)

	for _, p := range refinementPatterns {
		if p.MatchString(folded) {
			return Classification{Language: lang, Intent: IntentRefine, Filter: spec}
		}
	}
	if spec.IsEmpty() {
		return Classification{Language: lang, Intent: IntentFreshPlain, Filter: spec}
	}
	if !searchVerb.MatchString(folded) {
		// Bare filter shape: criteria with no search verb reads as "apply
		// this to what we were looking at".
		return Classification{Language: lang, Intent: IntentRefine, Filter: spec}
	}
	return Classification{Language: lang, Intent: IntentFreshFiltered, Filter: spec}
}
