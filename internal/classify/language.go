// Package classify turns a free-text utterance into a language tag, an
// intent, and a typed filter spec. Everything here is a pure CPU-bound
// transform: no I/O, no state, deterministic output for identical input.
package classify

import "unicode"

// Language tags.
const (
	LangEnglish = "en"
	LangRussian = "ru"
)

// cyrillicThreshold is the fraction of alphabetic runes that must be
// Cyrillic for the text to be tagged Russian.
const cyrillicThreshold = 0.3

// DetectLanguage tags the utterance by script ratio: if more than 30% of its
// letters are Cyrillic it is Russian, otherwise English. A coarse single-pass
// heuristic, intentionally cheap.
func DetectLanguage(text string) string {
	var letters, cyrillic int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Cyrillic, r) {
			cyrillic++
		}
	}
	if letters == 0 {
		return LangEnglish
	}
	if float64(cyrillic)/float64(letters) > cyrillicThreshold {
		return LangRussian
	}
	return LangEnglish
}
