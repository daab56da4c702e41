// Package util provides small text helpers shared across the pipeline.
package util

import "strings"

// FoldForMatch lowercases text for pattern matching. When the folded string
// keeps the original byte length (true for English and Russian text), match
// indices found in the folded string are valid in the original, which lets
// extractors recover the original casing of a capture.
func FoldForMatch(text string) (folded string, indexable bool) {
	folded = strings.ToLower(text)
	return folded, len(folded) == len(text)
}

// SliceOriginal returns original[start:end] when the fold preserved byte
// offsets, otherwise the corresponding slice of the folded text.
func SliceOriginal(original, folded string, indexable bool, start, end int) string {
	if indexable {
		return original[start:end]
	}
	return folded[start:end]
}
