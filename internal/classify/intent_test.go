package classify

import "testing"

// TestClassifyIntents tests the refinement/fresh decision across surface
// forms in both languages.
func TestClassifyIntents(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		want      Intent
	}{
		{"explicit refine marker", "filter these games by elo above 2600", IntentRefine},
		{"from these", "from these results, only draws", IntentRefine},
		{"narrow down", "narrow it down to blitz games", IntentRefine},
		{"russian refine marker", "отфильтруй партии белых", IntentRefine},
		{"russian из них", "из них только победы белых", IntentRefine},
		{"bare filter shape", "only draws from 2019", IntentRefine},
		{"fresh with criteria", "show me Carlsen games", IntentFreshFiltered},
		{"russian fresh with criteria", "покажи партии Карлсена", IntentFreshFiltered},
		{"fresh plain", "find me something interesting", IntentFreshPlain},
		{"small talk", "thanks, that was great", IntentFreshPlain},
		{"empty", "", IntentFreshPlain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.utterance, "")
			if got.Intent != tt.want {
				t.Errorf("Classify(%q).Intent = %q, want %q", tt.utterance, got.Intent, tt.want)
			}
		})
	}
}

// TestClassifyCarriesFilter tests that the refine decision keeps the parsed
// criteria attached.
func TestClassifyCarriesFilter(t *testing.T) {
	got := Classify("filter these games by elo above 2600", "")
	if got.Intent != IntentRefine {
		t.Fatalf("intent = %q", got.Intent)
	}
	if got.Filter.WhiteElo.Min == nil || *got.Filter.WhiteElo.Min != 2600 {
		t.Fatalf("white elo min = %v", got.Filter.WhiteElo.Min)
	}
	if got.Filter.BlackElo.Min == nil || *got.Filter.BlackElo.Min != 2600 {
		t.Fatalf("black elo min = %v", got.Filter.BlackElo.Min)
	}
}

// TestClassifyLanguageOverride tests that an explicit language skips
// detection.
func TestClassifyLanguageOverride(t *testing.T) {
	got := Classify("show me Carlsen games", "ru")
	if got.Language != "ru" {
		t.Fatalf("language = %q", got.Language)
	}
	if got := Classify("show me Carlsen games", ""); got.Language != "en" {
		t.Fatalf("detected language = %q", got.Language)
	}
}
