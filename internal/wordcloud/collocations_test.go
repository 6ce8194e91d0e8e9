package wordcloud

import "testing"

func TestCountTokensFoldsCollocations(t *testing.T) {
	t.Parallel()

	var words []string
	fillers := []string{"coffee", "meeting", "monday", "report", "deadline", "office", "lunch", "train"}
	for _, filler := range fillers {
		words = append(words, "new", "york", filler)
	}

	counts := countTokens(words, map[string]struct{}{}, 3)

	if got := counts["new york"]; got != float64(len(fillers)) {
		t.Errorf(`counts["new york"] = %v, want %d`, got, len(fillers))
	}
	if _, ok := counts["new"]; ok {
		t.Error("folded bigram must absorb its first word's count")
	}
	if _, ok := counts["york"]; ok {
		t.Error("folded bigram must absorb its second word's count")
	}
}

func TestCountTokensFilters(t *testing.T) {
	t.Parallel()

	words := []string{"the", "ox", "evening", "the", "ox", "walk"}
	counts := countTokens(words, map[string]struct{}{"the": {}}, 3)

	if _, ok := counts["the"]; ok {
		t.Error("stopword survived filtering")
	}
	if _, ok := counts["ox"]; ok {
		t.Error("word below the minimum length survived filtering")
	}
	if counts["evening"] != 1 || counts["walk"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}
