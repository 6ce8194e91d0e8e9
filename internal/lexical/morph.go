package lexical

import (
	"strings"
	"unicode"
)

// Morph resolves a Russian word form to its dictionary form. The Russian
// word cloud keeps only common nouns, so implementations also report
// whether the form reads as one.
type Morph interface {
	// Parse returns the word's normal form and whether it is a common noun.
	Parse(word string) (lemma string, noun bool)
}

// nonNounSuffixes mark verb and adjective forms. A match rejects the word
// outright rather than risking a bogus noun lemma.
var nonNounSuffixes = []string{
	"ться", "тся", "ть", "ешь", "ёшь", "ишь", "ете", "ите", "йте",
	"ыми", "ими", "ого", "его", "ому", "ему",
	"ый", "ий", "ое", "ее", "ая", "яя", "ые", "ие", "ым", "им", "ых", "их",
}

type suffixRule struct {
	suffix string
	repl   string
}

// nounRules fold common case and number endings back onto a nominative
// form. Longest suffix wins; anything unmatched passes through unchanged.
var nounRules = []suffixRule{
	{"иями", "ия"},
	{"иях", "ия"},
	{"иям", "ия"},
	{"ьями", "ья"},
	{"ьях", "ья"},
	{"ией", "ия"},
	{"ием", "ие"},
	{"ями", "я"},
	{"ами", "а"},
	{"ках", "ка"},
	{"кам", "ка"},
	{"кой", "ка"},
	{"ии", "ия"},
	{"ию", "ия"},
	{"ях", "я"},
	{"ах", "а"},
	{"ям", "я"},
	{"ам", "а"},
	{"ов", ""},
	{"ев", ""},
	{"ке", "ка"},
	{"ку", "ка"},
	{"ки", "ка"},
	{"ом", ""},
	{"ой", "а"},
}

// SuffixMorph is a dictionary-free approximation of Russian noun
// morphology built from suffix tables. It collapses the frequent
// inflections and leaves rarer forms as-is, which is enough to merge word
// counts; a dictionary-backed Morph can be swapped in without touching
// the rest of the pipeline.
type SuffixMorph struct{}

func NewSuffixMorph() *SuffixMorph { return &SuffixMorph{} }

func (SuffixMorph) Parse(word string) (string, bool) {
	runes := []rune(word)
	if len(runes) < 3 {
		return word, false
	}
	for _, r := range runes {
		if !unicode.Is(unicode.Cyrillic, r) && r != '-' {
			return word, false
		}
	}
	for _, suffix := range nonNounSuffixes {
		if strings.HasSuffix(word, suffix) && len(runes)-len([]rune(suffix)) >= 3 {
			return word, false
		}
	}
	for _, rule := range nounRules {
		if strings.HasSuffix(word, rule.suffix) && len(runes)-len([]rune(rule.suffix)) >= 3 {
			return strings.TrimSuffix(word, rule.suffix) + rule.repl, true
		}
	}
	return word, true
}
