package lexical_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chatlens/chatlens/internal/analysis"
	"github.com/chatlens/chatlens/internal/lexical"
)

func textMsg(sender, text string) analysis.CanonicalMessage {
	return analysis.CanonicalMessage{
		Sender:    sender,
		Timestamp: time.Date(2022, 6, 1, 12, 0, 0, 0, time.UTC),
		Text:      text,
		HasText:   true,
		WordCount: len(strings.Fields(text)),
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "lowercases and splits", text: "Hello World", want: []string{"hello", "world"}},
		{name: "strips punctuation", text: "wait... really?!", want: []string{"wait", "really"}},
		{name: "strips digits", text: "room 101 is free", want: []string{"room", "is", "free"}},
		{name: "strips emoji", text: "nice 😂😂 one", want: []string{"nice", "one"}},
		{name: "keeps contractions", text: "don't stop", want: []string{"don't", "stop"}},
		{name: "cyrillic", text: "Привет, мир!", want: []string{"привет", "мир"}},
		{name: "empty", text: "", want: nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := lexical.Tokenize(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Tokenize(%q)[%d] = %q, want %q", tt.text, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSuffixMorph(t *testing.T) {
	t.Parallel()

	morph := lexical.NewSuffixMorph()

	tests := []struct {
		word     string
		wantNoun bool
	}{
		{word: "делать", wantNoun: false},
		{word: "смеяться", wantNoun: false},
		{word: "красивый", wantNoun: false},
		{word: "hello", wantNoun: false},
		{word: "дом", wantNoun: true},
		{word: "работа", wantNoun: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.word, func(t *testing.T) {
			t.Parallel()
			if _, noun := morph.Parse(tt.word); noun != tt.wantNoun {
				t.Errorf("Parse(%q) noun = %v, want %v", tt.word, noun, tt.wantNoun)
			}
		})
	}
}

func TestSuffixMorphMergesCases(t *testing.T) {
	t.Parallel()

	morph := lexical.NewSuffixMorph()
	base, _ := morph.Parse("мама")
	instrumental, _ := morph.Parse("мамами")
	if base != instrumental {
		t.Errorf("forms diverge: %q vs %q", base, instrumental)
	}
}

func TestBuildRussianFrequencies(t *testing.T) {
	t.Parallel()

	msgs := []analysis.CanonicalMessage{
		textMsg("a", "работа работа и снова работа"),
		textMsg("b", "дом милый дом"),
	}

	var ticks int
	result, err := lexical.Build(msgs, analysis.PlatformWhatsApp, analysis.LanguageRussian,
		lexical.NewSuffixMorph(), func(done, total int) { ticks++ })
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if result.Frequencies == nil {
		t.Fatal("Russian path must produce frequencies")
	}
	if result.Frequencies["работа"] != 3 {
		t.Errorf("работа = %v, want 3", result.Frequencies["работа"])
	}
	if result.Frequencies["дом"] != 2 {
		t.Errorf("дом = %v, want 2", result.Frequencies["дом"])
	}
	// The stopword conjunction never reaches the counts.
	if _, ok := result.Frequencies["и"]; ok {
		t.Error("stopword leaked into frequencies")
	}
	if ticks != len(msgs) {
		t.Errorf("progress ticks = %d, want %d", ticks, len(msgs))
	}
}

func TestBuildEnglishStream(t *testing.T) {
	t.Parallel()

	msgs := []analysis.CanonicalMessage{
		textMsg("a", "the quick brown fox"),
	}
	result, err := lexical.Build(msgs, analysis.PlatformWhatsApp, analysis.LanguageEnglish, nil, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if result.Frequencies != nil {
		t.Error("English path must not produce frequencies")
	}
	if len(result.Words) != 4 {
		t.Errorf("words = %v, want the raw stream", result.Words)
	}
	if _, ok := result.Stopwords["the"]; !ok {
		t.Error("English stopword set missing 'the'")
	}
}

func TestBuildUnsupportedLanguage(t *testing.T) {
	t.Parallel()

	_, err := lexical.Build(nil, analysis.PlatformWhatsApp, analysis.Language("de"), nil, nil)
	var langErr *analysis.UnsupportedLanguageError
	if !errors.As(err, &langErr) {
		t.Fatalf("Build() error = %v, want UnsupportedLanguageError", err)
	}
}

func TestBuildSkipsForwardedAndLongMessages(t *testing.T) {
	t.Parallel()

	forwarded := textMsg("a", "forwarded text here")
	forwarded.Forwarded = true
	pasted := textMsg("b", strings.Repeat("word ", 60))

	msgs := []analysis.CanonicalMessage{
		forwarded,
		pasted,
		textMsg("c", "actual chat words"),
	}
	result, err := lexical.Build(msgs, analysis.PlatformTelegram, analysis.LanguageEnglish, nil, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(result.Words) != 3 {
		t.Errorf("words = %v, want only the typed message's tokens", result.Words)
	}
}
