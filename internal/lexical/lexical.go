// Package lexical prepares chat text for word cloud rendering: it selects
// the messages worth counting, tokenizes them, and produces either a
// lemma frequency map (Russian) or a raw word stream with a stopword set
// (other languages).
package lexical

import (
	"github.com/chatlens/chatlens/internal/analysis"
)

// maxMessageWords drops pasted walls of text from the word counts.
const maxMessageWords = 55

// minLemmaRunes filters out residual particles the stopword lists miss.
const minLemmaRunes = 3

// lemmaFixes patches lemmas the suffix tables get wrong for words that
// show up constantly in chats.
var lemmaFixes = map[string]string{
	"деньга": "деньги",
}

// Result is the lexical pipeline's output. Exactly one of Frequencies and
// Words is populated: Frequencies when morphology already reduced the text
// to lemma counts, Words when the renderer should count and pair words
// itself using Stopwords.
type Result struct {
	Frequencies map[string]float64
	Words       []string
	Stopwords   map[string]struct{}
}

// Build runs the lexical stage over canonical messages. tick, if non-nil,
// is called after each processed message with (done, total) so callers can
// surface progress; it is only invoked on the morphology path, where the
// work is proportional to message count.
func Build(msgs []analysis.CanonicalMessage, platform analysis.Platform, lang analysis.Language, morph Morph, tick func(done, total int)) (*Result, error) {
	texts := selectTexts(msgs, platform)

	switch lang {
	case analysis.LanguageRussian:
		return buildRussian(texts, morph, tick), nil
	case analysis.LanguageEnglish:
		return buildStream(texts, englishStopwords), nil
	case analysis.LanguageUkrainian:
		return buildStream(texts, ukrainianStopwords), nil
	case analysis.LanguageUkrainianRussian:
		return buildStream(texts, mergeStopwords(ukrainianStopwords, russianStopwords)), nil
	default:
		return nil, analysis.NewUnsupportedLanguageError(string(lang))
	}
}

// selectTexts keeps the texts that represent what people actually typed:
// media-only and empty messages are skipped, Telegram forwards are not the
// chat's own words, and overly long messages read as pastes.
func selectTexts(msgs []analysis.CanonicalMessage, platform analysis.Platform) []string {
	texts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if !m.HasText || m.Text == "" {
			continue
		}
		if platform == analysis.PlatformTelegram && m.Forwarded {
			continue
		}
		if m.WordCount > maxMessageWords {
			continue
		}
		texts = append(texts, m.Text)
	}
	return texts
}

func buildRussian(texts []string, morph Morph, tick func(done, total int)) *Result {
	freqs := map[string]float64{}
	total := len(texts)
	for i, text := range texts {
		for _, word := range Tokenize(text) {
			if _, stop := russianStopwords[word]; stop {
				continue
			}
			lemma, noun := morph.Parse(word)
			if !noun {
				continue
			}
			if fixed, ok := lemmaFixes[lemma]; ok {
				lemma = fixed
			}
			if len([]rune(lemma)) < minLemmaRunes {
				continue
			}
			if _, stop := russianStopwords[lemma]; stop {
				continue
			}
			freqs[lemma]++
		}
		if tick != nil {
			tick(i+1, total)
		}
	}
	return &Result{Frequencies: freqs, Stopwords: russianStopwords}
}

func buildStream(texts []string, stopwords map[string]struct{}) *Result {
	var words []string
	for _, text := range texts {
		words = append(words, Tokenize(text)...)
	}
	return &Result{Words: words, Stopwords: stopwords}
}
