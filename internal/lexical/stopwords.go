package lexical

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"strings"
)

//go:embed stopwords/*.txt
var stopwordFS embed.FS

var (
	russianStopwords   = mustStopwords("stopwords/russian.txt")
	englishStopwords   = mustStopwords("stopwords/english.txt")
	ukrainianStopwords = mustStopwords("stopwords/ukrainian.txt")
)

func mustStopwords(path string) map[string]struct{} {
	data, err := stopwordFS.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("embedded stopword list %s: %v", path, err))
	}
	words := map[string]struct{}{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word != "" {
			words[word] = struct{}{}
		}
	}
	return words
}

func mergeStopwords(sets ...map[string]struct{}) map[string]struct{} {
	merged := map[string]struct{}{}
	for _, set := range sets {
		for word := range set {
			merged[word] = struct{}{}
		}
	}
	return merged
}
