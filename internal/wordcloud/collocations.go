package wordcloud

import "math"

// collocationThreshold is the minimum Dunning likelihood score for a
// bigram to be kept as a single cloud entry.
const collocationThreshold = 3

// countTokens turns a token stream into display counts: unigram counts
// plus bigrams that co-occur often enough to read as one phrase. A kept
// bigram absorbs its members' counts so the phrase and its parts don't
// both dominate the cloud.
func countTokens(words []string, stopwords map[string]struct{}, minRunes int) map[string]float64 {
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := stopwords[w]; stop {
			continue
		}
		if len([]rune(w)) < minRunes {
			continue
		}
		kept = append(kept, w)
	}

	unigrams := map[string]float64{}
	for _, w := range kept {
		unigrams[w]++
	}

	bigrams := map[[2]string]float64{}
	for i := 0; i+1 < len(kept); i++ {
		bigrams[[2]string{kept[i], kept[i+1]}]++
	}

	total := float64(len(kept))
	counts := map[string]float64{}
	for pair, count := range bigrams {
		if likelihoodScore(count, unigrams[pair[0]], unigrams[pair[1]], total) <= collocationThreshold {
			continue
		}
		counts[pair[0]+" "+pair[1]] = count
		unigrams[pair[0]] -= count
		unigrams[pair[1]] -= count
	}
	for w, count := range unigrams {
		if count > 0 {
			counts[w] += count
		}
	}
	return counts
}

// likelihoodScore is the Dunning log-likelihood ratio for a bigram: how
// much more likely the second word is right after the first than elsewhere.
func likelihoodScore(bigram, first, second, total float64) float64 {
	if first == 0 || second == 0 || total <= first {
		return 0
	}
	p := second / total
	p1 := bigram / first
	p2 := (second - bigram) / (total - first)
	score := logLikelihood(bigram, first, p) +
		logLikelihood(second-bigram, total-first, p) -
		logLikelihood(bigram, first, p1) -
		logLikelihood(second-bigram, total-first, p2)
	return -2 * score
}

func logLikelihood(k, n, x float64) float64 {
	if x <= 0 || x >= 1 {
		// The limit k*log(x) as x->0 with k=0 is zero; any other case
		// means the bigram saturates its unigrams and the term vanishes
		// from the ratio.
		return 0
	}
	return k*math.Log(x) + (n-k)*math.Log(1-x)
}
