package classifier

import (
	"math"
	"sort"

	"github.com/mailrisk/threat-engine/internal/textnorm"
)

// vectorizerParams bound the vocabulary the same way the training corpus
// tooling does: uni+bi-grams, terms in at least minDF documents and at most
// maxDFRatio of them, capped vocabulary size.
type vectorizerParams struct {
	maxFeatures int
	minDF       int
	maxDFRatio  float64
}

func defaultVectorizerParams() vectorizerParams {
	return vectorizerParams{
		maxFeatures: 5000,
		minDF:       2,
		maxDFRatio:  0.95,
	}
}

// analyze turns raw text into the term stream the vectorizer counts:
// lower-cased alphanumeric tokens with stopwords removed, plus their
// bigrams.
func analyze(norm *textnorm.Normalizer, text string) []string {
	tokens := norm.RemoveStopwords(norm.Tokenize(text))
	words := tokens[:0:0]
	for _, tok := range tokens {
		if len(tok) >= 2 {
			words = append(words, tok)
		}
	}
	terms := make([]string, 0, len(words)*2)
	terms = append(terms, words...)
	terms = append(terms, norm.Ngrams(words, 2)...)
	return terms
}

// fitVocabulary builds the term index and smoothed inverse document
// frequencies from a tokenized corpus.
func fitVocabulary(docs [][]string, params vectorizerParams) (map[string]int, []string, []float64) {
	n := len(docs)
	df := make(map[string]int)
	for _, terms := range docs {
		seen := make(map[string]struct{}, len(terms))
		for _, t := range terms {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}

	maxDF := int(params.maxDFRatio * float64(n))
	if maxDF < params.minDF {
		maxDF = params.minDF
	}
	candidates := make([]string, 0, len(df))
	for term, count := range df {
		if count >= params.minDF && count <= maxDF {
			candidates = append(candidates, term)
		}
	}

	// Highest document frequency first; alphabetical tie-break keeps the
	// vocabulary deterministic run to run.
	sort.Slice(candidates, func(i, j int) bool {
		if df[candidates[i]] != df[candidates[j]] {
			return df[candidates[i]] > df[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})
	if len(candidates) > params.maxFeatures {
		candidates = candidates[:params.maxFeatures]
	}
	sort.Strings(candidates)

	vocab := make(map[string]int, len(candidates))
	idf := make([]float64, len(candidates))
	for i, term := range candidates {
		vocab[term] = i
		idf[i] = math.Log(float64(1+n)/float64(1+df[term])) + 1
	}
	return vocab, candidates, idf
}

// vectorize maps a tokenized document onto an L2-normalized sparse tf-idf
// vector over the fitted vocabulary. Unknown terms are ignored.
func vectorize(terms []string, vocab map[string]int, idf []float64) map[int]float64 {
	counts := make(map[int]int)
	for _, t := range terms {
		if idx, ok := vocab[t]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	vec := make(map[int]float64, len(counts))
	var sumSquares float64
	for idx, count := range counts {
		w := float64(count) * idf[idx]
		vec[idx] = w
		sumSquares += w * w
	}
	norm := math.Sqrt(sumSquares)
	if norm > 0 {
		for idx := range vec {
			vec[idx] /= norm
		}
	}
	return vec
}
