package classifier

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mailrisk/threat-engine/internal/textnorm"
)

func TestAnalyze(t *testing.T) {
	norm := textnorm.NewNormalizer(zap.NewNop())

	terms := analyze(norm, "Claim your free prize")
	// Stopwords drop out; the surviving words contribute unigrams and bigrams.
	assert.Contains(t, terms, "claim")
	assert.Contains(t, terms, "free")
	assert.Contains(t, terms, "prize")
	assert.Contains(t, terms, "claim free")
	assert.Contains(t, terms, "free prize")
	assert.NotContains(t, terms, "your")
}

func TestAnalyzeDropsSingleCharacterTokens(t *testing.T) {
	norm := textnorm.NewNormalizer(zap.NewNop())

	terms := analyze(norm, "x marks winning spot")
	assert.NotContains(t, terms, "x")
	assert.Contains(t, terms, "marks")
}

func TestFitVocabularyDocumentFrequencyBounds(t *testing.T) {
	docs := [][]string{
		{"common", "rare"},
		{"common", "shared"},
		{"common", "shared"},
	}
	params := vectorizerParams{maxFeatures: 100, minDF: 2, maxDFRatio: 0.95}
	vocab, terms, idf := fitVocabulary(docs, params)

	// "rare" is below minDF; "common" appears in all docs, above the 0.95
	// ratio bound (2 of 3 allowed).
	assert.NotContains(t, vocab, "rare")
	assert.NotContains(t, vocab, "common")
	assert.Contains(t, vocab, "shared")
	assert.Len(t, terms, 1)
	require.Len(t, idf, 1)

	// ln((1+3)/(1+2)) + 1
	assert.InDelta(t, math.Log(4.0/3.0)+1, idf[0], 1e-9)
}

func TestFitVocabularyFeatureCap(t *testing.T) {
	docs := [][]string{
		{"aa", "bb", "cc", "dd"},
		{"aa", "bb", "cc", "dd"},
		{"aa", "bb"},
	}
	params := vectorizerParams{maxFeatures: 2, minDF: 2, maxDFRatio: 1.0}
	vocab, terms, _ := fitVocabulary(docs, params)

	// The cap keeps the highest-document-frequency terms.
	assert.Len(t, terms, 2)
	assert.Contains(t, vocab, "aa")
	assert.Contains(t, vocab, "bb")
}

func TestVectorizeIsL2Normalized(t *testing.T) {
	vocab := map[string]int{"alpha": 0, "beta": 1}
	idf := []float64{1.2, 1.5}

	vec := vectorize([]string{"alpha", "alpha", "beta", "unknown"}, vocab, idf)
	require.Len(t, vec, 2)

	var sumSquares float64
	for _, w := range vec {
		sumSquares += w * w
	}
	assert.InDelta(t, 1.0, sumSquares, 1e-9)
	assert.Greater(t, vec[0], vec[1], "the repeated term carries more weight")
}

func TestVectorizeAllUnknownTerms(t *testing.T) {
	vocab := map[string]int{"alpha": 0}
	idf := []float64{1.0}

	assert.Nil(t, vectorize([]string{"unknown", "other"}, vocab, idf))
}
