package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fitToyModel() *fittedModel {
	// Two features: feature 0 dominates class 1, feature 1 dominates class 0.
	vectors := []map[int]float64{
		{0: 1.0},
		{0: 1.0},
		{1: 1.0},
		{1: 1.0},
	}
	labels := []int{1, 1, 0, 0}
	vocab := map[string]int{"spamword": 0, "hamword": 1}
	return fitNaiveBayes(vectors, labels, vocab, []string{"spamword", "hamword"}, []float64{1, 1})
}

func TestFitNaiveBayes(t *testing.T) {
	m := fitToyModel()

	assert.Equal(t, []int{0, 1}, m.Classes)
	assert.Len(t, m.ClassLogPrior, 2)
	assert.Len(t, m.FeatureLogProb, 2)

	// Balanced classes share the same prior.
	assert.InDelta(t, m.ClassLogPrior[0], m.ClassLogPrior[1], 1e-9)

	// Under class 1 the spam feature is far more likely than the ham one.
	assert.Greater(t, m.FeatureLogProb[1][0], m.FeatureLogProb[1][1])
	assert.Greater(t, m.FeatureLogProb[0][1], m.FeatureLogProb[0][0])
}

func TestPredictArgmax(t *testing.T) {
	m := fitToyModel()

	label, conf := m.predict(map[int]float64{0: 1.0})
	assert.Equal(t, 1, label)
	assert.Greater(t, conf, 0.5)

	label, conf = m.predict(map[int]float64{1: 1.0})
	assert.Equal(t, 0, label)
	assert.Greater(t, conf, 0.5)
}

func TestPredictTieResolvesToLowerClass(t *testing.T) {
	m := fitToyModel()

	// Equal evidence for both features is a dead heat; the lower class wins.
	label, conf := m.predict(map[int]float64{0: 1.0, 1: 1.0})
	assert.Equal(t, 0, label)
	assert.InDelta(t, 0.5, conf, 1e-9)
}

func TestPredictSingleClass(t *testing.T) {
	vectors := []map[int]float64{{0: 1.0}, {0: 0.5}}
	m := fitNaiveBayes(vectors, []int{1, 1}, map[string]int{"only": 0}, []string{"only"}, []float64{1})

	label, conf := m.predict(map[int]float64{0: 1.0})
	assert.Equal(t, 1, label)
	assert.Equal(t, 1.0, conf)
}

func TestUniqueSorted(t *testing.T) {
	assert.Equal(t, []int{0, 1}, uniqueSorted([]int{1, 0, 1, 0, 1}))
	assert.Equal(t, []int{2}, uniqueSorted([]int{2, 2}))
	assert.Nil(t, uniqueSorted(nil))
}
