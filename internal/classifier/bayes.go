package classifier

import (
	"math"
)

const smoothingAlpha = 0.1

// fittedModel is the immutable artifact produced by one training run:
// the fitted vocabulary plus the multinomial naive Bayes parameters.
// It is persisted as-is and swapped atomically on retrain, so a concurrent
// Predict never observes a half-fitted model.
type fittedModel struct {
	Vocabulary     map[string]int `json:"vocabulary"`
	Terms          []string       `json:"terms"`
	IDF            []float64      `json:"idf"`
	Classes        []int          `json:"classes"`
	ClassLogPrior  []float64      `json:"class_log_prior"`
	FeatureLogProb [][]float64    `json:"feature_log_prob"`
}

// featureCount reports the size of the fitted vocabulary
func (m *fittedModel) featureCount() int {
	return len(m.Terms)
}

// fitNaiveBayes estimates class priors and per-feature log likelihoods with
// additive smoothing from tf-idf vectors.
func fitNaiveBayes(vectors []map[int]float64, labels []int, vocab map[string]int, terms []string, idf []float64) *fittedModel {
	classes := uniqueSorted(labels)
	classIndex := make(map[int]int, len(classes))
	for i, c := range classes {
		classIndex[c] = i
	}

	nFeatures := len(terms)
	classCounts := make([]float64, len(classes))
	featureSums := make([][]float64, len(classes))
	classTotals := make([]float64, len(classes))
	for i := range featureSums {
		featureSums[i] = make([]float64, nFeatures)
	}

	for i, vec := range vectors {
		ci := classIndex[labels[i]]
		classCounts[ci]++
		for idx, w := range vec {
			featureSums[ci][idx] += w
			classTotals[ci] += w
		}
	}

	n := float64(len(labels))
	prior := make([]float64, len(classes))
	logProb := make([][]float64, len(classes))
	for ci := range classes {
		prior[ci] = math.Log(classCounts[ci] / n)
		logProb[ci] = make([]float64, nFeatures)
		denom := classTotals[ci] + smoothingAlpha*float64(nFeatures)
		for f := 0; f < nFeatures; f++ {
			logProb[ci][f] = math.Log((featureSums[ci][f] + smoothingAlpha) / denom)
		}
	}

	return &fittedModel{
		Vocabulary:     vocab,
		Terms:          terms,
		IDF:            idf,
		Classes:        classes,
		ClassLogPrior:  prior,
		FeatureLogProb: logProb,
	}
}

// predict returns the argmax class and its posterior probability for one
// tf-idf vector. Ties resolve to the lower class label.
func (m *fittedModel) predict(vec map[int]float64) (int, float64) {
	if len(m.Classes) == 1 {
		return m.Classes[0], 1.0
	}

	joint := make([]float64, len(m.Classes))
	for ci := range m.Classes {
		score := m.ClassLogPrior[ci]
		for idx, w := range vec {
			score += w * m.FeatureLogProb[ci][idx]
		}
		joint[ci] = score
	}

	// Normalize in log space for a stable posterior.
	maxJoint := joint[0]
	for _, v := range joint[1:] {
		if v > maxJoint {
			maxJoint = v
		}
	}
	var total float64
	for _, v := range joint {
		total += math.Exp(v - maxJoint)
	}

	best := 0
	for ci := 1; ci < len(joint); ci++ {
		if joint[ci] > joint[best] {
			best = ci
		}
	}
	confidence := math.Exp(joint[best]-maxJoint) / total
	return m.Classes[best], confidence
}

func uniqueSorted(labels []int) []int {
	seen := make(map[int]struct{})
	var out []int
	for _, l := range labels {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
