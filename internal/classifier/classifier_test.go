package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mailrisk/threat-engine/internal/core"
	"github.com/mailrisk/threat-engine/internal/textnorm"
)

// Small corpus with a clear spam/ham vocabulary split. Repeats keep every
// informative term above the vectorizer's document-frequency floor.
var (
	trainTexts = []string{
		"win free money now claim your cash prize winner",
		"free prize winner claim money lottery jackpot now",
		"claim free cash prize winner lottery money urgent",
		"win lottery jackpot cash money prize claim free",
		"urgent winner claim your free money prize now",
		"meeting scheduled tomorrow please review the agenda notes",
		"please review the project notes before our meeting tomorrow",
		"agenda for tomorrow meeting attached please review notes",
		"project review meeting notes attached see agenda",
		"please see attached project agenda for the review meeting",
	}
	trainLabels = []int{1, 1, 1, 1, 1, 0, 0, 0, 0, 0}
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	modelPath := filepath.Join(t.TempDir(), "model.json")
	return NewClassifier(modelPath, textnorm.NewNormalizer(zap.NewNop()), zap.NewNop())
}

func TestTrainGuards(t *testing.T) {
	c := newTestClassifier(t)

	err := c.Train([]string{"one"}, []int{1, 0})
	assert.ErrorIs(t, err, core.ErrInvalidTrainingData)

	err = c.Train([]string{"one"}, []int{1})
	assert.ErrorIs(t, err, core.ErrInvalidTrainingData)

	assert.False(t, c.IsTrained())
}

func TestPredictUntrained(t *testing.T) {
	c := newTestClassifier(t)
	assert.Nil(t, c.Predict("free money"))
}

func TestTrainAndPredict(t *testing.T) {
	c := newTestClassifier(t)

	require.NoError(t, c.Train(trainTexts, trainLabels))
	require.True(t, c.IsTrained())
	assert.Greater(t, c.FeatureCount(), 0)

	spam := c.Predict("claim your free cash prize now winner")
	require.NotNil(t, spam)
	assert.Equal(t, 1, spam.Label)
	assert.Greater(t, spam.Confidence, 0.5)

	ham := c.Predict("please review the meeting agenda notes for tomorrow")
	require.NotNil(t, ham)
	assert.Equal(t, 0, ham.Label)
	assert.Greater(t, ham.Confidence, 0.5)
}

func TestPredictEmptyText(t *testing.T) {
	c := newTestClassifier(t)
	require.NoError(t, c.Train(trainTexts, trainLabels))

	pred := c.Predict("")
	require.NotNil(t, pred)
	assert.Equal(t, 0, pred.Label)
	assert.Zero(t, pred.Confidence)
}

func TestPredictBatch(t *testing.T) {
	c := newTestClassifier(t)
	require.NoError(t, c.Train(trainTexts, trainLabels))

	preds := c.PredictBatch([]string{"free money prize", "meeting agenda notes"})
	require.Len(t, preds, 2)
	assert.Equal(t, 1, preds[0].Label)
	assert.Equal(t, 0, preds[1].Label)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	modelPath := filepath.Join(t.TempDir(), "model.json")
	normalizer := textnorm.NewNormalizer(zap.NewNop())

	first := NewClassifier(modelPath, normalizer, zap.NewNop())
	require.NoError(t, first.Train(trainTexts, trainLabels))
	want := first.Predict("claim free cash prize")

	// A fresh classifier picks the artifact up from disk.
	second := NewClassifier(modelPath, normalizer, zap.NewNop())
	require.True(t, second.IsTrained())
	got := second.Predict("claim free cash prize")

	require.NotNil(t, got)
	assert.Equal(t, want.Label, got.Label)
	assert.InDelta(t, want.Confidence, got.Confidence, 1e-9)
}

func TestLoadBrokenArtifactLeavesUntrained(t *testing.T) {
	modelPath := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(modelPath, []byte("not json"), 0o644))

	c := NewClassifier(modelPath, textnorm.NewNormalizer(zap.NewNop()), zap.NewNop())
	assert.False(t, c.IsTrained())
}

func TestEvaluate(t *testing.T) {
	c := newTestClassifier(t)

	metrics, err := c.Evaluate(trainTexts, trainLabels)
	require.NoError(t, err)

	assert.Equal(t, 8, metrics.TrainSamples)
	assert.Equal(t, 2, metrics.TestSamples)
	assert.GreaterOrEqual(t, metrics.Accuracy, 0.0)
	assert.LessOrEqual(t, metrics.Accuracy, 1.0)
	assert.True(t, metrics.ModelSaved)

	// Evaluation refits and persists, leaving a usable model behind.
	assert.True(t, c.IsTrained())
}

func TestEvaluateGuards(t *testing.T) {
	c := newTestClassifier(t)

	_, err := c.Evaluate([]string{"a", "b"}, []int{1})
	assert.ErrorIs(t, err, core.ErrInvalidTrainingData)

	_, err = c.Evaluate([]string{"a", "b"}, []int{1, 0})
	assert.ErrorIs(t, err, core.ErrInvalidTrainingData)
}

func TestFeatureImportance(t *testing.T) {
	c := newTestClassifier(t)

	_, _, err := c.FeatureImportance(5)
	assert.ErrorIs(t, err, core.ErrModelUnavailable)

	require.NoError(t, c.Train(trainTexts, trainLabels))
	spam, legit, err := c.FeatureImportance(5)
	require.NoError(t, err)
	assert.Len(t, spam, 5)
	assert.Len(t, legit, 5)

	// Weights come back highest first.
	for i := 1; i < len(spam); i++ {
		assert.GreaterOrEqual(t, spam[i-1].Weight, spam[i].Weight)
	}
}

func TestStratifiedSplit(t *testing.T) {
	labels := []int{1, 1, 1, 1, 1, 0, 0, 0, 0, 0}
	train, test := stratifiedSplit(labels, 0.2, 42)

	assert.Len(t, train, 8)
	assert.Len(t, test, 2)

	// One test sample per class.
	counts := map[int]int{}
	for _, i := range test {
		counts[labels[i]]++
	}
	assert.Equal(t, 1, counts[0])
	assert.Equal(t, 1, counts[1])

	// The same seed reproduces the same split.
	train2, test2 := stratifiedSplit(labels, 0.2, 42)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)
}
