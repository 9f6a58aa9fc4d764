package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mailrisk/threat-engine/internal/core"
	"github.com/mailrisk/threat-engine/internal/textnorm"
)

const (
	minTrainSamples    = 2
	minEvalSamples     = 10
	evalTestFraction   = 0.2
	evalShuffleSeed    = 42
	defaultModelSubdir = "models"
)

// Classifier is the trainable text classifier: a tf-idf vectorizer feeding
// a multinomial naive Bayes model. The fitted artifact is held behind an
// atomic pointer so retraining swaps it in one step.
type Classifier struct {
	modelPath  string
	params     vectorizerParams
	normalizer *textnorm.Normalizer
	logger     *zap.Logger
	model      atomic.Pointer[fittedModel]
}

// NewClassifier creates a classifier persisting its model at modelPath.
// An existing artifact at that path is loaded eagerly; a missing or broken
// one just leaves the classifier untrained.
func NewClassifier(modelPath string, normalizer *textnorm.Normalizer, logger *zap.Logger) *Classifier {
	if modelPath == "" {
		modelPath = filepath.Join(defaultModelSubdir, "spam_classifier.json")
	}
	c := &Classifier{
		modelPath:  modelPath,
		params:     defaultVectorizerParams(),
		normalizer: normalizer,
		logger:     logger,
	}
	if _, err := os.Stat(modelPath); err == nil {
		if loadErr := c.Load(); loadErr != nil {
			logger.Warn("Could not load existing model", zap.Error(loadErr), zap.String("path", modelPath))
		}
	}
	return c
}

// IsTrained reports whether a fitted model is available
func (c *Classifier) IsTrained() bool {
	return c.model.Load() != nil
}

// FeatureCount returns the fitted vocabulary size, 0 when untrained
func (c *Classifier) FeatureCount() int {
	if m := c.model.Load(); m != nil {
		return m.featureCount()
	}
	return 0
}

// Train fits the vectorizer and classifier on the full labeled corpus,
// swaps the fitted model in and persists it.
func (c *Classifier) Train(texts []string, labels []int) error {
	if len(texts) != len(labels) {
		return fmt.Errorf("%w: %d texts vs %d labels", core.ErrInvalidTrainingData, len(texts), len(labels))
	}
	if len(texts) < minTrainSamples {
		return fmt.Errorf("%w: need at least %d samples, got %d", core.ErrInvalidTrainingData, minTrainSamples, len(texts))
	}

	c.logger.Info("Training classifier", zap.Int("samples", len(texts)))
	model := c.fit(texts, labels)
	c.model.Store(model)

	if err := c.Save(); err != nil {
		c.logger.Error("Failed to persist trained model", zap.Error(err))
		return err
	}
	c.logger.Info("Classifier trained and saved",
		zap.Int("features", model.featureCount()),
		zap.String("path", c.modelPath))
	return nil
}

// Predict classifies a single text. Nil means no trained model exists; an
// empty text returns the legitimate label with zero confidence.
func (c *Classifier) Predict(text string) *core.ModelPrediction {
	model := c.model.Load()
	if model == nil {
		c.logger.Debug("Predict called with no trained model")
		return nil
	}
	if text == "" {
		return &core.ModelPrediction{Label: 0, Confidence: 0}
	}

	vec := vectorize(analyze(c.normalizer, text), model.Vocabulary, model.IDF)
	label, confidence := model.predict(vec)
	return &core.ModelPrediction{Label: label, Confidence: confidence}
}

// PredictBatch classifies each text independently
func (c *Classifier) PredictBatch(texts []string) []*core.ModelPrediction {
	preds := make([]*core.ModelPrediction, len(texts))
	for i, text := range texts {
		preds[i] = c.Predict(text)
	}
	return preds
}

// Evaluate refits on a stratified 80% split and reports hold-out metrics on
// the remaining 20%. The refit model replaces the current one and is
// persisted, matching the training pipeline's retrain-and-measure cycle.
func (c *Classifier) Evaluate(texts []string, labels []int) (*Metrics, error) {
	if len(texts) != len(labels) {
		return nil, fmt.Errorf("%w: %d texts vs %d labels", core.ErrInvalidTrainingData, len(texts), len(labels))
	}
	if !c.IsTrained() && len(texts) < minEvalSamples {
		return nil, fmt.Errorf("%w: need at least %d samples for evaluation, got %d", core.ErrInvalidTrainingData, minEvalSamples, len(texts))
	}

	trainIdx, testIdx := stratifiedSplit(labels, evalTestFraction, evalShuffleSeed)
	trainTexts, trainLabels := subset(texts, labels, trainIdx)
	testTexts, testLabels := subset(texts, labels, testIdx)

	model := c.fit(trainTexts, trainLabels)
	c.model.Store(model)

	predictions := make([]int, len(testTexts))
	for i, text := range testTexts {
		vec := vectorize(analyze(c.normalizer, text), model.Vocabulary, model.IDF)
		predictions[i], _ = model.predict(vec)
	}

	metrics := computeMetrics(testLabels, predictions)
	metrics.TrainSamples = len(trainIdx)
	metrics.TestSamples = len(testIdx)

	if err := c.Save(); err != nil {
		c.logger.Error("Failed to persist refit model", zap.Error(err))
		return metrics, err
	}
	metrics.ModelSaved = true

	c.logger.Info("Model evaluation complete",
		zap.Float64("accuracy", metrics.Accuracy),
		zap.Float64("f1", metrics.F1),
		zap.Int("test_samples", metrics.TestSamples))
	return metrics, nil
}

// Save writes the fitted model artifact to the configured path
func (c *Classifier) Save() error {
	model := c.model.Load()
	if model == nil {
		return core.ErrModelUnavailable
	}
	if dir := filepath.Dir(c.modelPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create model directory: %w", err)
		}
	}
	data, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := os.WriteFile(c.modelPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	return nil
}

// Load restores a persisted model artifact. The trained state only changes
// when decoding succeeds.
func (c *Classifier) Load() error {
	data, err := os.ReadFile(c.modelPath)
	if err != nil {
		return fmt.Errorf("failed to read model file: %w", err)
	}
	var model fittedModel
	if err := json.Unmarshal(data, &model); err != nil {
		return fmt.Errorf("failed to decode model: %w", err)
	}
	c.model.Store(&model)
	c.logger.Info("Model loaded",
		zap.String("path", c.modelPath),
		zap.Int("features", model.featureCount()))
	return nil
}

// TermWeight pairs a vocabulary term with its log likelihood under a class
type TermWeight struct {
	Term   string
	Weight float64
}

// FeatureImportance returns the topN highest-weighted terms per class,
// highest first. Requires a trained model.
func (c *Classifier) FeatureImportance(topN int) (spam, legitimate []TermWeight, err error) {
	model := c.model.Load()
	if model == nil {
		return nil, nil, core.ErrModelUnavailable
	}

	topTerms := func(classLabel int) []TermWeight {
		ci := -1
		for i, cl := range model.Classes {
			if cl == classLabel {
				ci = i
				break
			}
		}
		if ci < 0 {
			return nil
		}
		weights := make([]TermWeight, len(model.Terms))
		for i, term := range model.Terms {
			weights[i] = TermWeight{Term: term, Weight: model.FeatureLogProb[ci][i]}
		}
		sort.Slice(weights, func(a, b int) bool { return weights[a].Weight > weights[b].Weight })
		if len(weights) > topN {
			weights = weights[:topN]
		}
		return weights
	}

	return topTerms(1), topTerms(0), nil
}

func (c *Classifier) fit(texts []string, labels []int) *fittedModel {
	docs := make([][]string, len(texts))
	for i, text := range texts {
		docs[i] = analyze(c.normalizer, text)
	}
	vocab, terms, idf := fitVocabulary(docs, c.params)
	vectors := make([]map[int]float64, len(docs))
	for i, doc := range docs {
		vectors[i] = vectorize(doc, vocab, idf)
	}
	return fitNaiveBayes(vectors, labels, vocab, terms, idf)
}

// stratifiedSplit shuffles each class with a fixed seed and carves off the
// test fraction per class, so both runs and classes stay balanced.
func stratifiedSplit(labels []int, testFraction float64, seed int64) (train, test []int) {
	byClass := make(map[int][]int)
	for i, l := range labels {
		byClass[l] = append(byClass[l], i)
	}
	classes := uniqueSorted(labels)

	rng := rand.New(rand.NewSource(seed))
	for _, class := range classes {
		group := byClass[class]
		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })

		nTest := int(math.Round(testFraction * float64(len(group))))
		if nTest == 0 && len(group) > 1 {
			nTest = 1
		}
		test = append(test, group[:nTest]...)
		train = append(train, group[nTest:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test
}

func subset(texts []string, labels []int, idx []int) ([]string, []int) {
	outTexts := make([]string, len(idx))
	outLabels := make([]int, len(idx))
	for i, j := range idx {
		outTexts[i] = texts[j]
		outLabels[i] = labels[j]
	}
	return outTexts, outLabels
}
