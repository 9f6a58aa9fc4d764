package training

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/mailrisk/threat-engine/internal/classifier"
	"github.com/mailrisk/threat-engine/internal/core"
)

// Corpus holds labeled training texts. Labels are 1 for spam and 0 for
// legitimate mail.
type Corpus struct {
	Texts  []string
	Labels []int
}

// Len returns the number of samples in the corpus
func (c *Corpus) Len() int {
	return len(c.Texts)
}

// SpamCount returns the number of spam-labeled samples
func (c *Corpus) SpamCount() int {
	n := 0
	for _, l := range c.Labels {
		if l == 1 {
			n++
		}
	}
	return n
}

// Pipeline loads a labeled corpus and drives classifier training and
// evaluation.
type Pipeline struct {
	classifier *classifier.Classifier
	logger     *zap.Logger
	minSamples int
}

// NewPipeline creates a new training pipeline
func NewPipeline(cls *classifier.Classifier, logger *zap.Logger, minSamples int) *Pipeline {
	return &Pipeline{
		classifier: cls,
		logger:     logger,
		minSamples: minSamples,
	}
}

// LoadCorpus reads a labeled CSV corpus. The first row is treated as a
// header; the text and label columns are located by name, falling back to
// the first two columns in label,text order. Labels may be numeric (0/1)
// or the words ham/legitimate/spam/phishing.
func (p *Pipeline) LoadCorpus(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus header: %w", err)
	}
	labelCol, textCol := locateColumns(header)

	corpus := &Corpus{}
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			p.logger.Warn("Skipping malformed corpus row", zap.Int("line", line), zap.Error(err))
			continue
		}
		if len(record) <= labelCol || len(record) <= textCol {
			continue
		}
		label, ok := parseLabel(record[labelCol])
		if !ok {
			p.logger.Warn("Skipping row with unknown label",
				zap.Int("line", line),
				zap.String("label", record[labelCol]))
			continue
		}
		text := strings.TrimSpace(record[textCol])
		if text == "" {
			continue
		}
		corpus.Texts = append(corpus.Texts, text)
		corpus.Labels = append(corpus.Labels, label)
	}

	p.logger.Info("Corpus loaded",
		zap.String("path", path),
		zap.Int("samples", corpus.Len()),
		zap.Int("spam", corpus.SpamCount()))
	return corpus, nil
}

// Train fits the classifier on the corpus and persists the model
func (p *Pipeline) Train(corpus *Corpus) error {
	if corpus.Len() < p.minSamples {
		return fmt.Errorf("%w: %d samples, need at least %d",
			core.ErrInvalidTrainingData, corpus.Len(), p.minSamples)
	}

	if err := p.classifier.Train(corpus.Texts, corpus.Labels); err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	p.logger.Info("Model trained",
		zap.Int("samples", corpus.Len()),
		zap.Int("features", p.classifier.FeatureCount()))
	p.logFeatureImportance()
	return nil
}

// Evaluate runs a held-out evaluation over the corpus, then refits and
// persists the model on the full corpus
func (p *Pipeline) Evaluate(corpus *Corpus) (*classifier.Metrics, error) {
	if corpus.Len() < p.minSamples {
		return nil, fmt.Errorf("%w: %d samples, need at least %d",
			core.ErrInvalidTrainingData, corpus.Len(), p.minSamples)
	}

	metrics, err := p.classifier.Evaluate(corpus.Texts, corpus.Labels)
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}

	p.logger.Info("Model evaluated",
		zap.Float64("accuracy", metrics.Accuracy),
		zap.Float64("precision", metrics.Precision),
		zap.Float64("recall", metrics.Recall),
		zap.Float64("f1", metrics.F1),
		zap.Int("train_samples", metrics.TrainSamples),
		zap.Int("test_samples", metrics.TestSamples))
	return metrics, nil
}

// logFeatureImportance reports the strongest terms per class after a fit
func (p *Pipeline) logFeatureImportance() {
	spam, legit, err := p.classifier.FeatureImportance(10)
	if err != nil {
		return
	}
	p.logger.Info("Top spam terms", zap.Strings("terms", termNames(spam)))
	p.logger.Info("Top legitimate terms", zap.Strings("terms", termNames(legit)))
}

func termNames(weights []classifier.TermWeight) []string {
	names := make([]string, len(weights))
	for i, w := range weights {
		names[i] = w.Term
	}
	return names
}

// locateColumns finds the label and text columns in a corpus header
func locateColumns(header []string) (labelCol, textCol int) {
	labelCol, textCol = 0, 1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "label", "class", "category", "v1":
			labelCol = i
		case "text", "message", "body", "email", "v2":
			textCol = i
		}
	}
	return labelCol, textCol
}

// parseLabel maps a corpus label cell onto the 0/1 class encoding
func parseLabel(raw string) (int, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "spam", "phishing":
		return 1, true
	case "0", "ham", "legitimate", "legit":
		return 0, true
	default:
		return 0, false
	}
}
