package core

import (
	"context"
)

// FeatureExtractor turns a parsed message into a feature bundle. An error
// means extraction degraded; the returned bundle is then empty and must be
// read as "no signal", never as "all safe".
type FeatureExtractor interface {
	Extract(msg *ParsedMessage) (FeatureBundle, error)
}

// RuleDetector computes the heuristic score for a message
type RuleDetector interface {
	Detect(msg *ParsedMessage, features FeatureBundle) RuleScore
}

// TextClassifier is the trainable statistical side of the engine. Predict
// returns nil when no trained model is available; that is a normal state,
// not an error.
type TextClassifier interface {
	Predict(text string) *ModelPrediction
	IsTrained() bool
}

// VerdictCache stores previously computed classifications per sender
type VerdictCache interface {
	// Get retrieves a non-expired verdict for a sender
	Get(ctx context.Context, senderAddress string) (*CachedVerdict, error)

	// Set stores a verdict
	Set(ctx context.Context, verdict *CachedVerdict) error

	// Delete removes a verdict
	Delete(ctx context.Context, senderAddress string) error

	// Cleanup removes expired verdicts
	Cleanup(ctx context.Context) error
}
