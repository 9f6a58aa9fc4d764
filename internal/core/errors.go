package core

import (
	"errors"
)

var (
	// ErrInvalidTrainingData is returned when a training set is empty,
	// too small or has mismatched texts and labels
	ErrInvalidTrainingData = errors.New("invalid training data")

	// ErrModelUnavailable is returned when a prediction is requested
	// but no trained model exists
	ErrModelUnavailable = errors.New("model not trained")

	// ErrExtractionFailure is returned when feature extraction could not
	// complete; the bundle is degraded to empty and carries no signal
	ErrExtractionFailure = errors.New("feature extraction failed")

	// ErrPipelineFailure wraps unexpected errors raised anywhere in the
	// scoring pipeline
	ErrPipelineFailure = errors.New("scoring pipeline failed")
)
