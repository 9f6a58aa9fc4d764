package core

import (
	"math"
)

// FinalScore is the fused result of rule-based and model-based scoring
type FinalScore struct {
	Value      float64
	Confidence float64
	ModelUsed  bool
	ModelScore float64 // model prediction mapped onto the 0-100 scale, 0 if unused
}

// HybridCombiner fuses the rule score with the classifier prediction using
// a configurable model weight.
type HybridCombiner struct {
	modelWeight float64
}

// NewHybridCombiner creates a combiner. The weight is clamped to [0,1] so a
// misconfigured value can never push the final score outside the scale.
func NewHybridCombiner(modelWeight float64) *HybridCombiner {
	return &HybridCombiner{modelWeight: clamp(modelWeight, 0, 1)}
}

// Combine fuses the rule score with an optional model prediction. A nil
// prediction means the model was untrained or had no text to work with; the
// rule score then passes through unchanged.
func (c *HybridCombiner) Combine(rule RuleScore, pred *ModelPrediction) FinalScore {
	ruleScore := clamp(float64(rule.Combined), 0, 100)

	if pred == nil {
		return FinalScore{
			Value:      ruleScore,
			Confidence: 1 - math.Abs(ruleScore-50)/100,
			ModelUsed:  false,
		}
	}

	// Map the binary prediction onto the 0-100 scale: spam pushes the score
	// above the midpoint, legitimate pulls it below, proportionally to the
	// model's confidence.
	var modelScore float64
	if pred.Label == 1 {
		modelScore = 50 + pred.Confidence*50
	} else {
		modelScore = 50 - pred.Confidence*50
	}

	value := modelScore*c.modelWeight + ruleScore*(1-c.modelWeight)
	confidence := pred.Confidence*c.modelWeight + (1-math.Abs(ruleScore-50)/100)*(1-c.modelWeight)

	return FinalScore{
		Value:      clamp(value, 0, 100),
		Confidence: confidence,
		ModelUsed:  true,
		ModelScore: modelScore,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
