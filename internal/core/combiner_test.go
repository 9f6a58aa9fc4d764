package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombineWithModel(t *testing.T) {
	c := NewHybridCombiner(0.6)

	// Model says spam at 0.6 confidence, rules say 20: the model maps to 80
	// on the scale, so the fused score is 80*0.6 + 20*0.4 = 56.
	final := c.Combine(RuleScore{Combined: 20}, &ModelPrediction{Label: 1, Confidence: 0.6})

	assert.True(t, final.ModelUsed)
	assert.InDelta(t, 80.0, final.ModelScore, 1e-9)
	assert.InDelta(t, 56.0, final.Value, 1e-9)
	// 0.6*0.6 + (1 - |20-50|/100)*0.4
	assert.InDelta(t, 0.64, final.Confidence, 1e-9)
}

func TestCombineLegitimatePullsDown(t *testing.T) {
	c := NewHybridCombiner(0.6)

	final := c.Combine(RuleScore{Combined: 60}, &ModelPrediction{Label: 0, Confidence: 1.0})

	// Label 0 at full confidence maps to 0 on the scale.
	assert.InDelta(t, 0.0, final.ModelScore, 1e-9)
	assert.InDelta(t, 24.0, final.Value, 1e-9)
}

func TestCombineWithoutModel(t *testing.T) {
	c := NewHybridCombiner(0.6)

	final := c.Combine(RuleScore{Combined: 80}, nil)

	assert.False(t, final.ModelUsed)
	assert.InDelta(t, 80.0, final.Value, 1e-9)
	// Confidence reflects distance from the midpoint only.
	assert.InDelta(t, 0.7, final.Confidence, 1e-9)
	assert.Zero(t, final.ModelScore)
}

func TestCombineClampsRuleScore(t *testing.T) {
	c := NewHybridCombiner(0.5)

	final := c.Combine(RuleScore{Combined: 150}, nil)
	assert.InDelta(t, 100.0, final.Value, 1e-9)

	final = c.Combine(RuleScore{Combined: -10}, nil)
	assert.InDelta(t, 0.0, final.Value, 1e-9)
}

func TestCombinerClampsWeight(t *testing.T) {
	// Weight above 1 behaves as 1: only the model contributes.
	c := NewHybridCombiner(1.5)
	final := c.Combine(RuleScore{Combined: 10}, &ModelPrediction{Label: 1, Confidence: 1.0})
	assert.InDelta(t, 100.0, final.Value, 1e-9)

	// Weight below 0 behaves as 0: only the rules contribute.
	c = NewHybridCombiner(-0.5)
	final = c.Combine(RuleScore{Combined: 10}, &ModelPrediction{Label: 1, Confidence: 1.0})
	assert.InDelta(t, 10.0, final.Value, 1e-9)
}
