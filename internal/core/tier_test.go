package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyBoundaries(t *testing.T) {
	tc := NewTierClassifier(30, 70)

	tests := []struct {
		score  float64
		tier   Tier
		action string
	}{
		{0, TierSafe, ActionNone},
		{30, TierSafe, ActionNone},
		{30.5, TierSuspicious, ActionFlagReview},
		{70, TierSuspicious, ActionFlagReview},
		{70.5, TierSpam, ActionQuarantine},
		{100, TierSpam, ActionQuarantine},
	}

	for _, tt := range tests {
		tier, action := tc.Classify(tt.score)
		assert.Equal(t, tt.tier, tier, "score %v", tt.score)
		assert.Equal(t, tt.action, action, "score %v", tt.score)
	}
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "SAFE", TierSafe.String())
	assert.Equal(t, "SUSPICIOUS", TierSuspicious.String())
	assert.Equal(t, "SPAM", TierSpam.String())
	assert.Equal(t, "Tier(9)", Tier(9).String())
}

func TestParseTier(t *testing.T) {
	for _, tier := range []Tier{TierSafe, TierSuspicious, TierSpam} {
		parsed, err := ParseTier(tier.String())
		assert.NoError(t, err)
		assert.Equal(t, tier, parsed)
	}

	_, err := ParseTier("bogus")
	assert.Error(t, err)
}
