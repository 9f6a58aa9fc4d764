package core

import (
	"fmt"
)

// Tier is the discrete risk category assigned to a message
type Tier int

const (
	TierSafe Tier = iota
	TierSuspicious
	TierSpam
)

// String returns the canonical name of the tier
func (t Tier) String() string {
	switch t {
	case TierSafe:
		return "SAFE"
	case TierSuspicious:
		return "SUSPICIOUS"
	case TierSpam:
		return "SPAM"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// ParseTier converts the canonical name back into a Tier
func ParseTier(s string) (Tier, error) {
	switch s {
	case "SAFE":
		return TierSafe, nil
	case "SUSPICIOUS":
		return TierSuspicious, nil
	case "SPAM":
		return TierSpam, nil
	default:
		return TierSafe, fmt.Errorf("unknown tier %q", s)
	}
}

// Recommended actions per tier
const (
	ActionNone       = "No action needed"
	ActionFlagReview = "Flag for review"
	ActionQuarantine = "Move to spam folder"
)

// TierClassifier maps a final score onto a tier and a recommended action
// using two thresholds. The boundary value always lands in the lower tier:
// score == safeThreshold is SAFE, score == suspiciousThreshold is SUSPICIOUS.
type TierClassifier struct {
	safeThreshold       float64
	suspiciousThreshold float64
}

// NewTierClassifier creates a tier classifier with the given thresholds
func NewTierClassifier(safeThreshold, suspiciousThreshold float64) *TierClassifier {
	return &TierClassifier{
		safeThreshold:       safeThreshold,
		suspiciousThreshold: suspiciousThreshold,
	}
}

// Classify returns the tier and recommended action for a final score
func (tc *TierClassifier) Classify(score float64) (Tier, string) {
	switch {
	case score <= tc.safeThreshold:
		return TierSafe, ActionNone
	case score <= tc.suspiciousThreshold:
		return TierSuspicious, ActionFlagReview
	default:
		return TierSpam, ActionQuarantine
	}
}
