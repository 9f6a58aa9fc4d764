package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/mailrisk/threat-engine/internal/core"
)

func newTestDetector() *Detector {
	return NewDetector(zap.NewNop())
}

func TestDetectCleanMessage(t *testing.T) {
	d := newTestDetector()

	// A trusted sender with no triggered rules scores zero everywhere.
	features := core.FeatureBundle{
		Sender: core.SenderFeatures{IsTrustedDomain: true, IsValidFormat: true},
	}
	score := d.Detect(&core.ParsedMessage{}, features)

	assert.Zero(t, score.PhishingScore)
	assert.Zero(t, score.SpamScore)
	assert.Zero(t, score.Combined)
	assert.Empty(t, score.Indicators)
}

func TestDetectUnknownDomainOnly(t *testing.T) {
	d := newTestDetector()

	score := d.Detect(&core.ParsedMessage{}, core.FeatureBundle{})

	assert.Equal(t, 5, score.PhishingScore)
	assert.Zero(t, score.SpamScore)
	// round(5*0.6 + 0*0.4) = 3
	assert.Equal(t, 3, score.Combined)
	assert.Equal(t, []string{"Sender from unknown domain"}, score.Indicators)
}

func TestDetectPhishingWeights(t *testing.T) {
	d := newTestDetector()

	// credentials +20, one keyword +5, IP URL +20.
	features := core.FeatureBundle{
		Sender: core.SenderFeatures{IsTrustedDomain: true},
		Content: core.ContentFeatures{
			CredentialRequestCount: 1,
			PhishingKeywordCount:   1,
			MatchedKeywords:        []string{"verify your account"},
			BodyLength:             500,
		},
		URL: core.URLFeatures{IPAddressCount: 1, URLCount: 1},
	}
	score := d.Detect(&core.ParsedMessage{}, features)

	assert.Equal(t, 45, score.PhishingScore)
	assert.Zero(t, score.SpamScore)
	// round(45*0.6) = 27
	assert.Equal(t, 27, score.Combined)
	assert.Contains(t, score.Indicators, "Requests credentials (1 instances)")
	assert.Contains(t, score.Indicators, "Contains phishing keywords: verify your account")
	assert.Contains(t, score.Indicators, "Contains URLs with IP addresses instead of domains")
}

func TestDetectKeywordWeightCap(t *testing.T) {
	d := newTestDetector()

	// Ten keywords still only contribute 20 points.
	features := core.FeatureBundle{
		Sender: core.SenderFeatures{IsTrustedDomain: true},
		Content: core.ContentFeatures{
			PhishingKeywordCount: 10,
			MatchedKeywords: []string{
				"verify", "suspended", "click here", "confirm", "urgent",
				"account", "login", "password", "update", "secure",
			},
			BodyLength: 500,
		},
	}
	score := d.Detect(&core.ParsedMessage{}, features)

	assert.Equal(t, 20, score.PhishingScore)
	// The indicator previews at most three keywords.
	assert.Contains(t, score.Indicators, "Contains phishing keywords: verify, suspended, click here")
}

func TestDetectUrgencyThreshold(t *testing.T) {
	d := newTestDetector()

	features := core.FeatureBundle{
		Sender:  core.SenderFeatures{IsTrustedDomain: true},
		Content: core.ContentFeatures{UrgencyCount: 1, BodyLength: 500},
	}
	score := d.Detect(&core.ParsedMessage{}, features)
	assert.Zero(t, score.PhishingScore, "a single urgency word is not enough")

	features.Content.UrgencyCount = 2
	score = d.Detect(&core.ParsedMessage{}, features)
	assert.Equal(t, 15, score.PhishingScore)
}

func TestDetectSpamWeights(t *testing.T) {
	d := newTestDetector()

	// money terms +15, caps +10, exclamations +10, many URLs +15,
	// attachments +10, free provider promo +10.
	features := core.FeatureBundle{
		Sender: core.SenderFeatures{IsFreeProvider: true},
		Content: core.ContentFeatures{
			MoneyTermCount:   3,
			CapsRatio:        0.8,
			ExclamationCount: 5,
			BodyLength:       500,
		},
		URL:        core.URLFeatures{URLCount: 6},
		Structural: core.StructuralFeatures{HasAttachments: true},
	}
	score := d.Detect(&core.ParsedMessage{}, features)

	assert.Equal(t, 70, score.SpamScore)
	assert.Zero(t, score.PhishingScore)
	// round(70*0.4) = 28
	assert.Equal(t, 28, score.Combined)
}

func TestDetectShortBodyWithLinks(t *testing.T) {
	d := newTestDetector()

	features := core.FeatureBundle{
		Sender:  core.SenderFeatures{IsTrustedDomain: true},
		Content: core.ContentFeatures{BodyLength: 20},
		URL:     core.URLFeatures{URLCount: 1},
	}
	score := d.Detect(&core.ParsedMessage{}, features)

	assert.Equal(t, 10, score.SpamScore)
	assert.Contains(t, score.Indicators, "Very short message with links (likely spam)")
}

func TestDetectCombinedWeighting(t *testing.T) {
	d := newTestDetector()

	// Everything triggers: phishing caps at 100 and spam reaches 80.
	features := core.FeatureBundle{
		Sender: core.SenderFeatures{HasNameMismatch: true, IsFreeProvider: true},
		Content: core.ContentFeatures{
			CredentialRequestCount: 2,
			PhishingKeywordCount:   5,
			MatchedKeywords:        []string{"a", "b", "c", "d", "e"},
			UrgencyCount:           3,
			MoneyTermCount:         4,
			CapsRatio:              0.9,
			ExclamationCount:       8,
			BodyLength:             10,
		},
		URL: core.URLFeatures{
			URLCount:              6,
			IPAddressCount:        1,
			ShortenedURLCount:     1,
			SuspiciousTLDCount:    1,
			MismatchedDomainCount: 1,
		},
		Structural: core.StructuralFeatures{HasAttachments: true},
		Header:     core.HeaderFeatures{HasReplyToMismatch: true},
	}
	score := d.Detect(&core.ParsedMessage{}, features)

	assert.Equal(t, 100, score.PhishingScore)
	assert.Equal(t, 80, score.SpamScore)
	// round(100*0.6 + 80*0.4) = 92
	assert.Equal(t, 92, score.Combined)
	assert.NotEmpty(t, score.Indicators)
}
