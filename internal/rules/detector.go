package rules

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/mailrisk/threat-engine/internal/core"
)

const maxScore = 100

// Phishing carries more weight than spam in the combined score because the
// cost of a missed phish is higher than a missed advertisement.
const (
	phishingWeight = 0.6
	spamWeight     = 0.4
)

// Detector computes the heuristic threat score from a feature bundle. It is
// deterministic arithmetic over the bundle; an empty bundle simply triggers
// nothing above the weak "unknown domain" indicator.
type Detector struct {
	logger *zap.Logger
}

// NewDetector creates a rule-based detector
func NewDetector(logger *zap.Logger) *Detector {
	return &Detector{logger: logger}
}

// Detect scores a message against the phishing and spam rule sets and
// returns both sub-scores, the weighted combined score and the ordered list
// of triggered indicators.
func (d *Detector) Detect(msg *core.ParsedMessage, features core.FeatureBundle) core.RuleScore {
	phishing, phishingIndicators := d.detectPhishing(features)
	spam, spamIndicators := d.detectSpam(features)

	combined := int(math.Round(float64(phishing)*phishingWeight + float64(spam)*spamWeight))
	if combined > maxScore {
		combined = maxScore
	}
	if combined < 0 {
		combined = 0
	}

	d.logger.Debug("Rule detection complete",
		zap.String("sender", msg.Sender.Address),
		zap.Int("phishing_score", phishing),
		zap.Int("spam_score", spam),
		zap.Int("combined", combined))

	return core.RuleScore{
		PhishingScore: phishing,
		SpamScore:     spam,
		Combined:      combined,
		Indicators:    append(phishingIndicators, spamIndicators...),
	}
}

func (d *Detector) detectPhishing(f core.FeatureBundle) (int, []string) {
	score := 0
	var indicators []string

	if f.Sender.HasNameMismatch {
		score += 25
		indicators = append(indicators, "Sender display name doesn't match email domain (possible spoofing)")
	}
	if f.Content.CredentialRequestCount > 0 {
		score += 20
		indicators = append(indicators, fmt.Sprintf("Requests credentials (%d instances)", f.Content.CredentialRequestCount))
	}
	if f.Content.PhishingKeywordCount > 0 {
		weight := f.Content.PhishingKeywordCount * 5
		if weight > 20 {
			weight = 20
		}
		score += weight
		preview := f.Content.MatchedKeywords
		if len(preview) > 3 {
			preview = preview[:3]
		}
		indicators = append(indicators, "Contains phishing keywords: "+strings.Join(preview, ", "))
	}
	if f.Content.UrgencyCount >= 2 {
		score += 15
		indicators = append(indicators, "Uses urgent/pressure language")
	}
	if f.URL.IPAddressCount > 0 {
		score += 20
		indicators = append(indicators, "Contains URLs with IP addresses instead of domains")
	}
	if f.URL.ShortenedURLCount > 0 {
		score += 10
		indicators = append(indicators, "Contains shortened URLs (potential redirect)")
	}
	if f.URL.SuspiciousTLDCount > 0 {
		score += 15
		indicators = append(indicators, "Contains URLs with suspicious top-level domains")
	}
	if f.URL.MismatchedDomainCount > 0 {
		score += 15
		indicators = append(indicators, "URL domains don't match sender domain")
	}
	if f.Header.HasReplyToMismatch {
		score += 10
		indicators = append(indicators, "Reply-To address differs from sender")
	}
	if !f.Sender.IsTrustedDomain && !f.Sender.IsFreeProvider {
		score += 5
		indicators = append(indicators, "Sender from unknown domain")
	}

	if score > maxScore {
		score = maxScore
	}
	return score, indicators
}

func (d *Detector) detectSpam(f core.FeatureBundle) (int, []string) {
	score := 0
	var indicators []string

	if f.Content.MoneyTermCount >= 3 {
		score += 15
		indicators = append(indicators, fmt.Sprintf("Contains excessive money-related terms (%d instances)", f.Content.MoneyTermCount))
	}
	if f.Content.CapsRatio > 0.5 {
		score += 10
		indicators = append(indicators, "Subject line has excessive capitalization")
	}
	if f.Content.ExclamationCount >= 3 {
		score += 10
		indicators = append(indicators, fmt.Sprintf("Excessive exclamation marks (%d)", f.Content.ExclamationCount))
	}
	if f.URL.URLCount >= 5 {
		score += 15
		indicators = append(indicators, fmt.Sprintf("Contains many URLs (%d)", f.URL.URLCount))
	}
	if f.Structural.HasAttachments {
		score += 10
		indicators = append(indicators, "Contains attachments (potential malware vector)")
	}
	if f.Content.BodyLength < 50 && f.URL.URLCount > 0 {
		score += 10
		indicators = append(indicators, "Very short message with links (likely spam)")
	}
	if f.Sender.IsFreeProvider && f.Content.MoneyTermCount >= 2 {
		score += 10
		indicators = append(indicators, "Free email provider sending promotional content")
	}

	if score > maxScore {
		score = maxScore
	}
	return score, indicators
}
