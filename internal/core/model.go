package core

import (
	"time"
)

// Sender identifies the origin of a message
type Sender struct {
	Name    string
	Address string
	Domain  string
}

// ParsedMessage is the immutable record produced by the message parser.
// The engine only reads from it; it never mutates a message.
type ParsedMessage struct {
	ID             string
	Sender         Sender
	Subject        string
	BodyText       string
	BodyHTML       string
	URLs           []string
	HasAttachments bool
	Headers        map[string]string
	ReceivedAt     time.Time
}

// SenderFeatures describes who a message claims to come from
type SenderFeatures struct {
	IsFreeProvider  bool
	IsTrustedDomain bool
	HasNameMismatch bool
	IsValidFormat   bool
}

// ContentFeatures describes the textual content of subject and body
type ContentFeatures struct {
	PhishingKeywordCount   int
	MatchedKeywords        []string
	UrgencyCount           int
	CapsRatio              float64
	ExclamationCount       int
	QuestionCount          int
	MoneyTermCount         int
	CredentialRequestCount int
	BodyLength             int
}

// URLFeatures describes the links found in a message
type URLFeatures struct {
	URLCount              int
	ShortenedURLCount     int
	SuspiciousTLDCount    int
	IPAddressCount        int
	MismatchedDomainCount int
}

// StructuralFeatures describes the shape of the message
type StructuralFeatures struct {
	HasHTML        bool
	HasAttachments bool
	HTMLRatio      float64
}

// HeaderFeatures describes anomalies in the message headers
type HeaderFeatures struct {
	HasReplyToMismatch bool
	MissingHeaderCount int
	HasReturnPath      bool
}

// FeatureBundle groups all extracted features. Extracting twice from the
// same ParsedMessage yields an identical bundle.
type FeatureBundle struct {
	Sender     SenderFeatures
	Content    ContentFeatures
	URL        URLFeatures
	Structural StructuralFeatures
	Header     HeaderFeatures
}

// RuleScore is the output of the rule-based detector
type RuleScore struct {
	PhishingScore int
	SpamScore     int
	Combined      int
	Indicators    []string
}

// ModelPrediction is a trained classifier's verdict on a message text.
// A nil *ModelPrediction means the model was unavailable.
type ModelPrediction struct {
	Label      int     // 0 = legitimate, 1 = spam
	Confidence float64 // max posterior probability, in [0,1]
}

// Classification is the final record emitted for a scored message
type Classification struct {
	Score             float64
	Tier              Tier
	Confidence        float64
	Indicators        []string
	RecommendedAction string
	ModelUsed         bool
	AnalyzedAt        time.Time
}

// CachedVerdict is a previously computed classification kept per sender
type CachedVerdict struct {
	SenderAddress string
	Tier          Tier
	Score         float64
	Confidence    float64
	LastSeen      time.Time
	ExpiresAt     time.Time
}

// Summary counts classifications by tier over a batch run
type Summary struct {
	Total      int
	Safe       int
	Suspicious int
	Spam       int
}

// Add records one classification in the summary
func (s *Summary) Add(c *Classification) {
	s.Total++
	switch c.Tier {
	case TierSafe:
		s.Safe++
	case TierSuspicious:
		s.Suspicious++
	case TierSpam:
		s.Spam++
	}
}
