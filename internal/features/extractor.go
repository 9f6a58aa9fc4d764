package features

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/cloudflare/ahocorasick"
	"go.uber.org/zap"

	"github.com/mailrisk/threat-engine/internal/core"
)

var (
	addressPattern      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	looseAddressPattern = regexp.MustCompile(`[\w.-]+@[\w.-]+`)
	ipHostPattern       = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)
)

// Fixed indicator vocabularies. These are detection heuristics, not tuning
// knobs, so they are not part of the configuration surface.
var (
	urgencyWords = []string{
		"urgent", "immediate", "act now", "expires", "limited time",
		"hurry", "quick", "fast", "deadline", "today only",
	}
	moneyTerms = []string{
		"$", "€", "£", "money", "cash", "prize", "winner", "free",
		"credit card", "bank account", "payment",
	}
	credentialTerms = []string{
		"password", "username", "social security", "ssn",
		"credit card", "account number", "pin", "verify",
	}
)

// Lists carries the configured word and domain lists the extractor matches
// against
type Lists struct {
	PhishingKeywords []string
	SuspiciousTLDs   []string
	URLShorteners    []string
	TrustedDomains   []string
	FreeProviders    []string
	Brands           []string
}

// Extractor derives a FeatureBundle from a parsed message. Extraction is a
// pure function of the message and the configured lists; the same message
// always yields an identical bundle.
type Extractor struct {
	lists           Lists
	phishingMatcher *ahocorasick.Matcher
	logger          *zap.Logger
}

// NewExtractor builds an extractor for the given lists. The phishing
// keyword matcher is compiled once here.
func NewExtractor(lists Lists, logger *zap.Logger) *Extractor {
	patterns := make([][]byte, len(lists.PhishingKeywords))
	for i, kw := range lists.PhishingKeywords {
		patterns[i] = []byte(strings.ToLower(kw))
	}
	return &Extractor{
		lists:           lists,
		phishingMatcher: ahocorasick.NewMatcher(patterns),
		logger:          logger,
	}
}

// Extract computes all five feature groups. If any sub-extraction panics the
// whole call returns an empty bundle and an error; callers must treat an
// empty bundle as missing signal, not as a clean message.
func (e *Extractor) Extract(msg *core.ParsedMessage) (bundle core.FeatureBundle, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Feature extraction panicked", zap.Any("panic", r))
			bundle = core.FeatureBundle{}
			err = fmt.Errorf("%w: %v", core.ErrExtractionFailure, r)
		}
	}()

	bundle = core.FeatureBundle{
		Sender:     e.extractSender(msg),
		Content:    e.extractContent(msg),
		URL:        e.extractURL(msg),
		Structural: e.extractStructural(msg),
		Header:     e.extractHeader(msg),
	}
	return bundle, nil
}

func (e *Extractor) extractSender(msg *core.ParsedMessage) core.SenderFeatures {
	domain := strings.ToLower(msg.Sender.Domain)

	// Display names like "PayPal Support <x@evil.example>" mentioning a brand
	// the domain does not carry are the classic spoofing shape.
	nameMismatch := false
	if msg.Sender.Name != "" && domain != "" {
		nameLower := strings.ToLower(msg.Sender.Name)
		for _, brand := range e.lists.Brands {
			b := strings.ToLower(brand)
			if strings.Contains(nameLower, b) && !strings.Contains(domain, b) {
				nameMismatch = true
				break
			}
		}
	}

	return core.SenderFeatures{
		IsFreeProvider:  containsFold(e.lists.FreeProviders, domain),
		IsTrustedDomain: containsFold(e.lists.TrustedDomains, domain),
		HasNameMismatch: nameMismatch,
		IsValidFormat:   addressPattern.MatchString(msg.Sender.Address),
	}
}

func (e *Extractor) extractContent(msg *core.ParsedMessage) core.ContentFeatures {
	subject := strings.ToLower(msg.Subject)
	body := strings.ToLower(msg.BodyText)
	combined := subject + " " + body

	// One hit per configured phrase that appears anywhere in the text.
	var matched []string
	hits := e.phishingMatcher.Match([]byte(combined))
	sort.Ints(hits)
	for _, idx := range hits {
		matched = append(matched, e.lists.PhishingKeywords[idx])
	}

	capsRatio := 0.0
	subjectRunes := []rune(msg.Subject)
	if len(subjectRunes) > 0 {
		upper := 0
		for _, r := range subjectRunes {
			if unicode.IsUpper(r) {
				upper++
			}
		}
		capsRatio = float64(upper) / float64(len(subjectRunes))
	}

	return core.ContentFeatures{
		PhishingKeywordCount:   len(matched),
		MatchedKeywords:        matched,
		UrgencyCount:           countPresent(urgencyWords, combined),
		CapsRatio:              capsRatio,
		ExclamationCount:       strings.Count(combined, "!"),
		QuestionCount:          strings.Count(combined, "?"),
		MoneyTermCount:         countPresent(moneyTerms, combined),
		CredentialRequestCount: countPresent(credentialTerms, combined),
		BodyLength:             len(body),
	}
}

func (e *Extractor) extractURL(msg *core.ParsedMessage) core.URLFeatures {
	senderDomain := strings.ToLower(msg.Sender.Domain)
	feats := core.URLFeatures{URLCount: len(msg.URLs)}

	for _, raw := range msg.URLs {
		parsed, err := url.Parse(raw)
		if err != nil {
			e.logger.Debug("Skipping unparseable URL", zap.String("url", raw), zap.Error(err))
			continue
		}
		host := strings.ToLower(parsed.Host)
		if host == "" {
			continue
		}

		for _, shortener := range e.lists.URLShorteners {
			if strings.Contains(host, strings.ToLower(shortener)) {
				feats.ShortenedURLCount++
				break
			}
		}
		for _, tld := range e.lists.SuspiciousTLDs {
			if strings.HasSuffix(host, strings.ToLower(tld)) {
				feats.SuspiciousTLDCount++
				break
			}
		}
		if ipHostPattern.MatchString(host) {
			feats.IPAddressCount++
		}

		// Typosquat test only applies to hosts that are neither the sender
		// domain nor a sub/superstring of it.
		if senderDomain != "" &&
			!strings.Contains(host, senderDomain) &&
			!strings.Contains(senderDomain, host) &&
			isSimilarDomain(senderDomain, host) {
			feats.MismatchedDomainCount++
		}
	}
	return feats
}

func (e *Extractor) extractStructural(msg *core.ParsedMessage) core.StructuralFeatures {
	htmlRatio := 0.0
	if len(msg.BodyText) > 0 {
		htmlRatio = float64(len(msg.BodyHTML)) / float64(len(msg.BodyText))
	}
	return core.StructuralFeatures{
		HasHTML:        msg.BodyHTML != "",
		HasAttachments: msg.HasAttachments,
		HTMLRatio:      htmlRatio,
	}
}

func (e *Extractor) extractHeader(msg *core.ParsedMessage) core.HeaderFeatures {
	fromAddress := strings.ToLower(msg.Sender.Address)
	replyTo := msg.Headers["Reply-To"]

	replyToMismatch := false
	if replyTo != "" && fromAddress != "" {
		if m := looseAddressPattern.FindString(replyTo); m != "" {
			replyToMismatch = strings.ToLower(m) != fromAddress
		}
	}

	missing := 0
	for _, name := range []string{"From", "To", "Subject", "Date"} {
		if _, ok := msg.Headers[name]; !ok {
			missing++
		}
	}

	_, hasReturnPath := msg.Headers["Return-Path"]
	return core.HeaderFeatures{
		HasReplyToMismatch: replyToMismatch,
		MissingHeaderCount: missing,
		HasReturnPath:      hasReturnPath,
	}
}

// isSimilarDomain flags near-identical domains: lengths within 2 and at most
// 2 differing characters over the shorter length.
func isSimilarDomain(a, b string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	diff := len(a) - len(b)
	if diff < -2 || diff > 2 {
		return false
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	mismatches := 0
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			mismatches++
		}
	}
	return mismatches <= 2
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

func countPresent(terms []string, text string) int {
	count := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			count++
		}
	}
	return count
}
