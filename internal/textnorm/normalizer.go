package textnorm

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/kljensen/snowball"
	"go.uber.org/zap"
)

var (
	resourceOnce sync.Once
	tokenPattern *regexp.Regexp
	stopwordSet  map[string]struct{}
)

// loadResources builds the token pattern and stopword set exactly once.
// Safe to trigger from any number of Normalizer constructions.
func loadResources() {
	resourceOnce.Do(func() {
		// Words (with embedded apostrophes) or single punctuation marks.
		tokenPattern = regexp.MustCompile(`[A-Za-z0-9]+(?:'[A-Za-z]+)*|[^\sA-Za-z0-9]`)
		stopwordSet = make(map[string]struct{}, len(english))
		for _, w := range english {
			stopwordSet[w] = struct{}{}
		}
	})
}

// TextAnalysis is the full normalization report for one piece of text
type TextAnalysis struct {
	Tokens           []string
	TokenCount       int
	Filtered         []string // stopwords and non-alphanumeric tokens removed
	Stemmed          []string // stems of the filtered tokens
	Bigrams          []string
	Trigrams         []string
	UniqueStems      int
	ContentRichness  float64 // unique stems / total tokens, 0 for empty text
}

// Normalizer provides tokenization, stopword removal, stemming and n-gram
// extraction. All methods are pure; the only state is the lazily built
// shared stopword and pattern resources.
type Normalizer struct {
	logger *zap.Logger
}

// NewNormalizer creates a normalizer, loading shared resources on first use
func NewNormalizer(logger *zap.Logger) *Normalizer {
	loadResources()
	return &Normalizer{logger: logger}
}

// Tokenize splits text into word and punctuation tokens
func (n *Normalizer) Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	return tokenPattern.FindAllString(text, -1)
}

// RemoveStopwords lower-cases tokens and drops stopwords and anything that
// is not purely alphanumeric
func (n *Normalizer) RemoveStopwords(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	filtered := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		lower := strings.ToLower(tok)
		if _, stop := stopwordSet[lower]; stop {
			continue
		}
		if !isAlphanumeric(lower) {
			continue
		}
		filtered = append(filtered, lower)
	}
	return filtered
}

// Stem reduces tokens to their root form using the snowball English stemmer.
// Tokens the stemmer rejects pass through lower-cased.
func (n *Normalizer) Stem(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	stemmed := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		lower := strings.ToLower(tok)
		stem, err := snowball.Stem(lower, "english", true)
		if err != nil {
			stem = lower
		}
		stemmed = append(stemmed, stem)
	}
	return stemmed
}

// Ngrams returns space-joined sliding windows of n tokens, lower-cased.
// Empty when fewer than n tokens are available.
func (n *Normalizer) Ngrams(tokens []string, size int) []string {
	if size < 1 || len(tokens) < size {
		return nil
	}
	grams := make([]string, 0, len(tokens)-size+1)
	for i := 0; i+size <= len(tokens); i++ {
		grams = append(grams, strings.ToLower(strings.Join(tokens[i:i+size], " ")))
	}
	return grams
}

// AnalyzeText runs the full normalization chain and reports token counts
// and content richness
func (n *Normalizer) AnalyzeText(text string) TextAnalysis {
	if text == "" {
		return TextAnalysis{}
	}

	tokens := n.Tokenize(text)
	filtered := n.RemoveStopwords(tokens)
	stemmed := n.Stem(filtered)

	unique := make(map[string]struct{}, len(stemmed))
	for _, stem := range stemmed {
		unique[stem] = struct{}{}
	}

	tokenCount := len(tokens)
	richness := 0.0
	if tokenCount > 0 {
		richness = float64(len(unique)) / float64(tokenCount)
	}

	return TextAnalysis{
		Tokens:          tokens,
		TokenCount:      tokenCount,
		Filtered:        filtered,
		Stemmed:         stemmed,
		Bigrams:         n.Ngrams(filtered, 2),
		Trigrams:        n.Ngrams(filtered, 3),
		UniqueStems:     len(unique),
		ContentRichness: richness,
	}
}

// IsStopword reports whether a lower-cased token is in the stopword set
func (n *Normalizer) IsStopword(token string) bool {
	_, ok := stopwordSet[strings.ToLower(token)]
	return ok
}

func isAlphanumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
