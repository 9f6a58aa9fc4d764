package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxModelTextLen = 5000

// ScoringServiceOptions carries the tunable knobs of the scoring pipeline
type ScoringServiceOptions struct {
	ModelWeight         float64
	SafeThreshold       float64
	SuspiciousThreshold float64

	// FailOpen selects the policy for unexpected pipeline errors: emit a
	// SAFE classification carrying an error indicator instead of returning
	// the error. Off by default, so an erroring message is not silently
	// treated as trusted.
	FailOpen bool

	// CacheEnabled turns the per-sender verdict cache on
	CacheEnabled bool
	CacheTTL     time.Duration

	// MinCacheConfidence is the minimum overall confidence a verdict needs
	// before it is worth remembering for the sender
	MinCacheConfidence float64
}

// ScoringService runs one message through the full pipeline: feature
// extraction, rule detection, optional model prediction, hybrid combination
// and tier classification. It is synchronous; one message flows end to end
// before the next starts.
type ScoringService struct {
	extractor  FeatureExtractor
	detector   RuleDetector
	classifier TextClassifier
	combiner   *HybridCombiner
	tiers      *TierClassifier
	cache      VerdictCache
	logger     *zap.Logger
	opts       ScoringServiceOptions
}

// NewScoringService creates the scoring pipeline
func NewScoringService(
	extractor FeatureExtractor,
	detector RuleDetector,
	classifier TextClassifier,
	cache VerdictCache,
	logger *zap.Logger,
	opts ScoringServiceOptions,
) *ScoringService {
	return &ScoringService{
		extractor:  extractor,
		detector:   detector,
		classifier: classifier,
		combiner:   NewHybridCombiner(opts.ModelWeight),
		tiers:      NewTierClassifier(opts.SafeThreshold, opts.SuspiciousThreshold),
		cache:      cache,
		logger:     logger,
		opts:       opts,
	}
}

// ScoreMessage classifies a single message and returns the classification
// record. With FailOpen set, any internal failure degrades to a SAFE verdict
// with an error indicator instead of an error return.
func (s *ScoringService) ScoreMessage(ctx context.Context, msg *ParsedMessage) (c *Classification, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scoring pipeline panicked",
				zap.Any("panic", r),
				zap.String("sender", msg.Sender.Address))
			c, err = s.pipelineFailure(fmt.Errorf("%w: %v", ErrPipelineFailure, r))
		}
	}()

	if s.opts.CacheEnabled && s.cache != nil {
		if verdict, cacheErr := s.cache.Get(ctx, msg.Sender.Address); cacheErr == nil && verdict != nil {
			s.logger.Debug("Verdict cache hit", zap.String("sender", msg.Sender.Address))
			return &Classification{
				Score:             verdict.Score,
				Tier:              verdict.Tier,
				Confidence:        verdict.Confidence,
				Indicators:        []string{"Previously seen sender (cached verdict)"},
				RecommendedAction: actionForTier(verdict.Tier),
				ModelUsed:         false,
				AnalyzedAt:        time.Now(),
			}, nil
		}
	}

	features, extractErr := s.extractor.Extract(msg)
	if extractErr != nil {
		// Degraded bundle carries no signal; the rules still run but will
		// see nothing to trigger on.
		s.logger.Warn("Feature extraction degraded to empty bundle",
			zap.Error(extractErr),
			zap.String("sender", msg.Sender.Address))
	}

	rule := s.detector.Detect(msg, features)

	var pred *ModelPrediction
	if s.classifier != nil && s.classifier.IsTrained() {
		pred = s.classifier.Predict(s.prepareModelText(msg))
	}

	final := s.combiner.Combine(rule, pred)
	tier, action := s.tiers.Classify(final.Value)

	c = &Classification{
		Score:             final.Value,
		Tier:              tier,
		Confidence:        final.Confidence,
		Indicators:        rule.Indicators,
		RecommendedAction: action,
		ModelUsed:         final.ModelUsed,
		AnalyzedAt:        time.Now(),
	}

	s.logger.Info("Message classified",
		zap.String("sender", msg.Sender.Address),
		zap.String("tier", tier.String()),
		zap.Float64("score", final.Value),
		zap.Float64("confidence", final.Confidence),
		zap.Bool("model_used", final.ModelUsed))

	s.maybeCacheVerdict(ctx, msg, c)
	return c, nil
}

// ScoreBatch classifies a slice of messages sequentially. A failing message
// never aborts the remainder of the batch; its slot is filled according to
// the fail-open policy or skipped with a logged error.
func (s *ScoringService) ScoreBatch(ctx context.Context, msgs []*ParsedMessage) ([]*Classification, Summary) {
	results := make([]*Classification, 0, len(msgs))
	var summary Summary
	for _, msg := range msgs {
		c, err := s.ScoreMessage(ctx, msg)
		if err != nil {
			s.logger.Error("Skipping message after pipeline failure",
				zap.Error(err),
				zap.String("sender", msg.Sender.Address))
			continue
		}
		results = append(results, c)
		summary.Add(c)
	}
	return results, summary
}

// prepareModelText builds the classifier input: the subject twice (so it
// outweighs body noise) followed by the plain-text body, capped for
// vectorization cost.
func (s *ScoringService) prepareModelText(msg *ParsedMessage) string {
	parts := make([]string, 0, 3)
	if msg.Subject != "" {
		parts = append(parts, msg.Subject, msg.Subject)
	}
	if msg.BodyText != "" {
		parts = append(parts, msg.BodyText)
	}
	text := strings.Join(parts, " ")
	if len(text) > maxModelTextLen {
		text = text[:maxModelTextLen]
	}
	return text
}

func (s *ScoringService) maybeCacheVerdict(ctx context.Context, msg *ParsedMessage, c *Classification) {
	if !s.opts.CacheEnabled || s.cache == nil {
		return
	}
	if c.Confidence < s.opts.MinCacheConfidence {
		return
	}
	verdict := &CachedVerdict{
		SenderAddress: msg.Sender.Address,
		Tier:          c.Tier,
		Score:         c.Score,
		Confidence:    c.Confidence,
		LastSeen:      c.AnalyzedAt,
		ExpiresAt:     c.AnalyzedAt.Add(s.opts.CacheTTL),
	}
	if err := s.cache.Set(ctx, verdict); err != nil {
		s.logger.Error("Failed to cache verdict", zap.Error(err))
	}
}

func (s *ScoringService) pipelineFailure(cause error) (*Classification, error) {
	if !s.opts.FailOpen {
		return nil, cause
	}
	return &Classification{
		Score:             0,
		Tier:              TierSafe,
		Confidence:        0,
		Indicators:        []string{"Error during classification"},
		RecommendedAction: ActionNone,
		ModelUsed:         false,
		AnalyzedAt:        time.Now(),
	}, nil
}

func actionForTier(t Tier) string {
	switch t {
	case TierSpam:
		return ActionQuarantine
	case TierSuspicious:
		return ActionFlagReview
	default:
		return ActionNone
	}
}
