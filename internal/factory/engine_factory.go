package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mailrisk/threat-engine/internal/classifier"
	"github.com/mailrisk/threat-engine/internal/config"
	"github.com/mailrisk/threat-engine/internal/core"
	"github.com/mailrisk/threat-engine/internal/features"
	"github.com/mailrisk/threat-engine/internal/rules"
	"github.com/mailrisk/threat-engine/internal/textnorm"
)

// EngineFactory assembles the scoring pipeline from configuration
type EngineFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewEngineFactory creates a new engine factory
func NewEngineFactory(cfg *config.Config, logger *zap.Logger) *EngineFactory {
	return &EngineFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateNormalizer creates the shared text normalizer
func (f *EngineFactory) CreateNormalizer() *textnorm.Normalizer {
	return textnorm.NewNormalizer(f.logger)
}

// CreateExtractor creates the feature extractor from the configured lists
func (f *EngineFactory) CreateExtractor() *features.Extractor {
	r := f.cfg.GetRules()
	return features.NewExtractor(features.Lists{
		PhishingKeywords: r.PhishingKeywords,
		SuspiciousTLDs:   r.SuspiciousTLDs,
		URLShorteners:    r.URLShorteners,
		TrustedDomains:   r.TrustedDomains,
		FreeProviders:    r.FreeProviders,
		Brands:           r.Brands,
	}, f.logger)
}

// CreateDetector creates the rule-based detector
func (f *EngineFactory) CreateDetector() *rules.Detector {
	return rules.NewDetector(f.logger)
}

// CreateClassifier creates the trainable text classifier, loading a
// previously persisted model when one exists at the configured path
func (f *EngineFactory) CreateClassifier(normalizer *textnorm.Normalizer) *classifier.Classifier {
	clsCfg := f.cfg.GetClassifier()
	return classifier.NewClassifier(clsCfg.ModelPath, normalizer, f.logger)
}

// CreateScoringService wires the full pipeline together
func (f *EngineFactory) CreateScoringService(
	extractor core.FeatureExtractor,
	detector core.RuleDetector,
	cls core.TextClassifier,
	cache core.VerdictCache,
) (*core.ScoringService, error) {
	hybrid := f.cfg.GetHybrid()
	tiers := f.cfg.GetTiers()

	cacheTTL, err := f.cfg.GetDuration("cache.ttl")
	if err != nil {
		return nil, fmt.Errorf("invalid cache TTL: %w", err)
	}

	return core.NewScoringService(extractor, detector, cls, cache, f.logger,
		core.ScoringServiceOptions{
			ModelWeight:         hybrid.ModelWeight,
			SafeThreshold:       tiers.SafeThreshold,
			SuspiciousThreshold: tiers.SuspiciousThreshold,
			FailOpen:            hybrid.FailOpen,
			CacheEnabled:        f.cfg.GetBool("cache.enabled"),
			CacheTTL:            cacheTTL,
			MinCacheConfidence:  hybrid.MinCacheConfidence,
		}), nil
}
