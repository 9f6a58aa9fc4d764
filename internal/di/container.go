package di

import (
	"go.uber.org/dig"

	"github.com/mailrisk/threat-engine/internal/classifier"
	"github.com/mailrisk/threat-engine/internal/config"
	"github.com/mailrisk/threat-engine/internal/core"
	"github.com/mailrisk/threat-engine/internal/factory"
	"github.com/mailrisk/threat-engine/internal/features"
	"github.com/mailrisk/threat-engine/internal/logging"
	"github.com/mailrisk/threat-engine/internal/ports"
	"github.com/mailrisk/threat-engine/internal/rules"
	"github.com/mailrisk/threat-engine/internal/textnorm"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewEngineFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewFrontendFactory); err != nil {
		return nil, err
	}

	// Register pipeline components
	if err := container.Provide(func(f *factory.EngineFactory) *textnorm.Normalizer {
		return f.CreateNormalizer()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.EngineFactory) *features.Extractor {
		return f.CreateExtractor()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.EngineFactory) *rules.Detector {
		return f.CreateDetector()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.EngineFactory, n *textnorm.Normalizer) *classifier.Classifier {
		return f.CreateClassifier(n)
	}); err != nil {
		return nil, err
	}

	// Register verdict cache
	if err := container.Provide(func(f *factory.CacheFactory) (core.VerdictCache, error) {
		return f.CreateVerdictCache()
	}); err != nil {
		return nil, err
	}

	// Register scoring service
	if err := container.Provide(func(
		f *factory.EngineFactory,
		extractor *features.Extractor,
		detector *rules.Detector,
		cls *classifier.Classifier,
		cache core.VerdictCache,
	) (*core.ScoringService, error) {
		return f.CreateScoringService(extractor, detector, cls, cache)
	}); err != nil {
		return nil, err
	}

	// Register message frontend
	if err := container.Provide(func(f *factory.FrontendFactory) (ports.MessageFrontend, error) {
		return f.CreateMessageFrontend()
	}); err != nil {
		return nil, err
	}

	return container, nil
}
