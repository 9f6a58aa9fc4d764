package di

import (
	"flag"

	"go.uber.org/dig"
	"go.uber.org/zap"

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

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Scoring flags
	ModelPath           string
	ModelWeight         float64
	SafeThreshold       float64
	SuspiciousThreshold float64
	FailOpen            bool

	// Input flags
	InputFile  string
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// Scoring flags
	flag.StringVar(&flags.ModelPath, "model", "models/spam_classifier.json", "Path to the trained classifier model")
	flag.Float64Var(&flags.ModelWeight, "model-weight", 0.6, "Weight of the model score in the hybrid combination")
	flag.Float64Var(&flags.SafeThreshold, "safe-threshold", 30, "Maximum score still classified as safe")
	flag.Float64Var(&flags.SuspiciousThreshold, "suspicious-threshold", 70, "Maximum score still classified as suspicious")
	flag.BoolVar(&flags.FailOpen, "fail-open", false, "Degrade scoring failures to a safe verdict instead of erroring")

	// Input flags
	flag.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if not specified)")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.New()
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewEngineFactory); err != nil {
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

	// Register scoring service with no verdict cache
	if err := container.Provide(func(
		f *factory.EngineFactory,
		extractor *features.Extractor,
		detector *rules.Detector,
		cls *classifier.Classifier,
	) (*core.ScoringService, error) {
		return f.CreateScoringService(extractor, detector, cls, nil)
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

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Set some cli specific settings
	v.Set("server.frontend_type", "cli")
	v.Set("cli.verbose", flags.Verbose)
	v.Set("cache.enabled", false)

	v.Set("classifier.model_path", flags.ModelPath)
	v.Set("hybrid.model_weight", flags.ModelWeight)
	v.Set("hybrid.fail_open", flags.FailOpen)
	v.Set("tiers.safe_threshold", flags.SafeThreshold)
	v.Set("tiers.suspicious_threshold", flags.SuspiciousThreshold)

	return config.NewFromViper(v)
}
