package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mailrisk/threat-engine/internal/classifier"
	"github.com/mailrisk/threat-engine/internal/logging"
	"github.com/mailrisk/threat-engine/internal/textnorm"
	"github.com/mailrisk/threat-engine/internal/training"
)

var (
	corpusFile = flag.String("corpus", "", "Path to the labeled CSV training corpus")
	modelPath  = flag.String("model", "models/spam_classifier.json", "Path where the trained model is persisted")
	minSamples = flag.Int("min-samples", 50, "Minimum number of corpus samples required")
	evaluate   = flag.Bool("evaluate", false, "Run a held-out evaluation before refitting on the full corpus")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *corpusFile == "" {
		fmt.Println("Usage: threat-trainer -corpus <file.csv> [-model <path>] [-evaluate]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	normalizer := textnorm.NewNormalizer(logger)
	cls := classifier.NewClassifier(*modelPath, normalizer, logger)
	pipeline := training.NewPipeline(cls, logger, *minSamples)

	corpus, err := pipeline.LoadCorpus(*corpusFile)
	if err != nil {
		logger.Fatal("Failed to load corpus", zap.Error(err))
	}

	if *evaluate {
		metrics, err := pipeline.Evaluate(corpus)
		if err != nil {
			logger.Fatal("Evaluation failed", zap.Error(err))
		}
		fmt.Printf("\n=== Evaluation ===\n")
		fmt.Printf("Accuracy:  %.4f\n", metrics.Accuracy)
		fmt.Printf("Precision: %.4f\n", metrics.Precision)
		fmt.Printf("Recall:    %.4f\n", metrics.Recall)
		fmt.Printf("F1 score:  %.4f\n", metrics.F1)
		fmt.Printf("Train samples: %d\n", metrics.TrainSamples)
		fmt.Printf("Test samples:  %d\n", metrics.TestSamples)
		cm := metrics.ConfusionMatrix
		fmt.Printf("Confusion matrix: [[%d %d] [%d %d]]\n", cm[0][0], cm[0][1], cm[1][0], cm[1][1])
	} else {
		if err := pipeline.Train(corpus); err != nil {
			logger.Fatal("Training failed", zap.Error(err))
		}
	}

	fmt.Printf("\nModel saved to %s\n", *modelPath)
}
