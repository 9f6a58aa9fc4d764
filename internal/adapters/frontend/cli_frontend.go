package frontend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mailrisk/threat-engine/internal/core"
)

// CliFrontend scores a single message and prints a human-readable report
type CliFrontend struct {
	service *core.ScoringService
	logger  *zap.Logger
	verbose bool
}

// NewCliFrontend creates a new CLI frontend
func NewCliFrontend(service *core.ScoringService, logger *zap.Logger, verbose bool) (*CliFrontend, error) {
	return &CliFrontend{
		service: service,
		logger:  logger,
		verbose: verbose,
	}, nil
}

// ProcessMessage scores a message and displays the result
func (f *CliFrontend) ProcessMessage(ctx context.Context, msg *core.ParsedMessage) (*core.Classification, error) {
	f.logger.Debug("Processing message", zap.String("sender", msg.Sender.Address))

	fmt.Printf("\n=== Message Summary ===\n")
	fmt.Printf("From: %s <%s>\n", msg.Sender.Name, msg.Sender.Address)
	fmt.Printf("Subject: %s\n", msg.Subject)
	fmt.Printf("Body length: %d bytes\n", len(msg.BodyText))
	fmt.Printf("URLs: %d, attachments: %t\n", len(msg.URLs), msg.HasAttachments)

	if f.verbose {
		preview := msg.BodyText
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		fmt.Printf("\nBody preview:\n%s\n", preview)
	}

	fmt.Printf("\n=== Analysis ===\n")
	startTime := time.Now()
	result, err := f.service.ScoreMessage(ctx, msg)
	if err != nil {
		f.logger.Error("Failed to score message", zap.Error(err))
		fmt.Printf("Error: %v\n", err)
		return nil, err
	}
	duration := time.Since(startTime)

	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Tier: %s\n", result.Tier)
	fmt.Printf("Threat score: %.1f\n", result.Score)
	fmt.Printf("Confidence: %.4f\n", result.Confidence)
	fmt.Printf("Model used: %t\n", result.ModelUsed)
	fmt.Printf("Recommended action: %s\n", result.RecommendedAction)
	if len(result.Indicators) > 0 {
		fmt.Printf("Indicators:\n  - %s\n", strings.Join(result.Indicators, "\n  - "))
	}
	fmt.Printf("Processing time: %v\n", duration)

	return result, nil
}

// Start is a no-op for the CLI frontend
func (f *CliFrontend) Start() error {
	return nil
}

// Stop is a no-op for the CLI frontend
func (f *CliFrontend) Stop() error {
	return nil
}
