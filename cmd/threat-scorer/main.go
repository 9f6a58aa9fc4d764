package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/mailrisk/threat-engine/internal/core"
	"github.com/mailrisk/threat-engine/internal/di"
	"github.com/mailrisk/threat-engine/internal/parser"
	"github.com/mailrisk/threat-engine/internal/ports"
)

func main() {
	flags := di.ParseFlags()

	// Build the dependency injection container
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run scores a single message read from a file or stdin
func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	front ports.MessageFrontend,
) error {
	defer logger.Sync()

	// Read email from file or stdin
	var emailReader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", flags.InputFile))
		}
		defer file.Close()
		emailReader = file
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
	} else {
		emailReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	// Parse email
	msg, err := parser.NewParser(logger).Parse(emailReader)
	if err != nil {
		logger.Fatal("Failed to parse email", zap.Error(err))
	}

	// Score email
	result, err := front.ProcessMessage(context.Background(), msg)
	if err != nil {
		logger.Fatal("Failed to score email", zap.Error(err))
	}

	// Non-zero exit for spam so the binary can gate delivery in scripts
	if result.Tier == core.TierSpam {
		os.Exit(2)
	}
	return nil
}
