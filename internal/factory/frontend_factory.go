package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mailrisk/threat-engine/internal/adapters/frontend"
	"github.com/mailrisk/threat-engine/internal/config"
	"github.com/mailrisk/threat-engine/internal/core"
	"github.com/mailrisk/threat-engine/internal/parser"
	"github.com/mailrisk/threat-engine/internal/ports"
)

// FrontendFactory creates message frontends based on configuration
type FrontendFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.ScoringService
}

// NewFrontendFactory creates a new frontend factory
func NewFrontendFactory(cfg *config.Config, logger *zap.Logger, service *core.ScoringService) *FrontendFactory {
	return &FrontendFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateMessageFrontend creates a message frontend based on the configuration
func (f *FrontendFactory) CreateMessageFrontend() (ports.MessageFrontend, error) {
	serverCfg := f.cfg.GetServer()

	switch serverCfg.FrontendType {
	case "smtp":
		return frontend.NewSMTPFrontend(
			f.service,
			parser.NewParser(f.logger),
			f.logger,
			serverCfg,
		), nil
	case "cli":
		return frontend.NewCliFrontend(
			f.service,
			f.logger,
			f.cfg.GetBool("cli.verbose"),
		)
	default:
		return nil, fmt.Errorf("unsupported frontend type: %s", serverCfg.FrontendType)
	}
}
