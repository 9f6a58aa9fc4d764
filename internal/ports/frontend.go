package ports

import (
	"context"

	"github.com/mailrisk/threat-engine/internal/core"
)

// MessageFrontend defines the interface a message-delivery frontend
// implements around the scoring engine
type MessageFrontend interface {
	// ProcessMessage scores a single parsed message
	ProcessMessage(ctx context.Context, msg *core.ParsedMessage) (*core.Classification, error)

	// Start starts the frontend
	Start() error

	// Stop stops the frontend
	Stop() error
}
