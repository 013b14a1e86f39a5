package factory

import (
	"fmt"

	"github.com/bitspace/salon-mail-ingest/internal/adapters/receiver"
	"github.com/bitspace/salon-mail-ingest/internal/config"
	"github.com/bitspace/salon-mail-ingest/internal/core"
	"github.com/bitspace/salon-mail-ingest/internal/ports"
	"github.com/bitspace/salon-mail-ingest/internal/utils"
	"go.uber.org/zap"
)

// ReceiverFactory creates mail receivers based on configuration
type ReceiverFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	pipeline      *core.IngestionPipeline
	textProcessor *utils.TextProcessor
}

// NewReceiverFactory creates a new receiver factory
func NewReceiverFactory(cfg *config.Config, logger *zap.Logger, pipeline *core.IngestionPipeline, textProcessor *utils.TextProcessor) *ReceiverFactory {
	return &ReceiverFactory{
		cfg:           cfg,
		logger:        logger,
		pipeline:      pipeline,
		textProcessor: textProcessor,
	}
}

// CreateMailReceiver creates a mail receiver based on the configuration
func (f *ReceiverFactory) CreateMailReceiver() (ports.MailReceiver, error) {
	server, err := f.cfg.GetServer()
	if err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	switch server.ReceiverType {
	case "webhook":
		return receiver.NewWebhookReceiver(f.pipeline, f.logger, receiver.WebhookOptions{
			ListenAddress:     server.ListenAddress,
			Path:              server.WebhookPath,
			GinMode:           server.GinMode,
			ReadHeaderTimeout: server.ReadHeaderTimeout,
			ShutdownTimeout:   server.ShutdownTimeout,
			MaxBodyBytes:      server.MaxBodyBytes,
		}), nil
	case "cli":
		return receiver.NewCliReceiver(
			f.pipeline,
			f.textProcessor,
			f.logger,
			f.cfg.GetBool("cli.verbose"),
			f.cfg.GetBool("cli.json"),
		), nil
	default:
		return nil, fmt.Errorf("unsupported receiver type: %s", server.ReceiverType)
	}
}
