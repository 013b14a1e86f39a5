package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/bitspace/salon-mail-ingest/internal/classifier"
	"github.com/bitspace/salon-mail-ingest/internal/config"
	"github.com/bitspace/salon-mail-ingest/internal/core"
	"github.com/bitspace/salon-mail-ingest/internal/extract"
	"github.com/bitspace/salon-mail-ingest/internal/factory"
	"github.com/bitspace/salon-mail-ingest/internal/logging"
	"github.com/bitspace/salon-mail-ingest/internal/ports"
	"github.com/bitspace/salon-mail-ingest/internal/signature"
	"github.com/bitspace/salon-mail-ingest/internal/utils"
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

	if err := providePipeline(container); err != nil {
		return nil, err
	}

	return container, nil
}

// providePipeline registers everything downstream of config and logger
func providePipeline(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewSinkFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewExtractionFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewReceiverFactory); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	// Register signature verifier
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *signature.Verifier {
		return signature.NewVerifier(cfg.GetMailgun().SigningKey, logger)
	}); err != nil {
		return err
	}

	// Register subject classifier
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *classifier.Checker {
		return classifier.NewChecker(cfg.GetClassifier().SubjectMarkers, logger)
	}); err != nil {
		return err
	}

	// Register record builder
	if err := container.Provide(func(f *factory.ExtractionFactory) *extract.RecordBuilder {
		return f.CreateRecordBuilder()
	}); err != nil {
		return err
	}

	// Register reservation repository
	if err := container.Provide(func(f *factory.SinkFactory) (ports.ReservationRepository, error) {
		return f.CreateReservationRepository()
	}); err != nil {
		return err
	}

	// Register ingestion pipeline
	if err := container.Provide(func(
		verifier *signature.Verifier,
		checker *classifier.Checker,
		textProcessor *utils.TextProcessor,
		builder *extract.RecordBuilder,
		repo ports.ReservationRepository,
		logger *zap.Logger,
	) *core.IngestionPipeline {
		return core.NewIngestionPipeline(verifier, checker, textProcessor, builder, repo, logger)
	}); err != nil {
		return err
	}

	// Register mail receiver
	if err := container.Provide(func(f *factory.ReceiverFactory) (ports.MailReceiver, error) {
		return f.CreateMailReceiver()
	}); err != nil {
		return err
	}

	return nil
}
