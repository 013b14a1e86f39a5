package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bitspace/salon-mail-ingest/internal/adapters/sink"
	"github.com/bitspace/salon-mail-ingest/internal/config"
	"github.com/bitspace/salon-mail-ingest/internal/ports"
	"go.uber.org/zap"
)

// SinkFactory creates reservation repositories based on configuration
type SinkFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSinkFactory creates a new sink factory
func NewSinkFactory(cfg *config.Config, logger *zap.Logger) *SinkFactory {
	return &SinkFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateReservationRepository creates a reservation repository based on the configuration
func (f *SinkFactory) CreateReservationRepository() (ports.ReservationRepository, error) {
	sinkCfg, err := f.cfg.GetSink()
	if err != nil {
		return nil, fmt.Errorf("invalid sink configuration: %w", err)
	}

	logger := f.logger.With(zap.String("sink", sinkCfg.Type))

	switch sinkCfg.Type {
	case "memory":
		return sink.NewMemorySink(sinkCfg.SalonID, sinkCfg.IdempotencyTTL, logger, sinkCfg.CleanupFrequency), nil
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(sinkCfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return sink.NewSQLiteSink(sinkCfg.SQLitePath, sinkCfg.SalonID, sinkCfg.IdempotencyTTL, logger, sinkCfg.CleanupFrequency)
	case "mysql":
		return sink.NewMySQLSink(sinkCfg.MySQLDSN, sinkCfg.SalonID, sinkCfg.IdempotencyTTL, logger, sinkCfg.CleanupFrequency)
	case "postgres":
		return sink.NewPostgresSink(sinkCfg.PostgresDSN, sinkCfg.SalonID, sinkCfg.IdempotencyTTL, logger, sinkCfg.CleanupFrequency)
	default:
		return nil, fmt.Errorf("unsupported sink type: %s", sinkCfg.Type)
	}
}
