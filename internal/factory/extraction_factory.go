package factory

import (
	"github.com/bitspace/salon-mail-ingest/internal/config"
	"github.com/bitspace/salon-mail-ingest/internal/extract"
	"go.uber.org/zap"
)

// ExtractionFactory creates the record builder from configuration
type ExtractionFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewExtractionFactory creates a new extraction factory
func NewExtractionFactory(cfg *config.Config, logger *zap.Logger) *ExtractionFactory {
	return &ExtractionFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// Options maps the extraction configuration onto extractor options
func (f *ExtractionFactory) Options() extract.Options {
	c := f.cfg.GetExtraction()
	return extract.Options{
		Labels: extract.Labels{
			ReservationID: c.Labels.ReservationID,
			Name:          c.Labels.Name,
			VisitDateTime: c.Labels.VisitDateTime,
			Duration:      c.Labels.Duration,
			Staff:         c.Labels.Staff,
			Menu:          c.Labels.Menu,
			Remarks:       c.Labels.Remarks,
			Phone:         c.Labels.Phone,
			Email:         c.Labels.Email,
		},
		BlockMarkers:      c.BlockMarkers,
		WindowBefore:      c.WindowBefore,
		WindowAfter:       c.WindowAfter,
		MinDuration:       c.MinDurationMinutes,
		MaxDuration:       c.MaxDurationMinutes,
		Location:          extract.LoadLocation(c.Timezone),
		NoStaffValues:     c.NoStaffValues,
		EmptyRemarkValues: c.EmptyRemarkValues,
	}
}

// CreateRecordBuilder creates the record builder
func (f *ExtractionFactory) CreateRecordBuilder() *extract.RecordBuilder {
	opts := f.Options()
	f.logger.Debug("Creating record builder",
		zap.String("timezone", opts.Location.String()),
		zap.Int("window_after", opts.WindowAfter))
	return extract.NewRecordBuilder(opts, f.logger)
}
