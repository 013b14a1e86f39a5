package extract

import (
	"strings"
	"time"

	"github.com/bitspace/salon-mail-ingest/internal/core"
	"go.uber.org/zap"
)

// RecordBuilder runs every extractor over normalized text and assembles a
// ReservationMailRecord
type RecordBuilder struct {
	opts     Options
	labels   *LabelExtractor
	dateTime *DateTimeExtractor
	duration *DurationExtractor
	name     *NameExtractor
	contact  *ContactExtractor
	logger   *zap.Logger
}

// NewRecordBuilder creates a record builder and its extractors from options
func NewRecordBuilder(opts Options, logger *zap.Logger) *RecordBuilder {
	labels := NewLabelExtractor(opts.BlockMarkers)
	return &RecordBuilder{
		opts:     opts,
		labels:   labels,
		dateTime: NewDateTimeExtractor(labels, opts, logger),
		duration: NewDurationExtractor(opts, logger),
		name:     NewNameExtractor(labels, opts, logger),
		contact:  NewContactExtractor(labels, opts),
		logger:   logger,
	}
}

// Extract builds a record. Fields that cannot be found stay nil and are listed
// in Missing. Staff and remarks whose label is present with an empty or
// "none" value are nil but not missing.
func (b *RecordBuilder) Extract(normalized string) *core.ReservationMailRecord {
	record := &core.ReservationMailRecord{}
	missing := func(field string) {
		record.Missing = append(record.Missing, field)
	}

	if v, ok := b.labels.FindValue(normalized, b.opts.Labels.ReservationID...); ok && !isPlaceholder(v) {
		record.ExternalReservationID = &v
	} else {
		missing(core.FieldReservationID)
	}

	if record.Customer = b.name.ExtractName(normalized); record.Customer == nil {
		missing(core.FieldName)
	}

	if start, ok := b.dateTime.ExtractStart(normalized); ok {
		record.StartTime = &start
	} else {
		missing(core.FieldStartTime)
	}

	if minutes, ok := b.duration.ExtractMinutes(normalized); ok {
		record.DurationMinutes = &minutes
	} else {
		missing(core.FieldDuration)
	}

	if record.StartTime != nil && record.DurationMinutes != nil {
		end := record.StartTime.Add(time.Duration(*record.DurationMinutes) * time.Minute)
		record.EndTime = &end
	}

	if v, ok := b.labels.FindBlock(normalized, b.opts.Labels.Menu...); ok && !isPlaceholder(v) {
		record.MenuName = &v
	} else {
		missing(core.FieldMenu)
	}

	if v, ok := b.labels.FindValue(normalized, b.opts.Labels.Staff...); ok {
		if !isPlaceholder(v) && !matchesAny(v, b.opts.NoStaffValues) {
			record.StaffName = &v
		}
	} else if !b.hasLabel(normalized, b.opts.Labels.Staff) {
		missing(core.FieldStaff)
	}

	if v, ok := b.labels.FindBlock(normalized, b.opts.Labels.Remarks...); ok {
		if !isPlaceholder(v) && !matchesAny(v, b.opts.EmptyRemarkValues) {
			record.Remarks = &v
		}
	} else if !b.hasLabel(normalized, b.opts.Labels.Remarks) {
		missing(core.FieldRemarks)
	}

	if v, ok := b.contact.ExtractPhone(normalized); ok {
		record.PhoneNumber = &v
	} else {
		missing(core.FieldPhone)
	}

	if v, ok := b.contact.ExtractEmail(normalized); ok {
		record.Email = &v
	} else {
		missing(core.FieldEmail)
	}

	b.logger.Debug("Extracted reservation record",
		zap.Int("missing_count", len(record.Missing)),
		zap.Strings("missing_fields", record.Missing))

	return record
}

func (b *RecordBuilder) hasLabel(text string, labels []string) bool {
	_, _, ok := b.labels.Locate(text, labels...)
	return ok
}

func matchesAny(value string, candidates []string) bool {
	v := strings.TrimSpace(value)
	for _, c := range candidates {
		if v == c {
			return true
		}
	}
	return false
}
