package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const bodyPreviewBytes = 400

// IngestionPipeline runs verify, classify, normalize, extract and hand-off
// for one inbound mail
type IngestionPipeline struct {
	verifier   SignatureVerifier
	classifier MailClassifier
	normalizer TextNormalizer
	extractor  RecordExtractor
	sink       ReservationSink
	logger     *zap.Logger
}

// NewIngestionPipeline creates a new ingestion pipeline
func NewIngestionPipeline(
	verifier SignatureVerifier,
	classifier MailClassifier,
	normalizer TextNormalizer,
	extractor RecordExtractor,
	sink ReservationSink,
	logger *zap.Logger,
) *IngestionPipeline {
	return &IngestionPipeline{
		verifier:   verifier,
		classifier: classifier,
		normalizer: normalizer,
		extractor:  extractor,
		sink:       sink,
		logger:     logger,
	}
}

// Process runs the pipeline. It never returns an error; failures are
// reported through the outcome.
func (p *IngestionPipeline) Process(ctx context.Context, mail *InboundMail) *Outcome {
	logger := p.logger.With(zap.String("message_id", mail.MessageID))
	outcome := &Outcome{State: StateReceived}

	outcome.Verification = p.verifier.Verify(mail.Timestamp, mail.Token, mail.Signature)
	if !outcome.Verification.Valid {
		reason := AbortBadSignature
		if outcome.Verification.Reason == ReasonMissingParams {
			reason = AbortMissingParams
		}
		outcome.abort(reason, NewAuthenticationFailure(outcome.Verification.Reason))
		logger.Warn("Rejected webhook call",
			zap.String("reason", string(outcome.Verification.Reason)),
			zap.String("sender", mail.Sender))
		return outcome
	}
	outcome.State = StateVerified

	if !p.classifier.IsReservationNotification(mail.Subject) {
		outcome.abort(AbortNotReservationMail, NewUnclassified(mail.Subject))
		logger.Info("Skipping mail that is not a reservation notification",
			zap.String("subject", mail.Subject))
		return outcome
	}
	outcome.State = StateClassified

	normalized := p.normalizer.Normalize(mail.Body())
	outcome.State = StateNormalized

	record := p.extract(normalized, logger)
	record.SourceMessageID = mail.MessageID
	outcome.Record = record
	outcome.State = StateExtracted

	if len(record.Missing) > 0 {
		logger.Warn("Partial extraction",
			zap.Error(NewPartialExtraction(record.Missing)),
			zap.Strings("missing_fields", record.Missing),
			zap.String("body_preview", p.normalizer.TruncateText(normalized, bodyPreviewBytes)))
	}

	handle, err := p.handOff(ctx, record)
	if err != nil {
		outcome.abort(AbortSinkFailure, NewSinkFailure(err))
		logger.Error("Failed to hand off reservation",
			zap.Error(err),
			zap.String("idempotency_key", record.IdempotencyKey()),
			zap.String("subject", mail.Subject))
		return outcome
	}
	outcome.Handle = handle
	outcome.State = StateHandedOff

	logger.Info("Reservation handed off",
		zap.String("reservation_id", handle.ID),
		zap.Bool("created", handle.Created),
		zap.String("idempotency_key", record.IdempotencyKey()))

	return outcome
}

func (o *Outcome) abort(reason AbortReason, err error) {
	o.State = StateAborted
	o.AbortReason = reason
	o.Err = err
}

// extract runs the extractor and turns a panic into an empty record
func (p *IngestionPipeline) extract(normalized string, logger *zap.Logger) (record *ReservationMailRecord) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Extractor panicked", zap.Any("panic", r))
			record = &ReservationMailRecord{Missing: allFields()}
		}
	}()

	record = p.extractor.Extract(normalized)
	if record == nil {
		record = &ReservationMailRecord{Missing: allFields()}
	}
	return record
}

func (p *IngestionPipeline) handOff(ctx context.Context, record *ReservationMailRecord) (handle *ReservationHandle, err error) {
	defer func() {
		if r := recover(); r != nil {
			handle = nil
			err = fmt.Errorf("sink panicked: %v", r)
		}
	}()

	handle, err = p.sink.Create(ctx, record)
	if err == nil && handle == nil {
		err = fmt.Errorf("sink returned no reservation handle")
	}
	return handle, err
}

func allFields() []string {
	return []string{
		FieldReservationID, FieldName, FieldStartTime, FieldDuration,
		FieldMenu, FieldStaff, FieldRemarks, FieldPhone, FieldEmail,
	}
}
