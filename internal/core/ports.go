package core

import (
	"context"
)

// SignatureVerifier checks that a webhook call came from the relay
type SignatureVerifier interface {
	Verify(timestamp, token, signature string) VerificationResult
}

// MailClassifier decides whether a subject belongs to a reservation notification
type MailClassifier interface {
	IsReservationNotification(subject string) bool
}

// TextNormalizer canonicalizes a raw body for pattern matching
type TextNormalizer interface {
	Normalize(raw string) string
	// TruncateText cuts text after maxSize bytes, on a rune boundary
	TruncateText(text string, maxSize int) string
}

// RecordExtractor builds a record from normalized text. It never fails;
// fields it cannot find are left nil and listed in Missing.
type RecordExtractor interface {
	Extract(normalized string) *ReservationMailRecord
}

// ReservationSink creates reservations from extracted records
type ReservationSink interface {
	// Create stores a pending reservation. Repeated calls with the same
	// idempotency key return the first reservation with Created=false.
	Create(ctx context.Context, record *ReservationMailRecord) (*ReservationHandle, error)
}
