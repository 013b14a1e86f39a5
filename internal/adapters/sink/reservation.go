package sink

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bitspace/salon-mail-ingest/internal/core"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a reservation does not exist
	ErrNotFound = errors.New("reservation not found")
	// ErrNilRecord is returned when Create is called without a record
	ErrNilRecord = errors.New("reservation record is nil")
)

// timestampLayout sorts lexically in the same order as time, which the
// SQLite ledger relies on
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// newReservation builds a pending reservation for a record
func newReservation(record *core.ReservationMailRecord, salonID int64, now time.Time) *core.Reservation {
	return &core.Reservation{
		ID:             uuid.NewString(),
		SalonID:        salonID,
		Status:         core.ReservationPending,
		BookingRoute:   core.BookingRouteHotPepper,
		IdempotencyKey: record.IdempotencyKey(),
		ExternalID:     record.ExternalReservationID,
		StartTime:      record.StartTime,
		EndTime:        record.EndTime,
		Memo:           record.Memo(),
		Record:         record,
		CreatedAt:      now.UTC(),
	}
}

func encodeRecord(record *core.ReservationMailRecord) (string, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to encode reservation record: %w", err)
	}
	return string(payload), nil
}

func decodeRecord(payload string) (*core.ReservationMailRecord, error) {
	var record core.ReservationMailRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, fmt.Errorf("failed to decode reservation record: %w", err)
	}
	return &record, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(timestampLayout, s)
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
