package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bitspace/salon-mail-ingest/internal/core"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteSink stores reservations and the idempotency ledger in SQLite
type SQLiteSink struct {
	db          *sql.DB
	salonID     int64
	keyTTL      time.Duration
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
}

// NewSQLiteSink opens (and if needed creates) the database at dbPath
func NewSQLiteSink(dbPath string, salonID int64, keyTTL time.Duration, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteSink, error) {
	// Immediate transactions take the write lock up front so that two
	// deliveries of the same mail serialize on the ledger insert.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate&_journal_mode=WAL", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS reservations (
			id TEXT PRIMARY KEY,
			salon_id INTEGER NOT NULL,
			status TEXT NOT NULL,
			booking_route TEXT NOT NULL,
			idempotency_key TEXT,
			external_id TEXT,
			start_time TEXT,
			end_time TEXT,
			memo TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_external_id ON reservations(external_id)`,
		`CREATE TABLE IF NOT EXISTS reservation_keys (
			idempotency_key TEXT PRIMARY KEY,
			reservation_id TEXT NOT NULL,
			expires_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reservation_keys_expires_at ON reservation_keys(expires_at)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	s := &SQLiteSink{
		db:          db,
		salonID:     salonID,
		keyTTL:      keyTTL,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
		now:         time.Now,
	}

	go s.startCleanupTask()

	return s, nil
}

// Create stores a pending reservation unless the idempotency key is already live
func (s *SQLiteSink) Create(ctx context.Context, record *core.ReservationMailRecord) (*core.ReservationHandle, error) {
	if record == nil {
		return nil, ErrNilRecord
	}

	now := s.now()
	reservation := newReservation(record, s.salonID, now)
	payload, err := encodeRecord(record)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if key := reservation.IdempotencyKey; key != "" {
		// Claims the key when it is new or expired; a live key is left untouched
		result, err := tx.ExecContext(ctx, `
			INSERT INTO reservation_keys (idempotency_key, reservation_id, expires_at)
			VALUES (?, ?, ?)
			ON CONFLICT(idempotency_key) DO UPDATE SET
				reservation_id = excluded.reservation_id,
				expires_at = excluded.expires_at
			WHERE reservation_keys.expires_at <= ?
		`, key, reservation.ID, formatTimestamp(now.Add(s.keyTTL)), formatTimestamp(now))
		if err != nil {
			return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
		}

		claimed, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read idempotency claim result: %w", err)
		}
		if claimed == 0 {
			var existingID string
			if err := tx.QueryRowContext(ctx, `
				SELECT reservation_id FROM reservation_keys WHERE idempotency_key = ?
			`, key).Scan(&existingID); err != nil {
				return nil, fmt.Errorf("failed to look up existing reservation: %w", err)
			}
			s.logger.Debug("Duplicate delivery", zap.String("idempotency_key", key))
			return &core.ReservationHandle{ID: existingID, Created: false}, nil
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reservations (id, salon_id, status, booking_route, idempotency_key, external_id,
			start_time, end_time, memo, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, reservation.ID, reservation.SalonID, string(reservation.Status), reservation.BookingRoute,
		nullString(reservation.IdempotencyKey), reservation.ExternalID,
		optionalTimestamp(reservation.StartTime), optionalTimestamp(reservation.EndTime),
		reservation.Memo, payload, formatTimestamp(reservation.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to insert reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}

	return &core.ReservationHandle{ID: reservation.ID, Created: true}, nil
}

// Get returns a stored reservation
func (s *SQLiteSink) Get(ctx context.Context, id string) (*core.Reservation, error) {
	var (
		r                  core.Reservation
		status             string
		key, externalID    sql.NullString
		startTime, endTime sql.NullString
		payload, createdAt string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, salon_id, status, booking_route, idempotency_key, external_id,
			start_time, end_time, memo, payload, created_at
		FROM reservations
		WHERE id = ?
	`, id).Scan(&r.ID, &r.SalonID, &status, &r.BookingRoute, &key, &externalID,
		&startTime, &endTime, &r.Memo, &payload, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query reservation: %w", err)
	}

	r.Status = core.ReservationStatus(status)
	r.IdempotencyKey = key.String
	if externalID.Valid {
		r.ExternalID = &externalID.String
	}
	if r.StartTime, err = parseOptionalTimestamp(startTime); err != nil {
		return nil, err
	}
	if r.EndTime, err = parseOptionalTimestamp(endTime); err != nil {
		return nil, err
	}
	if r.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if r.Record, err = decodeRecord(payload); err != nil {
		return nil, err
	}

	return &r, nil
}

// Cleanup removes expired idempotency keys
func (s *SQLiteSink) Cleanup(ctx context.Context) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM reservation_keys
		WHERE expires_at <= ?
	`, formatTimestamp(s.now()))
	if err != nil {
		return fmt.Errorf("failed to clean up expired idempotency keys: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		s.logger.Debug("Cleaned up expired idempotency keys", zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

func (s *SQLiteSink) startCleanupTask() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Cleanup(context.Background()); err != nil {
				s.logger.Error("Failed to clean up idempotency keys", zap.Error(err))
			}
		case <-s.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database connection
func (s *SQLiteSink) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close SQLite database", zap.Error(err))
		}
	})
}

func optionalTimestamp(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTimestamp(*t)
}

func parseOptionalTimestamp(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTimestamp(s.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp %q: %w", s.String, err)
	}
	return &t, nil
}
