package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bitspace/salon-mail-ingest/internal/core"
	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLSink stores reservations and the idempotency ledger in MySQL
type MySQLSink struct {
	db          *sql.DB
	salonID     int64
	keyTTL      time.Duration
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
}

// NewMySQLSink connects to MySQL and creates the schema if needed
func NewMySQLSink(dsn string, salonID int64, keyTTL time.Duration, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLSink, error) {
	dsn, err := normalizeMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(50)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS reservations (
			id CHAR(36) PRIMARY KEY,
			salon_id BIGINT NOT NULL,
			status VARCHAR(32) NOT NULL,
			booking_route VARCHAR(16) NOT NULL,
			idempotency_key VARCHAR(255) NULL,
			external_id VARCHAR(255) NULL,
			start_time DATETIME(6) NULL,
			end_time DATETIME(6) NULL,
			memo TEXT NOT NULL,
			payload JSON NOT NULL,
			created_at DATETIME(6) NOT NULL,
			INDEX idx_reservations_external_id (external_id)
		) DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS reservation_keys (
			idempotency_key VARCHAR(255) PRIMARY KEY,
			reservation_id CHAR(36) NOT NULL,
			expires_at DATETIME(6) NOT NULL,
			INDEX idx_reservation_keys_expires_at (expires_at)
		) DEFAULT CHARSET=utf8mb4`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	s := &MySQLSink{
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

// normalizeMySQLDSN forces time parsing in UTC so DATETIME columns scan into time.Time
func normalizeMySQLDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// Create stores a pending reservation unless the idempotency key is already live
func (s *MySQLSink) Create(ctx context.Context, record *core.ReservationMailRecord) (*core.ReservationHandle, error) {
	if record == nil {
		return nil, ErrNilRecord
	}

	now := s.now().UTC()
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
		// Affected rows: 1 inserted, 2 expired key reclaimed, 0 live key kept.
		// expires_at is assigned last so both IFs see the old value.
		result, err := tx.ExecContext(ctx, `
			INSERT INTO reservation_keys (idempotency_key, reservation_id, expires_at)
			VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE
				reservation_id = IF(expires_at <= ?, VALUES(reservation_id), reservation_id),
				expires_at = IF(expires_at <= ?, VALUES(expires_at), expires_at)
		`, key, reservation.ID, now.Add(s.keyTTL), now, now)
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
		reservation.StartTime, reservation.EndTime,
		reservation.Memo, payload, reservation.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reservation: %w", err)
	}

	return &core.ReservationHandle{ID: reservation.ID, Created: true}, nil
}

// Get returns a stored reservation
func (s *MySQLSink) Get(ctx context.Context, id string) (*core.Reservation, error) {
	var (
		r                  core.Reservation
		status, payload    string
		key, externalID    sql.NullString
		startTime, endTime sql.NullTime
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, salon_id, status, booking_route, idempotency_key, external_id,
			start_time, end_time, memo, payload, created_at
		FROM reservations
		WHERE id = ?
	`, id).Scan(&r.ID, &r.SalonID, &status, &r.BookingRoute, &key, &externalID,
		&startTime, &endTime, &r.Memo, &payload, &r.CreatedAt)
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
	if startTime.Valid {
		r.StartTime = &startTime.Time
	}
	if endTime.Valid {
		r.EndTime = &endTime.Time
	}
	if r.Record, err = decodeRecord(payload); err != nil {
		return nil, err
	}

	return &r, nil
}

// Cleanup removes expired idempotency keys
func (s *MySQLSink) Cleanup(ctx context.Context) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM reservation_keys
		WHERE expires_at <= ?
	`, s.now().UTC())
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

func (s *MySQLSink) startCleanupTask() {
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
func (s *MySQLSink) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close MySQL database", zap.Error(err))
		}
	})
}
