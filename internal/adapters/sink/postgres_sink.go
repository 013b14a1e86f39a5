package sink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bitspace/salon-mail-ingest/internal/core"
	"github.com/bitspace/salon-mail-ingest/internal/logging"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type reservationModel struct {
	ID             string  `gorm:"primaryKey;type:uuid"`
	SalonID        int64   `gorm:"not null;index"`
	Status         string  `gorm:"size:32;not null"`
	BookingRoute   string  `gorm:"size:16;not null"`
	IdempotencyKey *string `gorm:"size:255"`
	ExternalID     *string `gorm:"size:255;index"`
	StartTime      *time.Time
	EndTime        *time.Time
	Memo           string `gorm:"type:text;not null"`
	Payload        string `gorm:"type:jsonb;not null"`
	CreatedAt      time.Time
}

func (reservationModel) TableName() string {
	return "reservations"
}

type reservationKeyModel struct {
	IdempotencyKey string    `gorm:"primaryKey;size:255"`
	ReservationID  string    `gorm:"type:uuid;not null"`
	ExpiresAt      time.Time `gorm:"not null;index"`
}

func (reservationKeyModel) TableName() string {
	return "reservation_keys"
}

// PostgresSink stores reservations and the idempotency ledger in PostgreSQL via gorm
type PostgresSink struct {
	db          *gorm.DB
	salonID     int64
	keyTTL      time.Duration
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
}

// NewPostgresSink connects to PostgreSQL and migrates the schema
func NewPostgresSink(dsn string, salonID int64, keyTTL time.Duration, logger *zap.Logger, cleanupFreq time.Duration) (*PostgresSink, error) {
	gormLog := logging.NewGormLogger(logger.Named("gorm"), gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}

	if err := db.AutoMigrate(&reservationModel{}, &reservationKeyModel{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	s := &PostgresSink{
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
func (s *PostgresSink) Create(ctx context.Context, record *core.ReservationMailRecord) (*core.ReservationHandle, error) {
	if record == nil {
		return nil, ErrNilRecord
	}

	now := s.now().UTC()
	reservation := newReservation(record, s.salonID, now)
	payload, err := encodeRecord(record)
	if err != nil {
		return nil, err
	}

	var handle *core.ReservationHandle
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if key := reservation.IdempotencyKey; key != "" {
			result := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "idempotency_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"reservation_id", "expires_at"}),
				Where: clause.Where{Exprs: []clause.Expression{
					clause.Expr{SQL: "reservation_keys.expires_at <= ?", Vars: []interface{}{now}},
				}},
			}).Create(&reservationKeyModel{
				IdempotencyKey: key,
				ReservationID:  reservation.ID,
				ExpiresAt:      now.Add(s.keyTTL),
			})
			if result.Error != nil {
				return fmt.Errorf("failed to claim idempotency key: %w", result.Error)
			}

			if result.RowsAffected == 0 {
				var existing reservationKeyModel
				if err := tx.First(&existing, "idempotency_key = ?", key).Error; err != nil {
					return fmt.Errorf("failed to look up existing reservation: %w", err)
				}
				s.logger.Debug("Duplicate delivery", zap.String("idempotency_key", key))
				handle = &core.ReservationHandle{ID: existing.ReservationID, Created: false}
				return nil
			}
		}

		model := reservationModel{
			ID:           reservation.ID,
			SalonID:      reservation.SalonID,
			Status:       string(reservation.Status),
			BookingRoute: reservation.BookingRoute,
			ExternalID:   reservation.ExternalID,
			StartTime:    reservation.StartTime,
			EndTime:      reservation.EndTime,
			Memo:         reservation.Memo,
			Payload:      payload,
			CreatedAt:    reservation.CreatedAt,
		}
		if reservation.IdempotencyKey != "" {
			model.IdempotencyKey = &reservation.IdempotencyKey
		}
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("failed to insert reservation: %w", err)
		}

		handle = &core.ReservationHandle{ID: reservation.ID, Created: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return handle, nil
}

// Get returns a stored reservation
func (s *PostgresSink) Get(ctx context.Context, id string) (*core.Reservation, error) {
	var model reservationModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query reservation: %w", err)
	}

	record, err := decodeRecord(model.Payload)
	if err != nil {
		return nil, err
	}

	r := &core.Reservation{
		ID:           model.ID,
		SalonID:      model.SalonID,
		Status:       core.ReservationStatus(model.Status),
		BookingRoute: model.BookingRoute,
		ExternalID:   model.ExternalID,
		StartTime:    model.StartTime,
		EndTime:      model.EndTime,
		Memo:         model.Memo,
		Record:       record,
		CreatedAt:    model.CreatedAt,
	}
	if model.IdempotencyKey != nil {
		r.IdempotencyKey = *model.IdempotencyKey
	}
	return r, nil
}

// Cleanup removes expired idempotency keys
func (s *PostgresSink) Cleanup(ctx context.Context) error {
	result := s.db.WithContext(ctx).
		Where("expires_at <= ?", s.now().UTC()).
		Delete(&reservationKeyModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to clean up expired idempotency keys: %w", result.Error)
	}

	s.logger.Debug("Cleaned up expired idempotency keys", zap.Int64("expired_count", result.RowsAffected))
	return nil
}

func (s *PostgresSink) startCleanupTask() {
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
func (s *PostgresSink) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		sqlDB, err := s.db.DB()
		if err != nil {
			s.logger.Error("Failed to get PostgreSQL database handle", zap.Error(err))
			return
		}
		if err := sqlDB.Close(); err != nil {
			s.logger.Error("Failed to close PostgreSQL database", zap.Error(err))
		}
	})
}
