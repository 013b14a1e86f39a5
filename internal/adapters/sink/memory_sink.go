package sink

import (
	"context"
	"sync"
	"time"

	"github.com/bitspace/salon-mail-ingest/internal/core"
	"go.uber.org/zap"
)

type ledgerEntry struct {
	reservationID string
	expiresAt     time.Time
}

// MemorySink keeps reservations in process memory
type MemorySink struct {
	reservations map[string]*core.Reservation
	keys         map[string]*ledgerEntry
	mu           sync.Mutex
	salonID      int64
	keyTTL       time.Duration
	logger       *zap.Logger
	cleanupFreq  time.Duration
	stopCh       chan struct{}
	stopOnce     sync.Once
	now          func() time.Time
}

// NewMemorySink creates a new in-memory sink
func NewMemorySink(salonID int64, keyTTL time.Duration, logger *zap.Logger, cleanupFreq time.Duration) *MemorySink {
	s := &MemorySink{
		reservations: make(map[string]*core.Reservation),
		keys:         make(map[string]*ledgerEntry),
		salonID:      salonID,
		keyTTL:       keyTTL,
		logger:       logger,
		cleanupFreq:  cleanupFreq,
		stopCh:       make(chan struct{}),
		now:          time.Now,
	}

	go s.startCleanupTask()

	return s
}

// Create stores a pending reservation unless the idempotency key is already live
func (s *MemorySink) Create(ctx context.Context, record *core.ReservationMailRecord) (*core.ReservationHandle, error) {
	if record == nil {
		return nil, ErrNilRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := record.IdempotencyKey()
	if key != "" {
		if entry, ok := s.keys[key]; ok && now.Before(entry.expiresAt) {
			s.logger.Debug("Duplicate delivery", zap.String("idempotency_key", key))
			return &core.ReservationHandle{ID: entry.reservationID, Created: false}, nil
		}
	}

	reservation := newReservation(record, s.salonID, now)
	s.reservations[reservation.ID] = reservation
	if key != "" {
		s.keys[key] = &ledgerEntry{reservationID: reservation.ID, expiresAt: now.Add(s.keyTTL)}
	}

	return &core.ReservationHandle{ID: reservation.ID, Created: true}, nil
}

// Get returns a stored reservation
func (s *MemorySink) Get(ctx context.Context, id string) (*core.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reservation, ok := s.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *reservation
	return &copied, nil
}

// Cleanup removes expired idempotency keys
func (s *MemorySink) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	expiredCount := 0
	for key, entry := range s.keys {
		if !now.Before(entry.expiresAt) {
			delete(s.keys, key)
			expiredCount++
		}
	}

	s.logger.Debug("Cleaned up expired idempotency keys", zap.Int("expired_count", expiredCount))
	return nil
}

func (s *MemorySink) startCleanupTask() {
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

// Stop stops the background cleanup task
func (s *MemorySink) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}
