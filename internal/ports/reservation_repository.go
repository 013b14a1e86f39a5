package ports

import (
	"context"

	"github.com/bitspace/salon-mail-ingest/internal/core"
)

// ReservationRepository is a reservation sink that also owns its storage lifecycle
type ReservationRepository interface {
	core.ReservationSink

	// Get retrieves a stored reservation by id
	Get(ctx context.Context, id string) (*core.Reservation, error)

	// Cleanup removes expired idempotency keys
	Cleanup(ctx context.Context) error

	// Stop releases background tasks and connections
	Stop()
}
