package ports

import (
	"context"

	"github.com/bitspace/salon-mail-ingest/internal/core"
)

// MailReceiver defines the interface for accepting inbound mail
type MailReceiver interface {
	// ProcessMail runs one mail through the ingestion pipeline
	ProcessMail(ctx context.Context, mail *core.InboundMail) *core.Outcome

	// Start starts the receiver
	Start() error

	// Stop stops the receiver
	Stop() error
}
