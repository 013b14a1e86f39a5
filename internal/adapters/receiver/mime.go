package receiver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bitspace/salon-mail-ingest/internal/core"
	"github.com/jhillyerd/enmime"
)

// ErrEmptyMessage is returned when a raw message has no content at all
var ErrEmptyMessage = errors.New("empty message")

// ReadInboundMail parses a raw RFC 5322 message into an InboundMail.
// Encoded header words and body parts are decoded to UTF-8; attachments are skipped.
func ReadInboundMail(r io.Reader) (*core.InboundMail, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyMessage
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	inbound := &core.InboundMail{
		Sender:    env.GetHeader("Sender"),
		From:      env.GetHeader("From"),
		To:        env.GetHeader("To"),
		Subject:   env.GetHeader("Subject"),
		MessageID: strings.TrimSpace(env.GetHeader("Message-Id")),
		BodyPlain: env.Text,
		BodyHTML:  env.HTML,
	}
	if inbound.Sender == "" {
		inbound.Sender = inbound.From
	}
	inbound.Recipient = inbound.To

	return inbound, nil
}

// InboundMailFromBody wraps a bare notification body
func InboundMailFromBody(subject, body string) *core.InboundMail {
	return &core.InboundMail{
		Subject:   subject,
		BodyPlain: body,
	}
}
