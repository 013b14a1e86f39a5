package receiver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bitspace/salon-mail-ingest/internal/core"
	"github.com/bitspace/salon-mail-ingest/internal/utils"
	"go.uber.org/zap"
)

const cliPreviewBytes = 500

// CliReceiver runs a single mail through the pipeline and prints the result
type CliReceiver struct {
	pipeline      *core.IngestionPipeline
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
	verbose       bool
	jsonOutput    bool
	out           io.Writer
}

// NewCliReceiver creates a new CLI receiver
func NewCliReceiver(pipeline *core.IngestionPipeline, textProcessor *utils.TextProcessor, logger *zap.Logger, verbose bool, jsonOutput bool) *CliReceiver {
	return &CliReceiver{
		pipeline:      pipeline,
		textProcessor: textProcessor,
		logger:        logger,
		verbose:       verbose,
		jsonOutput:    jsonOutput,
		out:           os.Stdout,
	}
}

// SetOutput redirects printed results
func (c *CliReceiver) SetOutput(w io.Writer) {
	c.out = w
}

// ProcessMail processes a mail and prints the results
func (c *CliReceiver) ProcessMail(ctx context.Context, mail *core.InboundMail) *core.Outcome {
	c.logger.Debug("Processing mail", zap.String("sender", mail.Sender), zap.String("message_id", mail.MessageID))

	if !c.jsonOutput {
		c.printSummary(mail)
	}

	startTime := time.Now()
	outcome := c.pipeline.Process(ctx, mail)
	duration := time.Since(startTime)

	if c.jsonOutput {
		c.printJSON(outcome)
		return outcome
	}

	c.printRecord(outcome.Record)
	c.printOutcome(outcome, duration)
	return outcome
}

func (c *CliReceiver) printSummary(mail *core.InboundMail) {
	body := mail.Body()

	fmt.Fprintf(c.out, "\n=== Mail Summary ===\n")
	fmt.Fprintf(c.out, "From: %s\n", mail.From)
	fmt.Fprintf(c.out, "To: %s\n", mail.To)
	fmt.Fprintf(c.out, "Subject: %s\n", mail.Subject)
	fmt.Fprintf(c.out, "Message-Id: %s\n", mail.MessageID)
	fmt.Fprintf(c.out, "Body length: %d bytes\n", len(body))

	if c.verbose {
		preview := c.textProcessor.ProcessText(body, cliPreviewBytes)
		fmt.Fprintf(c.out, "\nBody preview:\n%s\n", preview)
	}
}

func (c *CliReceiver) printRecord(record *core.ReservationMailRecord) {
	fmt.Fprintf(c.out, "\n=== Record ===\n")
	if record == nil {
		fmt.Fprintf(c.out, "(not extracted)\n")
		return
	}

	str := func(v *string) string {
		if v == nil {
			return "-"
		}
		return *v
	}

	fmt.Fprintf(c.out, "Reservation ID: %s\n", str(record.ExternalReservationID))
	if record.Customer != nil {
		fmt.Fprintf(c.out, "Customer: %s", record.Customer.FullName())
		if record.Customer.LastNameKana != nil && record.Customer.FirstNameKana != nil {
			fmt.Fprintf(c.out, " (%s %s)", *record.Customer.LastNameKana, *record.Customer.FirstNameKana)
		}
		fmt.Fprintf(c.out, "\n")
	} else {
		fmt.Fprintf(c.out, "Customer: -\n")
	}
	if record.StartTime != nil {
		fmt.Fprintf(c.out, "Start: %s\n", record.StartTime.Format(time.RFC3339))
	} else {
		fmt.Fprintf(c.out, "Start: -\n")
	}
	if record.EndTime != nil {
		fmt.Fprintf(c.out, "End: %s\n", record.EndTime.Format(time.RFC3339))
	}
	if record.DurationMinutes != nil {
		fmt.Fprintf(c.out, "Duration: %d min\n", *record.DurationMinutes)
	} else {
		fmt.Fprintf(c.out, "Duration: -\n")
	}
	fmt.Fprintf(c.out, "Menu: %s\n", str(record.MenuName))
	fmt.Fprintf(c.out, "Staff: %s\n", str(record.StaffName))
	fmt.Fprintf(c.out, "Remarks: %s\n", str(record.Remarks))
	fmt.Fprintf(c.out, "Phone: %s\n", str(record.PhoneNumber))
	fmt.Fprintf(c.out, "Email: %s\n", str(record.Email))
	if len(record.Missing) > 0 {
		fmt.Fprintf(c.out, "Missing: %s\n", strings.Join(record.Missing, ", "))
	}
}

func (c *CliReceiver) printOutcome(outcome *core.Outcome, duration time.Duration) {
	fmt.Fprintf(c.out, "\n=== Outcome ===\n")
	fmt.Fprintf(c.out, "State: %s\n", outcome.State)
	if outcome.AbortReason != core.AbortNone {
		fmt.Fprintf(c.out, "Abort reason: %s\n", outcome.AbortReason)
	}
	fmt.Fprintf(c.out, "Verification: %s\n", outcome.Verification.Reason)
	if outcome.Handle != nil {
		fmt.Fprintf(c.out, "Reservation: %s (created: %t)\n", outcome.Handle.ID, outcome.Handle.Created)
	}
	if outcome.Err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", outcome.Err)
	}
	fmt.Fprintf(c.out, "Processing time: %v\n", duration)
}

type cliResult struct {
	State        core.State                  `json:"state"`
	AbortReason  core.AbortReason            `json:"abortReason,omitempty"`
	Verification core.VerificationReason     `json:"verification"`
	Record       *core.ReservationMailRecord `json:"record"`
	Response     core.WebhookResponse        `json:"response"`
}

func (c *CliReceiver) printJSON(outcome *core.Outcome) {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(cliResult{
		State:        outcome.State,
		AbortReason:  outcome.AbortReason,
		Verification: outcome.Verification.Reason,
		Record:       outcome.Record,
		Response:     outcome.Response(),
	}); err != nil {
		c.logger.Error("Failed to encode result", zap.Error(err))
	}
}

// Start is a no-op for the CLI receiver
func (c *CliReceiver) Start() error {
	return nil
}

// Stop is a no-op for the CLI receiver
func (c *CliReceiver) Stop() error {
	return nil
}
