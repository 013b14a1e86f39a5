package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/bitspace/salon-mail-ingest/internal/adapters/receiver"
	"github.com/bitspace/salon-mail-ingest/internal/core"
	"github.com/bitspace/salon-mail-ingest/internal/di"
	"github.com/bitspace/salon-mail-ingest/internal/ports"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	// Build the dependency injection container
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(
	flags *di.CLIFlags,
	logger *zap.Logger,
	mailReceiver ports.MailReceiver,
	repo ports.ReservationRepository,
) error {
	defer logger.Sync()
	defer repo.Stop()

	// Read mail from file or stdin
	var input io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		input = file
		logger.Debug("Reading mail from file", zap.String("file", flags.InputFile))
	} else {
		input = os.Stdin
		logger.Debug("Reading mail from stdin")
	}

	mail, err := readMail(input, flags)
	if err != nil {
		return err
	}

	outcome := mailReceiver.ProcessMail(context.Background(), mail)
	if !outcome.Success() {
		return fmt.Errorf("pipeline aborted: %s", outcome.AbortReason)
	}
	return nil
}

func readMail(input io.Reader, flags *di.CLIFlags) (*core.InboundMail, error) {
	if flags.RawBody {
		body, err := io.ReadAll(input)
		if err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}
		return receiver.InboundMailFromBody(flags.Subject, string(body)), nil
	}

	mail, err := receiver.ReadInboundMail(input)
	if err != nil {
		return nil, err
	}
	if mail.Subject == "" {
		mail.Subject = flags.Subject
	}
	return mail, nil
}
