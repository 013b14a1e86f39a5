package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitspace/salon-mail-ingest/internal/di"
	"github.com/bitspace/salon-mail-ingest/internal/ports"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	receiver ports.MailReceiver,
	repo ports.ReservationRepository,
) error {
	defer logger.Sync()
	defer repo.Stop()

	// Start the receiver
	if err := receiver.Start(); err != nil {
		logger.Error("Failed to start receiver", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	// Stop the receiver before the store so in-flight requests can finish
	if err := receiver.Stop(); err != nil {
		logger.Error("Failed to stop receiver", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}
