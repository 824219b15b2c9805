package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jarupong555/Detec-V1.0/internal/app"
	"github.com/jarupong555/Detec-V1.0/internal/config"
	"github.com/jarupong555/Detec-V1.0/internal/logger"
)

// headless runs detection and saving for every configured camera without the HTTP API.
func main() {
	cfg := config.Load()

	appLogger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	application, err := app.New(cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLogger.Info("Running headless; press Ctrl+C to stop")
	runErr := application.RunHeadless(ctx)
	if err := application.Close(); err != nil {
		appLogger.Warning("Error during shutdown: %v", err)
	}
	if runErr != nil {
		appLogger.Error("Headless run failed: %v", runErr)
		os.Exit(1)
	}
}
