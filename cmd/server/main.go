package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SteelMorgan/sqldump-importer/internal/api"
	"github.com/SteelMorgan/sqldump-importer/internal/config"
	"github.com/SteelMorgan/sqldump-importer/internal/observability"
	"github.com/SteelMorgan/sqldump-importer/internal/service"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	observability.InitLogger(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("version", version).
		Str("import_dir", cfg.ImportDir).
		Msg("Starting SQL dump import server")

	// Initialize tracer (noop when disabled)
	shutdownTracer, err := observability.InitTracer(observability.TracerConfig{
		ServiceName:    "sqldump-importer",
		ServiceVersion: version,
		Endpoint:       cfg.TracingEndpoint,
		Protocol:       cfg.TracingProtocol,
		Enabled:        cfg.TracingEnabled,
		TargetHost:     cfg.MySQLHost,
		TargetDatabase: cfg.MySQLDB,
		ImportDir:      cfg.ImportDir,
		SampleRatio:    cfg.TracingSample,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize tracer")
	} else {
		defer shutdownTracer(context.Background())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	importSvc, err := service.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create import service")
	}

	server := api.NewServer(importSvc)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(fmt.Sprintf(":%d", cfg.HTTPPort)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		log.Info().Msg("Received shutdown signal")
	case err := <-errChan:
		log.Error().Err(err).Msg("HTTP server error")
	}

	log.Info().Msg("Shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during HTTP shutdown")
	}
	if err := importSvc.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing import service")
	}

	log.Info().Msg("Server stopped")
}
