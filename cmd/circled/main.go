package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/moneycircle/circle/internal/backend"
	"github.com/moneycircle/circle/internal/config"
	"github.com/moneycircle/circle/internal/contract"
	"github.com/moneycircle/circle/internal/logger"
	"github.com/moneycircle/circle/internal/metrics"
	"github.com/moneycircle/circle/internal/pricing"
	"github.com/moneycircle/circle/internal/web"
)

const (
	SHUTDOWN_TIMEOUT = 10 * time.Second
)

// main is the entry point of the pricing service.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := logger.InitializeWithFile(config.LogLevel, config.LogFile); err != nil {
		log.Fatal().Err(err).Str("path", config.LogFile).Msg("Failed to open log file")
	}
	log.Info().Msg("Circle pricing service starting...")

	calculator, err := pricing.NewCalculator(config.Pricing)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid pricing parameters")
	}

	collector := metrics.NewCollector()

	client, err := backend.NewClient(config.APIURL, config.BackendTimeout, backend.WithMetrics(collector))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create remote API client")
	}
	log.Info().Str("url", config.APIURL).Msg("Remote API configured")

	// --- 2. Wire the signing flow and the HTTP routes ---
	signer := contract.NewSigner(calculator, client, contract.WithMetrics(collector))
	webServer := web.NewWebServer(config.WebPort, web.Dependencies{
		Calculator: calculator,
		Signer:     signer,
		Pools:      client,
		Metrics:    collector,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting pricing API")
		errCh <- webServer.Start()
	}()

	// --- 3. Run until interrupted ---
	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("Web server failed")
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
		defer cancel()
		if err := webServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}
	log.Info().Msg("Circle pricing service stopped")
}
