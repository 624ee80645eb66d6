package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"sms-webhook/internal/api"
	"sms-webhook/internal/config"
	"sms-webhook/internal/metrics"
	"sms-webhook/internal/storage"
)

// @title SMS Webhook API
// @version 1.0
// @description Receives signed SMS webhooks and exposes a query/stats API
// @host localhost:8080
// @BasePath /
// @schemes http
func main() {
	// Init Metrics
	metrics.Init()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Load Configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid LOG_LEVEL")
	}
	logger = logger.Level(level)
	logger.Info().Msg("configuration loaded")

	// Init Store
	ctx := context.Background()
	store, err := storage.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init store")
	}
	defer store.Close()
	logger.Info().Msg("store connected")

	// Init API
	apiHandler := api.NewAPI(store, cfg, logger)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      apiHandler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful Shutdown Setup
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done() // Wait for interrupt signal
	logger.Info().Msg("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}

	logger.Info().Msg("graceful shutdown complete")
}
