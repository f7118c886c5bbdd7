package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/user/moviebuddy-go/internal/config"
	"github.com/user/moviebuddy-go/internal/notify"
	"github.com/user/moviebuddy-go/internal/scheduler"
	"github.com/user/moviebuddy-go/internal/scraper"
	"github.com/user/moviebuddy-go/internal/server"
	"github.com/user/moviebuddy-go/internal/store"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout = 30 * time.Second
)

func main() {
	// Structured JSON logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	// Local development convenience; a missing .env file is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mysqlStore, err := store.NewMySQLStore(&cfg.DB, &cfg.Ingest)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	log.Info().Msg("Database connection established")

	fetcher, err := scraper.NewFetcher(&scraper.FetchConfig{
		RateLimit:       cfg.Scraper.RateLimit,
		Timeout:         cfg.Scraper.Timeout,
		MaxRetries:      cfg.Scraper.MaxRetries,
		UserAgent:       cfg.Scraper.UserAgent,
		ProxyURL:        cfg.Scraper.ProxyURL,
		BrowserFallback: cfg.Scraper.BrowserFallback,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create fetcher")
	}

	vieshow := scraper.NewVieshow(fetcher, cfg.Scraper.BatchSize)
	runner := scraper.NewRunner(vieshow)
	log.Info().Msg("Scraper initialized")

	// Scrape reports go to Telegram only when a bot token is configured.
	var notifier scheduler.Notifier
	if cfg.Notify.Token != "" {
		telegramClient, err := notify.NewClient(cfg.Notify.Token)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Telegram client")
		}
		notifier = notify.NewService(telegramClient, cfg.Notify.ChatID)
		log.Info().Msg("Telegram notifier initialized")
	}

	sched := scheduler.NewScheduler(runner, mysqlStore, notifier, &cfg.Scraper)

	httpServer := server.NewServer(mysqlStore, sched, cfg.Server.ScraperSecret)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpServer.Start(cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	sched.Start(ctx)
	log.Info().Msg("Scheduler started")

	log.Info().Msg("Movie buddy backend started successfully")

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()

	log.Info().Msg("Starting graceful shutdown...")

	// 1. Stop the scheduler so no new scrape runs begin
	sched.Stop()

	// 2. Drain in-flight HTTP requests
	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to stop HTTP server")
	}

	// 3. Release scraper resources (headless browser, connections)
	if err := fetcher.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close fetcher")
	}

	// 4. Close the database connection last
	if err := mysqlStore.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}

	log.Info().Msg("Shutdown complete")
}
