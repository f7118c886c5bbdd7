package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/user/moviebuddy-go/internal/config"
	"github.com/user/moviebuddy-go/internal/model"
	"github.com/user/moviebuddy-go/internal/server"
	"github.com/user/moviebuddy-go/internal/store"
)

// Runner scrapes all registered sources and merges their results.
type Runner interface {
	RunAll(ctx context.Context) (*model.ScrapeResult, []error)
}

// Notifier reports scrape outcomes to an operator channel.
type Notifier interface {
	ReportScrape(ctx context.Context, stats *store.IngestStats, duration time.Duration, sourceErrs []error) error
}

// Scheduler manages periodic scrape-and-ingest runs.
type Scheduler struct {
	runner   Runner
	store    store.Store
	notifier Notifier // may be nil
	config   *config.ScraperConfig
	running  atomic.Bool
	mu       sync.Mutex // prevents concurrent scrape runs
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a new scheduler instance. notifier may be nil when no
// notification channel is configured.
func NewScheduler(runner Runner, st store.Store, notifier Notifier, cfg *config.ScraperConfig) *Scheduler {
	return &Scheduler{
		runner:   runner,
		store:    st,
		notifier: notifier,
		config:   cfg,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the scheduler with an initial delay and periodic execution
func (s *Scheduler) Start(ctx context.Context) {
	if !s.config.Enabled {
		log.Info().Msg("Scheduler is disabled")
		return
	}

	s.wg.Add(1)
	go s.run(ctx)
}

// run is the main scheduler loop
func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	initialDelay := 5 * time.Second
	log.Info().Dur("delay", initialDelay).Msg("Scheduler starting with initial delay")

	select {
	case <-time.After(initialDelay):
		s.executeScrape(ctx)
	case <-s.stopCh:
		log.Info().Msg("Scheduler stopped during initial delay")
		return
	case <-ctx.Done():
		log.Info().Msg("Scheduler context cancelled during initial delay")
		return
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.config.Interval).Msg("Scheduler started periodic execution")

	for {
		select {
		case <-ticker.C:
			s.executeScrape(ctx)
		case <-s.stopCh:
			log.Info().Msg("Scheduler stopped")
			return
		case <-ctx.Done():
			log.Info().Msg("Scheduler context cancelled")
			return
		}
	}
}

// executeScrape runs a single scrape task with mutex protection
func (s *Scheduler) executeScrape(ctx context.Context) {
	if !s.mu.TryLock() {
		log.Warn().Msg("Scrape task already running, skipping this trigger")
		return
	}
	defer s.mu.Unlock()

	s.running.Store(true)
	defer s.running.Store(false)

	startTime := time.Now()
	log.Info().Msg("Starting scheduled scrape")

	if err := s.RunOnce(ctx); err != nil {
		log.Error().Err(err).Msg("Scheduled scrape failed")
	}

	log.Info().
		Dur("duration", time.Since(startTime)).
		Msg("Scheduled scrape completed")
}

// TryRun starts a scrape in the background unless one is already running.
// Used by the manual trigger endpoint.
func (s *Scheduler) TryRun(ctx context.Context) bool {
	if s.running.Load() {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Detach from the request context so the run survives the response.
		s.executeScrape(context.WithoutCancel(ctx))
	}()
	return true
}

// IsRunning reports whether a scrape run is currently in progress
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// RunOnce executes a single scrape-and-ingest cycle
func (s *Scheduler) RunOnce(ctx context.Context) error {
	startTime := time.Now()

	result, sourceErrs := s.runner.RunAll(ctx)
	log.Info().
		Int("movies", len(result.Movies)).
		Int("theaters", len(result.Theaters)).
		Int("showtimes", len(result.Showtimes)).
		Int("sourceErrors", len(sourceErrs)).
		Msg("Scrape finished")

	stats, err := s.store.Ingest(ctx, result)
	if err != nil {
		server.RecordIngest("error")
		server.RecordError("ingest")
		return err
	}
	server.RecordIngest("success")
	server.UpdateCatalogSize(stats.Movies, stats.Showtimes)
	server.RecordScrapeDuration(time.Since(startTime))

	log.Info().
		Int("movies", stats.Movies).
		Int("theaters", stats.Theaters).
		Int("showtimes", stats.Showtimes).
		Int("dropped", stats.Dropped).
		Msg("Scrape results ingested")

	if s.notifier != nil {
		if err := s.notifier.ReportScrape(ctx, stats, time.Since(startTime), sourceErrs); err != nil {
			log.Error().Err(err).Msg("Failed to send scrape report")
		}
	}

	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")
	close(s.stopCh)
	s.wg.Wait()
	log.Info().Msg("Scheduler stopped")
}
