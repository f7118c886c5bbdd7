package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/user/moviebuddy-go/internal/config"
	"github.com/user/moviebuddy-go/internal/model"
	"github.com/user/moviebuddy-go/internal/store"
)

type stubRunner struct {
	result  *model.ScrapeResult
	errs    []error
	block   chan struct{} // when set, RunAll blocks until closed
	mu      sync.Mutex
	started int
}

func (r *stubRunner) RunAll(ctx context.Context) (*model.ScrapeResult, []error) {
	r.mu.Lock()
	r.started++
	r.mu.Unlock()
	if r.block != nil {
		<-r.block
	}
	if r.result == nil {
		return &model.ScrapeResult{}, r.errs
	}
	return r.result, r.errs
}

// stubStore implements only Ingest; the embedded interface panics on
// anything else, which would flag an unexpected call.
type stubStore struct {
	store.Store
	mu       sync.Mutex
	ingested []*model.ScrapeResult
	err      error
}

func (s *stubStore) Ingest(ctx context.Context, result *model.ScrapeResult) (*store.IngestStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.ingested = append(s.ingested, result)
	return &store.IngestStats{
		Movies:    len(result.Movies),
		Theaters:  len(result.Theaters),
		Showtimes: len(result.Showtimes),
	}, nil
}

type stubNotifier struct {
	mu      sync.Mutex
	reports int
	errs    []error
}

func (n *stubNotifier) ReportScrape(ctx context.Context, stats *store.IngestStats, duration time.Duration, sourceErrs []error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reports++
	n.errs = sourceErrs
	return nil
}

func testConfig() *config.ScraperConfig {
	return &config.ScraperConfig{Enabled: true, Interval: time.Hour}
}

func TestRunOnce_IngestsAndNotifies(t *testing.T) {
	runner := &stubRunner{
		result: &model.ScrapeResult{
			Movies:   []model.Movie{{SourceID: "vieshow_1", Title: "片名"}},
			Theaters: []model.Theater{{SourceID: "vieshow_t1", Name: "影城"}},
		},
		errs: []error{errors.New("secondary source down")},
	}
	st := &stubStore{}
	notifier := &stubNotifier{}
	s := NewScheduler(runner, st, notifier, testConfig())

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if len(st.ingested) != 1 || len(st.ingested[0].Movies) != 1 {
		t.Errorf("expected one ingestion with one movie, got %+v", st.ingested)
	}
	if notifier.reports != 1 {
		t.Errorf("expected one report, got %d", notifier.reports)
	}
	if len(notifier.errs) != 1 {
		t.Errorf("expected source errors forwarded, got %v", notifier.errs)
	}
}

func TestRunOnce_IngestErrorPropagates(t *testing.T) {
	runner := &stubRunner{}
	st := &stubStore{err: errors.New("db down")}
	s := NewScheduler(runner, st, nil, testConfig())

	if err := s.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error from failed ingestion")
	}
}

func TestTryRun_SkipsWhileRunning(t *testing.T) {
	block := make(chan struct{})
	runner := &stubRunner{block: block}
	st := &stubStore{}
	s := NewScheduler(runner, st, nil, testConfig())

	if !s.TryRun(context.Background()) {
		t.Fatal("expected first trigger to start")
	}

	// Wait until the background run holds the lock.
	deadline := time.After(2 * time.Second)
	for !s.IsRunning() {
		select {
		case <-deadline:
			close(block)
			t.Fatal("run never started")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if s.TryRun(context.Background()) {
		t.Error("expected second trigger to be skipped")
	}

	close(block)
	s.wg.Wait()

	if !s.TryRun(context.Background()) {
		t.Error("expected trigger to work again after run finished")
	}
	s.wg.Wait()
}

func TestStart_DisabledDoesNothing(t *testing.T) {
	runner := &stubRunner{}
	st := &stubStore{}
	cfg := testConfig()
	cfg.Enabled = false
	s := NewScheduler(runner, st, nil, cfg)

	s.Start(context.Background())
	s.Stop()

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.started != 0 {
		t.Errorf("expected no runs, got %d", runner.started)
	}
}
