package scraper

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/user/moviebuddy-go/internal/model"
)

// Source is a single scraper origin (one cinema chain's website).
type Source interface {
	// Name is the human-readable origin name, e.g. "Vieshow"
	Name() string

	// Scrape fetches the origin's movies, theaters and showtimes. Failures
	// inside a source are isolated per movie/theater; Scrape only errors
	// when the whole origin is unreachable.
	Scrape(ctx context.Context) (*model.ScrapeResult, error)
}

// outcome is the settled result of one fan-out item: a value or an error,
// never a panic crossing goroutines.
type outcome[T any] struct {
	value T
	err   error
}

// settleAll runs fn over every item concurrently and collects all outcomes
// in input order. No item's failure short-circuits its siblings.
func settleAll[In, Out any](ctx context.Context, items []In, fn func(context.Context, In) (Out, error)) []outcome[Out] {
	outcomes := make([]outcome[Out], len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(idx int, item In) {
			defer wg.Done()
			value, err := fn(ctx, item)
			outcomes[idx] = outcome[Out]{value: value, err: err}
		}(i, item)
	}
	wg.Wait()

	return outcomes
}

// Runner fans out over all registered sources and merges their results.
type Runner struct {
	sources []Source
}

// NewRunner creates a Runner over the given sources
func NewRunner(sources ...Source) *Runner {
	return &Runner{sources: sources}
}

// RunAll scrapes every source concurrently and merges the results. A source
// failing entirely never prevents other sources' results from surviving the
// merge; it is logged, returned in the error slice and contributes nothing.
func (r *Runner) RunAll(ctx context.Context) (*model.ScrapeResult, []error) {
	outcomes := settleAll(ctx, r.sources, func(ctx context.Context, src Source) (*model.ScrapeResult, error) {
		log.Info().Str("source", src.Name()).Msg("Starting scrape")
		res, err := src.Scrape(ctx)
		if err != nil {
			return nil, err
		}
		log.Info().
			Str("source", src.Name()).
			Int("movies", len(res.Movies)).
			Int("theaters", len(res.Theaters)).
			Int("showtimes", len(res.Showtimes)).
			Msg("Scrape finished")
		return res, nil
	})

	var results []*model.ScrapeResult
	var errs []error
	for i, o := range outcomes {
		if o.err != nil {
			log.Error().Err(o.err).Str("source", r.sources[i].Name()).Msg("Scraper source failed")
			errs = append(errs, fmt.Errorf("%s: %w", r.sources[i].Name(), o.err))
			continue
		}
		results = append(results, o.value)
	}

	return Merge(results), errs
}

// Merge combines results from independent sources. Movies and theaters are
// deduplicated by source id (first seen wins); showtimes are concatenated
// without deduplication, since the store's delete-then-insert replacement
// makes duplicates self-correcting per run.
func Merge(results []*model.ScrapeResult) *model.ScrapeResult {
	merged := &model.ScrapeResult{}
	seenMovies := make(map[string]bool)
	seenTheaters := make(map[string]bool)

	for _, res := range results {
		if res == nil {
			continue
		}
		for _, m := range res.Movies {
			if m.SourceID == "" || seenMovies[m.SourceID] {
				continue
			}
			seenMovies[m.SourceID] = true
			merged.Movies = append(merged.Movies, m)
		}
		for _, t := range res.Theaters {
			if t.SourceID == "" || seenTheaters[t.SourceID] {
				continue
			}
			seenTheaters[t.SourceID] = true
			merged.Theaters = append(merged.Theaters, t)
		}
		merged.Showtimes = append(merged.Showtimes, res.Showtimes...)
	}

	return merged
}
