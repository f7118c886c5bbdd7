package store

import (
	"context"
	"errors"

	"github.com/user/moviebuddy-go/internal/model"
)

// ErrNotFound is returned when a referenced movie or theater does not exist.
var ErrNotFound = errors.New("not found")

// IngestStats reports aggregate counts from one ingestion call.
type IngestStats struct {
	Movies    int `json:"movies"`
	Theaters  int `json:"theaters"`
	Showtimes int `json:"showtimes"`
	// Dropped counts showtimes skipped because their movie or theater
	// source id did not resolve.
	Dropped int `json:"dropped"`
}

// SearchResult holds substring-match results over movie titles and theater
// names.
type SearchResult struct {
	Movies   []*model.Movie   `json:"movies"`
	Theaters []*model.Theater `json:"theaters"`
}

// Store defines the interface for data persistence operations. All movie
// and theater references crossing this boundary are source ids; internal
// numeric ids never leave the implementation.
type Store interface {
	// Ingest persists one scrape result: theaters insert-if-absent, movies
	// insert-or-replace, then full per-movie replacement of showtimes.
	// At most one ingestion runs at a time.
	Ingest(ctx context.Context, result *model.ScrapeResult) (*IngestStats, error)

	// Movie queries
	ListMovies(ctx context.Context) ([]*model.Movie, error)
	GetMovie(ctx context.Context, sourceID string) (*model.Movie, error)
	GetMovies(ctx context.Context, sourceIDs []string) ([]*model.Movie, error)

	// Theater queries
	ListTheaters(ctx context.Context) ([]*model.Theater, error)
	GetTheater(ctx context.Context, sourceID string) (*model.Theater, error)
	GetTheaters(ctx context.Context, sourceIDs []string) ([]*model.Theater, error)

	// Showtime queries, ordered by time ascending
	ShowtimesByMovie(ctx context.Context, movieSourceID string) ([]*model.Showtime, error)
	ShowtimesByTheater(ctx context.Context, theaterSourceID string) ([]*model.Showtime, error)

	// Search performs a substring match over movie titles (native and
	// English) and theater names.
	Search(ctx context.Context, query string) (*SearchResult, error)

	// Review operations. CreateReview fills ID and CreatedAt.
	CreateReview(ctx context.Context, review *model.Review) error
	ReviewsByMovie(ctx context.Context, movieSourceID string) ([]*model.Review, error)

	// Movie-buddy event operations. CreateEvent fills ID, CreatedAt and
	// Status, and enrolls the organizer as the first participant.
	CreateEvent(ctx context.Context, event *model.MovieBuddyEvent) (*model.MovieBuddyEvent, error)
	GetEvent(ctx context.Context, id string) (*model.MovieBuddyEvent, error)
	GetEvents(ctx context.Context, ids []string) ([]*model.MovieBuddyEvent, error)
	EventsByMovie(ctx context.Context, movieSourceID string) ([]*model.MovieBuddyEvent, error)

	// ClearAll truncates every table. Destructive; admin-only.
	ClearAll(ctx context.Context) error

	// Health check
	Ping(ctx context.Context) error
	Close() error
}
