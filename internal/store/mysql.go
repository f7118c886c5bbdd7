package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/user/moviebuddy-go/internal/config"
	"github.com/user/moviebuddy-go/internal/model"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// MySQLStore implements Store on MySQL via GORM.
type MySQLStore struct {
	db          *gorm.DB
	wipeOnEmpty bool

	// ingestMu serializes ingestion runs; concurrent scrape results
	// would otherwise interleave the delete/insert phases.
	ingestMu sync.Mutex
}

// NewMySQLStore connects, configures the pool and migrates the schema.
func NewMySQLStore(dbCfg *config.DBConfig, ingestCfg *config.IngestConfig) (*MySQLStore, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(mysql.Open(dbCfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(dbCfg.MaxConns)
	sqlDB.SetMaxIdleConns(dbCfg.MaxConns / 2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&movieRow{}, &theaterRow{}, &showtimeRow{},
		&reviewRow{}, &eventRow{}, &participantRow{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &MySQLStore{db: db, wipeOnEmpty: ingestCfg.WipeOnEmpty}, nil
}

// DB exposes the underlying handle for tests.
func (s *MySQLStore) DB() *gorm.DB { return s.db }

// Ingest persists one scrape result inside a single transaction:
// theaters insert-if-absent, movies insert-or-replace, source ids resolved
// to internal ids, then showtimes replaced for the scraped movies.
func (s *MySQLStore) Ingest(ctx context.Context, result *model.ScrapeResult) (*IngestStats, error) {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	stats := &IngestStats{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(result.Theaters) > 0 {
			rows := make([]theaterRow, 0, len(result.Theaters))
			for i := range result.Theaters {
				rows = append(rows, theaterToRow(&result.Theaters[i]))
			}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "source_id"}},
				DoNothing: true,
			}).Omit(clause.Associations).CreateInBatches(rows, 100)
			if res.Error != nil {
				return fmt.Errorf("failed to save theaters: %w", res.Error)
			}
		}

		if len(result.Movies) > 0 {
			rows := make([]movieRow, 0, len(result.Movies))
			for i := range result.Movies {
				rows = append(rows, movieToRow(&result.Movies[i]))
			}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "source_id"}},
				UpdateAll: true,
			}).Omit(clause.Associations).CreateInBatches(rows, 100)
			if res.Error != nil {
				return fmt.Errorf("failed to save movies: %w", res.Error)
			}
		}

		movieIDs, err := resolveIDs[movieRow](tx, sourceIDsOfMovies(result.Movies))
		if err != nil {
			return fmt.Errorf("failed to resolve movie ids: %w", err)
		}
		theaterIDs, err := resolveIDs[theaterRow](tx, sourceIDsOfTheaters(result.Theaters))
		if err != nil {
			return fmt.Errorf("failed to resolve theater ids: %w", err)
		}

		if len(movieIDs) > 0 {
			internal := make([]uint, 0, len(movieIDs))
			for _, id := range movieIDs {
				internal = append(internal, id)
			}
			if err := tx.Where("movie_id IN ?", internal).Delete(&showtimeRow{}).Error; err != nil {
				return fmt.Errorf("failed to clear stale showtimes: %w", err)
			}
		} else if s.wipeOnEmpty {
			log.Warn().Msg("no movies resolved, wiping all showtimes")
			if err := tx.Where("1 = 1").Delete(&showtimeRow{}).Error; err != nil {
				return fmt.Errorf("failed to wipe showtimes: %w", err)
			}
		} else if len(result.Showtimes) > 0 {
			log.Warn().Int("showtimes", len(result.Showtimes)).
				Msg("no movies resolved, keeping existing showtimes")
		}

		rows := make([]showtimeRow, 0, len(result.Showtimes))
		for _, st := range result.Showtimes {
			movieID, okMovie := movieIDs[st.MovieID]
			theaterID, okTheater := theaterIDs[st.TheaterID]
			if !okMovie || !okTheater {
				stats.Dropped++
				log.Warn().
					Str("showtime", st.SourceID).
					Str("movie", st.MovieID).
					Str("theater", st.TheaterID).
					Msg("dropping showtime with unresolved reference")
				continue
			}
			rows = append(rows, showtimeRow{
				SourceID:   st.SourceID,
				MovieID:    movieID,
				TheaterID:  theaterID,
				BookingURL: st.BookingURL,
				Time:       st.Time,
				ScreenType: string(st.ScreenType),
				Language:   string(st.Language),
				Price:      st.Price,
			})
		}
		if len(rows) > 0 {
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "source_id"}},
				UpdateAll: true,
			}).Omit(clause.Associations).CreateInBatches(rows, 100)
			if res.Error != nil {
				return fmt.Errorf("failed to save showtimes: %w", res.Error)
			}
		}

		stats.Movies = len(result.Movies)
		stats.Theaters = len(result.Theaters)
		stats.Showtimes = len(rows)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func sourceIDsOfMovies(movies []model.Movie) []string {
	ids := make([]string, 0, len(movies))
	for _, m := range movies {
		ids = append(ids, m.SourceID)
	}
	return ids
}

func sourceIDsOfTheaters(theaters []model.Theater) []string {
	ids := make([]string, 0, len(theaters))
	for _, t := range theaters {
		ids = append(ids, t.SourceID)
	}
	return ids
}

type idPair struct {
	ID       uint
	SourceID string
}

// resolveIDs maps source ids to internal ids for the given row table.
func resolveIDs[R interface{ TableName() string }](tx *gorm.DB, sourceIDs []string) (map[string]uint, error) {
	ids := make(map[string]uint, len(sourceIDs))
	if len(sourceIDs) == 0 {
		return ids, nil
	}
	var row R
	var pairs []idPair
	if err := tx.Table(row.TableName()).
		Select("id", "source_id").
		Where("source_id IN ?", sourceIDs).
		Find(&pairs).Error; err != nil {
		return nil, err
	}
	for _, p := range pairs {
		ids[p.SourceID] = p.ID
	}
	return ids, nil
}

// ListMovies returns all movies ordered by release date descending.
func (s *MySQLStore) ListMovies(ctx context.Context) ([]*model.Movie, error) {
	var rows []movieRow
	if err := s.db.WithContext(ctx).Order("release_date DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	movies := make([]*model.Movie, 0, len(rows))
	for i := range rows {
		movies = append(movies, movieFromRow(&rows[i]))
	}
	return movies, nil
}

// GetMovie returns one movie by source id, or ErrNotFound.
func (s *MySQLStore) GetMovie(ctx context.Context, sourceID string) (*model.Movie, error) {
	var row movieRow
	err := s.db.WithContext(ctx).Where("source_id = ?", sourceID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}
	return movieFromRow(&row), nil
}

// GetMovies returns the movies matching the given source ids. Unknown ids
// are silently absent from the result.
func (s *MySQLStore) GetMovies(ctx context.Context, sourceIDs []string) ([]*model.Movie, error) {
	movies := make([]*model.Movie, 0, len(sourceIDs))
	if len(sourceIDs) == 0 {
		return movies, nil
	}
	var rows []movieRow
	if err := s.db.WithContext(ctx).Where("source_id IN ?", sourceIDs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get movies: %w", err)
	}
	for i := range rows {
		movies = append(movies, movieFromRow(&rows[i]))
	}
	return movies, nil
}

// ListTheaters returns all theaters ordered by name.
func (s *MySQLStore) ListTheaters(ctx context.Context) ([]*model.Theater, error) {
	var rows []theaterRow
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list theaters: %w", err)
	}
	theaters := make([]*model.Theater, 0, len(rows))
	for i := range rows {
		theaters = append(theaters, theaterFromRow(&rows[i]))
	}
	return theaters, nil
}

// GetTheater returns one theater by source id, or ErrNotFound.
func (s *MySQLStore) GetTheater(ctx context.Context, sourceID string) (*model.Theater, error) {
	var row theaterRow
	err := s.db.WithContext(ctx).Where("source_id = ?", sourceID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get theater: %w", err)
	}
	return theaterFromRow(&row), nil
}

// GetTheaters returns the theaters matching the given source ids.
func (s *MySQLStore) GetTheaters(ctx context.Context, sourceIDs []string) ([]*model.Theater, error) {
	theaters := make([]*model.Theater, 0, len(sourceIDs))
	if len(sourceIDs) == 0 {
		return theaters, nil
	}
	var rows []theaterRow
	if err := s.db.WithContext(ctx).Where("source_id IN ?", sourceIDs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get theaters: %w", err)
	}
	for i := range rows {
		theaters = append(theaters, theaterFromRow(&rows[i]))
	}
	return theaters, nil
}

const showtimeSelect = "showtimes.source_id AS source_id, " +
	"movies.source_id AS movie_source_id, " +
	"theaters.source_id AS theater_source_id, " +
	"showtimes.booking_url, showtimes.time, showtimes.screen_type, " +
	"showtimes.language, showtimes.price"

func (s *MySQLStore) showtimeQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("showtimes").
		Select(showtimeSelect).
		Joins("JOIN movies ON movies.id = showtimes.movie_id").
		Joins("JOIN theaters ON theaters.id = showtimes.theater_id").
		Order("showtimes.time ASC")
}

// ShowtimesByMovie returns the showtimes for a movie source id, ordered by
// time ascending.
func (s *MySQLStore) ShowtimesByMovie(ctx context.Context, movieSourceID string) ([]*model.Showtime, error) {
	var rows []showtimeJoinRow
	if err := s.showtimeQuery(ctx).
		Where("movies.source_id = ?", movieSourceID).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get showtimes by movie: %w", err)
	}
	showtimes := make([]*model.Showtime, 0, len(rows))
	for i := range rows {
		showtimes = append(showtimes, showtimeFromJoinRow(&rows[i]))
	}
	return showtimes, nil
}

// ShowtimesByTheater returns the showtimes for a theater source id, ordered
// by time ascending.
func (s *MySQLStore) ShowtimesByTheater(ctx context.Context, theaterSourceID string) ([]*model.Showtime, error) {
	var rows []showtimeJoinRow
	if err := s.showtimeQuery(ctx).
		Where("theaters.source_id = ?", theaterSourceID).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get showtimes by theater: %w", err)
	}
	showtimes := make([]*model.Showtime, 0, len(rows))
	for i := range rows {
		showtimes = append(showtimes, showtimeFromJoinRow(&rows[i]))
	}
	return showtimes, nil
}

// Search matches the query as a substring of movie titles (native and
// English) and theater names.
func (s *MySQLStore) Search(ctx context.Context, query string) (*SearchResult, error) {
	pattern := "%" + query + "%"
	result := &SearchResult{
		Movies:   []*model.Movie{},
		Theaters: []*model.Theater{},
	}

	var movieRows []movieRow
	if err := s.db.WithContext(ctx).
		Where("title LIKE ? OR english_title LIKE ?", pattern, pattern).
		Order("release_date DESC").
		Find(&movieRows).Error; err != nil {
		return nil, fmt.Errorf("failed to search movies: %w", err)
	}
	for i := range movieRows {
		result.Movies = append(result.Movies, movieFromRow(&movieRows[i]))
	}

	var theaterRows []theaterRow
	if err := s.db.WithContext(ctx).
		Where("name LIKE ?", pattern).
		Order("name ASC").
		Find(&theaterRows).Error; err != nil {
		return nil, fmt.Errorf("failed to search theaters: %w", err)
	}
	for i := range theaterRows {
		result.Theaters = append(result.Theaters, theaterFromRow(&theaterRows[i]))
	}

	return result, nil
}

// CreateReview stores a review against the movie's internal id, filling the
// generated id and timestamp back into the given review.
func (s *MySQLStore) CreateReview(ctx context.Context, review *model.Review) error {
	var movie movieRow
	err := s.db.WithContext(ctx).Where("source_id = ?", review.MovieID).First(&movie).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to resolve movie for review: %w", err)
	}

	row := reviewRow{
		ID:        uuid.NewString(),
		MovieID:   movie.ID,
		UserID:    review.UserID,
		Username:  review.Username,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}

	review.ID = row.ID
	review.CreatedAt = row.CreatedAt.Format(time.RFC3339)
	return nil
}

// ReviewsByMovie returns a movie's reviews, newest first.
func (s *MySQLStore) ReviewsByMovie(ctx context.Context, movieSourceID string) ([]*model.Review, error) {
	reviews := []*model.Review{}

	var movie movieRow
	err := s.db.WithContext(ctx).Where("source_id = ?", movieSourceID).First(&movie).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reviews, nil
		}
		return nil, fmt.Errorf("failed to resolve movie for reviews: %w", err)
	}

	var rows []reviewRow
	if err := s.db.WithContext(ctx).
		Where("movie_id = ?", movie.ID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get reviews: %w", err)
	}
	for i := range rows {
		reviews = append(reviews, reviewFromRow(&rows[i], movieSourceID))
	}
	return reviews, nil
}

const eventSelect = "movie_buddy_events.id, movie_buddy_events.title, " +
	"movie_buddy_events.description, movie_buddy_events.max_participants, " +
	"movie_buddy_events.status, movie_buddy_events.created_at, " +
	"movie_buddy_events.organizer_user_id, movie_buddy_events.organizer_username, " +
	"movie_buddy_events.organizer_avatar_url, movie_buddy_events.organizer_tags, " +
	"movie_buddy_events.organizer_trust, " +
	"movies.source_id AS movie_source_id, " +
	"theaters.source_id AS theater_source_id, " +
	"movie_buddy_events.showtime_id, " +
	"showtimes.booking_url AS showtime_booking_url, " +
	"showtimes.time AS showtime_time, " +
	"showtimes.screen_type AS showtime_screen_type, " +
	"showtimes.language AS showtime_language, " +
	"showtimes.price AS showtime_price"

func (s *MySQLStore) eventQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("movie_buddy_events").
		Select(eventSelect).
		Joins("JOIN movies ON movies.id = movie_buddy_events.movie_id").
		Joins("JOIN theaters ON theaters.id = movie_buddy_events.theater_id").
		Joins("JOIN showtimes ON showtimes.source_id = movie_buddy_events.showtime_id")
}

// attachParticipants loads participants for the given join rows and
// assembles the domain events.
func (s *MySQLStore) attachParticipants(ctx context.Context, rows []eventJoinRow) ([]*model.MovieBuddyEvent, error) {
	events := make([]*model.MovieBuddyEvent, 0, len(rows))
	if len(rows) == 0 {
		return events, nil
	}

	ids := make([]string, 0, len(rows))
	for i := range rows {
		ids = append(ids, rows[i].ID)
	}
	var pRows []participantRow
	if err := s.db.WithContext(ctx).
		Where("event_id IN ?", ids).
		Find(&pRows).Error; err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	byEvent := make(map[string][]model.Participant, len(rows))
	for _, p := range pRows {
		byEvent[p.EventID] = append(byEvent[p.EventID], model.Participant{
			UserID:    p.UserID,
			Username:  p.Username,
			AvatarURL: p.AvatarURL,
		})
	}

	for i := range rows {
		participants := byEvent[rows[i].ID]
		if participants == nil {
			participants = []model.Participant{}
		}
		events = append(events, eventFromJoinRow(&rows[i], participants))
	}
	return events, nil
}

// CreateEvent stores a new movie-buddy event. The movie, theater and
// showtime references must resolve; the organizer is enrolled as the first
// participant and the returned event reflects the stored state.
func (s *MySQLStore) CreateEvent(ctx context.Context, event *model.MovieBuddyEvent) (*model.MovieBuddyEvent, error) {
	var movie movieRow
	if err := s.db.WithContext(ctx).Where("source_id = ?", event.MovieID).First(&movie).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve movie for event: %w", err)
	}
	var theater theaterRow
	if err := s.db.WithContext(ctx).Where("source_id = ?", event.TheaterID).First(&theater).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve theater for event: %w", err)
	}
	var showtime showtimeRow
	if err := s.db.WithContext(ctx).Where("source_id = ?", event.Showtime.SourceID).First(&showtime).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve showtime for event: %w", err)
	}

	tags, err := json.Marshal(event.Organizer.ViewingHabitTags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode organizer tags: %w", err)
	}

	id := uuid.NewString()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := eventRow{
			ID:                 id,
			MovieID:            movie.ID,
			TheaterID:          theater.ID,
			ShowtimeID:         showtime.SourceID,
			Title:              event.Title,
			Description:        event.Description,
			MaxParticipants:    event.MaxParticipants,
			Status:             string(model.EventOpen),
			CreatedAt:          time.Now().UTC(),
			OrganizerUserID:    event.Organizer.UserID,
			OrganizerUsername:  event.Organizer.Username,
			OrganizerAvatarURL: event.Organizer.AvatarURL,
			OrganizerTags:      string(tags),
			OrganizerTrust:     event.Organizer.TrustScore,
		}
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			return fmt.Errorf("failed to create event: %w", err)
		}

		organizer := participantRow{
			EventID:   id,
			UserID:    event.Organizer.UserID,
			Username:  event.Organizer.Username,
			AvatarURL: event.Organizer.AvatarURL,
		}
		if err := tx.Omit(clause.Associations).Create(&organizer).Error; err != nil {
			return fmt.Errorf("failed to enroll organizer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetEvent(ctx, id)
}

// GetEvent returns one event by id, or ErrNotFound.
func (s *MySQLStore) GetEvent(ctx context.Context, id string) (*model.MovieBuddyEvent, error) {
	var rows []eventJoinRow
	if err := s.eventQuery(ctx).
		Where("movie_buddy_events.id = ?", id).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	events, err := s.attachParticipants(ctx, rows)
	if err != nil {
		return nil, err
	}
	return events[0], nil
}

// GetEvents returns the events matching the given ids, newest first.
func (s *MySQLStore) GetEvents(ctx context.Context, ids []string) ([]*model.MovieBuddyEvent, error) {
	if len(ids) == 0 {
		return []*model.MovieBuddyEvent{}, nil
	}
	var rows []eventJoinRow
	if err := s.eventQuery(ctx).
		Where("movie_buddy_events.id IN ?", ids).
		Order("movie_buddy_events.created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	return s.attachParticipants(ctx, rows)
}

// EventsByMovie returns a movie's events, newest first.
func (s *MySQLStore) EventsByMovie(ctx context.Context, movieSourceID string) ([]*model.MovieBuddyEvent, error) {
	var rows []eventJoinRow
	if err := s.eventQuery(ctx).
		Where("movies.source_id = ?", movieSourceID).
		Order("movie_buddy_events.created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get events by movie: %w", err)
	}
	return s.attachParticipants(ctx, rows)
}

// ClearAll truncates every table, children before parents.
func (s *MySQLStore) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{
			&participantRow{}, &eventRow{}, &reviewRow{},
			&showtimeRow{}, &movieRow{}, &theaterRow{},
		} {
			if err := tx.Where("1 = 1").Delete(m).Error; err != nil {
				return fmt.Errorf("failed to clear table: %w", err)
			}
		}
		return nil
	})
}

// Ping checks database connectivity.
func (s *MySQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (s *MySQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
