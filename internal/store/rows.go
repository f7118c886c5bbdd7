package store

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/user/moviebuddy-go/internal/model"
)

// Row types are the only shapes that cross the SQL boundary. Each has a
// single conversion to/from the domain model, so internal numeric ids and
// storage encodings (joined lists, JSON columns) stay inside this package.

type movieRow struct {
	ID           uint   `gorm:"primaryKey"`
	SourceID     string `gorm:"column:source_id;uniqueIndex;size:64;not null"`
	Title        string `gorm:"size:500;not null"`
	EnglishTitle string `gorm:"size:500"`
	PosterURL    string `gorm:"size:500"`
	Synopsis     string `gorm:"type:text"`
	Director     string `gorm:"size:255"`
	Actors       string `gorm:"size:1000"`
	Duration     int    `gorm:"default:0"`
	Rating       string `gorm:"size:50"`
	TrailerURL   string `gorm:"size:500"`
	ReleaseDate  string `gorm:"size:50"`
	BookingOpen  bool   `gorm:"default:false"`
	Genres       string `gorm:"size:500"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (movieRow) TableName() string { return "movies" }

type theaterRow struct {
	ID         uint    `gorm:"primaryKey"`
	SourceID   string  `gorm:"column:source_id;uniqueIndex;size:64;not null"`
	Name       string  `gorm:"size:255;not null"`
	Address    string  `gorm:"size:500"`
	Region     string  `gorm:"size:50"`
	WebsiteURL string  `gorm:"size:500"`
	Lat        float64 `gorm:"default:0"`
	Lng        float64 `gorm:"default:0"`
	CreatedAt  time.Time
}

func (theaterRow) TableName() string { return "theaters" }

type showtimeRow struct {
	SourceID   string `gorm:"column:source_id;primaryKey;size:64"`
	MovieID    uint   `gorm:"index;not null"`
	TheaterID  uint   `gorm:"index;not null"`
	BookingURL string `gorm:"size:500"`
	Time       string `gorm:"size:40;not null"`
	ScreenType string `gorm:"size:20;not null"`
	Language   string `gorm:"size:20;not null"`
	Price      float64

	Movie   movieRow   `gorm:"foreignKey:MovieID;constraint:OnDelete:CASCADE"`
	Theater theaterRow `gorm:"foreignKey:TheaterID;constraint:OnDelete:CASCADE"`
}

func (showtimeRow) TableName() string { return "showtimes" }

type reviewRow struct {
	ID        string `gorm:"primaryKey;size:36"`
	MovieID   uint   `gorm:"index;not null"`
	UserID    string `gorm:"size:64;not null"`
	Username  string `gorm:"size:255;not null"`
	Rating    int    `gorm:"not null"`
	Comment   string `gorm:"type:text;not null"`
	CreatedAt time.Time

	Movie movieRow `gorm:"foreignKey:MovieID;constraint:OnDelete:CASCADE"`
}

func (reviewRow) TableName() string { return "reviews" }

type eventRow struct {
	ID              string `gorm:"primaryKey;size:36"`
	MovieID         uint   `gorm:"index;not null"`
	TheaterID       uint   `gorm:"not null"`
	ShowtimeID      string `gorm:"size:64;not null"`
	Title           string `gorm:"size:255;not null"`
	Description     string `gorm:"type:text;not null"`
	MaxParticipants int    `gorm:"not null"`
	Status          string `gorm:"size:20;not null"`
	CreatedAt       time.Time

	OrganizerUserID    string  `gorm:"size:64;not null"`
	OrganizerUsername  string  `gorm:"size:255;not null"`
	OrganizerAvatarURL string  `gorm:"size:500"`
	OrganizerTags      string  `gorm:"size:1000"` // JSON-encoded tag list
	OrganizerTrust     float64 `gorm:"default:0"`

	Movie    movieRow    `gorm:"foreignKey:MovieID;constraint:OnDelete:CASCADE"`
	Theater  theaterRow  `gorm:"foreignKey:TheaterID;constraint:OnDelete:CASCADE"`
	Showtime showtimeRow `gorm:"foreignKey:ShowtimeID;references:SourceID;constraint:OnDelete:CASCADE"`
}

func (eventRow) TableName() string { return "movie_buddy_events" }

type participantRow struct {
	EventID   string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"primaryKey;size:64"`
	Username  string `gorm:"size:255;not null"`
	AvatarURL string `gorm:"size:500"`

	Event eventRow `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
}

func (participantRow) TableName() string { return "event_participants" }

// joinList and splitList are the storage encoding for ordered name lists.

func joinList(items []string) string {
	return strings.Join(items, ",")
}

func splitList(joined string) []string {
	if joined == "" {
		return nil
	}
	var items []string
	for _, part := range strings.Split(joined, ",") {
		if p := strings.TrimSpace(part); p != "" {
			items = append(items, p)
		}
	}
	return items
}

func movieToRow(m *model.Movie) movieRow {
	return movieRow{
		SourceID:     m.SourceID,
		Title:        m.Title,
		EnglishTitle: m.EnglishTitle,
		PosterURL:    m.PosterURL,
		Synopsis:     m.Synopsis,
		Director:     m.Director,
		Actors:       joinList(m.Actors),
		Duration:     m.Duration,
		Rating:       m.Rating,
		TrailerURL:   m.TrailerURL,
		ReleaseDate:  m.ReleaseDate,
		BookingOpen:  m.BookingOpen,
		Genres:       joinList(m.Genres),
	}
}

func movieFromRow(r *movieRow) *model.Movie {
	return &model.Movie{
		SourceID:     r.SourceID,
		Title:        r.Title,
		EnglishTitle: r.EnglishTitle,
		PosterURL:    r.PosterURL,
		Synopsis:     r.Synopsis,
		Director:     r.Director,
		Actors:       splitList(r.Actors),
		Duration:     r.Duration,
		Rating:       r.Rating,
		TrailerURL:   r.TrailerURL,
		ReleaseDate:  r.ReleaseDate,
		BookingOpen:  r.BookingOpen,
		Genres:       splitList(r.Genres),
	}
}

func theaterToRow(t *model.Theater) theaterRow {
	return theaterRow{
		SourceID:   t.SourceID,
		Name:       t.Name,
		Address:    t.Address,
		Region:     t.Region,
		WebsiteURL: t.WebsiteURL,
		Lat:        t.Location.Lat,
		Lng:        t.Location.Lng,
	}
}

func theaterFromRow(r *theaterRow) *model.Theater {
	return &model.Theater{
		SourceID:   r.SourceID,
		Name:       r.Name,
		Address:    r.Address,
		Region:     r.Region,
		WebsiteURL: r.WebsiteURL,
		Location:   model.Location{Lat: r.Lat, Lng: r.Lng},
	}
}

// showtimeJoinRow is the read shape for showtime queries: the movie and
// theater joins resolve internal ids back to source ids.
type showtimeJoinRow struct {
	SourceID        string
	MovieSourceID   string
	TheaterSourceID string
	BookingURL      string
	Time            string
	ScreenType      string
	Language        string
	Price           float64
}

func showtimeFromJoinRow(r *showtimeJoinRow) *model.Showtime {
	return &model.Showtime{
		SourceID:   r.SourceID,
		MovieID:    r.MovieSourceID,
		TheaterID:  r.TheaterSourceID,
		BookingURL: r.BookingURL,
		Time:       r.Time,
		ScreenType: model.ScreenType(r.ScreenType),
		Language:   model.Language(r.Language),
		Price:      r.Price,
	}
}

func reviewFromRow(r *reviewRow, movieSourceID string) *model.Review {
	return &model.Review{
		ID:        r.ID,
		MovieID:   movieSourceID,
		UserID:    r.UserID,
		Username:  r.Username,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// eventJoinRow is the read shape for event queries, with the showtime and
// the movie/theater source ids joined in.
type eventJoinRow struct {
	ID              string
	Title           string
	Description     string
	MaxParticipants int
	Status          string
	CreatedAt       time.Time

	OrganizerUserID    string
	OrganizerUsername  string
	OrganizerAvatarURL string
	OrganizerTags      string
	OrganizerTrust     float64

	MovieSourceID   string
	TheaterSourceID string

	ShowtimeID         string
	ShowtimeBookingURL string
	ShowtimeTime       string
	ShowtimeScreenType string
	ShowtimeLanguage   string
	ShowtimePrice      float64
}

func eventFromJoinRow(r *eventJoinRow, participants []model.Participant) *model.MovieBuddyEvent {
	var tags []string
	if r.OrganizerTags != "" {
		// Malformed tag JSON degrades to an empty list, not an error.
		_ = json.Unmarshal([]byte(r.OrganizerTags), &tags)
	}

	return &model.MovieBuddyEvent{
		ID:        r.ID,
		MovieID:   r.MovieSourceID,
		TheaterID: r.TheaterSourceID,
		Showtime: model.Showtime{
			SourceID:   r.ShowtimeID,
			MovieID:    r.MovieSourceID,
			TheaterID:  r.TheaterSourceID,
			BookingURL: r.ShowtimeBookingURL,
			Time:       r.ShowtimeTime,
			ScreenType: model.ScreenType(r.ShowtimeScreenType),
			Language:   model.Language(r.ShowtimeLanguage),
			Price:      r.ShowtimePrice,
		},
		Organizer: model.Organizer{
			Participant: model.Participant{
				UserID:    r.OrganizerUserID,
				Username:  r.OrganizerUsername,
				AvatarURL: r.OrganizerAvatarURL,
			},
			ViewingHabitTags: tags,
			TrustScore:       r.OrganizerTrust,
		},
		Title:           r.Title,
		Description:     r.Description,
		MaxParticipants: r.MaxParticipants,
		Participants:    participants,
		Status:          model.EventStatus(r.Status),
		CreatedAt:       r.CreatedAt.UTC().Format(time.RFC3339),
	}
}
