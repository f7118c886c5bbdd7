package model

// EventStatus is the lifecycle state of a movie-buddy event.
type EventStatus string

const (
	EventOpen      EventStatus = "open"
	EventFull      EventStatus = "full"
	EventCancelled EventStatus = "cancelled"
	EventCompleted EventStatus = "completed"
)

// Participant is a user attending a movie-buddy event.
type Participant struct {
	UserID    string `json:"userId" validate:"required"`
	Username  string `json:"username" validate:"required"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Organizer is the participant who created an event, with reputation data.
type Organizer struct {
	Participant
	ViewingHabitTags []string `json:"viewingHabitTags"`
	TrustScore       float64  `json:"trustScore"`
}

// MovieBuddyEvent is a social gathering tied to a specific showtime.
// MovieID and TheaterID carry source ids at this boundary.
type MovieBuddyEvent struct {
	ID              string        `json:"id"`
	MovieID         string        `json:"movieId" validate:"required"`
	TheaterID       string        `json:"theaterId" validate:"required"`
	Showtime        Showtime      `json:"showtime"`
	Organizer       Organizer     `json:"organizer"`
	Title           string        `json:"title" validate:"required"`
	Description     string        `json:"description" validate:"required"`
	MaxParticipants int           `json:"maxParticipants" validate:"min=2"`
	Participants    []Participant `json:"participants"`
	Status          EventStatus   `json:"status"`
	CreatedAt       string        `json:"createdAt"`
}
