package model

// Movie is a film record keyed by its origin-namespaced source id
// (e.g. "vieshow_8366"). The store assigns an internal numeric id on first
// insert; that id never leaves the store package.
type Movie struct {
	SourceID     string   `json:"source_id" validate:"required"`
	Title        string   `json:"title"`
	EnglishTitle string   `json:"englishTitle"`
	PosterURL    string   `json:"posterUrl"`
	Synopsis     string   `json:"synopsis"`
	Director     string   `json:"director"`
	Actors       []string `json:"actors"`
	Duration     int      `json:"duration"` // minutes
	Rating       string   `json:"rating"`
	TrailerURL   string   `json:"trailerUrl"`
	ReleaseDate  string   `json:"releaseDate"`
	BookingOpen  bool     `json:"bookingOpen"`
	Genres       []string `json:"genres"`
}
