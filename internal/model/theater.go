package model

// Location holds geographic coordinates. The origin site renders these
// client-side, so scraped theaters carry (0, 0) until resolved elsewhere.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Theater is a cinema keyed by its origin-namespaced source id
// (e.g. "vieshow_23"). Region is a coarse label derived from the address.
type Theater struct {
	SourceID   string   `json:"source_id" validate:"required"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Region     string   `json:"region"`
	WebsiteURL string   `json:"websiteUrl"`
	Location   Location `json:"location"`
}
