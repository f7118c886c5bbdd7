package model

// ScrapeResult is the payload a scraper source produces and the ingestion
// endpoint accepts. Every reference inside it is a source id; the store is
// solely responsible for minting and resolving internal ids.
type ScrapeResult struct {
	Movies    []Movie    `json:"movies"`
	Theaters  []Theater  `json:"theaters"`
	Showtimes []Showtime `json:"showtimes"`
}

// IsEmpty reports whether the result carries no rows at all.
func (r *ScrapeResult) IsEmpty() bool {
	return len(r.Movies) == 0 && len(r.Theaters) == 0 && len(r.Showtimes) == 0
}
