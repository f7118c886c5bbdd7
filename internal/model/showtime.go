package model

// ScreenType is the canonical presentation format of a showtime.
type ScreenType string

const (
	ScreenGeneral ScreenType = "General"
	ScreenIMAX    ScreenType = "IMAX"
	Screen4DX     ScreenType = "4DX"
	ScreenTITAN   ScreenType = "TITAN"
	ScreenDolby   ScreenType = "Dolby Cinema"
)

// Language is the canonical audio language of a showtime.
type Language string

const (
	LangChinese  Language = "Chinese"
	LangEnglish  Language = "English"
	LangJapanese Language = "Japanese"
	LangKorean   Language = "Korean"
)

// Showtime is a single screening session. MovieID and TheaterID carry
// source ids at this boundary; the store remaps them to internal ids on
// write and back to source ids on read.
type Showtime struct {
	SourceID   string     `json:"id"`
	MovieID    string     `json:"movieId"`
	TheaterID  string     `json:"theaterId"`
	BookingURL string     `json:"bookingUrl"`
	Time       string     `json:"time"` // ISO 8601, UTC
	ScreenType ScreenType `json:"screenType"`
	Language   Language   `json:"language"`
	Price      float64    `json:"price"`
}
