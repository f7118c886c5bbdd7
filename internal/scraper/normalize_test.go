package scraper

import (
	"testing"
	"time"

	"github.com/user/moviebuddy-go/internal/model"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"hours and minutes", "1 時 40 分", 100},
		{"compact form", "2時30分", 150},
		{"minutes only", "95 分", 95},
		{"hours only", "2 時", 120},
		{"empty", "", 0},
		{"no digits", "片長未定", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseDuration(tt.text); got != tt.want {
				t.Errorf("ParseDuration(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestComposeShowtime(t *testing.T) {
	ts, ok := ComposeShowtime("2025 年 11 月 10 日 星期一", "10:30")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	// 10:30 in UTC+8 is 02:30 UTC.
	want := time.Date(2025, 11, 10, 2, 30, 0, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("ComposeShowtime() = %v, want %v", ts, want)
	}
}

func TestComposeShowtime_CompactDate(t *testing.T) {
	ts, ok := ComposeShowtime("2025年11月10日", "00:10")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	// Early-morning local shows land on the previous UTC day.
	want := time.Date(2025, 11, 9, 16, 10, 0, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("ComposeShowtime() = %v, want %v", ts, want)
	}
}

func TestComposeShowtime_Unparseable(t *testing.T) {
	tests := []struct {
		name     string
		dateText string
		timeText string
	}{
		{"empty date", "", "10:30"},
		{"date without digits", "星期一", "10:30"},
		{"too few date components", "2025 年 11 月", "10:30"},
		{"missing colon", "2025 年 11 月 10 日", "1030"},
		{"empty time", "2025 年 11 月 10 日", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := time.Now().UTC()
			ts, ok := ComposeShowtime(tt.dateText, tt.timeText)
			if ok {
				t.Fatal("expected parse to fail")
			}
			// The fallback is the current time, not a zero value.
			if ts.Before(before.Add(-time.Minute)) || ts.After(time.Now().UTC().Add(time.Minute)) {
				t.Errorf("expected near-now fallback, got %v", ts)
			}
		})
	}
}

func TestMapScreenType(t *testing.T) {
	tests := []struct {
		label string
		want  model.ScreenType
	}{
		{"IMAX", model.ScreenIMAX},
		{"imax 雷射", model.ScreenIMAX},
		{"4DX", model.Screen4DX},
		{"TITAN", model.ScreenTITAN},
		{"titan luxe", model.ScreenTITAN},
		{"Dolby Cinema", model.ScreenDolby},
		{"數位", model.ScreenGeneral},
		{"", model.ScreenGeneral},
		{"未知廳", model.ScreenGeneral},
	}
	for _, tt := range tests {
		if got := MapScreenType(tt.label); got != tt.want {
			t.Errorf("MapScreenType(%q) = %s, want %s", tt.label, got, tt.want)
		}
	}
}

func TestMapLanguage(t *testing.T) {
	tests := []struct {
		label string
		want  model.Language
	}{
		{"英", model.LangEnglish},
		{"日", model.LangJapanese},
		{"韓", model.LangKorean},
		{"國", model.LangChinese},
		{"粵", model.LangChinese},
		{"en", model.LangEnglish},
		{"JP", model.LangJapanese},
		{"kr", model.LangKorean},
		{"", model.LangChinese},
		{"未知", model.LangChinese},
	}
	for _, tt := range tests {
		if got := MapLanguage(tt.label); got != tt.want {
			t.Errorf("MapLanguage(%q) = %s, want %s", tt.label, got, tt.want)
		}
	}
}
