package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/user/moviebuddy-go/internal/model"
)

var (
	// durationHourPattern matches the hour component of "1 時 40 分"
	durationHourPattern = regexp.MustCompile(`(\d+)\s*時`)
	// durationMinPattern matches the minute component
	durationMinPattern = regexp.MustCompile(`(\d+)\s*分`)
	// digitsPattern extracts numeric runs from localized date headers
	digitsPattern = regexp.MustCompile(`\d+`)
)

// sourceZone is the fixed timezone of the origin site (Taiwan, UTC+8).
var sourceZone = time.FixedZone("UTC+8", 8*60*60)

// ParseDuration converts a localized duration string like "1 時 40 分" to
// minutes. A missing unit contributes 0, so "95 分" is 95 and "2 時" is 120.
func ParseDuration(text string) int {
	minutes := 0
	if m := durationHourPattern.FindStringSubmatch(text); len(m) > 1 {
		if hours, err := strconv.Atoi(m[1]); err == nil {
			minutes += hours * 60
		}
	}
	if m := durationMinPattern.FindStringSubmatch(text); len(m) > 1 {
		if mins, err := strconv.Atoi(m[1]); err == nil {
			minutes += mins
		}
	}
	return minutes
}

// ComposeShowtime combines a localized date header such as
// "2025 年 11 月 10 日 星期一" (the trailing weekday is ignored) with an
// "HH:MM" time string into a UTC instant, applying the fixed UTC+8 source
// offset. When the date or time cannot be parsed it returns the current UTC
// time and false so the caller can flag the degraded record instead of
// dropping it.
func ComposeShowtime(dateText, timeText string) (time.Time, bool) {
	nums := digitsPattern.FindAllString(dateText, -1)
	if len(nums) < 3 {
		return time.Now().UTC(), false
	}

	year, errY := strconv.Atoi(nums[0])
	month, errM := strconv.Atoi(nums[1])
	day, errD := strconv.Atoi(nums[2])
	if errY != nil || errM != nil || errD != nil {
		return time.Now().UTC(), false
	}

	parts := strings.SplitN(timeText, ":", 2)
	if len(parts) != 2 {
		return time.Now().UTC(), false
	}
	hour, errH := strconv.Atoi(strings.TrimSpace(parts[0]))
	minute, errMin := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errH != nil || errMin != nil {
		return time.Now().UTC(), false
	}

	local := time.Date(year, time.Month(month), day, hour, minute, 0, 0, sourceZone)
	return local.UTC(), true
}

// MapScreenType maps a free-text version label to a canonical screen type.
// Substring precedence: IMAX > 4DX > TITAN > Dolby; the localized "數位"
// (digital) token and anything unrecognized map to General. Total function:
// every input yields a value.
func MapScreenType(label string) model.ScreenType {
	lower := strings.ToLower(label)
	switch {
	case strings.Contains(lower, "imax"):
		return model.ScreenIMAX
	case strings.Contains(lower, "4dx"):
		return model.Screen4DX
	case strings.Contains(lower, "titan"):
		return model.ScreenTITAN
	case strings.Contains(lower, "dolby"):
		return model.ScreenDolby
	default:
		return model.ScreenGeneral
	}
}

// MapLanguage maps a free-text language glyph or label to a canonical
// language. The origin site uses single glyphs: 英 (English), 日 (Japanese),
// 韓 (Korean), and both 國 (Mandarin) and 粵 (Cantonese) normalize to
// Chinese. ASCII codes are a secondary fallback in case the format changes.
// Total function: unrecognized input defaults to Chinese.
func MapLanguage(label string) model.Language {
	switch {
	case strings.Contains(label, "英"):
		return model.LangEnglish
	case strings.Contains(label, "日"):
		return model.LangJapanese
	case strings.Contains(label, "韓"):
		return model.LangKorean
	case strings.Contains(label, "國"), strings.Contains(label, "粵"):
		return model.LangChinese
	}

	lower := strings.ToLower(label)
	switch {
	case strings.Contains(lower, "en"):
		return model.LangEnglish
	case strings.Contains(lower, "jp"):
		return model.LangJapanese
	case strings.Contains(lower, "kr"):
		return model.LangKorean
	}

	return model.LangChinese
}
