package scraper

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/user/moviebuddy-go/internal/model"
)

// For any hour count X and minute count Y, parsing "X 時 Y 分" yields
// X*60 + Y minutes.
func TestProperty_DurationParsing(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("X 時 Y 分 equals X*60+Y minutes", prop.ForAll(
		func(hours, minutes int) bool {
			text := fmt.Sprintf("%d 時 %d 分", hours, minutes)
			return ParseDuration(text) == hours*60+minutes
		},
		gen.IntRange(0, 10),
		gen.IntRange(0, 59),
	))

	properties.Property("minutes-only form has no hour component", prop.ForAll(
		func(minutes int) bool {
			return ParseDuration(fmt.Sprintf("%d 分", minutes)) == minutes
		},
		gen.IntRange(0, 300),
	))

	properties.TestingRun(t)
}

// For any date and time inside the valid range, the composed instant
// converted back to UTC+8 reproduces the input components.
func TestProperty_ShowtimeComposition(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("round-trips through the source timezone", prop.ForAll(
		func(year, month, day, hour, minute int) bool {
			dateText := fmt.Sprintf("%d 年 %d 月 %d 日", year, month, day)
			timeText := fmt.Sprintf("%02d:%02d", hour, minute)

			ts, ok := ComposeShowtime(dateText, timeText)
			if !ok {
				return false
			}
			local := ts.In(sourceZone)
			want := time.Date(year, time.Month(month), day, hour, minute, 0, 0, sourceZone)
			return local.Equal(want)
		},
		gen.IntRange(2024, 2030),
		gen.IntRange(1, 12),
		gen.IntRange(1, 28),
		gen.IntRange(0, 23),
		gen.IntRange(0, 59),
	))

	properties.TestingRun(t)
}

// Screen-type mapping is total and IMAX wins over any noise around it.
func TestProperty_ScreenTypeMapping(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	known := map[model.ScreenType]bool{
		model.ScreenGeneral: true,
		model.ScreenIMAX:    true,
		model.Screen4DX:     true,
		model.ScreenTITAN:   true,
		model.ScreenDolby:   true,
	}

	properties.Property("every label maps to a canonical type", prop.ForAll(
		func(label string) bool {
			return known[MapScreenType(label)]
		},
		gen.AnyString(),
	))

	properties.Property("IMAX wins regardless of surrounding noise", prop.ForAll(
		func(prefix, suffix string) bool {
			return MapScreenType(prefix+"IMAX"+suffix) == model.ScreenIMAX
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// Language mapping is total.
func TestProperty_LanguageMapping(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	known := map[model.Language]bool{
		model.LangChinese:  true,
		model.LangEnglish:  true,
		model.LangJapanese: true,
		model.LangKorean:   true,
	}

	properties.Property("every label maps to a canonical language", prop.ForAll(
		func(label string) bool {
			return known[MapLanguage(label)]
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
