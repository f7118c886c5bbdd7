package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/user/moviebuddy-go/internal/store"
	"golang.org/x/time/rate"
)

// TelegramClient defines the interface for sending Telegram messages
type TelegramClient interface {
	SendMessage(chatID int64, text string) error
	SendMarkdown(chatID int64, text string) error
}

// Service sends scrape run reports to an operator chat.
type Service struct {
	telegram TelegramClient
	chatID   int64
	limiter  *rate.Limiter // Telegram rate limit: max 30 msg/sec globally
}

// NewService creates a new report service
func NewService(telegram TelegramClient, chatID int64) *Service {
	return &Service{
		telegram: telegram,
		chatID:   chatID,
		limiter:  rate.NewLimiter(rate.Limit(30), 1),
	}
}

// EscapeMarkdown escapes special characters for Telegram MarkdownV2 format
func EscapeMarkdown(text string) string {
	specialChars := []string{"_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	result := text
	for _, char := range specialChars {
		result = strings.ReplaceAll(result, char, "\\"+char)
	}
	return result
}

// FormatScrapeReport formats the outcome of one scrape run into a Telegram
// message string.
func FormatScrapeReport(stats *store.IngestStats, duration time.Duration, sourceErrs []error) string {
	var parts []string

	if len(sourceErrs) == 0 {
		parts = append(parts, "🎬 *Scrape completed*")
	} else {
		parts = append(parts, "⚠️ *Scrape completed with errors*")
	}

	if stats != nil {
		parts = append(parts, fmt.Sprintf("🎞 Movies: %d", stats.Movies))
		parts = append(parts, fmt.Sprintf("🏟 Theaters: %d", stats.Theaters))
		parts = append(parts, fmt.Sprintf("🕒 Showtimes: %d", stats.Showtimes))
		if stats.Dropped > 0 {
			parts = append(parts, fmt.Sprintf("🗑 Dropped: %d", stats.Dropped))
		}
	}

	parts = append(parts, fmt.Sprintf("⏱ Duration: %s", EscapeMarkdown(duration.Round(time.Second).String())))

	for _, err := range sourceErrs {
		parts = append(parts, fmt.Sprintf("❌ %s", EscapeMarkdown(err.Error())))
	}

	return strings.Join(parts, "\n")
}

// ReportScrape sends a scrape report to the configured chat.
func (s *Service) ReportScrape(ctx context.Context, stats *store.IngestStats, duration time.Duration, sourceErrs []error) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	message := FormatScrapeReport(stats, duration, sourceErrs)
	if err := s.telegram.SendMarkdown(s.chatID, message); err != nil {
		return fmt.Errorf("failed to send scrape report: %w", err)
	}

	log.Debug().Int64("chatID", s.chatID).Msg("Sent scrape report")
	return nil
}
