package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/user/moviebuddy-go/internal/store"
)

type recordingClient struct {
	chatID   int64
	markdown string
}

func (c *recordingClient) SendMessage(chatID int64, text string) error {
	c.chatID = chatID
	return nil
}

func (c *recordingClient) SendMarkdown(chatID int64, text string) error {
	c.chatID = chatID
	c.markdown = text
	return nil
}

func TestFormatScrapeReport(t *testing.T) {
	stats := &store.IngestStats{Movies: 12, Theaters: 3, Showtimes: 480, Dropped: 2}

	message := FormatScrapeReport(stats, 95*time.Second, nil)
	if !strings.Contains(message, "Scrape completed") {
		t.Errorf("expected success header, got %q", message)
	}
	for _, want := range []string{"Movies: 12", "Theaters: 3", "Showtimes: 480", "Dropped: 2"} {
		if !strings.Contains(message, want) {
			t.Errorf("expected %q in message, got %q", want, message)
		}
	}

	withErrs := FormatScrapeReport(stats, time.Second, []error{errors.New("listing fetch failed")})
	if !strings.Contains(withErrs, "errors") {
		t.Errorf("expected error header, got %q", withErrs)
	}
	if !strings.Contains(withErrs, "listing fetch failed") {
		t.Errorf("expected source error in message, got %q", withErrs)
	}
}

func TestFormatScrapeReport_NoDroppedLine(t *testing.T) {
	stats := &store.IngestStats{Movies: 1, Theaters: 1, Showtimes: 1}
	message := FormatScrapeReport(stats, time.Second, nil)
	if strings.Contains(message, "Dropped") {
		t.Errorf("expected no dropped line, got %q", message)
	}
}

func TestReportScrape(t *testing.T) {
	client := &recordingClient{}
	service := NewService(client, 12345)

	stats := &store.IngestStats{Movies: 5, Theaters: 2, Showtimes: 40}
	if err := service.ReportScrape(context.Background(), stats, 30*time.Second, nil); err != nil {
		t.Fatalf("ReportScrape failed: %v", err)
	}
	if client.chatID != 12345 {
		t.Errorf("expected chat id 12345, got %d", client.chatID)
	}
	if client.markdown == "" {
		t.Error("expected markdown message sent")
	}
}

func TestEscapeMarkdown_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("special characters are always escaped", prop.ForAll(
		func(text string) bool {
			escaped := EscapeMarkdown(text)
			for _, char := range []string{"_", "*", "[", "]", "(", ")", "~", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"} {
				idx := 0
				for {
					i := strings.Index(escaped[idx:], char)
					if i < 0 {
						break
					}
					pos := idx + i
					if pos == 0 || escaped[pos-1] != '\\' {
						return false
					}
					idx = pos + 1
				}
			}
			return true
		},
		gen.AnyString(),
	))

	properties.Property("plain alphanumeric text is unchanged", prop.ForAll(
		func(text string) bool {
			return EscapeMarkdown(text) == text
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
