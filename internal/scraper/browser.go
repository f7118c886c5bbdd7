package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const (
	// browserWaitTimeout is the maximum time to wait for page elements
	browserWaitTimeout = 15 * time.Second
	// browserPageLoadTimeout is the maximum time to wait for page load
	browserPageLoadTimeout = 30 * time.Second
)

// Browser wraps a rod headless browser with instance reuse. It exists only
// as a fallback path: the origin site is server-rendered, but occasionally
// fronts requests with a JS challenge that plain HTTP cannot pass.
type Browser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	mu       sync.Mutex
	closed   bool
}

// NewBrowser launches a headless browser instance
func NewBrowser() (*Browser, error) {
	l := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-extensions").
		Set("disable-background-networking").
		Set("mute-audio").
		Set("no-first-run")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &Browser{
		browser:  browser,
		launcher: l,
	}, nil
}

// FetchRenderedHTML fetches a page and waits for JavaScript rendering.
// waitSelector is the CSS selector to wait for; the wait is best-effort.
func (b *Browser) FetchRenderedHTML(ctx context.Context, url string, waitSelector string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return "", fmt.Errorf("browser is closed")
	}

	page, err := b.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return "", fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	page = page.Timeout(browserPageLoadTimeout)

	if err := page.Navigate(url); err != nil {
		return "", fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("failed to wait for page load: %w", err)
	}

	if waitSelector != "" {
		waitCtx, cancel := context.WithTimeout(ctx, browserWaitTimeout)
		defer cancel()

		// Missing selector is not fatal, the page may still be usable
		_, _ = page.Context(waitCtx).Element(waitSelector)
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}

	return html, nil
}

// Close shuts down the browser and its launcher
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	if err := b.browser.Close(); err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	b.launcher.Cleanup()
	return nil
}
