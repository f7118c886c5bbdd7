package scraper

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// FetchConfig holds configuration for the Fetcher
type FetchConfig struct {
	// RateLimit is the maximum requests per second
	RateLimit float64
	// Timeout is the HTTP request timeout
	Timeout time.Duration
	// MaxRetries is the maximum number of retry attempts
	MaxRetries int
	// UserAgent is the HTTP User-Agent header
	UserAgent string
	// ProxyURL is the proxy server URL (HTTP or SOCKS5)
	ProxyURL string
	// BrowserFallback enables a headless-browser retry when plain HTTP
	// fetches fail or return unusable markup
	BrowserFallback bool
}

// DefaultFetchConfig returns default fetcher configuration
func DefaultFetchConfig() *FetchConfig {
	return &FetchConfig{
		RateLimit:  2,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
	}
}

// Fetcher performs rate-limited HTTP fetches with retry and an optional
// headless-browser fallback for pages that resist plain requests.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	config    *FetchConfig
	browser   *Browser
	browserMu sync.Mutex
}

// NewFetcher creates a new Fetcher instance
func NewFetcher(cfg *FetchConfig) (*Fetcher, error) {
	if cfg == nil {
		cfg = DefaultFetchConfig()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultFetchConfig().UserAgent
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
		Jar:       jar,
	}

	return &Fetcher{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		config:  cfg,
	}, nil
}

// Fetch fetches a URL with rate limiting and exponential backoff retry
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= f.config.MaxRetries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter error: %w", err)
		}

		html, err := f.fetch(ctx, targetURL)
		if err == nil {
			return html, nil
		}

		lastErr = err

		if attempt < f.config.MaxRetries {
			// Exponential backoff: 1s, 2s, 4s
			backoff := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

// FetchWithFallback fetches a URL and, when the plain request fails and the
// browser fallback is enabled, retries once through a headless browser.
func (f *Fetcher) FetchWithFallback(ctx context.Context, targetURL, waitSelector string) (string, error) {
	html, err := f.Fetch(ctx, targetURL)
	if err == nil {
		return html, nil
	}

	if !f.config.BrowserFallback {
		return "", err
	}

	log.Warn().Err(err).Str("url", targetURL).Msg("HTTP fetch failed, trying browser")

	browser, berr := f.getBrowser()
	if berr != nil {
		log.Error().Err(berr).Msg("Failed to get browser instance")
		return "", err
	}

	html, berr = browser.FetchRenderedHTML(ctx, targetURL, waitSelector)
	if berr != nil {
		return "", fmt.Errorf("browser fallback failed: %w", berr)
	}
	return html, nil
}

// fetch performs a single HTTP request
func (f *Fetcher) fetch(ctx context.Context, targetURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request error: %w", err)
	}

	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-TW,zh;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Connection", "keep-alive")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	log.Debug().
		Int("status", resp.StatusCode).
		Str("url", targetURL).
		Msg("HTTP response")

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body error: %w", err)
	}

	return string(body), nil
}

// getBrowser returns the browser instance, creating it if necessary
func (f *Fetcher) getBrowser() (*Browser, error) {
	f.browserMu.Lock()
	defer f.browserMu.Unlock()

	if f.browser == nil {
		browser, err := NewBrowser()
		if err != nil {
			return nil, err
		}
		f.browser = browser
	}

	return f.browser, nil
}

// Close releases fetcher resources
func (f *Fetcher) Close() error {
	f.browserMu.Lock()
	defer f.browserMu.Unlock()

	if f.browser != nil {
		return f.browser.Close()
	}
	return nil
}
