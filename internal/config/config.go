package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	DB      DBConfig
	Scraper ScraperConfig
	Ingest  IngestConfig
	Server  ServerConfig
	Notify  NotifyConfig
}

// DBConfig holds database configuration
type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"3306"`
	User     string `envconfig:"DB_USER" default:"root"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	Database string `envconfig:"DB_NAME" default:"moviebuddy"`
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"10"`
}

// ScraperConfig holds scraper configuration
type ScraperConfig struct {
	Enabled         bool          `envconfig:"SCRAPER_ENABLED" default:"true"`
	Interval        time.Duration `envconfig:"SCRAPER_INTERVAL" default:"6h"`
	RateLimit       float64       `envconfig:"SCRAPER_RATE_LIMIT" default:"2"`
	Timeout         time.Duration `envconfig:"SCRAPER_TIMEOUT" default:"30s"`
	MaxRetries      int           `envconfig:"SCRAPER_MAX_RETRIES" default:"3"`
	BatchSize       int           `envconfig:"SCRAPER_BATCH_SIZE" default:"5"`
	UserAgent       string        `envconfig:"SCRAPER_USER_AGENT"`
	ProxyURL        string        `envconfig:"SCRAPER_PROXY_URL"`
	BrowserFallback bool          `envconfig:"SCRAPER_BROWSER_FALLBACK" default:"false"`
}

// IngestConfig holds ingestion behavior configuration
type IngestConfig struct {
	// WipeOnEmpty allows the showtime delete phase to truncate the whole
	// table when zero movies resolve. Off by default: an empty scrape then
	// deletes nothing instead of everything.
	WipeOnEmpty bool `envconfig:"INGEST_WIPE_ON_EMPTY" default:"false"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          int    `envconfig:"SERVER_PORT" default:"8080"`
	ScraperSecret string `envconfig:"SCRAPER_SECRET" required:"true"`
}

// NotifyConfig holds Telegram notification configuration.
// Notifications are disabled when Token is empty.
type NotifyConfig struct {
	Token  string `envconfig:"NOTIFY_BOT_TOKEN"`
	ChatID int64  `envconfig:"NOTIFY_CHAT_ID" default:"0"`
}

// DSN returns the MySQL data source name
func (c *DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg.DB); err != nil {
		return nil, fmt.Errorf("failed to load db config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Scraper); err != nil {
		return nil, fmt.Errorf("failed to load scraper config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Ingest); err != nil {
		return nil, fmt.Errorf("failed to load ingest config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Server); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Notify); err != nil {
		return nil, fmt.Errorf("failed to load notify config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DB.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Server.ScraperSecret == "" {
		return fmt.Errorf("SCRAPER_SECRET is required")
	}
	if c.Scraper.RateLimit <= 0 {
		return fmt.Errorf("SCRAPER_RATE_LIMIT must be positive")
	}
	if c.Scraper.BatchSize <= 0 {
		return fmt.Errorf("SCRAPER_BATCH_SIZE must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535")
	}
	if c.Notify.Token != "" && c.Notify.ChatID == 0 {
		return fmt.Errorf("NOTIFY_CHAT_ID is required when NOTIFY_BOT_TOKEN is set")
	}
	return nil
}
