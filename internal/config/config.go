package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config application configuration
type Config struct {
	// IMAP
	IMAPServer   string `env:"IMAP_SERVER" envDefault:"imap.gmail.com:993"`
	IMAPUsername string `env:"IMAP_USERNAME,required"`
	IMAPPassword string `env:"IMAP_PASSWORD,required"`
	IMAPMailbox  string `env:"IMAP_MAILBOX" envDefault:"[Gmail]/All Mail"`

	// Delivery endpoint (Google Apps Script web app)
	AppsScriptID      string `env:"APPS_SCRIPT_ID,required"`
	DriveBaseFolderID string `env:"DRIVE_BASE_FOLDER_ID,required"`

	// Fetching
	FetchBatchSize int           `env:"FETCH_BATCH_SIZE" envDefault:"20"`
	DialTimeout    time.Duration `env:"DIAL_TIMEOUT" envDefault:"30s"`
	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT" envDefault:"60s"`

	// Web server
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// Fetch log (duplicate-range ledger)
	FetchLogPath string `env:"FETCH_LOG_PATH" envDefault:"data/fetch_log.log"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.FetchBatchSize < 1 {
		return nil, fmt.Errorf("FETCH_BATCH_SIZE must be at least 1, got %d", cfg.FetchBatchSize)
	}

	return cfg, nil
}
