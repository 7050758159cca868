package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken string
	DatabaseURL   string
	SessionTTL    time.Duration
	SweepInterval time.Duration
	FetchTimeout  time.Duration
}

// Load reads configuration from a .env file (when present) and environment
// variables with sane defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SessionTTL:    parseDuration(os.Getenv("SESSION_TTL"), 30*time.Minute),
		SweepInterval: parseDuration(os.Getenv("SWEEP_INTERVAL"), 5*time.Minute),
		FetchTimeout:  parseDuration(os.Getenv("FETCH_TIMEOUT"), 5*time.Second),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "finance_bot.db"
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
