package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Story backend (persistence + generation)
	StoryAPIURL string
	StoryAPIKey string

	// Auth for this service
	EditorAPIKey string

	// Image upload collaborator
	UploadURL string
	UploadKey string

	// Editing behavior
	QuietPeriod  time.Duration
	HistoryLimit int

	// Persistence behavior
	SaveTimeout time.Duration

	// Generation artifact polling
	PollMaxAttempts int
	PollInterval    time.Duration

	// Import limits
	MaxUploadBytes       int64
	PDFFallbackPdftotext bool

	// Session lifecycle
	SessionTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		StoryAPIURL: envOr("STORY_API_URL", "http://localhost:8080"),
		StoryAPIKey: os.Getenv("STORY_API_KEY"),

		EditorAPIKey: os.Getenv("EDITOR_API_KEY"),

		UploadURL: envOr("UPLOAD_URL", "http://localhost:8085"),
		UploadKey: os.Getenv("UPLOAD_API_KEY"),

		QuietPeriod:  envDuration("QUIET_PERIOD", 1500*time.Millisecond),
		HistoryLimit: envInt("HISTORY_LIMIT", 100),

		SaveTimeout: envDuration("SAVE_TIMEOUT", 30*time.Second),

		PollMaxAttempts: envInt("POLL_MAX_ATTEMPTS", 30),
		PollInterval:    envDuration("POLL_INTERVAL", 2*time.Second),

		MaxUploadBytes:       envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		SessionTTL: envDuration("SESSION_TTL", 2*time.Hour),
	}

	if cfg.QuietPeriod <= 0 {
		cfg.QuietPeriod = 1500 * time.Millisecond
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 100
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = 30 * time.Second
	}
	if cfg.PollMaxAttempts <= 0 {
		cfg.PollMaxAttempts = 30
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.StoryAPIKey == "" {
		return fmt.Errorf("STORY_API_KEY is required")
	}
	if c.EditorAPIKey == "" {
		return fmt.Errorf("EDITOR_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
