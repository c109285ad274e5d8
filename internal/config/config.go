// Package config loads talk's runtime configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend names accepted in TALK_BACKEND.
const (
	BackendLocal  = "local"
	BackendHosted = "hosted"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Backend string

	// Hosted backend.
	APIKey    string
	ProjectID string
	AuthURL   string
	TokenURL  string
	DBURL     string

	// Local backend: a sqlite path or a postgres:// URL.
	LocalDSN string

	PollInterval   time.Duration
	RequestTimeout time.Duration

	SessionFile string
	LogFile     string
	LogLevel    slog.Level
}

// Load reads configuration from the environment and an optional .env file,
// then validates it.
func Load() (Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	poll, err := getEnvDuration("TALK_POLL_INTERVAL", 3*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("parse TALK_POLL_INTERVAL: %w", err)
	}
	timeout, err := getEnvDuration("TALK_REQUEST_TIMEOUT", 15*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("parse TALK_REQUEST_TIMEOUT: %w", err)
	}
	level, err := parseLevel(getEnv("TALK_LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TALK_LOG_LEVEL: %w", err)
	}

	cfg := Config{
		Backend:        strings.ToLower(getEnv("TALK_BACKEND", BackendLocal)),
		APIKey:         getEnv("TALK_API_KEY", ""),
		ProjectID:      getEnv("TALK_PROJECT_ID", ""),
		AuthURL:        getEnv("TALK_AUTH_URL", "https://identitytoolkit.googleapis.com/v1"),
		TokenURL:       getEnv("TALK_TOKEN_URL", "https://securetoken.googleapis.com/v1"),
		DBURL:          getEnv("TALK_DB_URL", "https://firestore.googleapis.com/v1"),
		LocalDSN:       expandHome(getEnv("TALK_LOCAL_DSN", filepath.Join(Dir(), "talk.db"))),
		PollInterval:   poll,
		RequestTimeout: timeout,
		SessionFile:    expandHome(getEnv("TALK_SESSION_FILE", filepath.Join(Dir(), "session"))),
		LogFile:        expandHome(getEnv("TALK_LOG_FILE", filepath.Join(Dir(), "talk.log"))),
		LogLevel:       level,
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Backend {
	case BackendLocal:
		if c.LocalDSN == "" {
			return fmt.Errorf("TALK_LOCAL_DSN is required")
		}
	case BackendHosted:
		if c.APIKey == "" {
			return fmt.Errorf("TALK_API_KEY is required for the hosted backend")
		}
		if c.ProjectID == "" {
			return fmt.Errorf("TALK_PROJECT_ID is required for the hosted backend")
		}
	default:
		return fmt.Errorf("TALK_BACKEND must be %q or %q, got %q", BackendLocal, BackendHosted, c.Backend)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("TALK_POLL_INTERVAL must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("TALK_REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// Dir returns ~/.talk, or .talk when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".talk"
	}
	return filepath.Join(home, ".talk")
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return l, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(v)
}
