package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// OpenLogger returns a JSON logger writing to c.LogFile. The terminal belongs
// to the TUI, so nothing is logged to stderr. Close the returned io.Closer on exit.
func (c Config) OpenLogger() (*slog.Logger, io.Closer, error) {
	if c.LogFile == "" {
		return slog.New(slog.NewJSONHandler(io.Discard, nil)), io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(c.LogFile), 0o700); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	h := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: c.LogLevel})
	return slog.New(h).With("app", "talk"), f, nil
}
