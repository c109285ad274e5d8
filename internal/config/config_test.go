package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"TALK_BACKEND", "TALK_LOCAL_DSN", "TALK_POLL_INTERVAL", "TALK_REQUEST_TIMEOUT", "TALK_SESSION_FILE", "TALK_LOG_FILE", "TALK_LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Backend != BackendLocal {
		t.Errorf("Backend = %q, want %q", cfg.Backend, BackendLocal)
	}
	if want := filepath.Join(home, ".talk", "talk.db"); cfg.LocalDSN != want {
		t.Errorf("LocalDSN = %q, want %q", cfg.LocalDSN, want)
	}
	if want := filepath.Join(home, ".talk", "session"); cfg.SessionFile != want {
		t.Errorf("SessionFile = %q, want %q", cfg.SessionFile, want)
	}
	if cfg.PollInterval != 3*time.Second {
		t.Errorf("PollInterval = %v, want 3s", cfg.PollInterval)
	}
	if cfg.RequestTimeout != 15*time.Second {
		t.Errorf("RequestTimeout = %v, want 15s", cfg.RequestTimeout)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestLoadOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TALK_BACKEND", "Hosted")
	t.Setenv("TALK_API_KEY", "key")
	t.Setenv("TALK_PROJECT_ID", "talk-of-the-past")
	t.Setenv("TALK_POLL_INTERVAL", "500ms")
	t.Setenv("TALK_SESSION_FILE", "~/elsewhere/session")
	t.Setenv("TALK_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Backend != BackendHosted {
		t.Errorf("Backend = %q, want %q", cfg.Backend, BackendHosted)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("PollInterval = %v, want 500ms", cfg.PollInterval)
	}
	if want := filepath.Join(home, "elsewhere", "session"); cfg.SessionFile != want {
		t.Errorf("SessionFile = %q, want %q", cfg.SessionFile, want)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"hosted without key", map[string]string{"TALK_BACKEND": "hosted", "TALK_API_KEY": "", "TALK_PROJECT_ID": "p"}, "TALK_API_KEY"},
		{"hosted without project", map[string]string{"TALK_BACKEND": "hosted", "TALK_API_KEY": "k", "TALK_PROJECT_ID": ""}, "TALK_PROJECT_ID"},
		{"unknown backend", map[string]string{"TALK_BACKEND": "carrier-pigeon"}, "TALK_BACKEND"},
		{"bad duration", map[string]string{"TALK_POLL_INTERVAL": "soon"}, "TALK_POLL_INTERVAL"},
		{"negative timeout", map[string]string{"TALK_REQUEST_TIMEOUT": "-1s"}, "TALK_REQUEST_TIMEOUT"},
		{"bad level", map[string]string{"TALK_LOG_LEVEL": "loud"}, "TALK_LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestSessionFile(t *testing.T) {
	f := SessionFile{Path: filepath.Join(t.TempDir(), "nested", "session")}

	tok, err := f.Load()
	if err != nil {
		t.Fatalf("Load() on missing file error: %v", err)
	}
	if tok != "" {
		t.Errorf("Load() = %q, want empty", tok)
	}

	if err := f.Save("refresh-123"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	info, err := os.Stat(f.Path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
	tok, err = f.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tok != "refresh-123" {
		t.Errorf("Load() = %q, want %q", tok, "refresh-123")
	}
	if !f.Exists() {
		t.Error("Exists() = false after Save")
	}

	if err := f.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if f.Exists() {
		t.Error("Exists() = true after Clear")
	}
	if err := f.Clear(); err != nil {
		t.Errorf("second Clear() error: %v", err)
	}
}

func TestOpenLogger(t *testing.T) {
	cfg := Config{LogFile: filepath.Join(t.TempDir(), "logs", "talk.log"), LogLevel: slog.LevelInfo}
	logger, closer, err := cfg.OpenLogger()
	if err != nil {
		t.Fatalf("OpenLogger() error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown", "op", "test")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(cfg.LogFile)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if strings.Contains(got, "hidden") {
		t.Errorf("debug line written at info level: %s", got)
	}
	if !strings.Contains(got, `"msg":"shown"`) || !strings.Contains(got, `"op":"test"`) {
		t.Errorf("log = %s, want JSON line with msg and op", got)
	}
}
