// Package local is a self-contained talk backend stored with gorm, on SQLite
// by default or PostgreSQL when given a postgres:// URL. It implements both
// chat.Accounts and chat.Store.
package local

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/naveenspark/talk/internal/live"
)

const (
	signingSecretName = "id_token_signing_key"
	idTokenTTL        = time.Hour
)

// Options tune a Backend.
type Options struct {
	// PollInterval re-queries watches so writes from other processes show up.
	// Zero means only writes made through this Backend wake watches.
	PollInterval time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	Logger     *slog.Logger
}

// Backend is the local auth provider and document store.
type Backend struct {
	db       *gorm.DB
	notify   *live.Notifier
	interval time.Duration
	cost     int
	logger   *slog.Logger
	key      []byte
	now      func() time.Time
}

// IsPostgres reports whether dsn names a PostgreSQL database.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Open connects to dsn and migrates the schema.
func Open(dsn string, opts Options) (*Backend, error) {
	var dialector gorm.Dialector
	if IsPostgres(dsn) {
		dialector = postgres.Open(dsn)
	} else {
		if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
				return nil, fmt.Errorf("local.Open: create db dir: %w", err)
			}
		}
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("local.Open: %w", err)
	}
	if !IsPostgres(dsn) {
		// One writer at a time keeps SQLite from reporting busy.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("local.Open: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return New(db, opts)
}

// New wraps an open database and migrates the schema.
func New(db *gorm.DB, opts Options) (*Backend, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	b := &Backend{
		db:       db,
		notify:   live.NewNotifier(),
		interval: opts.PollInterval,
		cost:     opts.BcryptCost,
		logger:   opts.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	if err := b.migrate(); err != nil {
		return nil, err
	}
	key, err := b.signingKey()
	if err != nil {
		return nil, err
	}
	b.key = key
	return b, nil
}

func (b *Backend) migrate() error {
	models := []any{
		&account{},
		&refreshToken{},
		&inviteCode{},
		&channel{},
		&message{},
		&secret{},
	}
	for _, model := range models {
		if err := b.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("local.migrate %T: %w", model, err)
		}
	}
	return nil
}

// signingKey loads the ID token key, creating it on first use.
func (b *Backend) signingKey() ([]byte, error) {
	var s secret
	err := b.db.First(&s, "name = ?", signingSecretName).Error
	if err == nil {
		return s.Value, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("local.signingKey: %w", err)
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("local.signingKey: %w", err)
	}
	s = secret{Name: signingSecretName, Value: key}
	if err := b.db.Create(&s).Error; err != nil {
		// Another process created it first.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return b.signingKey()
		}
		return nil, fmt.Errorf("local.signingKey: %w", err)
	}
	return key, nil
}

// Close releases the database.
func (b *Backend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
