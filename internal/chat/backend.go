// Package chat holds talk's client-side orchestration: the session, invite
// gated registration, and the channel and message views. Persistence and
// credential handling are delegated to an Accounts provider and a Store.
package chat

import (
	"context"

	"github.com/naveenspark/talk/internal/live"
	"github.com/naveenspark/talk/pkg/domain"
)

// Accounts is the auth provider.
//
// SignIn and Refresh return domain.ErrInvalidCredentials on rejection and
// CreateAccount returns domain.ErrEmailInUse when the address is taken.
type Accounts interface {
	CreateAccount(ctx context.Context, email, password string) (domain.Credentials, error)
	SignIn(ctx context.Context, email, password string) (domain.Credentials, error)
	Refresh(ctx context.Context, refreshToken string) (domain.Credentials, error)
	SetDisplayName(ctx context.Context, idToken, name string) error
	// SignInMethods lists the methods registered for email. Empty means the
	// address has no account.
	SignInMethods(ctx context.Context, email string) ([]string, error)
	SendPasswordReset(ctx context.Context, email string) error
}

// Store is the real-time document database.
type Store interface {
	// GetInvite returns domain.ErrNotFound for an unknown code.
	GetInvite(ctx context.Context, code string) (*domain.InviteCode, error)
	// ConsumeInvite flips used to true only if it is still false, and
	// returns domain.ErrInviteInvalid otherwise.
	ConsumeInvite(ctx context.Context, code string) error

	// CreateChannel assigns the id and creation timestamp.
	CreateChannel(ctx context.Context, name string) (domain.Channel, error)
	WatchChannels(ctx context.Context) *live.Feed[domain.Channel]

	// CreateMessage assigns the id and creation timestamp.
	CreateMessage(ctx context.Context, m domain.Message) (domain.Message, error)
	// WatchMessages streams the newest limit messages of a channel.
	WatchMessages(ctx context.Context, channelID string, limit int) *live.Feed[domain.Message]
}

// TokenStore persists the refresh token between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}
