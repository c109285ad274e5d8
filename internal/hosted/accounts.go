// Package hosted implements chat.Accounts and chat.Store against the hosted
// backend's REST APIs.
package hosted

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/naveenspark/talk/pkg/client"
	"github.com/naveenspark/talk/pkg/domain"
)

// Provider codes that mean the credentials were rejected.
var rejectedCodes = []string{
	"INVALID_LOGIN_CREDENTIALS",
	"INVALID_PASSWORD",
	"EMAIL_NOT_FOUND",
	"INVALID_EMAIL",
	"USER_DISABLED",
	"USER_NOT_FOUND",
	"TOKEN_EXPIRED",
	"INVALID_REFRESH_TOKEN",
	"INVALID_ID_TOKEN",
	"invalid_grant",
}

// Accounts is the hosted auth provider.
type Accounts struct {
	c      *client.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewAccounts creates an auth provider over c.
func NewAccounts(c *client.Client, logger *slog.Logger) *Accounts {
	if logger == nil {
		logger = slog.Default()
	}
	return &Accounts{c: c, logger: logger, now: time.Now}
}

// CreateAccount signs up email and signs the new account in.
func (a *Accounts) CreateAccount(ctx context.Context, email, password string) (domain.Credentials, error) {
	resp, err := a.c.SignUp(ctx, email, password)
	if err != nil {
		if client.HasCode(err, "EMAIL_EXISTS") {
			return domain.Credentials{}, domain.ErrEmailInUse
		}
		return domain.Credentials{}, fmt.Errorf("hosted.CreateAccount: %w", err)
	}
	return resp.Credentials(a.now()), nil
}

// SignIn exchanges email and password for credentials.
func (a *Accounts) SignIn(ctx context.Context, email, password string) (domain.Credentials, error) {
	resp, err := a.c.SignInWithPassword(ctx, email, password)
	if err != nil {
		if client.HasCode(err, rejectedCodes...) {
			return domain.Credentials{}, domain.ErrInvalidCredentials
		}
		return domain.Credentials{}, fmt.Errorf("hosted.SignIn: %w", err)
	}
	return resp.Credentials(a.now()), nil
}

// Refresh renews the session. The profile is read from the new ID token.
func (a *Accounts) Refresh(ctx context.Context, refreshToken string) (domain.Credentials, error) {
	resp, err := a.c.RefreshToken(ctx, refreshToken)
	if err != nil {
		if client.HasCode(err, rejectedCodes...) {
			return domain.Credentials{}, domain.ErrInvalidCredentials
		}
		return domain.Credentials{}, fmt.Errorf("hosted.Refresh: %w", err)
	}

	user := domain.User{UID: resp.UserID}
	if claims, err := client.ParseIDToken(resp.IDToken); err != nil {
		a.logger.Warn("decode id token", "error", err)
	} else {
		user = claims.User()
	}
	return resp.Credentials(user, a.now()), nil
}

// SetDisplayName names the account that owns idToken.
func (a *Accounts) SetDisplayName(ctx context.Context, idToken, name string) error {
	if _, err := a.c.UpdateProfile(ctx, idToken, name); err != nil {
		return fmt.Errorf("hosted.SetDisplayName: %w", err)
	}
	return nil
}

// SignInMethods lists how email can sign in. Empty means no account.
func (a *Accounts) SignInMethods(ctx context.Context, email string) ([]string, error) {
	resp, err := a.c.CreateAuthURI(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("hosted.SignInMethods: %w", err)
	}
	if resp.Registered && len(resp.SignInMethods) == 0 {
		return []string{"password"}, nil
	}
	return resp.SignInMethods, nil
}

// SendPasswordReset mails a reset link.
func (a *Accounts) SendPasswordReset(ctx context.Context, email string) error {
	if err := a.c.SendPasswordReset(ctx, email); err != nil {
		if client.HasCode(err, "EMAIL_NOT_FOUND") {
			return domain.ErrNotFound
		}
		return fmt.Errorf("hosted.SendPasswordReset: %w", err)
	}
	return nil
}
