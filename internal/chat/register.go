package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/naveenspark/talk/pkg/domain"
)

// RegisterRequest is the registration form.
type RegisterRequest struct {
	Email      string
	Password   string
	Confirm    string
	InviteCode string
}

// Registrar creates invite-gated accounts.
type Registrar struct {
	accounts Accounts
	store    Store
	invites  *InviteValidator
	session  *Session
	validate *validator.Validate
	logger   *slog.Logger
}

// NewRegistrar wires a registrar. session may be nil, in which case the new
// account is not signed in.
func NewRegistrar(accounts Accounts, store Store, session *Session, logger *slog.Logger) *Registrar {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registrar{
		accounts: accounts,
		store:    store,
		invites:  NewInviteValidator(store),
		session:  session,
		validate: validator.New(),
		logger:   logger,
	}
}

// Precheck validates the password pair and the email, then asks the provider
// whether the email is taken. Checks run in order and stop at the first failure.
func (r *Registrar) Precheck(ctx context.Context, email, password, confirm string) error {
	if utf8.RuneCountInString(password) < domain.MinPasswordLen {
		return domain.ErrPasswordTooShort
	}
	if password != confirm {
		return domain.ErrPasswordMismatch
	}
	email = strings.TrimSpace(email)
	if err := r.validate.Var(email, "required"); err != nil {
		return domain.ErrEmailRequired
	}
	if err := r.validate.Var(email, "email"); err != nil {
		return domain.ErrEmailMalformed
	}

	methods, err := r.accounts.SignInMethods(ctx, email)
	if err != nil {
		r.logger.Warn("sign-in methods lookup failed", "op", "register", "error", err)
		return &domain.ProviderError{Op: "lookup-email", Cause: err}
	}
	if len(methods) > 0 {
		return domain.ErrEmailInUse
	}
	return nil
}

// Register runs the precheck and the invite check, then creates the account,
// names it after the invite payload, and consumes the invite, in that order.
//
// If anything after account creation fails the account is kept and a
// *domain.PartialRegistrationError is returned. The new account is signed in
// either way.
func (r *Registrar) Register(ctx context.Context, req RegisterRequest) (domain.User, error) {
	if err := r.Precheck(ctx, req.Email, req.Password, req.Confirm); err != nil {
		return domain.User{}, err
	}
	email := strings.TrimSpace(req.Email)
	code := strings.TrimSpace(req.InviteCode)

	invite, err := r.invites.Check(ctx, code)
	if err != nil {
		return domain.User{}, err
	}
	if !invite.Valid {
		return domain.User{}, domain.ErrInviteInvalid
	}

	creds, err := r.accounts.CreateAccount(ctx, email, req.Password)
	if err != nil {
		r.logger.Warn("create account failed", "op", "register", "email", email, "error", err)
		if errors.Is(err, domain.ErrEmailInUse) {
			return domain.User{}, domain.ErrEmailInUse
		}
		return domain.User{}, &domain.ProviderError{Op: "create-account", Cause: err}
	}

	if err := r.accounts.SetDisplayName(ctx, creds.IDToken, invite.DisplayName); err != nil {
		return r.partial(creds, "set display name", err)
	}
	creds.User.DisplayName = invite.DisplayName

	// The session has not adopted the account yet, so the store acts with its
	// ID token directly.
	if err := r.store.ConsumeInvite(WithIDToken(ctx, creds.IDToken), code); err != nil {
		return r.partial(creds, "consume invite", err)
	}

	if r.session != nil {
		r.session.Adopt(creds)
	}
	r.logger.Info("account registered", "uid", creds.User.UID, "invite", code)
	return creds.User, nil
}

func (r *Registrar) partial(creds domain.Credentials, step string, cause error) (domain.User, error) {
	r.logger.Error("partial registration", "op", "register", "uid", creds.User.UID, "step", step, "error", cause)
	if r.session != nil {
		r.session.Adopt(creds)
	}
	return creds.User, &domain.PartialRegistrationError{User: creds.User, Step: step, Cause: cause}
}
