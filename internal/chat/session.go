package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/naveenspark/talk/pkg/domain"
)

// Status is the coarse authentication state.
type Status int

const (
	// StatusIndeterminate is the state before the stored session is resolved.
	StatusIndeterminate Status = iota
	StatusSignedOut
	StatusSignedIn
)

func (s Status) String() string {
	switch s {
	case StatusSignedOut:
		return "signed-out"
	case StatusSignedIn:
		return "signed-in"
	default:
		return "indeterminate"
	}
}

// State is one auth transition. User is set only when signed in.
type State struct {
	Status Status
	User   domain.User
}

// refreshSkew renews ID tokens this long before they expire.
const refreshSkew = 30 * time.Second

// Session is the process-wide auth state. It is created once and passed to
// whoever needs it.
type Session struct {
	accounts Accounts
	tokens   TokenStore
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	state  State
	creds  domain.Credentials
	subs   map[int]chan State
	nextID int
}

// NewSession creates a session in the indeterminate state. tokens may be nil
// to disable persistence.
func NewSession(accounts Accounts, tokens TokenStore, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		accounts: accounts,
		tokens:   tokens,
		logger:   logger,
		now:      time.Now,
		subs:     make(map[int]chan State),
	}
}

// Start resolves the initial state from the stored refresh token.
func (s *Session) Start(ctx context.Context) State {
	token := ""
	if s.tokens != nil {
		t, err := s.tokens.Load()
		if err != nil {
			s.logger.Warn("load session", "error", err)
		}
		token = t
	}
	if token == "" {
		return s.transition(State{Status: StatusSignedOut}, domain.Credentials{})
	}

	creds, err := s.accounts.Refresh(ctx, token)
	if err != nil {
		s.logger.Info("restore session failed", "error", err)
		if errors.Is(err, domain.ErrInvalidCredentials) {
			s.clearTokens()
		}
		return s.transition(State{Status: StatusSignedOut}, domain.Credentials{})
	}
	s.saveTokens(creds.RefreshToken)
	return s.transition(State{Status: StatusSignedIn, User: creds.User}, creds)
}

// SignIn authenticates with email and password.
func (s *Session) SignIn(ctx context.Context, email, password string) (domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.User{}, domain.ErrEmailRequired
	}
	creds, err := s.accounts.SignIn(ctx, email, password)
	if err != nil {
		s.logger.Warn("sign in failed", "op", "sign-in", "error", err)
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return domain.User{}, domain.ErrInvalidCredentials
		}
		return domain.User{}, &domain.ProviderError{Op: "sign-in", Cause: err}
	}
	s.Adopt(creds)
	return creds.User, nil
}

// Adopt makes creds the signed-in session.
func (s *Session) Adopt(creds domain.Credentials) {
	s.saveTokens(creds.RefreshToken)
	s.transition(State{Status: StatusSignedIn, User: creds.User}, creds)
}

// SignOut always succeeds locally.
func (s *Session) SignOut() {
	s.clearTokens()
	s.transition(State{Status: StatusSignedOut}, domain.Credentials{})
}

// Refresh renews the ID token. Subscribers see a transition with the same user.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	refresh := s.creds.RefreshToken
	s.mu.Unlock()
	if refresh == "" {
		return domain.ErrUnauthenticated
	}

	creds, err := s.accounts.Refresh(ctx, refresh)
	if err != nil {
		s.logger.Warn("token refresh failed", "op", "refresh", "error", err)
		if errors.Is(err, domain.ErrInvalidCredentials) {
			s.SignOut()
			return domain.ErrInvalidCredentials
		}
		return &domain.ProviderError{Op: "refresh", Cause: err}
	}
	s.mu.Lock()
	if creds.User.DisplayName == "" {
		creds.User.DisplayName = s.creds.User.DisplayName
	}
	s.mu.Unlock()
	s.Adopt(creds)
	return nil
}

// SendPasswordReset asks the provider to mail a reset link.
func (s *Session) SendPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.ErrEmailRequired
	}
	if err := s.accounts.SendPasswordReset(ctx, email); err != nil {
		s.logger.Warn("password reset failed", "op", "password-reset", "error", err)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return &domain.ProviderError{Op: "password-reset", Cause: err}
	}
	return nil
}

// Current returns the latest state.
func (s *Session) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns the signed-in user, or false when signed out.
func (s *Session) User() (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.User, s.state.Status == StatusSignedIn
}

// IDToken returns the current ID token without renewing it.
func (s *Session) IDToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds.IDToken
}

type idTokenKey struct{}

// WithIDToken makes Token return idToken for calls made with the returned
// context. The registrar uses it to act as a new account before the session
// adopts it.
func WithIDToken(ctx context.Context, idToken string) context.Context {
	return context.WithValue(ctx, idTokenKey{}, idToken)
}

// Token returns an ID token valid for at least a little longer, renewing it
// first when it is about to expire. A token set with WithIDToken wins.
func (s *Session) Token(ctx context.Context) (string, error) {
	if tok, ok := ctx.Value(idTokenKey{}).(string); ok && tok != "" {
		return tok, nil
	}
	s.mu.Lock()
	creds := s.creds
	s.mu.Unlock()
	if creds.IDToken == "" {
		return "", domain.ErrUnauthenticated
	}
	if !creds.Expired(s.now().Add(refreshSkew)) {
		return creds.IDToken, nil
	}
	if err := s.Refresh(ctx); err != nil {
		return "", err
	}
	return s.IDToken(), nil
}

// BearerToken is Token for requests that are allowed while signed out, such
// as reading an invite before registering. With no session it returns "" and
// the request is sent without credentials.
func (s *Session) BearerToken(ctx context.Context) (string, error) {
	tok, err := s.Token(ctx)
	if errors.Is(err, domain.ErrUnauthenticated) {
		return "", nil
	}
	return tok, err
}

// Subscribe delivers the current state and then every transition. Delivery is
// latest-wins. Call cancel to stop; the channel is closed afterwards.
func (s *Session) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- s.state
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Session) transition(st State, creds domain.Credentials) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	s.creds = creds
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
	s.logger.Debug("session transition", "status", st.Status.String(), "uid", st.User.UID)
	return st
}

func (s *Session) saveTokens(refresh string) {
	if s.tokens == nil || refresh == "" {
		return
	}
	if err := s.tokens.Save(refresh); err != nil {
		s.logger.Warn("save session", "error", err)
	}
}

func (s *Session) clearTokens() {
	if s.tokens == nil {
		return
	}
	if err := s.tokens.Clear(); err != nil {
		s.logger.Warn("clear session", "error", err)
	}
}
