package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/naveenspark/talk/internal/live"
	"github.com/naveenspark/talk/pkg/domain"
)

// callLog records calls across several fakes in the order they happen.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// fakeAccounts is an in-memory auth provider that records every call.
type fakeAccounts struct {
	mu        sync.Mutex
	calls     []string
	shared    *callLog
	passwords map[string]string
	users     map[string]domain.User
	refresh   map[string]string // refresh token -> email

	failCreate  error
	failName    error
	failMethods error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		passwords: map[string]string{},
		users:     map[string]domain.User{},
		refresh:   map[string]string{},
	}
}

func (f *fakeAccounts) record(call string) {
	f.calls = append(f.calls, call)
	f.shared.add(call)
}

func (f *fakeAccounts) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAccounts) add(email, password, name string) domain.User {
	u := domain.User{UID: fmt.Sprintf("uid-%d", len(f.users)+1), Email: email, DisplayName: name}
	f.users[email] = u
	f.passwords[email] = password
	return u
}

func (f *fakeAccounts) creds(email string) domain.Credentials {
	tok := "refresh-" + email
	f.refresh[tok] = email
	return domain.Credentials{
		User:         f.users[email],
		IDToken:      "id-" + email,
		RefreshToken: tok,
		ExpiresAt:    time.Now().Add(time.Hour),
	}
}

func (f *fakeAccounts) CreateAccount(_ context.Context, email, password string) (domain.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create:" + email)
	if f.failCreate != nil {
		return domain.Credentials{}, f.failCreate
	}
	if _, ok := f.users[email]; ok {
		return domain.Credentials{}, domain.ErrEmailInUse
	}
	f.add(email, password, "")
	return f.creds(email), nil
}

func (f *fakeAccounts) SignIn(_ context.Context, email, password string) (domain.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("signin:" + email)
	if pw, ok := f.passwords[email]; !ok || pw != password {
		return domain.Credentials{}, domain.ErrInvalidCredentials
	}
	return f.creds(email), nil
}

func (f *fakeAccounts) Refresh(_ context.Context, token string) (domain.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("refresh")
	email, ok := f.refresh[token]
	if !ok {
		return domain.Credentials{}, domain.ErrInvalidCredentials
	}
	return f.creds(email), nil
}

func (f *fakeAccounts) SetDisplayName(_ context.Context, idToken, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("name:" + name)
	if f.failName != nil {
		return f.failName
	}
	email := idToken[len("id-"):]
	u, ok := f.users[email]
	if !ok {
		return domain.ErrUnauthenticated
	}
	u.DisplayName = name
	f.users[email] = u
	return nil
}

func (f *fakeAccounts) SignInMethods(_ context.Context, email string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("methods:" + email)
	if f.failMethods != nil {
		return nil, f.failMethods
	}
	if _, ok := f.users[email]; ok {
		return []string{"password"}, nil
	}
	return nil, nil
}

func (f *fakeAccounts) SendPasswordReset(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("reset:" + email)
	if _, ok := f.users[email]; !ok {
		return domain.ErrNotFound
	}
	return nil
}

// fakeStore is an in-memory document store with push-style watches.
type fakeStore struct {
	mu       sync.Mutex
	calls    []string
	shared   *callLog
	// consumeToken is the ID token ConsumeInvite was called with.
	consumeToken string
	invites  map[string]*domain.InviteCode
	channels []domain.Channel
	messages map[string][]domain.Message
	notify   *live.Notifier
	clock    time.Time

	failConsume error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		invites:  map[string]*domain.InviteCode{},
		messages: map[string][]domain.Message{},
		notify:   live.NewNotifier(),
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *fakeStore) record(call string) {
	s.calls = append(s.calls, call)
	s.shared.add(call)
}

func (s *fakeStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *fakeStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *fakeStore) GetInvite(_ context.Context, code string) (*domain.InviteCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("get-invite:" + code)
	inv, ok := s.invites[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (s *fakeStore) ConsumeInvite(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("consume:" + code)
	s.consumeToken, _ = ctx.Value(idTokenKey{}).(string)
	if s.failConsume != nil {
		return s.failConsume
	}
	inv, ok := s.invites[code]
	if !ok || inv.Used {
		return domain.ErrInviteInvalid
	}
	inv.Used = true
	return nil
}

func (s *fakeStore) CreateChannel(_ context.Context, name string) (domain.Channel, error) {
	s.mu.Lock()
	c := domain.Channel{ID: fmt.Sprintf("ch-%d", len(s.channels)+1), Name: name, CreatedAt: s.tick()}
	s.channels = append(s.channels, c)
	s.record("create-channel:" + name)
	s.mu.Unlock()
	s.notify.Notify("channels")
	return c, nil
}

func (s *fakeStore) WatchChannels(ctx context.Context) *live.Feed[domain.Channel] {
	wake, unsubscribe := s.notify.Subscribe("channels")
	f := live.Poll(ctx, live.Options{Wake: wake}, func(context.Context) ([]domain.Channel, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return append([]domain.Channel(nil), s.channels...), nil
	})
	go func() {
		<-f.Done()
		unsubscribe()
	}()
	return f
}

func (s *fakeStore) CreateMessage(_ context.Context, m domain.Message) (domain.Message, error) {
	s.mu.Lock()
	m.ID = fmt.Sprintf("m-%d", len(s.messages[m.ChannelID])+1)
	m.CreatedAt = s.tick()
	s.messages[m.ChannelID] = append(s.messages[m.ChannelID], m)
	s.record("create-message:" + m.ChannelID)
	s.mu.Unlock()
	s.notify.Notify("messages/" + m.ChannelID)
	return m, nil
}

func (s *fakeStore) WatchMessages(ctx context.Context, channelID string, limit int) *live.Feed[domain.Message] {
	wake, unsubscribe := s.notify.Subscribe("messages/" + channelID)
	f := live.Poll(ctx, live.Options{Wake: wake}, func(context.Context) ([]domain.Message, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		ms := append([]domain.Message(nil), s.messages[channelID]...)
		return domain.LatestMessages(ms, limit), nil
	})
	go func() {
		<-f.Done()
		unsubscribe()
	}()
	return f
}

// memTokens is an in-memory TokenStore.
type memTokens struct {
	token   string
	cleared bool
}

func (m *memTokens) Load() (string, error) { return m.token, nil }
func (m *memTokens) Save(t string) error   { m.token = t; return nil }
func (m *memTokens) Clear() error          { m.token = ""; m.cleared = true; return nil }
