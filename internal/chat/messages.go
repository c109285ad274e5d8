package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/naveenspark/talk/internal/live"
	"github.com/naveenspark/talk/pkg/domain"
)

// MessageStream watches and sends the messages of one channel at a time.
type MessageStream struct {
	store   Store
	session *Session
	logger  *slog.Logger
}

// NewMessageStream creates a stream that sends as the session's user.
func NewMessageStream(store Store, session *Session, logger *slog.Logger) *MessageStream {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageStream{store: store, session: session, logger: logger}
}

// Watch streams the newest domain.MessageWindow messages of channelID.
func (s *MessageStream) Watch(ctx context.Context, channelID string) *live.Feed[domain.Message] {
	return s.store.WatchMessages(ctx, channelID, domain.MessageWindow)
}

// Send posts text to channelID as the signed-in user. Whitespace-only text is
// rejected without a write.
func (s *MessageStream) Send(ctx context.Context, channelID, text string) (domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, domain.ErrEmptyText
	}
	user, ok := s.session.User()
	if !ok {
		return domain.Message{}, domain.ErrUnauthenticated
	}
	if channelID == "" {
		return domain.Message{}, domain.ErrNotFound
	}

	m, err := s.store.CreateMessage(ctx, domain.Message{
		ChannelID:   channelID,
		Text:        text,
		UID:         user.UID,
		DisplayName: user.Label(),
	})
	if err != nil {
		s.logger.Warn("send message failed", "op", "send", "channel", channelID, "error", err)
		return domain.Message{}, &domain.ProviderError{Op: "send", Cause: err}
	}
	return m, nil
}

// MessageLog is the consumer view of a message feed.
type MessageLog struct {
	channelID string
	items     []domain.Message
}

// Reset empties the log and binds it to channelID.
func (l *MessageLog) Reset(channelID string) {
	l.channelID = channelID
	l.items = nil
}

// ChannelID returns the channel the log is bound to.
func (l *MessageLog) ChannelID() string { return l.channelID }

// Apply replaces the log with a snapshot of channelID. Snapshots for any other
// channel are dropped; Apply reports whether the snapshot was taken.
func (l *MessageLog) Apply(channelID string, items []domain.Message) bool {
	if channelID != l.channelID {
		return false
	}
	next := make([]domain.Message, len(items))
	copy(next, items)
	l.items = domain.LatestMessages(next, domain.MessageWindow)
	return true
}

// Items returns the messages oldest first.
func (l *MessageLog) Items() []domain.Message { return l.items }

// Len returns the number of messages.
func (l *MessageLog) Len() int { return len(l.items) }
