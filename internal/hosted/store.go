package hosted

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/naveenspark/talk/internal/live"
	"github.com/naveenspark/talk/pkg/client"
	"github.com/naveenspark/talk/pkg/domain"
)

// Document paths and field names.
const (
	invitesCollection  = "inviteCodes"
	channelsCollection = "channels"
	messagesCollection = "messages"

	fieldInviteName = "Display Name"
	fieldUsed       = "used"
	fieldName       = "name"
	fieldCreatedAt  = "createdAt"
	fieldText       = "text"
	fieldUID        = "uid"
	fieldAuthor     = "displayName"
)

// Store is the hosted document database. Watches poll the backend; writes made
// through this Store wake the matching watches right away.
type Store struct {
	c        *client.Client
	interval time.Duration
	logger   *slog.Logger
	notify   *live.Notifier
}

// NewStore creates a store whose watches re-query every interval.
func NewStore(c *client.Client, interval time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{c: c, interval: interval, logger: logger, notify: live.NewNotifier()}
}

func channelsTopic() string { return channelsCollection }
func messagesTopic(id string) string { return channelsCollection + "/" + id + "/" + messagesCollection }

// GetInvite reads inviteCodes/{code}.
func (s *Store) GetInvite(ctx context.Context, code string) (*domain.InviteCode, error) {
	doc, err := s.c.GetDocument(ctx, invitesCollection+"/"+url.PathEscape(code))
	if err != nil {
		if client.IsStatus(err, http.StatusNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("hosted.GetInvite: %w", err)
	}
	return decodeInvite(code, doc), nil
}

// ConsumeInvite flips used with a precondition on the document's last update
// time, so a concurrent consumer makes this commit fail.
func (s *Store) ConsumeInvite(ctx context.Context, code string) error {
	path := invitesCollection + "/" + url.PathEscape(code)
	doc, err := s.c.GetDocument(ctx, path)
	if err != nil {
		if client.IsStatus(err, http.StatusNotFound) {
			return domain.ErrInviteInvalid
		}
		return fmt.Errorf("hosted.ConsumeInvite: %w", err)
	}
	if !decodeInvite(code, doc).Usable() {
		return domain.ErrInviteInvalid
	}

	_, err = s.c.Commit(ctx, client.Write{
		Update: &client.Document{
			Name:   s.c.DocumentName(path),
			Fields: map[string]client.Value{fieldUsed: client.Bool(true)},
		},
		UpdateMask:      &client.DocumentMask{FieldPaths: []string{fieldUsed}},
		CurrentDocument: client.UpdatedAt(doc.UpdateTime),
	})
	if err != nil {
		if client.HasCode(err, "FAILED_PRECONDITION", "ABORTED") || client.IsStatus(err, http.StatusConflict) {
			s.logger.Warn("invite consumed concurrently", "code", code)
			return domain.ErrInviteInvalid
		}
		return fmt.Errorf("hosted.ConsumeInvite: %w", err)
	}
	return nil
}

// CreateChannel writes channels/{id} with a server timestamp.
func (s *Store) CreateChannel(ctx context.Context, name string) (domain.Channel, error) {
	id := uuid.NewString()
	at, err := s.create(ctx, channelsCollection+"/"+id, map[string]client.Value{
		fieldName: client.String(name),
	})
	if err != nil {
		return domain.Channel{}, fmt.Errorf("hosted.CreateChannel: %w", err)
	}
	s.notify.Notify(channelsTopic())
	return domain.Channel{ID: id, Name: name, CreatedAt: at}, nil
}

// WatchChannels polls every channel, oldest first.
func (s *Store) WatchChannels(ctx context.Context) *live.Feed[domain.Channel] {
	q := client.Query(channelsCollection, fieldCreatedAt, client.Ascending, 0)
	return watch(ctx, s, channelsTopic(), func(ctx context.Context) ([]domain.Channel, error) {
		docs, err := s.c.RunQuery(ctx, "", q)
		if err != nil {
			return nil, fmt.Errorf("hosted.WatchChannels: %w", err)
		}
		out := make([]domain.Channel, 0, len(docs))
		for _, d := range docs {
			out = append(out, decodeChannel(d))
		}
		domain.SortChannels(out)
		return out, nil
	})
}

// CreateMessage writes channels/{channelID}/messages/{id} with a server timestamp.
func (s *Store) CreateMessage(ctx context.Context, m domain.Message) (domain.Message, error) {
	m.ID = uuid.NewString()
	at, err := s.create(ctx, messagesTopic(m.ChannelID)+"/"+m.ID, map[string]client.Value{
		fieldText:   client.String(m.Text),
		fieldUID:    client.String(m.UID),
		fieldAuthor: client.String(m.DisplayName),
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("hosted.CreateMessage: %w", err)
	}
	m.CreatedAt = at
	s.notify.Notify(messagesTopic(m.ChannelID))
	return m, nil
}

// WatchMessages polls the newest limit messages of a channel. The backend is
// asked for them newest first and the result is put back in ascending order.
func (s *Store) WatchMessages(ctx context.Context, channelID string, limit int) *live.Feed[domain.Message] {
	q := client.Query(messagesCollection, fieldCreatedAt, client.Descending, limit)
	parent := channelsCollection + "/" + channelID
	return watch(ctx, s, messagesTopic(channelID), func(ctx context.Context) ([]domain.Message, error) {
		docs, err := s.c.RunQuery(ctx, parent, q)
		if err != nil {
			return nil, fmt.Errorf("hosted.WatchMessages: %w", err)
		}
		out := make([]domain.Message, 0, len(docs))
		for _, d := range docs {
			out = append(out, decodeMessage(channelID, d))
		}
		slices.Reverse(out)
		domain.SortMessages(out)
		return out, nil
	})
}

func (s *Store) create(ctx context.Context, path string, fields map[string]client.Value) (time.Time, error) {
	resp, err := s.c.Commit(ctx, client.Write{
		Update:           &client.Document{Name: s.c.DocumentName(path), Fields: fields},
		UpdateTransforms: []client.FieldTransform{client.ServerTimestamp(fieldCreatedAt)},
		CurrentDocument:  client.MustNotExist(),
	})
	if err != nil {
		if client.HasCode(err, "ALREADY_EXISTS") {
			return time.Time{}, domain.ErrConflict
		}
		return time.Time{}, err
	}
	if len(resp.WriteResults) > 0 && len(resp.WriteResults[0].TransformResults) > 0 {
		if at := resp.WriteResults[0].TransformResults[0].AsTime(); !at.IsZero() {
			return at, nil
		}
	}
	return client.Value{TimestampValue: &resp.CommitTime}.AsTime(), nil
}

func watch[T any](ctx context.Context, s *Store, topic string, fetch func(context.Context) ([]T, error)) *live.Feed[T] {
	wake, unsubscribe := s.notify.Subscribe(topic)
	f := live.Poll(ctx, live.Options{Interval: s.interval, Wake: wake}, func(ctx context.Context) ([]T, error) {
		items, err := fetch(ctx)
		if err != nil && ctx.Err() == nil {
			s.logger.Warn("watch query failed", "topic", topic, "error", err)
		}
		return items, err
	})
	go func() {
		<-f.Done()
		unsubscribe()
	}()
	return f
}

func decodeInvite(code string, d *client.Document) *domain.InviteCode {
	return &domain.InviteCode{
		Code:        code,
		DisplayName: d.Fields[fieldInviteName].AsString(),
		Used:        d.Fields[fieldUsed].AsBool(),
	}
}

func decodeChannel(d client.Document) domain.Channel {
	return domain.Channel{
		ID:        d.ID(),
		Name:      d.Fields[fieldName].AsString(),
		CreatedAt: d.Fields[fieldCreatedAt].AsTime(),
	}
}

func decodeMessage(channelID string, d client.Document) domain.Message {
	return domain.Message{
		ID:          d.ID(),
		ChannelID:   channelID,
		Text:        d.Fields[fieldText].AsString(),
		UID:         d.Fields[fieldUID].AsString(),
		DisplayName: d.Fields[fieldAuthor].AsString(),
		CreatedAt:   d.Fields[fieldCreatedAt].AsTime(),
	}
}
