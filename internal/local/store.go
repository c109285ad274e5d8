package local

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/naveenspark/talk/internal/live"
	"github.com/naveenspark/talk/pkg/domain"
)

const channelsTopic = "channels"

func messagesTopic(channelID string) string {
	return "channels/" + channelID + "/messages"
}

// GetInvite returns domain.ErrNotFound for an unknown code.
func (b *Backend) GetInvite(ctx context.Context, code string) (*domain.InviteCode, error) {
	var inv inviteCode
	err := b.db.WithContext(ctx).First(&inv, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("local.GetInvite: %w", err)
	}
	return &domain.InviteCode{Code: inv.Code, DisplayName: inv.DisplayName, Used: inv.Used}, nil
}

// ConsumeInvite marks code used in a single conditional update. Exactly one
// caller can win.
func (b *Backend) ConsumeInvite(ctx context.Context, code string) error {
	res := b.db.WithContext(ctx).
		Model(&inviteCode{}).
		Where("code = ? AND used = ?", code, false).
		Update("used", true)
	if res.Error != nil {
		return fmt.Errorf("local.ConsumeInvite: %w", res.Error)
	}
	if res.RowsAffected != 1 {
		return domain.ErrInviteInvalid
	}
	return nil
}

// AddInvite seeds an unused invite code.
func (b *Backend) AddInvite(ctx context.Context, code, displayName string) (domain.InviteCode, error) {
	code = strings.TrimSpace(code)
	displayName = strings.TrimSpace(displayName)
	if code == "" {
		return domain.InviteCode{}, domain.ErrInviteRequired
	}
	if displayName == "" {
		return domain.InviteCode{}, domain.ErrEmptyName
	}
	inv := inviteCode{Code: code, DisplayName: displayName, CreatedAt: b.now()}
	if err := b.db.WithContext(ctx).Create(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.InviteCode{}, domain.ErrConflict
		}
		return domain.InviteCode{}, fmt.Errorf("local.AddInvite: %w", err)
	}
	return domain.InviteCode{Code: inv.Code, DisplayName: inv.DisplayName}, nil
}

// ListInvites returns every invite code, oldest first.
func (b *Backend) ListInvites(ctx context.Context) ([]domain.InviteCode, error) {
	var rows []inviteCode
	if err := b.db.WithContext(ctx).Order("created_at ASC, code ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("local.ListInvites: %w", err)
	}
	out := make([]domain.InviteCode, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.InviteCode{Code: r.Code, DisplayName: r.DisplayName, Used: r.Used})
	}
	return out, nil
}

// CreateChannel stores a channel stamped with the commit time.
func (b *Backend) CreateChannel(ctx context.Context, name string) (domain.Channel, error) {
	c := channel{ID: uuid.NewString(), Name: name, CreatedAt: b.now()}
	if err := b.db.WithContext(ctx).Create(&c).Error; err != nil {
		return domain.Channel{}, fmt.Errorf("local.CreateChannel: %w", err)
	}
	b.notify.Notify(channelsTopic)
	return domain.Channel{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt}, nil
}

// WatchChannels streams every channel, oldest first.
func (b *Backend) WatchChannels(ctx context.Context) *live.Feed[domain.Channel] {
	return watch(ctx, b, channelsTopic, func(ctx context.Context) ([]domain.Channel, error) {
		var rows []channel
		if err := b.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("local.WatchChannels: %w", err)
		}
		out := make([]domain.Channel, 0, len(rows))
		for _, r := range rows {
			out = append(out, domain.Channel{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt})
		}
		return out, nil
	})
}

// CreateMessage stores m stamped with the commit time.
func (b *Backend) CreateMessage(ctx context.Context, m domain.Message) (domain.Message, error) {
	row := message{
		ID:          uuid.NewString(),
		ChannelID:   m.ChannelID,
		Text:        m.Text,
		UID:         m.UID,
		DisplayName: m.DisplayName,
		CreatedAt:   b.now(),
	}
	if err := b.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Message{}, fmt.Errorf("local.CreateMessage: %w", err)
	}
	b.notify.Notify(messagesTopic(m.ChannelID))
	return row.toDomain(), nil
}

// WatchMessages streams the newest limit messages of channelID, oldest first.
func (b *Backend) WatchMessages(ctx context.Context, channelID string, limit int) *live.Feed[domain.Message] {
	return watch(ctx, b, messagesTopic(channelID), func(ctx context.Context) ([]domain.Message, error) {
		var rows []message
		err := b.db.WithContext(ctx).
			Where("channel_id = ?", channelID).
			Order("created_at DESC, id DESC").
			Limit(limit).
			Find(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("local.WatchMessages: %w", err)
		}
		slices.Reverse(rows)
		out := make([]domain.Message, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.toDomain())
		}
		return out, nil
	})
}

func watch[T any](ctx context.Context, b *Backend, topic string, fetch func(context.Context) ([]T, error)) *live.Feed[T] {
	wake, unsubscribe := b.notify.Subscribe(topic)
	f := live.Poll(ctx, live.Options{Interval: b.interval, Wake: wake}, func(ctx context.Context) ([]T, error) {
		items, err := fetch(ctx)
		if err != nil && ctx.Err() == nil {
			b.logger.Warn("watch query failed", "topic", topic, "error", err)
		}
		return items, err
	})
	go func() {
		<-f.Done()
		unsubscribe()
	}()
	return f
}

func (m message) toDomain() domain.Message {
	return domain.Message{
		ID:          m.ID,
		ChannelID:   m.ChannelID,
		Text:        m.Text,
		UID:         m.UID,
		DisplayName: m.DisplayName,
		CreatedAt:   m.CreatedAt,
	}
}
