package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/naveenspark/talk/internal/live"
	"github.com/naveenspark/talk/pkg/domain"
)

// ChannelDirectory creates channels and watches the full list.
type ChannelDirectory struct {
	store  Store
	logger *slog.Logger
}

// NewChannelDirectory creates a directory backed by store.
func NewChannelDirectory(store Store, logger *slog.Logger) *ChannelDirectory {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChannelDirectory{store: store, logger: logger}
}

// Watch streams every channel. Cancel the feed when done.
func (d *ChannelDirectory) Watch(ctx context.Context) *live.Feed[domain.Channel] {
	return d.store.WatchChannels(ctx)
}

// Create adds a channel. Whitespace-only names are rejected without a write.
func (d *ChannelDirectory) Create(ctx context.Context, name string) (domain.Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Channel{}, domain.ErrEmptyName
	}
	ch, err := d.store.CreateChannel(ctx, name)
	if err != nil {
		d.logger.Warn("create channel failed", "op", "create-channel", "name", name, "error", err)
		return domain.Channel{}, &domain.ProviderError{Op: "create-channel", Cause: err}
	}
	return ch, nil
}

// ChannelList is the consumer view of a channel feed.
type ChannelList struct {
	items    []domain.Channel
	selected string
}

// Apply replaces the list with a snapshot. If nothing is selected and the list
// just went from empty to non-empty, the oldest channel is selected.
// It reports whether the selection changed.
func (l *ChannelList) Apply(items []domain.Channel) bool {
	wasEmpty := len(l.items) == 0
	next := make([]domain.Channel, len(items))
	copy(next, items)
	domain.SortChannels(next)
	l.items = next

	if l.selected == "" && wasEmpty && len(next) > 0 {
		l.selected = next[0].ID
		return true
	}
	return false
}

// Select makes id the selected channel. It reports whether the selection changed.
func (l *ChannelList) Select(id string) bool {
	if id == l.selected {
		return false
	}
	l.selected = id
	return true
}

// Selected returns the selected channel id, or "".
func (l *ChannelList) Selected() string { return l.selected }

// SelectedChannel returns the selected channel if it is in the current list.
func (l *ChannelList) SelectedChannel() (domain.Channel, bool) {
	i := l.Index(l.selected)
	if i < 0 {
		return domain.Channel{}, false
	}
	return l.items[i], true
}

// Index returns the position of id in the list, or -1.
func (l *ChannelList) Index(id string) int {
	if id == "" {
		return -1
	}
	for i, c := range l.items {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Items returns the channels oldest first.
func (l *ChannelList) Items() []domain.Channel { return l.items }

// Len returns the number of channels.
func (l *ChannelList) Len() int { return len(l.items) }
