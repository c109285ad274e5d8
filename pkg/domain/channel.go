package domain

import (
	"sort"
	"time"
)

// MessageWindow is how many of the most recent messages a channel view holds.
const MessageWindow = 500

// Channel is a named conversation container.
type Channel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Label renders the channel as "#name", falling back to a short id.
func (c Channel) Label() string {
	if c.Name != "" {
		return "#" + c.Name
	}
	id := c.ID
	if len(id) > 6 {
		id = id[:6]
	}
	return "#" + id
}

// Message is a single immutable chat message. UID and DisplayName are a
// snapshot of the sender taken at send time.
type Message struct {
	ID          string    `json:"id"`
	ChannelID   string    `json:"channel_id"`
	Text        string    `json:"text"`
	UID         string    `json:"uid"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// SortChannels orders channels oldest first. Equal timestamps fall back to id.
func SortChannels(cs []Channel) {
	sort.SliceStable(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.Before(cs[j].CreatedAt)
		}
		return cs[i].ID < cs[j].ID
	})
}

// SortMessages orders messages oldest first. Equal timestamps fall back to id.
func SortMessages(ms []Message) {
	sort.SliceStable(ms, func(i, j int) bool {
		if !ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].CreatedAt.Before(ms[j].CreatedAt)
		}
		return ms[i].ID < ms[j].ID
	})
}

// LatestMessages sorts ms and keeps only the newest n.
func LatestMessages(ms []Message, n int) []Message {
	SortMessages(ms)
	if n > 0 && len(ms) > n {
		trimmed := make([]Message, n)
		copy(trimmed, ms[len(ms)-n:])
		return trimmed
	}
	return ms
}
