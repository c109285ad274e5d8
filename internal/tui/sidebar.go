package tui

import (
	"context"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/talk/internal/chat"
	"github.com/naveenspark/talk/internal/live"
	"github.com/naveenspark/talk/pkg/domain"
)

// channelsMsg carries one snapshot of the channel feed.
type channelsMsg struct {
	feed *live.Feed[domain.Channel]
	snap live.Snapshot[domain.Channel]
}

type channelCreatedMsg struct {
	channel domain.Channel
	err     error
}

type copyResultMsg struct {
	text string
	err  error
}

// copyToClipboard is swapped out in tests.
var copyToClipboard = clipboard.WriteAll

// waitChannels blocks for the next snapshot of f. A closed feed ends the loop.
func waitChannels(f *live.Feed[domain.Channel]) tea.Cmd {
	if f == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-f.C()
		if !ok {
			return nil
		}
		return channelsMsg{feed: f, snap: s}
	}
}

// sidebarModel lists the channels and owns the selection.
type sidebarModel struct {
	channels *chat.ChannelDirectory
	feed     *live.Feed[domain.Channel]
	list     chat.ChannelList
	cursor   int
	adding   bool
	draft    string
	loaded   bool
	err      string
	focused  bool
	timeout  time.Duration
	width    int
	height   int
}

func newSidebarModel(d *chat.ChannelDirectory) sidebarModel {
	return sidebarModel{channels: d}
}

// start opens the channel feed. It is a no-op without a directory.
func (m *sidebarModel) start() tea.Cmd {
	if m.channels == nil {
		return nil
	}
	m.feed = m.channels.Watch(context.Background())
	return waitChannels(m.feed)
}

func (m *sidebarModel) stop() {
	m.feed.Cancel()
	m.feed = nil
}

func (m sidebarModel) createChannel(name string) tea.Cmd {
	d, timeout := m.channels, m.timeout
	if d == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := callContext(timeout)
		defer cancel()
		ch, err := d.Create(ctx, name)
		return channelCreatedMsg{channel: ch, err: err}
	}
}

func (m sidebarModel) Update(msg tea.Msg) (sidebarModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case channelsMsg:
		if msg.feed != m.feed {
			return m, nil
		}
		if msg.snap.Err != nil {
			m.err = errorText(msg.snap.Err)
			return m, waitChannels(m.feed)
		}
		m.err = ""
		m.loaded = true
		m.list.Apply(msg.snap.Items)
		if i := m.list.Index(m.list.Selected()); i >= 0 && !m.focused {
			m.cursor = i
		}
		m.clampCursor()
		return m, waitChannels(m.feed)

	case channelCreatedMsg:
		if msg.err != nil {
			return m, errorToast(msg.err)
		}
		return m, showToast("created "+msg.channel.Label(), false)

	case copyResultMsg:
		if msg.err != nil {
			return m, showToast("copy failed: "+msg.err.Error(), true)
		}
		return m, showToast("copied "+msg.text, false)

	case tea.KeyMsg:
		if m.adding {
			return m.updateAdding(msg)
		}
		return m.updateNav(msg)
	}
	return m, nil
}

func (m sidebarModel) updateNav(msg tea.KeyMsg) (sidebarModel, tea.Cmd) {
	items := m.list.Items()
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(items)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		if len(items) > 0 {
			m.cursor = len(items) - 1
		}
	case "enter":
		if m.cursor < len(items) {
			m.list.Select(items[m.cursor].ID)
		}
	case "a":
		m.adding = true
		m.draft = ""
	case "y":
		if m.cursor < len(items) {
			id := items[m.cursor].ID
			return m, func() tea.Msg {
				return copyResultMsg{text: id, err: copyToClipboard(id)}
			}
		}
	}
	return m, nil
}

func (m sidebarModel) updateAdding(msg tea.KeyMsg) (sidebarModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.adding = false
		m.draft = ""
		return m, nil
	case "enter":
		name := strings.TrimSpace(m.draft)
		if name == "" {
			return m, errorToast(domain.ErrEmptyName)
		}
		m.adding = false
		m.draft = ""
		return m, m.createChannel(name)
	}
	m.draft = editKey(m.draft, msg)
	return m, nil
}

func (m *sidebarModel) clampCursor() {
	n := m.list.Len()
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m sidebarModel) View() string {
	var b strings.Builder
	b.WriteString(" " + sectionHeaderStyle.Render("Channels") + "\n\n")

	switch {
	case m.err != "":
		b.WriteString(" " + errorStyle.Render(truncStr(m.err, m.width-2)) + "\n")
	case !m.loaded:
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
	case m.list.Len() == 0:
		b.WriteString(" " + dimStyle.Render("no channels yet") + "\n")
		b.WriteString(" " + metaStyle.Render("press a to add one") + "\n")
	}

	selected := m.list.Selected()
	for i, ch := range m.list.Items() {
		marker := "  "
		if ch.ID == selected {
			marker = accentStyle.Render("› ")
		}
		name := truncStr(ch.Label(), m.width-4)
		var line string
		switch {
		case i == m.cursor && m.focused:
			line = selectedRowBg.Render(" " + marker + selectedStyle.Render(name))
		case ch.ID == selected:
			line = " " + marker + selectedStyle.Render(name)
		default:
			line = " " + marker + normalStyle.Render(name)
		}
		b.WriteString(line + "\n")
	}

	if m.adding {
		cursor := accentStyle.Render("█")
		b.WriteString("\n " + inputPromptStyle.Render("+ ") + chatComposingStyle.Render(truncStr(m.draft, m.width-5)) + cursor + "\n")
	}
	return b.String()
}
