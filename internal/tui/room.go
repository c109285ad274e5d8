package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/talk/internal/chat"
	"github.com/naveenspark/talk/internal/live"
	"github.com/naveenspark/talk/pkg/domain"
)

// roomSnapshotMsg is one snapshot of a channel's message feed, tagged with the
// channel it was opened for.
type roomSnapshotMsg struct {
	channelID string
	feed      *live.Feed[domain.Message]
	snap      live.Snapshot[domain.Message]
}

type roomSendMsg struct {
	err error
}

type roomBlinkMsg struct{}

func roomBlinkCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(time.Time) tea.Msg {
		return roomBlinkMsg{}
	})
}

func waitMessages(channelID string, f *live.Feed[domain.Message]) tea.Cmd {
	if f == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-f.C()
		if !ok {
			return nil
		}
		return roomSnapshotMsg{channelID: channelID, feed: f, snap: s}
	}
}

// roomModel shows the selected channel and its composer. Scroll counts lines
// up from the bottom; 0 pins the newest message.
type roomModel struct {
	messages    *chat.MessageStream
	feed        *live.Feed[domain.Message]
	log         chat.MessageLog
	channelName string
	me          domain.User
	input       string
	sending     bool
	loaded      bool
	err         string
	scroll      int
	focused     bool
	blink       int
	blinking    bool
	timeout     time.Duration
	width       int
	height      int
}

func newRoomModel(s *chat.MessageStream) roomModel {
	return roomModel{messages: s}
}

// open switches the room to channelID. The previous feed is cancelled before
// the new one starts.
func (m roomModel) open(channelID string) (roomModel, tea.Cmd) {
	m.stop()
	m.log.Reset(channelID)
	m.channelName = ""
	m.loaded = false
	m.err = ""
	m.scroll = 0
	if channelID == "" || m.messages == nil {
		return m, nil
	}
	m.feed = m.messages.Watch(context.Background(), channelID)
	cmds := []tea.Cmd{waitMessages(channelID, m.feed)}
	if !m.blinking {
		m.blinking = true
		cmds = append(cmds, roomBlinkCmd())
	}
	return m, tea.Batch(cmds...)
}

func (m *roomModel) stop() {
	m.feed.Cancel()
	m.feed = nil
}

func (m roomModel) send(text string) tea.Cmd {
	s, timeout := m.messages, m.timeout
	channelID := m.log.ChannelID()
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := callContext(timeout)
		defer cancel()
		_, err := s.Send(ctx, channelID, text)
		return roomSendMsg{err: err}
	}
}

func (m roomModel) Update(msg tea.Msg) (roomModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case roomSnapshotMsg:
		// A feed for another channel, or one already replaced, is stale.
		if msg.channelID != m.log.ChannelID() || msg.feed != m.feed {
			return m, nil
		}
		if msg.snap.Err != nil {
			m.err = errorText(msg.snap.Err)
			return m, waitMessages(msg.channelID, m.feed)
		}
		m.err = ""
		m.loaded = true
		if m.log.Apply(msg.channelID, msg.snap.Items) {
			m.scroll = 0
		}
		return m, waitMessages(msg.channelID, m.feed)

	case roomSendMsg:
		m.sending = false
		if msg.err != nil {
			return m, errorToast(msg.err)
		}
		return m, nil

	case roomBlinkMsg:
		m.blink++
		return m, roomBlinkCmd()

	case tea.KeyMsg:
		return m.updateInput(msg)
	}
	return m, nil
}

func (m roomModel) updateInput(msg tea.KeyMsg) (roomModel, tea.Cmd) {
	m.blink = 0
	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(m.input)
		if text == "" || m.sending {
			return m, nil
		}
		if m.log.ChannelID() == "" {
			return m, showToast("pick a channel first", true)
		}
		m.input = ""
		m.sending = m.messages != nil
		return m, m.send(text)
	case "esc":
		m.input = ""
	case "up":
		m.scroll++
	case "down":
		if m.scroll > 0 {
			m.scroll--
		}
	case "pgup":
		m.scroll += m.viewportHeight()
	case "pgdown":
		m.scroll -= m.viewportHeight()
		if m.scroll < 0 {
			m.scroll = 0
		}
	case "end":
		m.scroll = 0
	default:
		m.input = editKey(m.input, msg)
	}
	return m, nil
}

// viewportHeight is the number of message lines: body minus title(2) and
// input(2).
func (m roomModel) viewportHeight() int {
	h := m.height - 4
	if h < 1 {
		h = 1
	}
	return h
}

func (m roomModel) View() string {
	var b strings.Builder

	title := m.channelName
	if title == "" && m.log.ChannelID() != "" {
		title = domain.Channel{ID: m.log.ChannelID()}.Label()
	}
	if title == "" {
		b.WriteString(" " + dimStyle.Render("no channel selected") + "\n\n")
	} else {
		b.WriteString(" " + selectedStyle.Render(title) + "\n\n")
	}

	height := m.viewportHeight()
	b.WriteString(m.renderMessages(height))
	b.WriteString("\n")
	b.WriteString(m.renderInput())
	return b.String()
}

// renderMessages renders the visible window of the log, bottom-anchored.
func (m roomModel) renderMessages(height int) string {
	var lines []string
	switch {
	case m.err != "":
		lines = []string{" " + errorStyle.Render(m.err)}
	case m.log.ChannelID() != "" && !m.loaded:
		lines = []string{" " + dimStyle.Render("loading...")}
	case m.log.ChannelID() != "" && m.log.Len() == 0:
		lines = []string{" " + chatSysStyle.Render("— no messages yet, say hello —")}
	default:
		for _, msg := range m.log.Items() {
			lines = append(lines, strings.Split(m.renderMessage(msg), "\n")...)
		}
	}

	// Clamp scroll so the top of the log is the furthest you can go back.
	maxScroll := len(lines) - height
	if maxScroll < 0 {
		maxScroll = 0
	}
	scroll := m.scroll
	if scroll > maxScroll {
		scroll = maxScroll
	}
	end := len(lines) - scroll
	start := end - height
	if start < 0 {
		start = 0
	}
	visible := lines[start:end]

	var b strings.Builder
	padLines(height-len(visible), &b)
	for _, l := range visible {
		b.WriteString(l + "\n")
	}
	return b.String()
}

func (m roomModel) renderMessage(msg domain.Message) string {
	self := msg.UID != "" && msg.UID == m.me.UID

	timePart := chatTimeStyle.Render(formatChatTime(msg.CreatedAt))
	name := msg.DisplayName
	if name == "" {
		name = "anonymous"
	}
	var namePart string
	if self {
		namePart = chatSelfNameStyle.Render(name)
	} else {
		namePart = senderStyle(msg.UID).Render(name)
	}
	sep := chatSepStyle.Render(" · ")

	textStyle := chatTextStyle
	if self {
		textStyle = chatSelfTextStyle
	}

	// " " + time + "  " + name + " · "
	prefixWidth := 1 + 8 + 2 + lipgloss.Width(namePart) + 3
	bodyWidth := m.width - prefixWidth
	if bodyWidth < 20 {
		bodyWidth = 20
	}
	wrapped := lipgloss.NewStyle().Width(bodyWidth).Render(msg.Text)
	lines := strings.Split(wrapped, "\n")

	result := " " + timePart + "  " + namePart + sep + textStyle.Render(strings.TrimRight(lines[0], " "))
	indent := strings.Repeat(" ", prefixWidth)
	for _, line := range lines[1:] {
		result += "\n" + indent + textStyle.Render(strings.TrimRight(line, " "))
	}
	return result
}

func (m roomModel) renderInput() string {
	placeholder := "say something..."
	if m.log.ChannelID() == "" {
		placeholder = "pick a channel to chat"
	}
	return renderChatInput(m.me.Label(), m.input, placeholder, m.focused, m.blink)
}

// padLines writes n blank lines to b.
func padLines(n int, b *strings.Builder) {
	for i := 0; i < n; i++ {
		b.WriteString("\n")
	}
}
