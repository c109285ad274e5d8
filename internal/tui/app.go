package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/talk/internal/chat"
)

// Services are the chat operations the TUI drives. Nil fields disable the
// matching feature, which keeps the models usable in tests.
type Services struct {
	Session   *chat.Session
	Registrar *chat.Registrar
	Channels  *chat.ChannelDirectory
	Messages  *chat.MessageStream
	// Timeout bounds each one-shot backend call. Zero means no deadline.
	Timeout   time.Duration
}

type focus int

const (
	focusSidebar focus = iota
	focusRoom
)

const (
	sidebarWidth = 26
	toastTimeout = 4 * time.Second
)

// sessionMsg carries a session state transition.
type sessionMsg struct {
	state chat.State
}

// toastMsg shows a transient line above the help bar.
type toastMsg struct {
	text  string
	isErr bool
}

type clearToastMsg struct {
	seq int
}

func showToast(text string, isErr bool) tea.Cmd {
	return func() tea.Msg { return toastMsg{text: text, isErr: isErr} }
}

func errorToast(err error) tea.Cmd {
	return showToast(errorText(err), true)
}

// App is the root Bubbletea model. It routes on the session state: a spinner
// while the session is resolving, the login surface when signed out and the
// channel sidebar plus room when signed in.
type App struct {
	svc      Services
	state    chat.State
	states   <-chan chat.State
	unsub    func()
	spinner  spinner.Model
	login    loginModel
	sidebar  sidebarModel
	room     roomModel
	focus    focus
	toast    string
	toastErr bool
	toastSeq int
	width    int
	height   int
	frame    int
}

// NewApp creates the TUI. It subscribes to svc.Session; call Close once the
// program exits.
func NewApp(svc Services) App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = accentStyle

	a := App{
		svc:     svc,
		spinner: s,
		focus:   focusRoom,
	}
	a.login = a.newLogin()
	a.sidebar = a.newSidebar()
	a.room = a.newRoom()
	if svc.Session != nil {
		a.states, a.unsub = svc.Session.Subscribe()
	}
	return a
}

// Close stops the session subscription and any live feeds.
func (a App) Close() {
	a.sidebar.stop()
	a.room.stop()
	if a.unsub != nil {
		a.unsub()
	}
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.spinner.Tick, shimmerTickCmd(), a.login.Init()}
	if a.svc.Session != nil {
		cmds = append(cmds, waitSession(a.states), startSession(a.svc.Session, a.svc.Timeout))
	}
	return tea.Batch(cmds...)
}

// startSession resolves the persisted session. The result arrives as a
// sessionMsg through the subscription.
func startSession(s *chat.Session, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := callContext(timeout)
		defer cancel()
		s.Start(ctx)
		return nil
	}
}

func (a App) newLogin() loginModel {
	m := newLoginModel(a.svc.Session, a.svc.Registrar)
	m.timeout = a.svc.Timeout
	return m
}

func (a App) newSidebar() sidebarModel {
	m := newSidebarModel(a.svc.Channels)
	m.timeout = a.svc.Timeout
	return m
}

func (a App) newRoom() roomModel {
	m := newRoomModel(a.svc.Messages)
	m.timeout = a.svc.Timeout
	return m
}

func waitSession(ch <-chan chat.State) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return sessionMsg{state: st}
	}
}

func signOut(s *chat.Session) tea.Cmd {
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		s.SignOut()
		return nil
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		a.login, _ = a.login.Update(tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 3})
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case spinner.TickMsg:
		if a.state.Status != chat.StatusIndeterminate {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case sessionMsg:
		cmd := a.applySession(msg.state)
		return a, tea.Batch(cmd, waitSession(a.states))

	case toastMsg:
		a.toastSeq++
		a.toast = msg.text
		a.toastErr = msg.isErr
		seq := a.toastSeq
		return a, tea.Tick(toastTimeout, func(time.Time) tea.Msg { return clearToastMsg{seq: seq} })

	case clearToastMsg:
		if msg.seq == a.toastSeq {
			a.toast = ""
		}
		return a, nil

	case loginResultMsg:
		var cmd tea.Cmd
		a.login, cmd = a.login.Update(msg)
		return a, cmd

	case channelsMsg, channelCreatedMsg, copyResultMsg:
		var cmd tea.Cmd
		a.sidebar, cmd = a.sidebar.Update(msg)
		return a, tea.Batch(cmd, a.followSelection())

	case roomSnapshotMsg, roomSendMsg, roomBlinkMsg:
		var cmd tea.Cmd
		a.room, cmd = a.room.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		}
		if a.state.Status != chat.StatusSignedIn {
			break
		}
		switch msg.String() {
		case "ctrl+o":
			return a, signOut(a.svc.Session)
		case "tab":
			a.setFocus(1 - a.focus)
			return a, nil
		case "q":
			if a.focus == focusSidebar && !a.sidebar.adding {
				return a, tea.Quit
			}
		}
		var cmd tea.Cmd
		if a.focus == focusSidebar {
			a.sidebar, cmd = a.sidebar.Update(msg)
			return a, tea.Batch(cmd, a.followSelection())
		}
		a.room, cmd = a.room.Update(msg)
		return a, cmd
	}

	if a.state.Status == chat.StatusSignedOut {
		var cmd tea.Cmd
		a.login, cmd = a.login.Update(msg)
		return a, cmd
	}
	return a, nil
}

// applySession reacts to a session transition. Feeds only run while signed in.
func (a *App) applySession(st chat.State) tea.Cmd {
	prev := a.state
	a.state = st

	switch st.Status {
	case chat.StatusSignedIn:
		a.room.me = st.User
		if prev.Status == chat.StatusSignedIn && prev.User.UID == st.User.UID {
			return nil
		}
		a.sidebar.stop()
		a.room.stop()
		a.sidebar = a.newSidebar()
		a.room = a.newRoom()
		a.room.me = st.User
		a.resize()
		a.setFocus(focusRoom)
		return a.sidebar.start()

	case chat.StatusSignedOut:
		a.sidebar.stop()
		a.room.stop()
		a.sidebar = a.newSidebar()
		a.room = a.newRoom()
		if prev.Status == chat.StatusSignedIn {
			a.login = a.newLogin()
			a.login, _ = a.login.Update(tea.WindowSizeMsg{Width: a.width, Height: a.height - 3})
		}
		return a.login.Init()
	}
	return nil
}

// followSelection points the room at the sidebar's selected channel.
func (a *App) followSelection() tea.Cmd {
	id := a.sidebar.list.Selected()
	if id == a.room.log.ChannelID() {
		return nil
	}
	var cmd tea.Cmd
	a.room, cmd = a.room.open(id)
	if ch, ok := a.sidebar.list.SelectedChannel(); ok {
		a.room.channelName = ch.Label()
	}
	return cmd
}

func (a *App) setFocus(f focus) {
	a.focus = f
	a.sidebar.focused = f == focusSidebar
	a.room.focused = f == focusRoom
}

func (a *App) resize() {
	// Chrome: header(2) + toast(1) + help(1)
	body := a.height - 4
	a.sidebar, _ = a.sidebar.Update(tea.WindowSizeMsg{Width: sidebarWidth, Height: body})
	a.room, _ = a.room.Update(tea.WindowSizeMsg{Width: a.width - sidebarWidth - 1, Height: body})
}

func (a App) View() string {
	switch a.state.Status {
	case chat.StatusIndeterminate:
		return a.centered(a.spinner.View() + " " + dimStyle.Render("restoring session..."))
	case chat.StatusSignedOut:
		return a.header("") + "\n" + a.login.View() + "\n" + a.toastLine() + "\n" + a.login.helpLine()
	}

	var help string
	if a.focus == focusSidebar {
		if a.sidebar.adding {
			help = " " + helpEntry("enter", "create") + "  " + helpEntry("esc", "cancel")
		} else {
			help = " " + helpEntry("j/k", "move") + "  " + helpEntry("enter", "open") + "  " + helpEntry("a", "add channel") +
				"  " + helpEntry("y", "copy id") + "  " + helpEntry("tab", "room") + "  " + helpEntry("q", "quit")
		}
	} else {
		help = " " + helpEntry("enter", "send") + "  " + helpEntry("pgup/pgdn", "scroll") + "  " + helpEntry("tab", "channels") +
			"  " + helpEntry("ctrl+o", "sign out")
	}

	bodyHeight := a.height - 4
	side := lipgloss.NewStyle().
		Width(sidebarWidth).
		Height(bodyHeight).
		BorderRight(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(borderColor).
		Render(strings.TrimRight(truncateToHeight(a.sidebar.View(), bodyHeight), "\n"))
	room := strings.TrimRight(truncateToHeight(a.room.View(), bodyHeight), "\n")
	body := lipgloss.JoinHorizontal(lipgloss.Top, side, room)

	return fmt.Sprintf("%s\n%s\n%s\n%s", a.header(a.state.User.Label()), body, a.toastLine(), help)
}

// header renders the title with the signed-in user on the right.
func (a App) header(user string) string {
	title := renderShimmerTitle(a.frame) + "  " + dimStyle.Render("of the past")
	if user == "" {
		return " " + title + "\n"
	}
	right := selectedStyle.Render(user) + "  " + helpEntry("ctrl+o", "sign out")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return " " + title + strings.Repeat(" ", gap) + right + "\n"
}

func (a App) toastLine() string {
	if a.toast == "" {
		return ""
	}
	if a.toastErr {
		return " " + errorStyle.Render("✗ "+a.toast)
	}
	return " " + successStyle.Render("✓ "+a.toast)
}

func (a App) centered(s string) string {
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, s)
}
