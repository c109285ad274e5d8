package tui

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/talk/internal/chat"
	"github.com/naveenspark/talk/pkg/domain"
)

type loginMode int

const (
	modeSignIn loginMode = iota
	modeRegister
)

type loginOp int

const (
	opSignIn loginOp = iota
	opPrecheck
	opRegister
	opReset
)

const (
	fieldEmail = iota
	fieldPassword
	fieldConfirm
)

// loginResultMsg carries the outcome of a sign-in, registration or reset call.
type loginResultMsg struct {
	op   loginOp
	user domain.User
	err  error
}

// loginModel is the signed-out surface: sign in, register with an invite
// code, or request a password reset.
type loginModel struct {
	session    *chat.Session
	registrar  *chat.Registrar
	mode       loginMode
	inputs     []textinput.Model
	cursor     int
	invite     textinput.Model
	inviteOpen bool
	busy       bool
	timeout    time.Duration
	width      int
	height     int
}

func newLoginModel(s *chat.Session, r *chat.Registrar) loginModel {
	newInput := func(placeholder string, password bool) textinput.Model {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.CharLimit = 256
		ti.Width = 36
		ti.Prompt = ""
		if password {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		return ti
	}

	m := loginModel{
		session:   s,
		registrar: r,
		inputs: []textinput.Model{
			newInput("you@example.com", false),
			newInput("password", true),
			newInput("confirm password", true),
		},
		invite: newInput("invite code", false),
	}
	m.inputs[fieldEmail].Focus()
	return m
}

func (m loginModel) Init() tea.Cmd {
	return textinput.Blink
}

// fields returns the number of inputs visible in the current mode.
func (m loginModel) fields() int {
	if m.mode == modeRegister {
		return 3
	}
	return 2
}

func (m loginModel) value(field int) string {
	return m.inputs[field].Value()
}

func (m loginModel) signIn() tea.Cmd {
	s, timeout := m.session, m.timeout
	email, password := strings.TrimSpace(m.value(fieldEmail)), m.value(fieldPassword)
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := callContext(timeout)
		defer cancel()
		u, err := s.SignIn(ctx, email, password)
		return loginResultMsg{op: opSignIn, user: u, err: err}
	}
}

func (m loginModel) precheck() tea.Cmd {
	r, timeout := m.registrar, m.timeout
	email, password, confirm := m.value(fieldEmail), m.value(fieldPassword), m.value(fieldConfirm)
	if r == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := callContext(timeout)
		defer cancel()
		err := r.Precheck(ctx, email, password, confirm)
		return loginResultMsg{op: opPrecheck, err: err}
	}
}

func (m loginModel) register() tea.Cmd {
	r, timeout := m.registrar, m.timeout
	req := chat.RegisterRequest{
		Email:      m.value(fieldEmail),
		Password:   m.value(fieldPassword),
		Confirm:    m.value(fieldConfirm),
		InviteCode: m.invite.Value(),
	}
	if r == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := callContext(timeout)
		defer cancel()
		u, err := r.Register(ctx, req)
		return loginResultMsg{op: opRegister, user: u, err: err}
	}
}

func (m loginModel) sendReset() tea.Cmd {
	s, timeout := m.session, m.timeout
	email := strings.TrimSpace(m.value(fieldEmail))
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := callContext(timeout)
		defer cancel()
		err := s.SendPasswordReset(ctx, email)
		return loginResultMsg{op: opReset, err: err}
	}
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loginResultMsg:
		m.busy = false
		return m.handleResult(msg)

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		if m.inviteOpen {
			return m.updateInvite(msg)
		}
		return m.updateForm(msg)
	}

	// Cursor blink and other input housekeeping.
	var cmd tea.Cmd
	if m.inviteOpen {
		m.invite, cmd = m.invite.Update(msg)
	} else {
		m.inputs[m.cursor], cmd = m.inputs[m.cursor].Update(msg)
	}
	return m, cmd
}

func (m loginModel) handleResult(msg loginResultMsg) (loginModel, tea.Cmd) {
	switch msg.op {
	case opPrecheck:
		if msg.err != nil {
			return m, errorToast(msg.err)
		}
		m.inviteOpen = true
		m.invite.SetValue("")
		m.inputs[m.cursor].Blur()
		m.invite.Focus()
		return m, textinput.Blink

	case opRegister:
		var partial *domain.PartialRegistrationError
		if msg.err != nil && !errors.As(msg.err, &partial) {
			return m, errorToast(msg.err)
		}
		m.inviteOpen = false
		if msg.err != nil {
			return m, errorToast(msg.err)
		}
		return m, showToast("welcome, "+msg.user.Label(), false)

	case opReset:
		if msg.err != nil {
			return m, errorToast(msg.err)
		}
		return m, showToast("password reset email sent to "+strings.TrimSpace(m.value(fieldEmail)), false)

	default:
		if msg.err != nil {
			return m, errorToast(msg.err)
		}
		return m, nil
	}
}

func (m loginModel) updateForm(msg tea.KeyMsg) (loginModel, tea.Cmd) {
	switch msg.String() {
	case "ctrl+r":
		if m.mode == modeSignIn {
			m.mode = modeRegister
		} else {
			m.mode = modeSignIn
			m.inputs[fieldConfirm].SetValue("")
			if m.cursor == fieldConfirm {
				m = m.focusField(fieldPassword)
			}
		}
		return m, nil

	case "ctrl+f":
		m.busy = m.session != nil
		return m, m.sendReset()

	case "tab", "down":
		return m.focusField((m.cursor + 1) % m.fields()), nil

	case "shift+tab", "up":
		return m.focusField((m.cursor + m.fields() - 1) % m.fields()), nil

	case "enter":
		if m.cursor < m.fields()-1 && m.value(m.cursor) == "" {
			return m.focusField(m.cursor + 1), nil
		}
		if m.mode == modeRegister {
			m.busy = m.registrar != nil
			return m, m.precheck()
		}
		m.busy = m.session != nil
		return m, m.signIn()
	}

	var cmd tea.Cmd
	m.inputs[m.cursor], cmd = m.inputs[m.cursor].Update(msg)
	return m, cmd
}

func (m loginModel) updateInvite(msg tea.KeyMsg) (loginModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.inviteOpen = false
		m.invite.Blur()
		m.inputs[m.cursor].Focus()
		return m, nil
	case "enter":
		if strings.TrimSpace(m.invite.Value()) == "" {
			return m, errorToast(domain.ErrInviteRequired)
		}
		m.busy = m.registrar != nil
		return m, m.register()
	}
	var cmd tea.Cmd
	m.invite, cmd = m.invite.Update(msg)
	return m, cmd
}

func (m loginModel) focusField(i int) loginModel {
	m.inputs[m.cursor].Blur()
	m.cursor = i
	m.inputs[m.cursor].Focus()
	return m
}

func (m loginModel) View() string {
	var b strings.Builder

	title := "Sign in"
	if m.mode == modeRegister {
		title = "Create an account"
	}
	b.WriteString("\n  " + sectionHeaderStyle.Render(title) + "\n\n")

	labels := []string{"email", "password", "confirm"}
	for i := 0; i < m.fields(); i++ {
		label := dimStyle.Render(padRight(labels[i], 10))
		if i == m.cursor && !m.inviteOpen {
			label = inputPromptStyle.Render(padRight(labels[i], 10))
		}
		b.WriteString("  " + label + m.inputs[i].View() + "\n")
	}

	b.WriteString("\n")
	if m.busy {
		b.WriteString("  " + dimStyle.Render("working...") + "\n")
	}

	form := b.String()
	if !m.inviteOpen {
		return form
	}

	modal := modalStyle.Render(
		sectionHeaderStyle.Render("Invite code") + "\n\n" +
			m.invite.View() + "\n\n" +
			metaStyle.Render("talk is invite only. Ask a member for a code."),
	)
	return form + lipgloss.PlaceHorizontal(m.width, lipgloss.Center, modal)
}

func (m loginModel) helpLine() string {
	if m.inviteOpen {
		return " " + helpEntry("enter", "join") + "  " + helpEntry("esc", "back") + "  " + helpEntry("ctrl+c", "quit")
	}
	submit, toggle := "sign in", "register"
	if m.mode == modeRegister {
		submit, toggle = "continue", "sign in instead"
	}
	return " " + helpEntry("enter", submit) + "  " + helpEntry("tab", "next field") + "  " + helpEntry("ctrl+r", toggle) +
		"  " + helpEntry("ctrl+f", "forgot password") + "  " + helpEntry("ctrl+c", "quit")
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}
