package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/talk/pkg/domain"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	quoteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	cmdStyle   = lipgloss.NewStyle().Bold(true)
	descStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	usedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	freeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ade80"))
)

var commands = []struct{ cmd, desc string }{
	{"talk", "Open the chat (interactive TUI)"},
	{"talk logout", "Forget the saved session"},
	{"talk invite add CODE NAME", "Create an invite (local backend)"},
	{"talk invite list", "List invites (local backend)"},
	{"talk console", "Open the hosted invite console"},
	{"talk --version", "Show version"},
	{"talk help", "You are here"},
}

func printHelp(w io.Writer) {
	title := titleStyle.Render("T A L K")
	quote := quoteStyle.Render(`"Talk of the past. Invite only."`)

	fmt.Fprintf(w, "\n  %s\n\n  %s\n\n  Commands:\n", title, quote)
	for _, c := range commands {
		fmt.Fprintf(w, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-28s", c.cmd)), descStyle.Render(c.desc))
	}
	env := descStyle.Render("Configure with TALK_BACKEND, TALK_API_KEY, TALK_PROJECT_ID or a .env file.")
	fmt.Fprintf(w, "\n  %s\n\n", env)
}

func printInvites(w io.Writer, invites []domain.InviteCode) {
	if len(invites) == 0 {
		fmt.Fprintln(w, "No invites yet. Add one with: talk invite add CODE NAME")
		return
	}
	for _, inv := range invites {
		status := freeStyle.Render("open")
		if inv.Used {
			status = usedStyle.Render("used")
		}
		fmt.Fprintf(w, "  %s  %-24s %s\n", cmdStyle.Render(fmt.Sprintf("%-16s", inv.Code)), inv.DisplayName, status)
	}
}
