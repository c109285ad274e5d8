package tui

import (
	"fmt"
	"hash/fnv"
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Shimmer animation for the header title.
type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

// renderShimmerTitle renders "T A L K" as a slow wave of amber light.
// Deep umber (#3a2a12) -> bright amber (#f0b44c).
func renderShimmerTitle(frame int) string {
	const text = "TALK"
	n := len(text)

	var out string
	t := float64(frame)

	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)

		phase := t*0.1 - x*3.0
		phase += math.Sin(t*0.023) * 2.0

		b := math.Sin(phase)*0.5 + 0.5
		b = math.Pow(b, 1.3)

		tide := math.Sin(t*0.035) * 0.12
		b = b*0.75 + tide + 0.18

		if b > 1.0 {
			b = 1.0
		} else if b < 0.05 {
			b = 0.05
		}

		r := clampByte(58 + b*(240-58))
		g := clampByte(42 + b*(180-42))
		bl := clampByte(18 + b*(76-18))

		s := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", r, g, bl)))
		out += s.Render(string(text[i]))

		if i < n-1 {
			out += "  "
		}
	}

	return out
}

func clampByte(v float64) int {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

var (
	// Base styles
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c4d0"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f0b44c"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f87171"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ade80"))

	// Help bar
	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	borderColor = lipgloss.Color("#1e1e2a")

	selectedRowBg = lipgloss.NewStyle().Background(lipgloss.Color("#1e1e2a"))

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#8890a0")).
				Bold(true)

	// Forms
	inputPromptStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#f0b44c"))

	inputPlaceholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#505868")).
				Italic(true)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#f0b44c")).
			Padding(1, 2)

	// Chat
	chatSelfNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#f0b44c")).
				Bold(true)

	chatInputNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#f0b44c"))

	chatSelfTextStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#e4e4ec"))

	chatTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c4d0"))

	chatComposingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#e4e4ec"))

	chatSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	chatSysStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868")).
			Italic(true)

	chatTimeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))
)

// senderColors are assigned to other people's names by uid.
var senderColors = []lipgloss.Color{
	"#60a5fa",
	"#a78bfa",
	"#34d399",
	"#f472b6",
	"#facc15",
	"#38bdf8",
	"#fb923c",
}

// senderStyle returns a stable bold color for uid.
func senderStyle(uid string) lipgloss.Style {
	if uid == "" {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#8890a0")).Bold(true)
	}
	h := fnv.New32a()
	h.Write([]byte(uid)) //nolint:errcheck // hash writes never fail
	return lipgloss.NewStyle().Foreground(senderColors[h.Sum32()%uint32(len(senderColors))]).Bold(true)
}

// helpEntry renders a key/label pair for the help bar.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}
