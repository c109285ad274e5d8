package tui

import (
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
)

// maxInputLen is the maximum number of runes allowed in chat and form inputs.
const maxInputLen = 2000

// editKey applies a keystroke to inline text: backspace removes the last
// rune, typed or pasted runes are appended. Other keys leave text unchanged.
// Input is clamped to maxInputLen runes.
func editKey(text string, msg tea.KeyMsg) string {
	switch msg.Type {
	case tea.KeyBackspace:
		if len(text) > 0 {
			runes := []rune(text)
			return string(runes[:len(runes)-1])
		}
		return text
	case tea.KeySpace:
		return appendRunes(text, []rune{' '})
	case tea.KeyRunes:
		if msg.Alt {
			return text
		}
		return appendRunes(text, msg.Runes)
	}
	return text
}

func appendRunes(text string, add []rune) string {
	room := maxInputLen - utf8.RuneCountInString(text)
	if room <= 0 {
		return text
	}
	if len(add) > room {
		add = add[:room]
	}
	return text + string(add)
}

// truncateToHeight limits output to maxLines newline-delimited lines.
// Returns the original string if it fits or maxLines is <= 0.
func truncateToHeight(s string, maxLines int) string {
	if maxLines <= 0 {
		return s
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
			if n >= maxLines {
				return s[:i+1]
			}
		}
	}
	return s
}

// renderChatInput renders the inline message input with a blinking cursor
// and a placeholder when empty.
func renderChatInput(name, input, placeholder string, focused bool, blinkFrame int) string {
	const timeIndent = "           " // " " + 8-char timestamp + "  "

	sep := chatSepStyle.Render(" · ")
	namePart := chatInputNameStyle.Render(name)
	if !focused {
		if input == "" {
			return timeIndent + namePart + sep + inputPlaceholderStyle.Render(placeholder)
		}
		return timeIndent + namePart + sep + dimStyle.Render(input)
	}
	cursor := " "
	if blinkFrame%2 == 0 {
		cursor = accentStyle.Render("█")
	}
	if input == "" {
		return timeIndent + namePart + sep + cursor
	}
	return timeIndent + namePart + sep + chatComposingStyle.Render(input) + cursor
}
