package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/naveenspark/talk/pkg/domain"
)

// formatTime renders a relative timestamp.
func formatTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// formatChatTime renders a message timestamp: clock time today, a date otherwise.
func formatChatTime(t time.Time) string {
	if t.IsZero() {
		return "        "
	}
	local := t.Local()
	now := time.Now()
	if local.YearDay() == now.YearDay() && local.Year() == now.Year() {
		return fmt.Sprintf("%8s", local.Format("15:04"))
	}
	return fmt.Sprintf("%8s", local.Format("Jan 02"))
}

// truncStr truncates a string to maxLen runes, appending an ellipsis if needed.
func truncStr(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + "…"
}

// errorText turns an operation error into a line fit for a toast.
func errorText(err error) string {
	var (
		verr    *domain.ValidationError
		partial *domain.PartialRegistrationError
		perr    *domain.ProviderError
	)
	switch {
	case errors.As(err, &partial):
		return "account created, but could not " + partial.Step + ": " + errorText(partial.Cause)
	case errors.As(err, &verr):
		switch verr.Field {
		case "invite", "confirm":
			return verr.Message
		}
		return verr.Field + " " + verr.Message
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "wrong email or password"
	case errors.Is(err, domain.ErrEmailInUse):
		return "that email is already registered"
	case errors.Is(err, domain.ErrInviteInvalid):
		return "invite code is invalid or already used"
	case errors.Is(err, domain.ErrNotFound):
		return "not found"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "sign in first"
	case errors.As(err, &perr):
		return "something went wrong (" + perr.Op + "), try again"
	}
	return strings.TrimSpace(err.Error())
}

// callContext bounds one backend call. Zero means no deadline.
func callContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}
