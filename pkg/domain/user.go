package domain

import "time"

// MinPasswordLen is the shortest password the auth provider accepts.
const MinPasswordLen = 6

// User is an account owned by the auth provider.
// DisplayName is assigned once at registration from the invite payload.
type User struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// Label returns the name shown next to the user's messages.
func (u User) Label() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// Credentials is what the auth provider hands back on sign-in, sign-up and refresh.
type Credentials struct {
	User         User      `json:"user"`
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the ID token is past its expiry at now.
func (c Credentials) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}
