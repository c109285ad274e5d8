package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/naveenspark/talk/pkg/domain"
)

// AuthResponse is returned by sign-up, sign-in and profile updates.
type AuthResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName,omitempty"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	Registered   bool   `json:"registered,omitempty"`
}

// Credentials converts the response, stamping expiry relative to now.
func (r AuthResponse) Credentials(now time.Time) domain.Credentials {
	return domain.Credentials{
		User:         domain.User{UID: r.LocalID, Email: r.Email, DisplayName: r.DisplayName},
		IDToken:      r.IDToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    expiry(now, r.ExpiresIn),
	}
}

// TokenResponse is returned by the refresh endpoint.
type TokenResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
	ProjectID    string `json:"project_id"`
}

// Credentials converts the response for user, stamping expiry relative to now.
func (r TokenResponse) Credentials(user domain.User, now time.Time) domain.Credentials {
	return domain.Credentials{
		User:         user,
		IDToken:      r.IDToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    expiry(now, r.ExpiresIn),
	}
}

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

// SignUp creates an email/password account and signs it in.
func (c *Client) SignUp(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	r := request{
		method: http.MethodPost,
		url:    c.keyed(c.authURL, "/accounts:signUp"),
		json:   passwordRequest{Email: email, Password: password, ReturnSecureToken: true},
	}
	if err := c.doRequest(ctx, r, &resp); err != nil {
		return nil, fmt.Errorf("client.SignUp: %w", err)
	}
	return &resp, nil
}

// SignInWithPassword exchanges email and password for tokens.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	r := request{
		method: http.MethodPost,
		url:    c.keyed(c.authURL, "/accounts:signInWithPassword"),
		json:   passwordRequest{Email: email, Password: password, ReturnSecureToken: true},
	}
	if err := c.doRequest(ctx, r, &resp); err != nil {
		return nil, fmt.Errorf("client.SignInWithPassword: %w", err)
	}
	return &resp, nil
}

// RefreshToken exchanges a refresh token for a new ID token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var resp TokenResponse
	r := request{
		method: http.MethodPost,
		url:    c.keyed(c.tokenURL, "/token"),
		form: url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {refreshToken},
		},
	}
	if err := c.doRequest(ctx, r, &resp); err != nil {
		return nil, fmt.Errorf("client.RefreshToken: %w", err)
	}
	return &resp, nil
}

// UpdateProfile sets the display name of the account that owns idToken.
func (c *Client) UpdateProfile(ctx context.Context, idToken, displayName string) (*AuthResponse, error) {
	var resp AuthResponse
	r := request{
		method: http.MethodPost,
		url:    c.keyed(c.authURL, "/accounts:update"),
		json: map[string]any{
			"idToken":           idToken,
			"displayName":       displayName,
			"returnSecureToken": false,
		},
	}
	if err := c.doRequest(ctx, r, &resp); err != nil {
		return nil, fmt.Errorf("client.UpdateProfile: %w", err)
	}
	return &resp, nil
}

// AuthURIResponse reports what an email is registered with.
type AuthURIResponse struct {
	Registered    bool     `json:"registered"`
	SignInMethods []string `json:"signinMethods"`
}

// CreateAuthURI looks up the sign-in methods registered for email.
func (c *Client) CreateAuthURI(ctx context.Context, email string) (*AuthURIResponse, error) {
	var resp AuthURIResponse
	r := request{
		method: http.MethodPost,
		url:    c.keyed(c.authURL, "/accounts:createAuthUri"),
		json: map[string]string{
			"identifier":  email,
			"continueUri": "http://localhost",
		},
	}
	if err := c.doRequest(ctx, r, &resp); err != nil {
		return nil, fmt.Errorf("client.CreateAuthURI: %w", err)
	}
	return &resp, nil
}

// SendPasswordReset mails a password reset link to email.
func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	r := request{
		method: http.MethodPost,
		url:    c.keyed(c.authURL, "/accounts:sendOobCode"),
		json: map[string]string{
			"requestType": "PASSWORD_RESET",
			"email":       email,
		},
	}
	if err := c.doRequest(ctx, r, nil); err != nil {
		return fmt.Errorf("client.SendPasswordReset: %w", err)
	}
	return nil
}

// IDClaims are the ID token claims talk reads.
type IDClaims struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// ParseIDToken decodes the claims of an ID token without verifying its
// signature. Only the profile fields are read.
func ParseIDToken(idToken string) (*IDClaims, error) {
	var claims IDClaims
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &claims); err != nil {
		return nil, fmt.Errorf("client.ParseIDToken: %w", err)
	}
	return &claims, nil
}

// User returns the account described by the claims.
func (c *IDClaims) User() domain.User {
	uid := c.UserID
	if uid == "" {
		uid = c.Subject
	}
	return domain.User{UID: uid, Email: c.Email, DisplayName: c.Name}
}

func expiry(now time.Time, expiresIn string) time.Time {
	secs, err := strconv.Atoi(expiresIn)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(secs) * time.Second)
}
