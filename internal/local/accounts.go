package local

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/naveenspark/talk/pkg/domain"
)

const issuer = "talk-local"

type idClaims struct {
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateAccount registers email with a bcrypt hash of password.
func (b *Backend) CreateAccount(ctx context.Context, email, password string) (domain.Credentials, error) {
	email = normalizeEmail(email)
	if utf8.RuneCountInString(password) < domain.MinPasswordLen {
		return domain.Credentials{}, domain.ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("local.CreateAccount: %w", err)
	}

	acc := account{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    b.now(),
	}
	if err := b.db.WithContext(ctx).Create(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.Credentials{}, domain.ErrEmailInUse
		}
		return domain.Credentials{}, fmt.Errorf("local.CreateAccount: %w", err)
	}
	b.logger.Info("account created", "uid", acc.UID)
	return b.issue(ctx, acc)
}

// SignIn checks password against the stored hash.
func (b *Backend) SignIn(ctx context.Context, email, password string) (domain.Credentials, error) {
	var acc account
	err := b.db.WithContext(ctx).First(&acc, "email = ?", normalizeEmail(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Credentials{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("local.SignIn: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
		return domain.Credentials{}, domain.ErrInvalidCredentials
	}
	return b.issue(ctx, acc)
}

// Refresh issues a new ID token for a stored refresh token.
func (b *Backend) Refresh(ctx context.Context, token string) (domain.Credentials, error) {
	var rt refreshToken
	err := b.db.WithContext(ctx).First(&rt, "token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Credentials{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("local.Refresh: %w", err)
	}

	var acc account
	err = b.db.WithContext(ctx).First(&acc, "uid = ?", rt.UID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Credentials{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("local.Refresh: %w", err)
	}
	idToken, expires, err := b.sign(acc)
	if err != nil {
		return domain.Credentials{}, err
	}
	return domain.Credentials{
		User:         acc.user(),
		IDToken:      idToken,
		RefreshToken: rt.Token,
		ExpiresAt:    expires,
	}, nil
}

// SetDisplayName names the account that owns idToken.
func (b *Backend) SetDisplayName(ctx context.Context, idToken, name string) error {
	u, err := b.VerifyIDToken(idToken)
	if err != nil {
		return err
	}
	res := b.db.WithContext(ctx).Model(&account{}).Where("uid = ?", u.UID).Update("display_name", name)
	if res.Error != nil {
		return fmt.Errorf("local.SetDisplayName: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SignInMethods returns ["password"] for a registered email.
func (b *Backend) SignInMethods(ctx context.Context, email string) ([]string, error) {
	var n int64
	if err := b.db.WithContext(ctx).Model(&account{}).Where("email = ?", normalizeEmail(email)).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("local.SignInMethods: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return []string{"password"}, nil
}

// SendPasswordReset has no mailer to hand the link to, so a request for a
// known account is only logged.
func (b *Backend) SendPasswordReset(ctx context.Context, email string) error {
	methods, err := b.SignInMethods(ctx, email)
	if err != nil {
		return err
	}
	if len(methods) == 0 {
		return domain.ErrNotFound
	}
	b.logger.Info("password reset requested", "email", normalizeEmail(email))
	return nil
}

// VerifyIDToken checks an ID token issued by this backend.
func (b *Backend) VerifyIDToken(idToken string) (domain.User, error) {
	var claims idClaims
	_, err := jwt.ParseWithClaims(idToken, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return b.key, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(b.now))
	if err != nil {
		return domain.User{}, domain.ErrUnauthenticated
	}
	return domain.User{UID: claims.UserID, Email: claims.Email, DisplayName: claims.Name}, nil
}

func (b *Backend) issue(ctx context.Context, acc account) (domain.Credentials, error) {
	idToken, expires, err := b.sign(acc)
	if err != nil {
		return domain.Credentials{}, err
	}
	rt := refreshToken{Token: uuid.NewString(), UID: acc.UID, CreatedAt: b.now()}
	if err := b.db.WithContext(ctx).Create(&rt).Error; err != nil {
		return domain.Credentials{}, fmt.Errorf("local.issue: %w", err)
	}
	return domain.Credentials{
		User:         acc.user(),
		IDToken:      idToken,
		RefreshToken: rt.Token,
		ExpiresAt:    expires,
	}, nil
}

func (b *Backend) sign(acc account) (string, time.Time, error) {
	now := b.now()
	expires := now.Add(idTokenTTL)
	claims := idClaims{
		Email:  acc.Email,
		Name:   acc.DisplayName,
		UserID: acc.UID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   acc.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("local.sign: %w", err)
	}
	return signed, expires, nil
}

func (a account) user() domain.User {
	return domain.User{UID: a.UID, Email: a.Email, DisplayName: a.DisplayName}
}
