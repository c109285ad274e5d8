package domain

import (
	"errors"
	"fmt"
)

// Local validation failures. These never reach a provider.
var (
	ErrPasswordTooShort = &ValidationError{Field: "password", Message: fmt.Sprintf("must be at least %d characters long", MinPasswordLen)}
	ErrPasswordMismatch = &ValidationError{Field: "confirm", Message: "passwords do not match"}
	ErrEmailRequired    = &ValidationError{Field: "email", Message: "is required"}
	ErrEmailMalformed   = &ValidationError{Field: "email", Message: "is not a valid address"}
	ErrInviteRequired   = &ValidationError{Field: "invite", Message: "please enter an invite code"}
	ErrEmptyName        = &ValidationError{Field: "name", Message: "cannot be empty"}
	ErrEmptyText        = &ValidationError{Field: "text", Message: "cannot be empty"}
)

// Provider rejections.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailInUse         = errors.New("email already in use")
	ErrInviteInvalid      = errors.New("invalid or already used invite code")
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("resource conflict")
	ErrUnauthenticated    = errors.New("not signed in")
)

// ValidationError represents a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ProviderError wraps a failure returned by the auth provider or database
// that has no more specific meaning here.
type ProviderError struct {
	Op    string
	Cause error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: provider error: %v", e.Op, e.Cause)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// PartialRegistrationError means the account exists but a later registration
// step (display name or invite consumption) failed. It is left unresolved.
type PartialRegistrationError struct {
	User  User
	Step  string
	Cause error
}

func (e *PartialRegistrationError) Error() string {
	return fmt.Sprintf("account %s created but %s failed: %v", e.User.Email, e.Step, e.Cause)
}

func (e *PartialRegistrationError) Unwrap() error { return e.Cause }

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
