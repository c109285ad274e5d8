package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/naveenspark/talk/pkg/domain"
)

// InviteStatus is the result of an invite lookup.
type InviteStatus struct {
	Valid       bool
	DisplayName string
}

// InviteValidator checks invite codes. It never writes.
type InviteValidator struct {
	store Store
}

// NewInviteValidator creates a validator backed by store.
func NewInviteValidator(store Store) *InviteValidator {
	return &InviteValidator{store: store}
}

// Check reports whether code exists and is unused. An absent code is not an
// error, just invalid.
func (v *InviteValidator) Check(ctx context.Context, code string) (InviteStatus, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return InviteStatus{}, domain.ErrInviteRequired
	}
	inv, err := v.store.GetInvite(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return InviteStatus{}, nil
	}
	if err != nil {
		return InviteStatus{}, &domain.ProviderError{Op: "check-invite", Cause: err}
	}
	if !inv.Usable() {
		return InviteStatus{}, nil
	}
	return InviteStatus{Valid: true, DisplayName: inv.DisplayName}, nil
}
