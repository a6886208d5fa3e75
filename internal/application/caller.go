package application

import (
	"context"

	"github.com/dishpal/coupon-core/internal/domain/entity"
	repo "github.com/dishpal/coupon-core/internal/domain/repository"
)

// Caller is the authenticated identity behind a request. The zero value is anonymous.
// Privileges are never read from token claims; Authorizer loads the user record.
type Caller struct {
	UserID    int64
	SessionID string
}

func (c Caller) Anonymous() bool { return c.UserID == 0 }

// Authorizer answers privilege checks against the current user record.
type Authorizer struct {
	Users repo.UserRepository
}

func (a Authorizer) user(ctx context.Context, c Caller) *entity.User {
	if c.Anonymous() || a.Users == nil {
		return nil
	}
	u, err := a.Users.GetByID(ctx, c.UserID)
	if err != nil {
		return nil
	}
	return u
}

// IsAdmin reports whether the caller is staff or carries the admin role.
func (a Authorizer) IsAdmin(ctx context.Context, c Caller) bool {
	u := a.user(ctx, c)
	return u != nil && u.IsAdmin()
}

// IsGuest reports whether the caller is a guest account. Unknown callers count as guests.
func (a Authorizer) IsGuest(ctx context.Context, c Caller) bool {
	u := a.user(ctx, c)
	return u == nil || u.IsGuest
}
