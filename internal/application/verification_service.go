package application

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/dishpal/coupon-core/internal/domain/entity"
	repo "github.com/dishpal/coupon-core/internal/domain/repository"
	"github.com/dishpal/coupon-core/pkg/validation"
)

// issueVerification replaces the user's verification token and enqueues the email.
func (s *AuthService) issueVerification(ctx context.Context, u *entity.User, meta SessionMeta) (*entity.ProfileVerification, error) {
	now := s.clock()
	v := &entity.ProfileVerification{
		UserID:    u.ID,
		Token:     uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(entity.VerificationTTL),
	}
	if err := s.Verifications.Upsert(ctx, v); err != nil {
		return nil, err
	}
	if err := s.Notifier.VerifyEmail(ctx, u, v, meta.IP, meta.UserAgent); err != nil {
		return v, err
	}
	return v, nil
}

// Activate consumes a verification token and marks the email as verified.
func (s *AuthService) Activate(ctx context.Context, email, token string) error {
	email, token = strings.TrimSpace(email), strings.TrimSpace(token)
	if email == "" || token == "" {
		return validation.Details("token", "email and token are required")
	}
	v, err := s.Verifications.GetByEmailAndToken(ctx, email, token)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidVerification
		}
		return err
	}
	if v.Used {
		return ErrTokenUsed
	}
	if v.IsExpired(s.clock()) {
		return ErrTokenExpired
	}
	if err := s.Verifications.MarkUsed(ctx, v.ID); err != nil {
		return err
	}
	return s.Users.SetActivated(ctx, v.UserID, true)
}

// ResendVerification issues a new token when forced or when the current one
// expired unused. sent reports whether a new email went out.
func (s *AuthService) ResendVerification(ctx context.Context, email string, force bool, meta SessionMeta) (sent bool, err error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, validation.Details("email", "is required")
	}
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, ErrUserNotFound
		}
		return false, err
	}
	if !force {
		v, err := s.Verifications.GetByUserID(ctx, u.ID)
		switch {
		case errors.Is(err, repo.ErrNotFound):
		case err != nil:
			return false, err
		case !(v.IsExpired(s.clock()) && !v.Used):
			return false, nil
		}
	}
	if _, err := s.issueVerification(ctx, u, meta); err != nil {
		return false, err
	}
	return true, nil
}

// SendVerification re-sends the caller's verification email with a fresh token.
func (s *AuthService) SendVerification(ctx context.Context, c Caller, meta SessionMeta) error {
	u, err := s.Users.GetByID(ctx, c.UserID)
	if err != nil {
		return ErrUserNotFound
	}
	if u.IsVerified() {
		return ErrAlreadyVerified
	}
	_, err = s.issueVerification(ctx, u, meta)
	return err
}
