package application

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/dishpal/coupon-core/pkg/helpers"
	"github.com/dishpal/coupon-core/pkg/validation"
)

func (s *AuthService) resetURL(token string) string {
	base := s.Cfg.ResetPasswordURL
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + token
}

// RequestPasswordReset stores a reset token for a known user and mails the link.
// Unknown or guest emails are accepted silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string, meta SessionMeta) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil || u.IsGuest || !u.IsActive {
		return nil
	}
	if s.Redis == nil {
		return ErrUnavailable
	}
	tok, err := helpers.RandomToken(32)
	if err != nil {
		return err
	}
	if err := s.Redis.Set(ctx, helpers.KeyResetToken(tok), strconv.FormatInt(u.ID, 10), ResetTokenTTL).Err(); err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("store reset token failed")
		}
		return nil
	}
	_ = s.Notifier.PasswordReset(ctx, u, s.resetURL(tok), s.clock().Add(ResetTokenTTL), meta.IP, meta.UserAgent)
	return nil
}

// ConfirmPasswordReset sets a new password, consumes the token and revokes every session.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return validation.Details("token", "is required")
	}
	if len(newPassword) < 8 {
		return validation.Details("new_password", "must be at least 8 characters long")
	}
	if s.Redis == nil {
		return ErrUnavailable
	}
	key := helpers.KeyResetToken(token)
	raw, err := s.Redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return err
	}
	uid, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return ErrInvalidResetToken
	}
	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Users.UpdatePassword(ctx, uid, hash); err != nil {
		return ErrInvalidResetToken
	}
	_ = helpers.RedisDel(ctx, s.Redis, key)
	if _, err := s.Sessions.RevokeAll(ctx, uid); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", uid).Warn("revoke sessions after reset failed")
	}
	return nil
}
