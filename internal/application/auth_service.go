package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/dishpal/coupon-core/config"
	"github.com/dishpal/coupon-core/internal/domain/entity"
	repo "github.com/dishpal/coupon-core/internal/domain/repository"
	"github.com/dishpal/coupon-core/pkg/helpers"
	"github.com/dishpal/coupon-core/pkg/validation"
)

// ResetTokenTTL is how long a password reset link stays valid.
const ResetTokenTTL = 30 * time.Minute

// AuthService owns login, sessions, registration, email verification and
// password reset.
type AuthService struct {
	Users         repo.UserRepository
	Profiles      repo.ProfileRepository
	Verifications repo.VerificationRepository
	JWT           *helpers.JWTManager
	Sessions      *SessionStore
	Redis         redis.Cmdable
	Notifier      *Notifier
	Index         UserIndex
	Cfg           *config.Config
	Logger        *logrus.Logger

	now func() time.Time
}

func NewAuthService(users repo.UserRepository, profiles repo.ProfileRepository, verifications repo.VerificationRepository,
	jwt *helpers.JWTManager, sessions *SessionStore, rdb redis.Cmdable, notifier *Notifier, index UserIndex,
	cfg *config.Config, logger *logrus.Logger) *AuthService {
	return &AuthService{
		Users:         users,
		Profiles:      profiles,
		Verifications: verifications,
		JWT:           jwt,
		Sessions:      sessions,
		Redis:         rdb,
		Notifier:      notifier,
		Index:         index,
		Cfg:           cfg,
		Logger:        logger,
		now:           time.Now,
	}
}

func (s *AuthService) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

func subjectOf(u *entity.User) helpers.Subject {
	return helpers.Subject{UserID: u.ID, IsGuest: u.IsGuest, IsStaff: u.IsStaff}
}

func (s *AuthService) lookupLogin(ctx context.Context, login string) (*entity.User, error) {
	if strings.Contains(login, "@") {
		return s.Users.GetByEmail(ctx, login)
	}
	return s.Users.GetByUsername(ctx, login)
}

// Login checks credentials and opens a new session. The login may be a
// username or an email address.
func (s *AuthService) Login(ctx context.Context, login, password string, meta SessionMeta) (*entity.User, TokenPair, error) {
	u, err := s.lookupLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, err
	}
	if u.IsGuest {
		return nil, TokenPair{}, ErrGuestLogin
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, password) {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, TokenPair{}, ErrInactiveAccount
	}
	pair, err := s.IssueTokens(ctx, u, meta)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// IssueTokens generates access/refresh tokens and records a session in Redis.
func (s *AuthService) IssueTokens(ctx context.Context, u *entity.User, meta SessionMeta) (TokenPair, error) {
	sid := uuid.NewString()
	pair, err := s.tokens(u, sid)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.Sessions.Create(ctx, u, sid, meta); err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("create session failed")
		}
		return TokenPair{}, fmt.Errorf("create session: %w", err)
	}
	return pair, nil
}

func (s *AuthService) tokens(u *entity.User, sid string) (TokenPair, error) {
	access, aexp, err := s.JWT.GenerateAccessToken(subjectOf(u), sid)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate access token failed")
		}
		return TokenPair{}, err
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(subjectOf(u), sid)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate refresh token failed")
		}
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

// Refresh validates a refresh token against its live session, rotates the
// session id and returns a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, *entity.User, error) {
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, nil, ErrInvalidToken
	}
	ok, err := s.Sessions.Exists(ctx, claims.UserID, claims.SessionID)
	if err != nil {
		return TokenPair{}, nil, err
	}
	if !ok {
		return TokenPair{}, nil, ErrInvalidToken
	}
	u, err := s.Users.GetByID(ctx, claims.UserID)
	if err != nil || !u.IsActive {
		return TokenPair{}, nil, ErrInvalidToken
	}
	sid := uuid.NewString()
	if err := s.Sessions.Rotate(ctx, u.ID, claims.SessionID, sid); err != nil {
		return TokenPair{}, nil, err
	}
	pair, err := s.tokens(u, sid)
	if err != nil {
		return TokenPair{}, nil, err
	}
	return pair, u, nil
}

// VerifyToken accepts an access or refresh token whose session is still live.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*helpers.Claims, error) {
	claims, err := s.JWT.ParseAccessToken(token)
	if err != nil {
		claims, err = s.JWT.ParseRefreshToken(token)
	}
	if err != nil {
		return nil, ErrInvalidToken
	}
	ok, err := s.Sessions.Exists(ctx, claims.UserID, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) Logout(ctx context.Context, c Caller) error {
	return s.Sessions.Revoke(ctx, c.UserID, c.SessionID)
}

func (s *AuthService) LogoutAll(ctx context.Context, c Caller) (int, error) {
	return s.Sessions.RevokeAll(ctx, c.UserID)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", validation.Details("email", "is required")
	}
	if err := validation.Var("email", email, "email"); err != nil {
		return "", err
	}
	return email, nil
}

// GuestToken returns the cached guest token for email or creates the guest
// account and issues a new one. created is false when the cached token was reused.
func (s *AuthService) GuestToken(ctx context.Context, rawEmail string, meta SessionMeta) (token string, created bool, err error) {
	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return "", false, err
	}
	if s.Redis == nil {
		return "", false, ErrUnavailable
	}
	key := helpers.KeyGuestToken(email)
	cached, err := s.Redis.Get(ctx, key).Result()
	switch {
	case err == nil && cached != "":
		if s.liveToken(ctx, cached) {
			return cached, false, nil
		}
		if err := s.Redis.Del(ctx, key).Err(); err != nil {
			return "", false, fmt.Errorf("drop guest token: %w", err)
		}
	case err != nil && !errors.Is(err, redis.Nil):
		return "", false, fmt.Errorf("read guest token: %w", err)
	}

	u, err := s.Users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		u, err = s.createUser(ctx, &entity.User{Email: email, IsGuest: true, IsActive: true})
		if err != nil {
			return "", false, err
		}
	case err != nil:
		return "", false, err
	case !u.IsGuest:
		return "", false, ErrEmailTaken
	}

	sid := uuid.NewString()
	access, _, err := s.JWT.GenerateAccessToken(subjectOf(u), sid)
	if err != nil {
		return "", false, err
	}
	if err := s.Sessions.Create(ctx, u, sid, meta); err != nil {
		return "", false, fmt.Errorf("create session: %w", err)
	}
	if err := s.Redis.Set(ctx, key, access, s.JWT.AccessTTL).Err(); err != nil {
		return "", false, fmt.Errorf("cache guest token: %w", err)
	}
	return access, true, nil
}

// liveToken reports whether an access token still parses and its session exists.
func (s *AuthService) liveToken(ctx context.Context, token string) bool {
	claims, err := s.JWT.ParseAccessToken(token)
	if err != nil {
		return false
	}
	ok, err := s.Sessions.Exists(ctx, claims.UserID, claims.SessionID)
	return err == nil && ok
}

// uniqueUsername derives a username from the email and appends a numeric
// suffix until it is free.
func (s *AuthService) uniqueUsername(ctx context.Context, email string) (string, error) {
	return uniqueUsername(ctx, s.Users, email)
}

func uniqueUsername(ctx context.Context, users repo.UserRepository, email string) (string, error) {
	base := entity.UsernameFromEmail(email)
	if base == "" {
		base = "user"
	}
	candidate := base
	for i := 0; i < 10; i++ {
		exists, err := users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + helpers.RandomSuffix()
	}
	return base + strings.ReplaceAll(uuid.NewString(), "-", "")[:8], nil
}

// createUser fills the username, stores the user and its empty profile, and indexes it.
func (s *AuthService) createUser(ctx context.Context, u *entity.User) (*entity.User, error) {
	if u.Username == "" {
		name, err := s.uniqueUsername(ctx, u.Email)
		if err != nil {
			return nil, err
		}
		u.Username = name
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	p := &entity.UserProfile{UserID: u.ID, Preferences: map[string]any{}}
	if err := s.Profiles.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	s.index(ctx, u, p)
	return u, nil
}

func (s *AuthService) index(ctx context.Context, u *entity.User, p *entity.UserProfile) {
	if s.Index == nil {
		return
	}
	_ = s.Index.Index(ctx, u, p)
}

type RegisterInput struct {
	Email           string
	Password        string
	ConfirmPassword string
}

func validatePasswords(password, confirm string) error {
	switch {
	case password == "":
		return validation.Details("password", "is required")
	case confirm == "":
		return validation.Details("confirm_password", "is required")
	case len(password) < 8:
		return validation.Details("password", "must be at least 8 characters long")
	case password != confirm:
		return validation.Details("confirm_password", "passwords do not match")
	}
	return nil
}

// Register creates an account for an anonymous caller or upgrades the calling
// guest to a full account. Either way a verification email is sent.
func (s *AuthService) Register(ctx context.Context, c Caller, in RegisterInput, meta SessionMeta) (*entity.User, error) {
	if err := validatePasswords(in.Password, in.ConfirmPassword); err != nil {
		return nil, err
	}
	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	var u *entity.User
	switch {
	case !c.Anonymous():
		u, err = s.Users.GetByID(ctx, c.UserID)
		if err != nil {
			return nil, ErrUserNotFound
		}
		if !u.IsGuest {
			return nil, ErrAlreadyRegistered
		}
		u.IsGuest = false
		u.PasswordHash = hash
		if u.ActivatedProfile == nil {
			u.ActivatedProfile = new(bool)
		}
		if err := s.Users.Update(ctx, u); err != nil {
			return nil, err
		}
		if s.Redis != nil {
			_ = helpers.RedisDel(ctx, s.Redis, helpers.KeyGuestToken(u.Email))
		}
		p, _ := s.Profiles.GetByUserID(ctx, u.ID)
		s.index(ctx, u, p)
	default:
		email, err := normalizeEmail(in.Email)
		if err != nil {
			return nil, err
		}
		if _, err := s.Users.GetByEmail(ctx, email); err == nil {
			return nil, ErrEmailTaken
		} else if !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		activated := false
		u, err = s.createUser(ctx, &entity.User{
			Email:            email,
			PasswordHash:     hash,
			IsActive:         true,
			ActivatedProfile: &activated,
		})
		if err != nil {
			return nil, err
		}
	}

	if _, err := s.issueVerification(ctx, u, meta); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("send verification after register failed")
	}
	return u, nil
}
