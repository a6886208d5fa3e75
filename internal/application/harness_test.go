package application

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/dishpal/coupon-core/config"
	"github.com/dishpal/coupon-core/internal/domain/entity"
	"github.com/dishpal/coupon-core/pkg/helpers"
	"github.com/dishpal/coupon-core/pkg/validation"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testConfig() *config.Config {
	return &config.Config{
		AppName:          "DishPal",
		CompanyName:      "DishPal Inc",
		BaseDomain:       "https://api.example.com",
		ResetPasswordURL: "https://app.example.com/reset",
		MailSendEnabled:  true,
	}
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

type authEnv struct {
	svc           *AuthService
	mr            *miniredis.Miniredis
	users         *fakeUsers
	roles         *fakeRoles
	profiles      *fakeProfiles
	verifications *fakeVerifications
	pub           *fakePublisher
	index         *fakeIndex
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()
	validation.Init()
	mr, rdb := newRedis(t)
	roles := newFakeRoles()
	users := newFakeUsers()
	users.roles = roles
	env := &authEnv{
		mr:            mr,
		users:         users,
		roles:         roles,
		profiles:      newFakeProfiles(),
		verifications: newFakeVerifications(users),
		pub:           &fakePublisher{},
		index:         newFakeIndex(),
	}
	logger := quietLogger()
	jwt := helpers.NewJWTManager("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	env.svc = NewAuthService(users, env.profiles, env.verifications, jwt, NewSessionStore(rdb, time.Hour), rdb,
		NewNotifier(env.pub, testConfig(), nil, logger), env.index, testConfig(), logger)
	return env
}

// addUser stores a user with the given password; an empty password makes a guest.
func (e *authEnv) addUser(t *testing.T, email, username, password string) *entity.User {
	t.Helper()
	u := &entity.User{Email: email, Username: username, IsActive: true}
	if password == "" {
		u.IsGuest = true
	} else {
		hash, err := helpers.HashPassword(password)
		require.NoError(t, err)
		u.PasswordHash = hash
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	require.NoError(t, e.profiles.Create(context.Background(), &entity.UserProfile{UserID: u.ID, Preferences: map[string]any{}}))
	return u
}

func callerOf(t *testing.T, e *authEnv, token string) Caller {
	t.Helper()
	claims, err := e.svc.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	return Caller{UserID: claims.UserID, SessionID: claims.SessionID}
}
