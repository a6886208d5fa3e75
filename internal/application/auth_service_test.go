package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishpal/coupon-core/pkg/helpers"
	tpl "github.com/dishpal/coupon-core/pkg/mailer/templates"
	"github.com/dishpal/coupon-core/pkg/validation"
)

func TestLogin(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.addUser(t, "jane@example.com", "jane", "s3cretpass")
	env.addUser(t, "guest@example.com", "guest", "")
	off := env.addUser(t, "off@example.com", "off", "s3cretpass")
	off.IsActive = false
	require.NoError(t, env.users.Update(ctx, off))

	t.Run("by username", func(t *testing.T) {
		u, pair, err := env.svc.Login(ctx, "jane", "s3cretpass", SessionMeta{IP: "1.1.1.1"})
		require.NoError(t, err)
		assert.Equal(t, "jane", u.Username)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.True(t, pair.RefreshTokenExpiry.After(pair.AccessTokenExpiry))
	})
	t.Run("by email", func(t *testing.T) {
		_, _, err := env.svc.Login(ctx, "JANE@example.com", "s3cretpass", SessionMeta{})
		require.NoError(t, err)
	})
	t.Run("wrong password", func(t *testing.T) {
		_, _, err := env.svc.Login(ctx, "jane", "nope", SessionMeta{})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
	t.Run("unknown user", func(t *testing.T) {
		_, _, err := env.svc.Login(ctx, "ghost", "whatever1", SessionMeta{})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
	t.Run("guest", func(t *testing.T) {
		_, _, err := env.svc.Login(ctx, "guest", "", SessionMeta{})
		assert.ErrorIs(t, err, ErrGuestLogin)
	})
	t.Run("inactive", func(t *testing.T) {
		_, _, err := env.svc.Login(ctx, "off", "s3cretpass", SessionMeta{})
		assert.ErrorIs(t, err, ErrInactiveAccount)
	})
}

func TestRefreshRotatesSession(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.addUser(t, "jane@example.com", "jane", "s3cretpass")

	_, pair, err := env.svc.Login(ctx, "jane", "s3cretpass", SessionMeta{})
	require.NoError(t, err)

	next, u, err := env.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "jane", u.Username)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// the old refresh token points at a session id that no longer exists
	_, _, err = env.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = env.svc.VerifyToken(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = env.svc.VerifyToken(ctx, next.AccessToken)
	assert.NoError(t, err)

	_, _, err = env.svc.Refresh(ctx, next.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "access tokens cannot refresh")
}

func TestLogoutAndLogoutAll(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.addUser(t, "jane@example.com", "jane", "s3cretpass")

	_, first, err := env.svc.Login(ctx, "jane", "s3cretpass", SessionMeta{})
	require.NoError(t, err)
	_, second, err := env.svc.Login(ctx, "jane", "s3cretpass", SessionMeta{})
	require.NoError(t, err)
	_, third, err := env.svc.Login(ctx, "jane", "s3cretpass", SessionMeta{})
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(ctx, callerOf(t, env, first.AccessToken)))
	_, err = env.svc.VerifyToken(ctx, first.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = env.svc.VerifyToken(ctx, second.AccessToken)
	assert.NoError(t, err)

	n, err := env.svc.LogoutAll(ctx, callerOf(t, env, second.AccessToken))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, _, err = env.svc.Refresh(ctx, third.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGuestToken(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	tok, created, err := env.svc.GuestToken(ctx, " Visitor@Example.com ", SessionMeta{})
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := env.svc.GuestToken(ctx, "visitor@example.com", SessionMeta{})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, tok, again)

	u, err := env.users.GetByEmail(ctx, "visitor@example.com")
	require.NoError(t, err)
	assert.True(t, u.IsGuest)
	assert.Equal(t, "visitor", u.Username)
	assert.False(t, u.HasUsablePassword())
	assert.True(t, env.index.indexed[u.ID])

	claims, err := env.svc.VerifyToken(ctx, tok)
	require.NoError(t, err)
	assert.True(t, claims.IsGuest)

	env.addUser(t, "member@example.com", "member", "s3cretpass")
	_, _, err = env.svc.GuestToken(ctx, "member@example.com", SessionMeta{})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, _, err = env.svc.GuestToken(ctx, "not-an-email", SessionMeta{})
	assert.ErrorIs(t, err, validation.ErrInvalid)
}

func TestGuestTokenReissuedAfterLogout(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	tok, created, err := env.svc.GuestToken(ctx, "visitor@example.com", SessionMeta{})
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, env.svc.Logout(ctx, callerOf(t, env, tok)))

	fresh, created, err := env.svc.GuestToken(ctx, "visitor@example.com", SessionMeta{})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, tok, fresh)
	_, err = env.svc.VerifyToken(ctx, fresh)
	assert.NoError(t, err)

	again, created, err := env.svc.GuestToken(ctx, "visitor@example.com", SessionMeta{})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, fresh, again)

	u, err := env.users.GetByEmail(ctx, "visitor@example.com")
	require.NoError(t, err)
	_, err = env.svc.LogoutAll(ctx, Caller{UserID: u.ID})
	require.NoError(t, err)
	last, created, err := env.svc.GuestToken(ctx, "visitor@example.com", SessionMeta{})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, fresh, last)
}

func TestGuestTokenUsernameCollision(t *testing.T) {
	env := newAuthEnv(t)
	env.addUser(t, "other@example.org", "visitor", "s3cretpass")

	_, _, err := env.svc.GuestToken(context.Background(), "visitor@example.com", SessionMeta{})
	require.NoError(t, err)
	u, err := env.users.GetByEmail(context.Background(), "visitor@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "visitor", u.Username)
	assert.Contains(t, u.Username, "visitor")
}

func TestRegisterAnonymous(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	u, err := env.svc.Register(ctx, Caller{}, RegisterInput{
		Email: "new@example.com", Password: "longenough", ConfirmPassword: "longenough",
	}, SessionMeta{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.False(t, u.IsGuest)
	assert.False(t, u.IsVerified())
	assert.True(t, helpers.CompareHashAndPassword(u.PasswordHash, "longenough"))

	jobs := env.pub.sent()
	require.Len(t, jobs, 1)
	assert.Equal(t, "new@example.com", jobs[0].To)
	assert.Equal(t, tpl.VerifyEmail, jobs[0].Template)

	v, err := env.verifications.GetByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Contains(t, jobs[0].Data["VerifyURL"], v.Token)

	_, err = env.svc.Register(ctx, Caller{}, RegisterInput{
		Email: "new@example.com", Password: "longenough", ConfirmPassword: "longenough",
	}, SessionMeta{})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterValidation(t *testing.T) {
	env := newAuthEnv(t)
	cases := map[string]RegisterInput{
		"mismatch": {Email: "a@example.com", Password: "longenough", ConfirmPassword: "different1"},
		"short":    {Email: "a@example.com", Password: "short", ConfirmPassword: "short"},
		"missing":  {Email: "a@example.com"},
		"email":    {Email: "nope", Password: "longenough", ConfirmPassword: "longenough"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.svc.Register(context.Background(), Caller{}, in, SessionMeta{})
			assert.ErrorIs(t, err, validation.ErrInvalid)
		})
	}
	assert.Empty(t, env.pub.sent())
}

func TestRegisterUpgradesGuest(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	tok, _, err := env.svc.GuestToken(ctx, "visitor@example.com", SessionMeta{})
	require.NoError(t, err)
	c := callerOf(t, env, tok)

	u, err := env.svc.Register(ctx, c, RegisterInput{Password: "longenough", ConfirmPassword: "longenough"}, SessionMeta{})
	require.NoError(t, err)
	assert.False(t, u.IsGuest)
	assert.Equal(t, c.UserID, u.ID)
	assert.False(t, env.mr.Exists(helpers.KeyGuestToken("visitor@example.com")))
	assert.Len(t, env.pub.sent(), 1)
	assert.False(t, Authorizer{Users: env.users}.IsGuest(ctx, c), "the guest token already in hand must see the upgrade")

	_, _, err = env.svc.Login(ctx, "visitor@example.com", "longenough", SessionMeta{})
	require.NoError(t, err)

	_, err = env.svc.Register(ctx, c, RegisterInput{Password: "longenough", ConfirmPassword: "longenough"}, SessionMeta{})
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestActivate(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	u, err := env.svc.Register(ctx, Caller{}, RegisterInput{
		Email: "new@example.com", Password: "longenough", ConfirmPassword: "longenough",
	}, SessionMeta{})
	require.NoError(t, err)
	v, err := env.verifications.GetByUserID(ctx, u.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, env.svc.Activate(ctx, "new@example.com", "wrong"), ErrInvalidVerification)
	assert.ErrorIs(t, env.svc.Activate(ctx, "", v.Token), validation.ErrInvalid)

	require.NoError(t, env.svc.Activate(ctx, "new@example.com", v.Token))
	got, _ := env.users.GetByID(ctx, u.ID)
	assert.True(t, got.IsVerified())

	assert.ErrorIs(t, env.svc.Activate(ctx, "new@example.com", v.Token), ErrTokenUsed)
	assert.ErrorIs(t, env.svc.SendVerification(ctx, Caller{UserID: u.ID}, SessionMeta{}), ErrAlreadyVerified)
}

func TestActivateExpired(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	u, err := env.svc.Register(ctx, Caller{}, RegisterInput{
		Email: "new@example.com", Password: "longenough", ConfirmPassword: "longenough",
	}, SessionMeta{})
	require.NoError(t, err)
	v, _ := env.verifications.GetByUserID(ctx, u.ID)

	env.svc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	assert.ErrorIs(t, env.svc.Activate(ctx, "new@example.com", v.Token), ErrTokenExpired)
}

func TestResendVerification(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	u, err := env.svc.Register(ctx, Caller{}, RegisterInput{
		Email: "new@example.com", Password: "longenough", ConfirmPassword: "longenough",
	}, SessionMeta{})
	require.NoError(t, err)
	first, _ := env.verifications.GetByUserID(ctx, u.ID)

	sent, err := env.svc.ResendVerification(ctx, "new@example.com", false, SessionMeta{})
	require.NoError(t, err)
	assert.False(t, sent, "a live token is not replaced")

	sent, err = env.svc.ResendVerification(ctx, "new@example.com", true, SessionMeta{})
	require.NoError(t, err)
	assert.True(t, sent)
	second, _ := env.verifications.GetByUserID(ctx, u.ID)
	assert.NotEqual(t, first.Token, second.Token)
	assert.ErrorIs(t, env.svc.Activate(ctx, "new@example.com", first.Token), ErrInvalidVerification)

	env.svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	sent, err = env.svc.ResendVerification(ctx, "new@example.com", false, SessionMeta{})
	require.NoError(t, err)
	assert.True(t, sent)

	_, err = env.svc.ResendVerification(ctx, "ghost@example.com", false, SessionMeta{})
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Len(t, env.pub.sent(), 3)
}

func TestPasswordReset(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.addUser(t, "jane@example.com", "jane", "s3cretpass")
	env.addUser(t, "guest@example.com", "guest", "")

	_, pair, err := env.svc.Login(ctx, "jane", "s3cretpass", SessionMeta{})
	require.NoError(t, err)

	require.NoError(t, env.svc.RequestPasswordReset(ctx, "ghost@example.com", SessionMeta{}))
	require.NoError(t, env.svc.RequestPasswordReset(ctx, "guest@example.com", SessionMeta{}))
	assert.Empty(t, env.pub.sent())

	require.NoError(t, env.svc.RequestPasswordReset(ctx, "jane@example.com", SessionMeta{IP: "8.8.8.8"}))
	jobs := env.pub.sent()
	require.Len(t, jobs, 1)
	assert.Equal(t, tpl.ForgotPassword, jobs[0].Template)
	resetURL, _ := jobs[0].Data["ResetURL"].(string)
	require.Contains(t, resetURL, "https://app.example.com/reset?token=")
	token := resetURL[len("https://app.example.com/reset?token="):]

	assert.ErrorIs(t, env.svc.ConfirmPasswordReset(ctx, token, "short"), validation.ErrInvalid)
	assert.ErrorIs(t, env.svc.ConfirmPasswordReset(ctx, "bogus", "brandnewpass"), ErrInvalidResetToken)

	require.NoError(t, env.svc.ConfirmPasswordReset(ctx, token, "brandnewpass"))
	assert.ErrorIs(t, env.svc.ConfirmPasswordReset(ctx, token, "brandnewpass"), ErrInvalidResetToken)

	_, err = env.svc.VerifyToken(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "sessions are revoked after a reset")
	_, _, err = env.svc.Login(ctx, "jane", "brandnewpass", SessionMeta{})
	assert.NoError(t, err)
}

func TestNotifierDisabled(t *testing.T) {
	env := newAuthEnv(t)
	env.svc.Notifier.Cfg.MailSendEnabled = false
	_, err := env.svc.Register(context.Background(), Caller{}, RegisterInput{
		Email: "new@example.com", Password: "longenough", ConfirmPassword: "longenough",
	}, SessionMeta{})
	require.NoError(t, err)
	assert.Empty(t, env.pub.sent())
}
