package modules

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishpal/coupon-core/internal/application"
	"github.com/dishpal/coupon-core/internal/container"
	"github.com/dishpal/coupon-core/internal/domain/entity"
	repo "github.com/dishpal/coupon-core/internal/domain/repository"
	handlers "github.com/dishpal/coupon-core/internal/interface/http"
	"github.com/dishpal/coupon-core/pkg/helpers"
)

func init() { gin.SetMode(gin.TestMode) }

type stubUsers struct {
	repo.UserRepository
	byID map[int64]*entity.User
}

func (s stubUsers) GetByID(_ context.Context, id int64) (*entity.User, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, repo.ErrNotFound
}

const (
	plainID int64 = iota + 1
	adminID
	guestID
	unverifiedID
)

type routeFixture struct {
	engine   *gin.Engine
	jwt      *helpers.JWTManager
	sessions *application.SessionStore
}

// newRouteFixture mounts both modules with handlers that have no services, so
// a request that gets past the guards fails inside the handler instead.
func newRouteFixture(t *testing.T) *routeFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	container.SetRedis(rdb)
	container.SetLogger(logger)
	container.SetGeoResolver(nil)

	yes, no := true, false
	users := stubUsers{byID: map[int64]*entity.User{
		plainID:      {ID: plainID, IsActive: true, ActivatedProfile: &yes},
		adminID:      {ID: adminID, IsActive: true, IsStaff: true, ActivatedProfile: &yes},
		guestID:      {ID: guestID, IsActive: true, IsGuest: true},
		unverifiedID: {ID: unverifiedID, IsActive: true, ActivatedProfile: &no},
	}}
	f := &routeFixture{
		jwt:      helpers.NewJWTManager("a-secret", "r-secret", time.Minute, time.Hour),
		sessions: application.NewSessionStore(rdb, time.Hour),
	}
	authz := application.Authorizer{Users: users}

	f.engine = gin.New()
	f.engine.Use(gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, _ any) {
		c.AbortWithStatus(http.StatusInternalServerError)
	}))
	api := f.engine.Group("/api")
	NewAuthModule(handlers.NewAuthHandler(nil, logger, "", false), handlers.NewUserHandler(nil, logger, "", false),
		handlers.NewAdminHandler(nil, logger), f.jwt, f.sessions, authz).Register(api)
	NewGeoDiscountModule(handlers.NewDiscountHandler(nil, logger), handlers.NewRetailerHandler(nil, logger),
		handlers.NewSharedDiscountHandler(nil, logger), users, f.jwt, f.sessions).Register(api)
	return f
}

func (f *routeFixture) token(t *testing.T, uid int64) string {
	t.Helper()
	sid := uuid.NewString()
	require.NoError(t, f.sessions.Create(context.Background(), &entity.User{ID: uid}, sid, application.SessionMeta{}))
	tok, _, err := f.jwt.GenerateAccessToken(helpers.Subject{UserID: uid}, sid)
	require.NoError(t, err)
	return tok
}

func (f *routeFixture) call(method, path, token string) int {
	req := httptest.NewRequest(method, path, strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w.Code
}

func concrete(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if strings.HasPrefix(p, ":") {
			parts[i] = "1"
		}
	}
	return strings.Join(parts, "/")
}

var publicRoutes = map[string]bool{
	"POST /api/authentication/v1/login/":                  true,
	"POST /api/authentication/v1/token/refresh/":          true,
	"POST /api/authentication/v1/token/verify/":           true,
	"POST /api/authentication/v1/guest-token/":            true,
	"POST /api/authentication/v1/register/":               true,
	"GET /api/authentication/v1/activate/":                true,
	"PUT /api/authentication/v1/activate/":                true,
	"POST /api/authentication/v1/password-reset/":         true,
	"POST /api/authentication/v1/password-reset/confirm/": true,
	"GET /api/geodiscounts/v1/discounts/categories/":      true,
}

func TestEveryPrivateRouteNeedsSession(t *testing.T) {
	f := newRouteFixture(t)
	routes := f.engine.Routes()
	require.NotEmpty(t, routes)
	for _, r := range routes {
		if publicRoutes[r.Method+" "+r.Path] {
			continue
		}
		assert.Equal(t, http.StatusUnauthorized, f.call(r.Method, concrete(r.Path), ""), "%s %s", r.Method, r.Path)
	}
}

func TestAdminGroupRequiresAdmin(t *testing.T) {
	f := newRouteFixture(t)
	plain, admin := f.token(t, plainID), f.token(t, adminID)
	n := 0
	for _, r := range f.engine.Routes() {
		if !strings.HasPrefix(r.Path, "/api/authentication/v1/admin/") {
			continue
		}
		n++
		path := concrete(r.Path)
		assert.Equal(t, http.StatusForbidden, f.call(r.Method, path, plain), "%s %s", r.Method, r.Path)
		got := f.call(r.Method, path, admin)
		assert.NotContains(t, []int{http.StatusUnauthorized, http.StatusForbidden}, got, "%s %s", r.Method, r.Path)
	}
	assert.Equal(t, 19, n)
}

func TestRetailerCreateGuards(t *testing.T) {
	f := newRouteFixture(t)
	const path = "/api/geodiscounts/v1/retailers/"
	blocked := []struct {
		name string
		uid  int64
	}{
		{"guest", guestID},
		{"unverified", unverifiedID},
	}
	for _, tc := range blocked {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, http.StatusForbidden, f.call(http.MethodPost, path, f.token(t, tc.uid)))
		})
	}
	passed := []int{http.StatusUnauthorized, http.StatusForbidden}
	assert.NotContains(t, passed, f.call(http.MethodPost, path, f.token(t, plainID)))
	// listing stays open to guests
	assert.NotContains(t, passed, f.call(http.MethodGet, path, f.token(t, guestID)))
}
