package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishpal/coupon-core/internal/application"
	"github.com/dishpal/coupon-core/internal/domain/entity"
	repo "github.com/dishpal/coupon-core/internal/domain/repository"
	"github.com/dishpal/coupon-core/internal/geo"
	"github.com/dishpal/coupon-core/internal/interface/middleware"
	"github.com/dishpal/coupon-core/pkg/helpers"
	"github.com/dishpal/coupon-core/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Error   json.RawMessage `json:"error"`
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

// withCaller installs a fixed identity the way the auth middleware would.
func withCaller(caller application.Caller) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !caller.Anonymous() {
			c.Set(middleware.CtxUserIDKey, caller.UserID)
		}
		c.Set(middleware.CtxCallerKey, caller)
		c.Next()
	}
}

// stores

type memRetailers struct {
	repo.RetailerRepository
	items map[int64]*entity.Retailer
	next  int64
}

func newMemRetailers(rs ...*entity.Retailer) *memRetailers {
	m := &memRetailers{items: map[int64]*entity.Retailer{}}
	for _, r := range rs {
		m.items[r.ID] = r
		m.next = max(m.next, r.ID)
	}
	return m
}

func (m *memRetailers) Create(_ context.Context, r *entity.Retailer) error {
	for _, e := range m.items {
		if e.Name == r.Name {
			return repo.ErrConflict
		}
	}
	m.next++
	r.ID = m.next
	m.items[r.ID] = r
	return nil
}

func (m *memRetailers) GetByID(_ context.Context, id int64) (*entity.Retailer, error) {
	if r, ok := m.items[id]; ok {
		return r, nil
	}
	return nil, repo.ErrNotFound
}

func (m *memRetailers) Nearby(_ context.Context, center entity.Point, radiusKm float64, _ int) ([]*entity.Retailer, []float64, error) {
	var out []*entity.Retailer
	var dists []float64
	for _, r := range m.items {
		if d := geo.HaversineKm(center, r.Location); d <= radiusKm {
			out = append(out, r)
			dists = append(dists, d)
		}
	}
	return out, dists, nil
}

func (m *memRetailers) Analytics(context.Context, int64, time.Time) (*entity.RetailerAnalytics, error) {
	return &entity.RetailerAnalytics{TotalDiscounts: 2}, nil
}

type memShared struct {
	repo.SharedDiscountRepository
	items map[int64]*entity.SharedDiscount
}

func (m *memShared) GetByID(_ context.Context, id int64) (*entity.SharedDiscount, error) {
	if g, ok := m.items[id]; ok {
		cp := *g
		cp.Participants = append([]int64(nil), g.Participants...)
		return &cp, nil
	}
	return nil, repo.ErrNotFound
}

func (m *memShared) Update(_ context.Context, g *entity.SharedDiscount) error {
	m.items[g.ID] = g
	return nil
}

type memCategories struct {
	repo.CategoryRepository
	items []entity.Category
	calls int
}

func (m *memCategories) List(context.Context) ([]entity.Category, error) {
	m.calls++
	return m.items, nil
}

type memDiscounts struct {
	repo.DiscountRepository
	items map[int64]*entity.Discount
}

func (m *memDiscounts) GetByID(_ context.Context, id int64) (*entity.Discount, error) {
	if d, ok := m.items[id]; ok {
		return d, nil
	}
	return nil, repo.ErrNotFound
}

func (m *memDiscounts) Nearby(_ context.Context, center entity.Point, radiusKm float64, _ int) ([]*entity.Discount, error) {
	var out []*entity.Discount
	for _, d := range m.items {
		if geo.HaversineKm(center, d.Location) <= radiusKm {
			out = append(out, d)
		}
	}
	return out, nil
}

type memUsers struct {
	repo.UserRepository
	byName map[string]*entity.User
}

func (m *memUsers) GetByUsername(_ context.Context, name string) (*entity.User, error) {
	if u, ok := m.byName[name]; ok {
		return u, nil
	}
	return nil, repo.ErrNotFound
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range m.byName {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*entity.User, error) {
	for _, u := range m.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func ownerID(id int64) *int64 { return &id }

func TestWriteError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{application.ErrInvalidCredentials, http.StatusBadRequest},
		{application.ErrInvalidToken, http.StatusUnauthorized},
		{application.ErrForbidden, http.StatusForbidden},
		{application.ErrInvalidVerification, http.StatusNotFound},
		{application.ErrGroupFull, http.StatusConflict},
		{fmt.Errorf("wrapped: %w", application.ErrRetailerNotFound), http.StatusNotFound},
		{validation.Details("name", "is required"), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			r := gin.New()
			r.GET("/", func(c *gin.Context) { writeError(c, quietLogger(), tc.err) })
			w, env := do(t, r, http.MethodGet, "/", nil)
			assert.Equal(t, tc.status, w.Code)
			assert.False(t, env.Success)
		})
	}
}

func TestParams(t *testing.T) {
	ids, ok := parseIDList("1, 2,,3")
	require.True(t, ok)
	assert.Equal(t, []int64{1, 2, 3}, ids)
	_, ok = parseIDList("1,x")
	assert.False(t, ok)

	r := gin.New()
	r.GET("/items/:id", func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		limit, offset := pagination(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "limit": limit, "offset": offset})
	})
	w, _ := do(t, r, http.MethodGet, "/items/abc", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = do(t, r, http.MethodGet, "/items/-4", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/7?limit=5&offset=-3", nil))
	assert.JSONEq(t, `{"id":7,"limit":5,"offset":0}`, w.Body.String())
}

func newRetailerRouter(svc *application.RetailerService, caller application.Caller) *gin.Engine {
	h := NewRetailerHandler(svc, quietLogger())
	r := gin.New()
	g := r.Group("/retailers", withCaller(caller))
	g.POST("/", h.Create)
	g.GET("/nearby/", h.Nearby)
	g.GET("/:id/", h.Get)
	g.GET("/:id/analytics/", h.Analytics)
	g.DELETE("/:id/", h.Delete)
	return r
}

func TestRetailerHandler(t *testing.T) {
	store := newMemRetailers(
		&entity.Retailer{ID: 1, Name: "Corner Deli", OwnerID: ownerID(10), Location: entity.Point{Latitude: 40.7128, Longitude: -74.0060}},
		&entity.Retailer{ID: 2, Name: "Far Away", OwnerID: ownerID(11), Location: entity.Point{Latitude: 34.0522, Longitude: -118.2437}},
	)
	users := &memUsers{byName: map[string]*entity.User{
		"walkin": {ID: 12, Username: "walkin", IsGuest: true},
		"baker":  {ID: 13, Username: "baker"},
	}}
	svc := application.NewRetailerService(store, application.Authorizer{Users: users}, quietLogger())

	t.Run("nearby returns distance", func(t *testing.T) {
		r := newRetailerRouter(svc, application.Caller{UserID: 10})
		w, env := do(t, r, http.MethodGet, "/retailers/nearby/?latitude=40.72&longitude=-74.0&radius=5", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var out []retailerDTO
		require.NoError(t, json.Unmarshal(env.Data, &out))
		require.Len(t, out, 1)
		assert.Equal(t, "Corner Deli", out[0].Name)
		require.NotNil(t, out[0].DistanceKm)
		assert.Less(t, *out[0].DistanceKm, 5.0)
	})

	t.Run("nearby tolerates bad input", func(t *testing.T) {
		r := newRetailerRouter(svc, application.Caller{UserID: 10})
		for _, q := range []string{"", "?latitude=abc&longitude=1", "?latitude=95&longitude=0", "?latitude=1&longitude=1&radius=-2", "?latitude=1"} {
			w, env := do(t, r, http.MethodGet, "/retailers/nearby/"+q, nil)
			assert.Equal(t, http.StatusOK, w.Code, q)
			assert.True(t, env.Success, q)
			assert.True(t, len(env.Data) == 0 || string(env.Data) == "[]", q)
		}
	})

	t.Run("guest cannot create", func(t *testing.T) {
		r := newRetailerRouter(svc, application.Caller{UserID: 12})
		w, _ := do(t, r, http.MethodPost, "/retailers/", map[string]any{
			"name": "Guest Shop", "contact_info": "x", "location": map[string]float64{"latitude": 1, "longitude": 1},
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("create sets owner", func(t *testing.T) {
		r := newRetailerRouter(svc, application.Caller{UserID: 13})
		w, env := do(t, r, http.MethodPost, "/retailers/", map[string]any{
			"name": "Bakery", "contact_info": "555-0100", "location": map[string]float64{"latitude": 1, "longitude": 1},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var out retailerDTO
		require.NoError(t, json.Unmarshal(env.Data, &out))
		require.NotNil(t, out.OwnerID)
		assert.Equal(t, int64(13), *out.OwnerID)

		w, _ = do(t, r, http.MethodPost, "/retailers/", map[string]any{
			"name": "Bakery", "contact_info": "dup", "location": map[string]float64{"latitude": 1, "longitude": 1},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("analytics is owner only", func(t *testing.T) {
		w, env := do(t, newRetailerRouter(svc, application.Caller{UserID: 10}), http.MethodGet, "/retailers/1/analytics/", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, string(env.Data), `"total_discounts":2`)

		w, _ = do(t, newRetailerRouter(svc, application.Caller{UserID: 11}), http.MethodGet, "/retailers/1/analytics/", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("missing retailer", func(t *testing.T) {
		w, _ := do(t, newRetailerRouter(svc, application.Caller{UserID: 10}), http.MethodGet, "/retailers/99/", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSharedDiscountJoinLeave(t *testing.T) {
	store := &memShared{items: map[int64]*entity.SharedDiscount{
		1: {ID: 1, DiscountID: 1, GroupName: "lunch", Participants: []int64{1}, MinParticipants: 2, MaxParticipants: 2, Status: entity.SharedActive},
		2: {ID: 2, DiscountID: 1, GroupName: "closed", Participants: []int64{1}, MinParticipants: 2, MaxParticipants: 3, Status: entity.SharedExpired},
		3: {ID: 3, DiscountID: 1, GroupName: "overfull", Participants: []int64{1, 2}, MinParticipants: 2, MaxParticipants: 2, Status: entity.SharedActive},
	}}
	svc := application.NewSharedDiscountService(store, nil, nil, application.Authorizer{}, quietLogger())
	h := NewSharedDiscountHandler(svc, quietLogger())
	router := func(uid int64) *gin.Engine {
		r := gin.New()
		g := r.Group("/shared", withCaller(application.Caller{UserID: uid}))
		g.GET("/:id/", h.Get)
		g.POST("/:id/join/", h.Join)
		g.POST("/:id/leave/", h.Leave)
		return r
	}

	w, env := do(t, router(5), http.MethodPost, "/shared/1/join/", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out sharedDiscountDTO
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, []int64{1, 5}, out.Participants)
	assert.Equal(t, entity.SharedCompleted, out.Status)

	w, _ = do(t, router(6), http.MethodPost, "/shared/1/join/", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router(6), http.MethodPost, "/shared/3/join/", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = do(t, router(5), http.MethodPost, "/shared/1/leave/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, entity.SharedActive, out.Status)

	w, _ = do(t, router(5), http.MethodPost, "/shared/1/leave/", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router(1), http.MethodPost, "/shared/2/leave/", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router(1), http.MethodGet, "/shared/42/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDiscountHandler(t *testing.T) {
	cats := &memCategories{items: []entity.Category{{ID: 1, Name: "Food"}}}
	discounts := &memDiscounts{items: map[int64]*entity.Discount{
		1: {ID: 1, RetailerID: 1, Description: "Half price pizza", DiscountCode: "PIZZA50", DiscountValue: 50, IsActive: true,
			Location: entity.Point{Latitude: 37.75, Longitude: -97.82}},
	}}
	svc := application.NewDiscountService(discounts, newMemRetailers(), cats, nil, nil, nil, newRedis(t), nil, application.Authorizer{}, quietLogger())
	h := NewDiscountHandler(svc, quietLogger())

	build := func(loc *geo.Location) *gin.Engine {
		r := gin.New()
		g := r.Group("/discounts", func(c *gin.Context) {
			if loc != nil {
				c.Set(middleware.CtxGeoLocationKey, *loc)
			}
			c.Next()
		})
		g.GET("/nearby/", h.Nearby)
		g.GET("/categories/", h.Categories)
		g.POST("/search/semantic/", h.SemanticSearch)
		g.GET("/:id/", h.Get)
		return r
	}

	t.Run("nearby without location", func(t *testing.T) {
		w, env := do(t, build(nil), http.MethodGet, "/discounts/nearby/", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Unable to determine location from IP address.", env.Message)
	})

	t.Run("nearby from ip location", func(t *testing.T) {
		loc := geo.TestLocation
		w, env := do(t, build(&loc), http.MethodGet, "/discounts/nearby/?max_distance=2", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var out []discountDTO
		require.NoError(t, json.Unmarshal(env.Data, &out))
		require.Len(t, out, 1)
		require.NotNil(t, out[0].DistanceKm)
		assert.Contains(t, string(env.Meta), `"radius_km":2`)
	})

	t.Run("nearby needs both coordinates", func(t *testing.T) {
		w, _ := do(t, build(nil), http.MethodGet, "/discounts/nearby/?latitude=1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		w, _ = do(t, build(nil), http.MethodGet, "/discounts/nearby/?latitude=x&longitude=1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("categories are cached", func(t *testing.T) {
		r := build(nil)
		for range 2 {
			w, env := do(t, r, http.MethodGet, "/discounts/categories/", nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, string(env.Data), "Food")
		}
		assert.Equal(t, 1, cats.calls)
	})

	t.Run("semantic search requires query", func(t *testing.T) {
		w, _ := do(t, build(nil), http.MethodPost, "/discounts/search/semantic/", map[string]string{"query": "  "})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("semantic search unavailable without vectors", func(t *testing.T) {
		w, _ := do(t, build(nil), http.MethodPost, "/discounts/search/semantic/", map[string]string{"query": "pizza"})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("get", func(t *testing.T) {
		w, env := do(t, build(nil), http.MethodGet, "/discounts/1/", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, string(env.Data), "PIZZA50")
		w, _ = do(t, build(nil), http.MethodGet, "/discounts/2/", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAuthLogin(t *testing.T) {
	hash, err := helpers.HashPassword("Sup3r$ecret")
	require.NoError(t, err)
	users := &memUsers{byName: map[string]*entity.User{
		"alice": {ID: 1, Username: "alice", Email: "alice@example.com", PasswordHash: hash, IsActive: true},
		"ghost": {ID: 2, Username: "ghost", Email: "ghost@example.com", IsGuest: true, IsActive: true},
	}}
	rdb := newRedis(t)
	jwt := helpers.NewJWTManager("access", "refresh", time.Minute, time.Hour)
	svc := application.NewAuthService(users, nil, nil, jwt, application.NewSessionStore(rdb, time.Hour), rdb, nil, nil, nil, quietLogger())
	h := NewAuthHandler(svc, quietLogger(), "", false)
	r := gin.New()
	r.POST("/login/", h.Login)

	w, env := do(t, r, http.MethodPost, "/login/", map[string]string{"username": "alice@example.com", "password": "Sup3r$ecret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tokens tokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &tokens))
	assert.NotEmpty(t, tokens.Access)
	assert.NotEmpty(t, tokens.Refresh)
	require.NotNil(t, tokens.User)
	assert.Equal(t, "alice", tokens.User.Username)
	assert.True(t, strings.Contains(w.Header().Get("Set-Cookie"), "access_token="))

	w, env = do(t, r, http.MethodPost, "/login/", map[string]string{"username": "alice", "password": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid username or password.", env.Message)

	w, env = do(t, r, http.MethodPost, "/login/", map[string]string{"username": "ghost", "password": "anything"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Guest accounts are not allowed to log in.", env.Message)

	w, _ = do(t, r, http.MethodPost, "/login/", map[string]string{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminProfileIDs(t *testing.T) {
	h := NewAdminHandler(application.NewAdminService(nil, nil, nil, nil, nil, quietLogger()), quietLogger())
	r := gin.New()
	r.GET("/profiles/", h.GetProfiles)
	for _, q := range []string{"", "?user_ids=", "?user_ids=a,b"} {
		w, _ := do(t, r, http.MethodGet, "/profiles/"+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestProfileRequestToUpdate(t *testing.T) {
	var req profileRequest
	require.NoError(t, json.Unmarshal([]byte(`{"first_name":"Ann","location":null}`), &req))
	in, err := req.toUpdate(false)
	require.NoError(t, err)
	assert.True(t, in.ClearLocation)
	assert.Nil(t, in.LastName)

	req = profileRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"location":{"latitude":10,"longitude":20}}`), &req))
	in, err = req.toUpdate(true)
	require.NoError(t, err)
	require.NotNil(t, in.Location)
	assert.Equal(t, 10.0, in.Location.Latitude)
	require.NotNil(t, in.FirstName)
	assert.Equal(t, "", *in.FirstName)

	req = profileRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"location":"nowhere"}`), &req))
	_, err = req.toUpdate(false)
	assert.ErrorIs(t, err, validation.ErrInvalid)
}
