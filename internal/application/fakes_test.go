package application

import (
	"context"
	"errors"
	"io"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dishpal/coupon-core/internal/domain/entity"
	repo "github.com/dishpal/coupon-core/internal/domain/repository"
	"github.com/dishpal/coupon-core/internal/embedding"
	"github.com/dishpal/coupon-core/internal/geo"
	"github.com/dishpal/coupon-core/pkg/mailer"
)

type fakeUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*entity.User
	roles  *fakeRoles
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[int64]*entity.User{}} }

func cloneUser(u *entity.User) *entity.User {
	c := *u
	c.Roles = slices.Clone(u.Roles)
	return &c
}

func (f *fakeUsers) withRoles(u *entity.User) *entity.User {
	c := cloneUser(u)
	if f.roles != nil {
		c.Roles, _ = f.roles.ListForUser(context.Background(), u.ID)
	}
	return c
}

func (f *fakeUsers) conflict(u *entity.User) bool {
	for _, o := range f.byID {
		if o.ID == u.ID {
			continue
		}
		if strings.EqualFold(o.Email, u.Email) || o.Username == u.Username {
			return true
		}
		if o.PhoneNumber != nil && u.PhoneNumber != nil && *o.PhoneNumber == *u.PhoneNumber {
			return true
		}
	}
	return false
}

func (f *fakeUsers) Create(_ context.Context, u *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.Email = strings.ToLower(u.Email)
	if f.conflict(u) {
		return repo.ErrConflict
	}
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	f.byID[u.ID] = cloneUser(u)
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return f.withRoles(u), nil
}

func (f *fakeUsers) find(match func(*entity.User) bool) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if match(u) {
			return f.withRoles(u), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return f.find(func(u *entity.User) bool { return strings.EqualFold(u.Email, email) })
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	return f.find(func(u *entity.User) bool { return u.Username == username })
}

func (f *fakeUsers) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := f.GetByUsername(ctx, username)
	return err == nil, nil
}

func (f *fakeUsers) Update(_ context.Context, u *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[u.ID]; !ok {
		return repo.ErrNotFound
	}
	if f.conflict(u) {
		return repo.ErrConflict
	}
	u.UpdatedAt = time.Now()
	f.byID[u.ID] = cloneUser(u)
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUsers) SetActivated(_ context.Context, id int64, activated bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.ActivatedProfile = &activated
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repo.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeUsers) DeleteMany(_ context.Context, ids []int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := f.byID[id]; ok {
			delete(f.byID, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeUsers) List(_ context.Context, filter entity.UserFilter) ([]*entity.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.User
	for _, u := range f.byID {
		if filter.Search != "" && !strings.Contains(u.Email, filter.Search) && !strings.Contains(u.Username, filter.Search) {
			continue
		}
		out = append(out, f.withRoles(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

type fakeRoles struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*entity.Role
	links  map[[2]int64]bool
}

func newFakeRoles() *fakeRoles {
	return &fakeRoles{byID: map[int64]*entity.Role{}, links: map[[2]int64]bool{}}
}

func (f *fakeRoles) Create(_ context.Context, r *entity.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.byID {
		if strings.EqualFold(o.Name, r.Name) {
			return repo.ErrConflict
		}
	}
	f.nextID++
	r.ID = f.nextID
	c := *r
	f.byID[r.ID] = &c
	return nil
}

func (f *fakeRoles) GetByID(_ context.Context, id int64) (*entity.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (f *fakeRoles) GetByName(_ context.Context, name string) (*entity.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.byID {
		if strings.EqualFold(r.Name, name) {
			c := *r
			return &c, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeRoles) List(_ context.Context) ([]*entity.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Role
	for _, r := range f.byID {
		c := *r
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeRoles) Update(_ context.Context, r *entity.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[r.ID]; !ok {
		return repo.ErrNotFound
	}
	c := *r
	f.byID[r.ID] = &c
	return nil
}

func (f *fakeRoles) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repo.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeRoles) Assign(_ context.Context, userID, roleID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]int64{userID, roleID}
	if f.links[key] {
		return repo.ErrConflict
	}
	f.links[key] = true
	return nil
}

func (f *fakeRoles) Unassign(_ context.Context, userID, roleID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]int64{userID, roleID}
	if !f.links[key] {
		return repo.ErrNotFound
	}
	delete(f.links, key)
	return nil
}

func (f *fakeRoles) ListForUser(_ context.Context, userID int64) ([]entity.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Role
	for key := range f.links {
		if key[0] == userID {
			if r, ok := f.byID[key[1]]; ok {
				out = append(out, *r)
			}
		}
	}
	return out, nil
}

type fakeProfiles struct {
	mu       sync.Mutex
	nextID   int64
	byUser   map[int64]*entity.UserProfile
	nearby   []entity.NearbyUser
	excluded *int64
}

func newFakeProfiles() *fakeProfiles { return &fakeProfiles{byUser: map[int64]*entity.UserProfile{}} }

func cloneProfile(p *entity.UserProfile) *entity.UserProfile {
	c := *p
	if p.Preferences != nil {
		c.Preferences = make(map[string]any, len(p.Preferences))
		for k, v := range p.Preferences {
			c.Preferences[k] = v
		}
	}
	if p.Location != nil {
		loc := *p.Location
		c.Location = &loc
	}
	return &c
}

func (f *fakeProfiles) Create(_ context.Context, p *entity.UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byUser[p.UserID]; ok {
		return repo.ErrConflict
	}
	f.nextID++
	p.ID = f.nextID
	f.byUser[p.UserID] = cloneProfile(p)
	return nil
}

func (f *fakeProfiles) GetByUserID(_ context.Context, userID int64) (*entity.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byUser[userID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return cloneProfile(p), nil
}

func (f *fakeProfiles) ListByUserIDs(_ context.Context, ids []int64) ([]*entity.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.UserProfile
	for _, id := range ids {
		if p, ok := f.byUser[id]; ok {
			out = append(out, cloneProfile(p))
		}
	}
	return out, nil
}

func (f *fakeProfiles) Update(_ context.Context, p *entity.UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byUser[p.UserID]; !ok {
		return repo.ErrNotFound
	}
	f.byUser[p.UserID] = cloneProfile(p)
	return nil
}

func (f *fakeProfiles) DeleteByUserIDs(_ context.Context, ids []int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := f.byUser[id]; ok {
			delete(f.byUser, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeProfiles) ListNearby(_ context.Context, _ entity.Point, _ float64, exclude *int64) ([]entity.NearbyUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.excluded = exclude
	var out []entity.NearbyUser
	for _, u := range f.nearby {
		if exclude != nil && u.UserID == *exclude {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

type fakeVerifications struct {
	mu     sync.Mutex
	nextID int64
	byUser map[int64]*entity.ProfileVerification
	users  *fakeUsers
}

func newFakeVerifications(users *fakeUsers) *fakeVerifications {
	return &fakeVerifications{byUser: map[int64]*entity.ProfileVerification{}, users: users}
}

func (f *fakeVerifications) Upsert(_ context.Context, v *entity.ProfileVerification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if old, ok := f.byUser[v.UserID]; ok {
		v.ID = old.ID
	} else {
		f.nextID++
		v.ID = f.nextID
	}
	v.Used = false
	c := *v
	f.byUser[v.UserID] = &c
	return nil
}

func (f *fakeVerifications) GetByUserID(_ context.Context, userID int64) (*entity.ProfileVerification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.byUser[userID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *v
	return &c, nil
}

func (f *fakeVerifications) GetByEmailAndToken(ctx context.Context, email, token string) (*entity.ProfileVerification, error) {
	u, err := f.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, repo.ErrNotFound
	}
	v, err := f.GetByUserID(ctx, u.ID)
	if err != nil || v.Token != token {
		return nil, repo.ErrNotFound
	}
	return v, nil
}

func (f *fakeVerifications) MarkUsed(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.byUser {
		if v.ID == id {
			v.Used = true
			return nil
		}
	}
	return repo.ErrNotFound
}

type fakeCategories struct {
	items []entity.Category
	calls int
}

func (f *fakeCategories) List(context.Context) ([]entity.Category, error) {
	f.calls++
	return slices.Clone(f.items), nil
}

func (f *fakeCategories) GetByID(_ context.Context, id int64) (*entity.Category, error) {
	for _, c := range f.items {
		if c.ID == id {
			cc := c
			return &cc, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeCategories) Upsert(_ context.Context, c *entity.Category) error {
	c.ID = int64(len(f.items) + 1)
	f.items = append(f.items, *c)
	return nil
}

type fakeRetailers struct {
	mu        sync.Mutex
	nextID    int64
	byID      map[int64]*entity.Retailer
	analytics map[int64]map[string]any
}

func newFakeRetailers() *fakeRetailers {
	return &fakeRetailers{byID: map[int64]*entity.Retailer{}, analytics: map[int64]map[string]any{}}
}

func (f *fakeRetailers) Create(_ context.Context, r *entity.Retailer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.byID {
		if o.Name == r.Name {
			return repo.ErrConflict
		}
	}
	f.nextID++
	r.ID = f.nextID
	c := *r
	f.byID[r.ID] = &c
	return nil
}

func (f *fakeRetailers) GetByID(_ context.Context, id int64) (*entity.Retailer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (f *fakeRetailers) all() []*entity.Retailer {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Retailer
	for _, r := range f.byID {
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeRetailers) List(context.Context, int, int) ([]*entity.Retailer, error) {
	return f.all(), nil
}
func (f *fakeRetailers) ListAll(context.Context) ([]*entity.Retailer, error) { return f.all(), nil }

func (f *fakeRetailers) Update(_ context.Context, r *entity.Retailer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[r.ID]; !ok {
		return repo.ErrNotFound
	}
	c := *r
	f.byID[r.ID] = &c
	return nil
}

func (f *fakeRetailers) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repo.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeRetailers) Nearby(_ context.Context, center entity.Point, radiusKm float64, _ int) ([]*entity.Retailer, []float64, error) {
	var out []*entity.Retailer
	var dists []float64
	for _, r := range f.all() {
		if d := geo.HaversineKm(center, r.Location); d <= radiusKm {
			out = append(out, r)
			dists = append(dists, d)
		}
	}
	return out, dists, nil
}

func (f *fakeRetailers) UpdateAnalytics(_ context.Context, id int64, data map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analytics[id] = data
	return nil
}

func (f *fakeRetailers) Analytics(context.Context, int64, time.Time) (*entity.RetailerAnalytics, error) {
	return &entity.RetailerAnalytics{TotalDiscounts: 3, ActiveDiscounts: 2, TotalSharedDiscounts: 1, AvgParticipants: 4}, nil
}

type fakeDiscounts struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*entity.Discount
}

func newFakeDiscounts() *fakeDiscounts { return &fakeDiscounts{byID: map[int64]*entity.Discount{}} }

func (f *fakeDiscounts) Create(_ context.Context, d *entity.Discount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.byID {
		if o.DiscountCode == d.DiscountCode {
			return repo.ErrConflict
		}
	}
	f.nextID++
	d.ID = f.nextID
	c := *d
	f.byID[d.ID] = &c
	return nil
}

func (f *fakeDiscounts) GetByID(_ context.Context, id int64) (*entity.Discount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *d
	return &c, nil
}

func (f *fakeDiscounts) GetByIDs(ctx context.Context, ids []int64) ([]*entity.Discount, error) {
	var out []*entity.Discount
	// reversed on purpose so callers must restore the requested order
	for i := len(ids) - 1; i >= 0; i-- {
		if d, err := f.GetByID(ctx, ids[i]); err == nil {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDiscounts) List(context.Context, entity.DiscountFilter) ([]*entity.Discount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Discount
	for _, d := range f.byID {
		c := *d
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeDiscounts) Update(_ context.Context, d *entity.Discount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[d.ID]; !ok {
		return repo.ErrNotFound
	}
	c := *d
	f.byID[d.ID] = &c
	return nil
}

func (f *fakeDiscounts) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repo.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeDiscounts) Nearby(_ context.Context, center entity.Point, radiusKm float64, _ int) ([]*entity.Discount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Discount
	for _, d := range f.byID {
		if km := geo.HaversineKm(center, d.Location); km <= radiusKm && d.IsActive {
			c := *d
			c.DistanceKm = &km
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].DistanceKm < *out[j].DistanceKm })
	return out, nil
}

func (f *fakeDiscounts) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, d := range f.byID {
		if d.IsActive && d.ExpirationDate.Before(now) {
			d.IsActive = false
			n++
		}
	}
	return n, nil
}

func (f *fakeDiscounts) ListExpiring(_ context.Context, from, to time.Time) ([]*entity.Discount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Discount
	for _, d := range f.byID {
		if d.IsActive && !d.ExpirationDate.Before(from) && !d.ExpirationDate.After(to) {
			c := *d
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeShared struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*entity.SharedDiscount
}

func newFakeShared() *fakeShared { return &fakeShared{byID: map[int64]*entity.SharedDiscount{}} }

func cloneShared(s *entity.SharedDiscount) *entity.SharedDiscount {
	c := *s
	c.Participants = slices.Clone(s.Participants)
	return &c
}

func (f *fakeShared) Create(_ context.Context, s *entity.SharedDiscount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s.ID = f.nextID
	s.CreatedAt = time.Now()
	f.byID[s.ID] = cloneShared(s)
	return nil
}

func (f *fakeShared) GetByID(_ context.Context, id int64) (*entity.SharedDiscount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return cloneShared(s), nil
}

func (f *fakeShared) List(context.Context, int, int) ([]*entity.SharedDiscount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.SharedDiscount
	for _, s := range f.byID {
		out = append(out, cloneShared(s))
	}
	return out, nil
}

func (f *fakeShared) Update(_ context.Context, s *entity.SharedDiscount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[s.ID]; !ok {
		return repo.ErrNotFound
	}
	f.byID[s.ID] = cloneShared(s)
	return nil
}

func (f *fakeShared) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repo.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeShared) ExpireForExpiredDiscounts(context.Context, time.Time) (int64, error) {
	return 1, nil
}
func (f *fakeShared) CompleteFull(context.Context) (int64, error)           { return 2, nil }
func (f *fakeShared) ExpireStale(context.Context, time.Time) (int64, error) { return 3, nil }

type fakeVectors struct {
	mu   sync.Mutex
	vecs map[int64][]float32
}

func newFakeVectors() *fakeVectors { return &fakeVectors{vecs: map[int64][]float32{}} }

func (f *fakeVectors) Upsert(_ context.Context, id int64, vec []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vecs[id] = vec
	return nil
}

func (f *fakeVectors) Search(_ context.Context, vec []float32, k int) ([]repo.VectorMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repo.VectorMatch
	for id, v := range f.vecs {
		out = append(out, repo.VectorMatch{ID: id, Distance: embedding.L2Distance(vec, v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (f *fakeVectors) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.vecs, id)
	return nil
}

type fakePublisher struct {
	mu    sync.Mutex
	jobs  []mailer.EmailJob
	err   error
	calls int
	// failAt makes that call number (1-based) fail once.
	failAt int
}

func (f *fakePublisher) PublishJSON(_ context.Context, body any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	if f.calls == f.failAt {
		return errors.New("broker unavailable")
	}
	f.jobs = append(f.jobs, body.(mailer.EmailJob))
	return nil
}

func (f *fakePublisher) sent() []mailer.EmailJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.jobs)
}

type fakeIndex struct {
	mu      sync.Mutex
	indexed map[int64]bool
}

func newFakeIndex() *fakeIndex { return &fakeIndex{indexed: map[int64]bool{}} }

func (f *fakeIndex) Index(_ context.Context, u *entity.User, _ *entity.UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed[u.ID] = true
	return nil
}

func (f *fakeIndex) Remove(_ context.Context, ids ...int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.indexed, id)
	}
	return nil
}

func (f *fakeIndex) Search(context.Context, string, int) ([]map[string]any, error) {
	return []map[string]any{{"id": 1}}, nil
}

type fakeImages struct {
	uploaded []string
	deleted  []string
}

func (f *fakeImages) Upload(_ context.Context, objectPath, _ string, r io.Reader) (string, error) {
	_, _ = io.ReadAll(r)
	f.uploaded = append(f.uploaded, objectPath)
	return "https://storage.googleapis.com/bkt/" + objectPath, nil
}

func (f *fakeImages) Delete(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}
