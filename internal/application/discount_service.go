package application

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/dishpal/coupon-core/internal/domain/entity"
	repo "github.com/dishpal/coupon-core/internal/domain/repository"
	"github.com/dishpal/coupon-core/internal/embedding"
	"github.com/dishpal/coupon-core/internal/geo"
	"github.com/dishpal/coupon-core/pkg/helpers"
	"github.com/dishpal/coupon-core/pkg/validation"
)

const (
	// CategoriesCacheTTL is how long the public category list stays in Redis.
	CategoriesCacheTTL = 30 * time.Minute
	// NearbyLimit caps radius query results.
	NearbyLimit = 50
	// DefaultTopK is the default number of semantic search hits.
	DefaultTopK = 10
)

// NearbyDispatcher schedules the nearby-user notification of a new discount.
type NearbyDispatcher interface {
	DispatchDiscountNotifications(discountID int64)
}

// DiscountService implements discount CRUD, radius queries, text and vector
// search, and the cached category list.
type DiscountService struct {
	Discounts  repo.DiscountRepository
	Retailers  repo.RetailerRepository
	Categories repo.CategoryRepository
	Vectors    repo.VectorStore
	Embedder   embedding.Embedder
	Images     ImageStore
	Redis      redis.Cmdable
	Dispatcher NearbyDispatcher
	Auth       Authorizer
	Logger     *logrus.Logger
}

// DiscountInput carries writable discount fields; nil fields are untouched on PATCH.
type DiscountInput struct {
	RetailerID     *int64        `json:"retailer"`
	CategoryID     *int64        `json:"category"`
	Description    *string       `json:"description"`
	DiscountCode   *string       `json:"discount_code"`
	DiscountValue  *float64      `json:"discount_value"`
	IsActive       *bool         `json:"is_active"`
	ExpirationDate *time.Time    `json:"expiration_date"`
	Location       *entity.Point `json:"location"`
}

func (in DiscountInput) validate(create bool) error {
	if create {
		switch {
		case in.RetailerID == nil:
			return validation.Details("retailer", "is required")
		case in.Description == nil || strings.TrimSpace(*in.Description) == "":
			return validation.Details("description", "is required")
		case in.DiscountCode == nil || strings.TrimSpace(*in.DiscountCode) == "":
			return validation.Details("discount_code", "is required")
		case in.DiscountValue == nil:
			return validation.Details("discount_value", "is required")
		case in.ExpirationDate == nil:
			return validation.Details("expiration_date", "is required")
		case in.Location == nil:
			return validation.Details("location", "is required")
		}
	}
	if in.DiscountCode != nil && len(strings.TrimSpace(*in.DiscountCode)) > entity.MaxDiscountCodeLen {
		return validation.Details("discount_code", "must be at most "+strconv.Itoa(entity.MaxDiscountCodeLen)+" characters long")
	}
	if in.DiscountValue != nil && (*in.DiscountValue < 0 || *in.DiscountValue >= 1e8) {
		return validation.Details("discount_value", "must be between 0 and 99999999.99")
	}
	if in.Location != nil {
		if err := in.Location.Validate(); err != nil {
			return validation.Details("location", err.Error())
		}
	}
	return nil
}

func (in DiscountInput) apply(d *entity.Discount) {
	if in.RetailerID != nil {
		d.RetailerID = *in.RetailerID
	}
	if in.CategoryID != nil {
		if *in.CategoryID == 0 {
			d.CategoryID = nil
		} else {
			id := *in.CategoryID
			d.CategoryID = &id
		}
	}
	if in.Description != nil {
		d.Description = strings.TrimSpace(*in.Description)
	}
	if in.DiscountCode != nil {
		d.DiscountCode = strings.TrimSpace(*in.DiscountCode)
	}
	if in.DiscountValue != nil {
		d.DiscountValue = *in.DiscountValue
	}
	if in.IsActive != nil {
		d.IsActive = *in.IsActive
	}
	if in.ExpirationDate != nil {
		d.ExpirationDate = *in.ExpirationDate
	}
	if in.Location != nil {
		d.Location = *in.Location
	}
}

func mapDiscountWriteErr(err error) error {
	switch {
	case errors.Is(err, repo.ErrConflict):
		return ErrCodeTaken
	case errors.Is(err, repo.ErrInvalidReference):
		return ErrCategoryNotFound
	case errors.Is(err, repo.ErrConstraint):
		return validation.Details("discount_value", "must be greater than or equal to 0")
	}
	return err
}

// canManageRetailer loads the retailer and checks the caller owns it or is an admin.
func canManageRetailer(ctx context.Context, retailers repo.RetailerRepository, auth Authorizer, c Caller, retailerID int64) (*entity.Retailer, error) {
	r, err := retailers.GetByID(ctx, retailerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRetailerNotFound
		}
		return nil, err
	}
	if !r.IsOwnedBy(c.UserID) && !auth.IsAdmin(ctx, c) {
		return nil, ErrForbidden
	}
	return r, nil
}

func (s *DiscountService) List(ctx context.Context, f entity.DiscountFilter) ([]*entity.Discount, error) {
	return s.Discounts.List(ctx, f)
}

func (s *DiscountService) Get(ctx context.Context, id int64) (*entity.Discount, error) {
	d, err := s.Discounts.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	return d, err
}

func (s *DiscountService) Create(ctx context.Context, c Caller, in DiscountInput) (*entity.Discount, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}
	if _, err := canManageRetailer(ctx, s.Retailers, s.Auth, c, *in.RetailerID); err != nil {
		if errors.Is(err, ErrRetailerNotFound) {
			return nil, validation.Details("retailer", "does not exist")
		}
		return nil, err
	}
	d := &entity.Discount{IsActive: true}
	in.apply(d)
	if err := s.Discounts.Create(ctx, d); err != nil {
		return nil, mapDiscountWriteErr(err)
	}
	s.syncVector(ctx, d)
	if s.Dispatcher != nil {
		s.Dispatcher.DispatchDiscountNotifications(d.ID)
	}
	return d, nil
}

func (s *DiscountService) Update(ctx context.Context, c Caller, id int64, in DiscountInput) (*entity.Discount, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := canManageRetailer(ctx, s.Retailers, s.Auth, c, d.RetailerID); err != nil {
		return nil, err
	}
	if in.RetailerID != nil && *in.RetailerID != d.RetailerID {
		if _, err := canManageRetailer(ctx, s.Retailers, s.Auth, c, *in.RetailerID); err != nil {
			if errors.Is(err, ErrRetailerNotFound) {
				return nil, validation.Details("retailer", "does not exist")
			}
			return nil, err
		}
	}
	in.apply(d)
	if err := s.Discounts.Update(ctx, d); err != nil {
		return nil, mapDiscountWriteErr(err)
	}
	s.syncVector(ctx, d)
	return d, nil
}

func (s *DiscountService) Delete(ctx context.Context, c Caller, id int64) error {
	d, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := canManageRetailer(ctx, s.Retailers, s.Auth, c, d.RetailerID); err != nil {
		return err
	}
	if err := s.Discounts.Delete(ctx, id); err != nil {
		return err
	}
	if s.Vectors != nil {
		if err := s.Vectors.Delete(ctx, id); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("discount_id", id).Warn("delete discount vector failed")
		}
	}
	if s.Images != nil && d.Image != "" {
		_ = s.Images.Delete(ctx, d.Image)
	}
	return nil
}

// syncVector re-embeds the description; failures are logged and do not fail the write.
func (s *DiscountService) syncVector(ctx context.Context, d *entity.Discount) {
	if s.Vectors == nil || s.Embedder == nil {
		return
	}
	vec, err := s.Embedder.Embed(ctx, d.Description)
	if err == nil {
		err = s.Vectors.Upsert(ctx, d.ID, vec)
	}
	if err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("discount_id", d.ID).Warn("sync discount vector failed")
	}
}

// Nearby returns active discounts within radiusKm of center, closest first.
func (s *DiscountService) Nearby(ctx context.Context, center entity.Point, radiusKm float64) ([]*entity.Discount, error) {
	if err := center.Validate(); err != nil {
		return nil, validation.Details("location", err.Error())
	}
	if radiusKm <= 0 {
		return nil, validation.Details("radius", "must be greater than 0")
	}
	ds, err := s.Discounts.Nearby(ctx, center, radiusKm, NearbyLimit)
	if err != nil {
		return nil, err
	}
	for _, d := range ds {
		if d.DistanceKm == nil {
			km := geo.HaversineKm(center, d.Location)
			d.DistanceKm = &km
		}
		km := geo.RoundKm(*d.DistanceKm)
		d.DistanceKm = &km
	}
	return ds, nil
}

// SearchHit is a discount returned by semantic search with its vector distance.
type SearchHit struct {
	Discount *entity.Discount
	Distance float64
}

// SemanticSearch embeds query and returns the closest discounts in similarity order.
func (s *DiscountService) SemanticSearch(ctx context.Context, query string, topK int) ([]SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validation.Details("query", "is required")
	}
	if topK <= 0 {
		return nil, validation.Details("top_k", "must be greater than 0")
	}
	if s.Vectors == nil || s.Embedder == nil {
		return nil, ErrUnavailable
	}
	vec, err := s.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	matches, err := s.Vectors.Search(ctx, vec, topK)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	ds, err := s.Discounts.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*entity.Discount, len(ds))
	for _, d := range ds {
		byID[d.ID] = d
	}
	hits := make([]SearchHit, 0, len(matches))
	for _, m := range matches {
		if d, ok := byID[m.ID]; ok {
			hits = append(hits, SearchHit{Discount: d, Distance: m.Distance})
		}
	}
	return hits, nil
}

// ListCategories returns every category, served from Redis when cached.
func (s *DiscountService) ListCategories(ctx context.Context) ([]entity.Category, error) {
	if s.Redis != nil {
		var cached []entity.Category
		found, err := helpers.RedisGetJSON(ctx, s.Redis, helpers.KeyCategories, &cached)
		if err == nil && found && len(cached) > 0 {
			return cached, nil
		}
		if err != nil && s.Logger != nil {
			s.Logger.WithError(err).Warn("read categories cache failed")
		}
	}
	cats, err := s.Categories.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(cats) == 0 {
		return nil, ErrNoCategories
	}
	if s.Redis != nil {
		if err := helpers.RedisSetJSON(ctx, s.Redis, helpers.KeyCategories, cats, CategoriesCacheTTL); err != nil && s.Logger != nil {
			s.Logger.WithError(err).Warn("write categories cache failed")
		}
	}
	return cats, nil
}

// UploadImage stores a discount image; only the retailer owner may do this.
func (s *DiscountService) UploadImage(ctx context.Context, c Caller, id int64, filename string, r io.Reader) (*entity.Discount, error) {
	if s.Images == nil {
		return nil, ErrUnavailable
	}
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := canManageRetailer(ctx, s.Retailers, s.Auth, c, d.RetailerID); err != nil {
		return nil, err
	}
	objectPath, contentType, err := ImageObjectPath("discount_images/"+strconv.FormatInt(id, 10), filename)
	if err != nil {
		return nil, err
	}
	url, err := s.Images.Upload(ctx, objectPath, contentType, r)
	if err != nil {
		return nil, err
	}
	old := d.Image
	d.Image = url
	if err := s.Discounts.Update(ctx, d); err != nil {
		return nil, err
	}
	if old != "" && old != url {
		_ = s.Images.Delete(ctx, old)
	}
	return d, nil
}

func NewDiscountService(discounts repo.DiscountRepository, retailers repo.RetailerRepository, categories repo.CategoryRepository,
	vectors repo.VectorStore, embedder embedding.Embedder, images ImageStore, rdb redis.Cmdable,
	dispatcher NearbyDispatcher, auth Authorizer, logger *logrus.Logger) *DiscountService {
	return &DiscountService{
		Discounts:  discounts,
		Retailers:  retailers,
		Categories: categories,
		Vectors:    vectors,
		Embedder:   embedder,
		Images:     images,
		Redis:      rdb,
		Dispatcher: dispatcher,
		Auth:       auth,
		Logger:     logger,
	}
}
