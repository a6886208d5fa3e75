package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dishpal/coupon-core/internal/domain/entity"
	repo "github.com/dishpal/coupon-core/internal/domain/repository"
	"github.com/dishpal/coupon-core/internal/geo"
	"github.com/dishpal/coupon-core/pkg/validation"
)

type RetailerService struct {
	Retailers repo.RetailerRepository
	Auth      Authorizer
	Logger    *logrus.Logger
}

func NewRetailerService(retailers repo.RetailerRepository, auth Authorizer, logger *logrus.Logger) *RetailerService {
	return &RetailerService{Retailers: retailers, Auth: auth, Logger: logger}
}

// RetailerInput carries writable retailer fields; nil fields are untouched on PATCH.
type RetailerInput struct {
	Name        *string       `json:"name"`
	ContactInfo *string       `json:"contact_info"`
	Location    *entity.Point `json:"location"`
}

func (in RetailerInput) validate(create bool) error {
	if create {
		if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
			return validation.Details("name", "is required")
		}
		if in.Location == nil {
			return validation.Details("location", "is required")
		}
	}
	if in.Name != nil && len(strings.TrimSpace(*in.Name)) > 255 {
		return validation.Details("name", "must be at most 255 characters long")
	}
	if in.Location != nil {
		if err := in.Location.Validate(); err != nil {
			return validation.Details("location", err.Error())
		}
	}
	return nil
}

func (in RetailerInput) apply(r *entity.Retailer) {
	if in.Name != nil {
		r.Name = strings.TrimSpace(*in.Name)
	}
	if in.ContactInfo != nil {
		r.ContactInfo = strings.TrimSpace(*in.ContactInfo)
	}
	if in.Location != nil {
		r.Location = *in.Location
	}
}

func (s *RetailerService) List(ctx context.Context, limit, offset int) ([]*entity.Retailer, error) {
	return s.Retailers.List(ctx, limit, offset)
}

func (s *RetailerService) Get(ctx context.Context, id int64) (*entity.Retailer, error) {
	r, err := s.Retailers.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrRetailerNotFound
	}
	return r, err
}

// Create registers a retailer owned by the caller.
func (s *RetailerService) Create(ctx context.Context, c Caller, in RetailerInput) (*entity.Retailer, error) {
	if s.Auth.IsGuest(ctx, c) {
		return nil, ErrForbidden
	}
	if err := in.validate(true); err != nil {
		return nil, err
	}
	owner := c.UserID
	r := &entity.Retailer{OwnerID: &owner, AnalyticsData: map[string]any{}}
	in.apply(r)
	if err := s.Retailers.Create(ctx, r); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, ErrRetailerExists
		}
		return nil, err
	}
	return r, nil
}

func (s *RetailerService) Update(ctx context.Context, c Caller, id int64, in RetailerInput) (*entity.Retailer, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}
	r, err := canManageRetailer(ctx, s.Retailers, s.Auth, c, id)
	if err != nil {
		return nil, err
	}
	in.apply(r)
	if err := s.Retailers.Update(ctx, r); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, ErrRetailerExists
		}
		return nil, err
	}
	return r, nil
}

func (s *RetailerService) Delete(ctx context.Context, c Caller, id int64) error {
	if _, err := canManageRetailer(ctx, s.Retailers, s.Auth, c, id); err != nil {
		return err
	}
	return s.Retailers.Delete(ctx, id)
}

// NearbyRetailer is a retailer annotated with its distance from the query point.
type NearbyRetailer struct {
	Retailer   *entity.Retailer
	DistanceKm float64
}

// Nearby lists retailers within radiusKm of center. Out-of-range input yields
// an empty list rather than an error.
func (s *RetailerService) Nearby(ctx context.Context, center entity.Point, radiusKm float64) ([]NearbyRetailer, error) {
	if center.Validate() != nil || radiusKm <= 0 {
		return []NearbyRetailer{}, nil
	}
	rs, dists, err := s.Retailers.Nearby(ctx, center, radiusKm, NearbyLimit)
	if err != nil {
		return nil, err
	}
	out := make([]NearbyRetailer, 0, len(rs))
	for i, r := range rs {
		d := geo.HaversineKm(center, r.Location)
		if i < len(dists) {
			d = dists[i]
		}
		out = append(out, NearbyRetailer{Retailer: r, DistanceKm: geo.RoundKm(d)})
	}
	return out, nil
}

// Analytics aggregates discount and shared-discount figures for the owner or an admin.
func (s *RetailerService) Analytics(ctx context.Context, c Caller, id int64) (*entity.RetailerAnalytics, error) {
	if _, err := canManageRetailer(ctx, s.Retailers, s.Auth, c, id); err != nil {
		return nil, err
	}
	return s.Retailers.Analytics(ctx, id, time.Now())
}
