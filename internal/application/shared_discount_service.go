package application

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dishpal/coupon-core/internal/domain/entity"
	repo "github.com/dishpal/coupon-core/internal/domain/repository"
	"github.com/dishpal/coupon-core/pkg/validation"
)

type SharedDiscountService struct {
	Shared    repo.SharedDiscountRepository
	Discounts repo.DiscountRepository
	Retailers repo.RetailerRepository
	Auth      Authorizer
	Logger    *logrus.Logger
}

func NewSharedDiscountService(shared repo.SharedDiscountRepository, discounts repo.DiscountRepository, retailers repo.RetailerRepository, auth Authorizer, logger *logrus.Logger) *SharedDiscountService {
	return &SharedDiscountService{Shared: shared, Discounts: discounts, Retailers: retailers, Auth: auth, Logger: logger}
}

// SharedDiscountInput carries writable group fields; nil fields are untouched on PATCH.
type SharedDiscountInput struct {
	DiscountID      *int64               `json:"discount"`
	GroupName       *string              `json:"group_name"`
	Participants    *[]int64             `json:"participants"`
	MinParticipants *int                 `json:"min_participants"`
	MaxParticipants *int                 `json:"max_participants"`
	Status          *entity.SharedStatus `json:"status"`
}

func (in SharedDiscountInput) apply(s *entity.SharedDiscount) {
	if in.DiscountID != nil {
		s.DiscountID = *in.DiscountID
	}
	if in.GroupName != nil {
		s.GroupName = strings.TrimSpace(*in.GroupName)
	}
	if in.Participants != nil {
		s.Participants = slices.Clone(*in.Participants)
	}
	if in.MinParticipants != nil {
		s.MinParticipants = *in.MinParticipants
	}
	if in.MaxParticipants != nil {
		s.MaxParticipants = *in.MaxParticipants
	}
	if in.Status != nil {
		s.Status = *in.Status
	}
}

// validateGroup checks the group bounds and participant list.
func validateGroup(s *entity.SharedDiscount) error {
	switch {
	case s.GroupName == "":
		return validation.Details("group_name", "is required")
	case len(s.GroupName) > 255:
		return validation.Details("group_name", "must be at most 255 characters long")
	case s.MinParticipants < 1:
		return validation.Details("min_participants", "must be at least 1")
	case s.MaxParticipants < s.MinParticipants:
		return validation.Details("max_participants", "must be greater than or equal to min_participants")
	case len(s.Participants) > s.MaxParticipants:
		return validation.Details("participants", "cannot exceed max_participants")
	case !s.Status.Valid():
		return validation.Details("status", "must be one of: active, completed, expired")
	}
	seen := make(map[int64]struct{}, len(s.Participants))
	for _, p := range s.Participants {
		if _, dup := seen[p]; dup {
			return validation.Details("participants", "must not contain duplicates")
		}
		seen[p] = struct{}{}
	}
	return nil
}

// authorize checks the caller manages the retailer behind the discount.
func (s *SharedDiscountService) authorize(ctx context.Context, c Caller, discountID int64) error {
	d, err := s.Discounts.GetByID(ctx, discountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return validation.Details("discount", "does not exist")
		}
		return err
	}
	_, err = canManageRetailer(ctx, s.Retailers, s.Auth, c, d.RetailerID)
	return err
}

func (s *SharedDiscountService) List(ctx context.Context, limit, offset int) ([]*entity.SharedDiscount, error) {
	return s.Shared.List(ctx, limit, offset)
}

func (s *SharedDiscountService) Get(ctx context.Context, id int64) (*entity.SharedDiscount, error) {
	g, err := s.Shared.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	return g, err
}

func (s *SharedDiscountService) Create(ctx context.Context, c Caller, in SharedDiscountInput) (*entity.SharedDiscount, error) {
	if in.DiscountID == nil {
		return nil, validation.Details("discount", "is required")
	}
	g := &entity.SharedDiscount{
		Participants:    []int64{},
		MinParticipants: entity.DefaultMinParticipants,
		MaxParticipants: entity.DefaultMaxParticipants,
		Status:          entity.SharedActive,
	}
	in.apply(g)
	if err := validateGroup(g); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, c, g.DiscountID); err != nil {
		return nil, err
	}
	if err := s.Shared.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *SharedDiscountService) Update(ctx context.Context, c Caller, id int64, in SharedDiscountInput) (*entity.SharedDiscount, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, c, g.DiscountID); err != nil {
		return nil, err
	}
	in.apply(g)
	if err := validateGroup(g); err != nil {
		return nil, err
	}
	if in.DiscountID != nil {
		if err := s.authorize(ctx, c, g.DiscountID); err != nil {
			return nil, err
		}
	}
	if err := s.Shared.Update(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *SharedDiscountService) Delete(ctx context.Context, c Caller, id int64) error {
	g, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, c, g.DiscountID); err != nil {
		return err
	}
	return s.Shared.Delete(ctx, id)
}

// Join adds the caller to an active group. Joining twice is a no-op; filling
// the last seat completes the group.
func (s *SharedDiscountService) Join(ctx context.Context, c Caller, id int64) (*entity.SharedDiscount, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.Status != entity.SharedActive {
		return nil, ErrGroupClosed
	}
	if g.HasParticipant(c.UserID) {
		return g, nil
	}
	if g.IsFull() {
		return nil, ErrGroupFull
	}
	g.Participants = append(g.Participants, c.UserID)
	if g.IsFull() {
		g.Status = entity.SharedCompleted
	}
	if err := s.Shared.Update(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// Leave removes the caller from a group. A completed group that drops below
// its maximum becomes active again.
func (s *SharedDiscountService) Leave(ctx context.Context, c Caller, id int64) (*entity.SharedDiscount, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.Status == entity.SharedExpired {
		return nil, ErrGroupClosed
	}
	i := slices.Index(g.Participants, c.UserID)
	if i < 0 {
		return nil, ErrNotParticipant
	}
	g.Participants = slices.Delete(g.Participants, i, i+1)
	if g.Status == entity.SharedCompleted && !g.IsFull() {
		g.Status = entity.SharedActive
	}
	if err := s.Shared.Update(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}
