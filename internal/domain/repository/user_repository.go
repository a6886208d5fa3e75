package repository

import (
	"context"

	"github.com/dishpal/coupon-core/internal/domain/entity"
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Update(ctx context.Context, u *entity.User) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	SetActivated(ctx context.Context, id int64, activated bool) error
	Delete(ctx context.Context, id int64) error
	DeleteMany(ctx context.Context, ids []int64) (int64, error)
	List(ctx context.Context, f entity.UserFilter) ([]*entity.User, int, error)
}

// RoleRepository manages roles and the user_roles join table.
type RoleRepository interface {
	Create(ctx context.Context, r *entity.Role) error
	GetByID(ctx context.Context, id int64) (*entity.Role, error)
	GetByName(ctx context.Context, name string) (*entity.Role, error)
	List(ctx context.Context) ([]*entity.Role, error)
	Update(ctx context.Context, r *entity.Role) error
	Delete(ctx context.Context, id int64) error
	Assign(ctx context.Context, userID, roleID int64) error
	Unassign(ctx context.Context, userID, roleID int64) error
	ListForUser(ctx context.Context, userID int64) ([]entity.Role, error)
}

// ProfileRepository manages user profiles.
type ProfileRepository interface {
	Create(ctx context.Context, p *entity.UserProfile) error
	GetByUserID(ctx context.Context, userID int64) (*entity.UserProfile, error)
	ListByUserIDs(ctx context.Context, userIDs []int64) ([]*entity.UserProfile, error)
	Update(ctx context.Context, p *entity.UserProfile) error
	DeleteByUserIDs(ctx context.Context, userIDs []int64) (int64, error)
	// ListNearby returns active users whose profile location is within radiusKm of center.
	ListNearby(ctx context.Context, center entity.Point, radiusKm float64, excludeUserID *int64) ([]entity.NearbyUser, error)
}

// VerificationRepository manages e-mail verification records (one per user).
type VerificationRepository interface {
	Upsert(ctx context.Context, v *entity.ProfileVerification) error
	GetByUserID(ctx context.Context, userID int64) (*entity.ProfileVerification, error)
	GetByEmailAndToken(ctx context.Context, email, token string) (*entity.ProfileVerification, error)
	MarkUsed(ctx context.Context, id int64) error
}
