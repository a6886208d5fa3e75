package repository

import (
	"context"
	"time"

	"github.com/dishpal/coupon-core/internal/domain/entity"
)

type CategoryRepository interface {
	List(ctx context.Context) ([]entity.Category, error)
	GetByID(ctx context.Context, id int64) (*entity.Category, error)
	Upsert(ctx context.Context, c *entity.Category) error
}

type RetailerRepository interface {
	Create(ctx context.Context, r *entity.Retailer) error
	GetByID(ctx context.Context, id int64) (*entity.Retailer, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Retailer, error)
	ListAll(ctx context.Context) ([]*entity.Retailer, error)
	Update(ctx context.Context, r *entity.Retailer) error
	Delete(ctx context.Context, id int64) error
	// Nearby returns retailers within radiusKm of center ordered by distance.
	Nearby(ctx context.Context, center entity.Point, radiusKm float64, limit int) ([]*entity.Retailer, []float64, error)
	UpdateAnalytics(ctx context.Context, id int64, data map[string]any) error
	Analytics(ctx context.Context, id int64, now time.Time) (*entity.RetailerAnalytics, error)
}

type DiscountRepository interface {
	Create(ctx context.Context, d *entity.Discount) error
	GetByID(ctx context.Context, id int64) (*entity.Discount, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*entity.Discount, error)
	List(ctx context.Context, f entity.DiscountFilter) ([]*entity.Discount, error)
	Update(ctx context.Context, d *entity.Discount) error
	Delete(ctx context.Context, id int64) error
	// Nearby returns active, unexpired discounts within radiusKm ordered by distance.
	Nearby(ctx context.Context, center entity.Point, radiusKm float64, limit int) ([]*entity.Discount, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
	ListExpiring(ctx context.Context, from, to time.Time) ([]*entity.Discount, error)
}

type SharedDiscountRepository interface {
	Create(ctx context.Context, s *entity.SharedDiscount) error
	GetByID(ctx context.Context, id int64) (*entity.SharedDiscount, error)
	List(ctx context.Context, limit, offset int) ([]*entity.SharedDiscount, error)
	Update(ctx context.Context, s *entity.SharedDiscount) error
	Delete(ctx context.Context, id int64) error
	// ExpireForExpiredDiscounts marks active groups whose discount has expired.
	ExpireForExpiredDiscounts(ctx context.Context, now time.Time) (int64, error)
	CompleteFull(ctx context.Context) (int64, error)
	ExpireStale(ctx context.Context, createdBefore time.Time) (int64, error)
}

// VectorMatch is a nearest-neighbour hit from the vector store.
type VectorMatch struct {
	ID       int64
	Distance float64
}

// VectorStore persists discount embeddings and answers similarity queries.
type VectorStore interface {
	Upsert(ctx context.Context, id int64, vec []float32) error
	Search(ctx context.Context, vec []float32, k int) ([]VectorMatch, error)
	Delete(ctx context.Context, id int64) error
}
