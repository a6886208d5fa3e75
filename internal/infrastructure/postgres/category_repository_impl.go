package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dishpal/coupon-core/internal/domain/entity"
	"github.com/dishpal/coupon-core/internal/domain/repository"
)

type CategoryRepository struct {
	pool *pgxpool.Pool
}

func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

func (r *CategoryRepository) List(ctx context.Context) ([]entity.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, image FROM categories ORDER BY name`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []entity.Category
	for rows.Next() {
		var c entity.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Image); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, c)
	}
	return out, mapErr(rows.Err())
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*entity.Category, error) {
	c := &entity.Category{}
	if err := r.pool.QueryRow(ctx, `SELECT id, name, image FROM categories WHERE id = $1`, id).Scan(&c.ID, &c.Name, &c.Image); err != nil {
		return nil, mapErr(err)
	}
	return c, nil
}

// Upsert inserts a category or refreshes the image of an existing one with the same name.
func (r *CategoryRepository) Upsert(ctx context.Context, c *entity.Category) error {
	return mapErr(r.pool.QueryRow(ctx, `
		INSERT INTO categories (name, image) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET image = EXCLUDED.image
		RETURNING id
	`, c.Name, c.Image).Scan(&c.ID))
}

var _ repository.CategoryRepository = (*CategoryRepository)(nil)
