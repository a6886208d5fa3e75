package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dishpal/coupon-core/internal/domain/entity"
	"github.com/dishpal/coupon-core/internal/domain/repository"
)

var discountColumns = `d.id, d.retailer_id, d.category_id, d.description, d.discount_code, d.discount_value::float8,
	d.is_active, d.expiration_date, ` + latLonCols("d.location") + `, d.image, d.created_at, d.updated_at`

type DiscountRepository struct {
	pool *pgxpool.Pool
}

func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

func scanDiscount(row pgx.Row, extra ...any) (*entity.Discount, error) {
	d := &entity.Discount{}
	dest := []any{&d.ID, &d.RetailerID, &d.CategoryID, &d.Description, &d.DiscountCode, &d.DiscountValue,
		&d.IsActive, &d.ExpirationDate, &d.Location.Latitude, &d.Location.Longitude, &d.Image, &d.CreatedAt, &d.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, mapErr(err)
	}
	return d, nil
}

func (r *DiscountRepository) collect(rows pgx.Rows, withDistance bool) ([]*entity.Discount, error) {
	defer rows.Close()
	var out []*entity.Discount
	for rows.Next() {
		var (
			d    *entity.Discount
			err  error
			dist float64
		)
		if withDistance {
			d, err = scanDiscount(rows, &dist)
		} else {
			d, err = scanDiscount(rows)
		}
		if err != nil {
			return nil, err
		}
		if withDistance {
			d.DistanceKm = &dist
		}
		out = append(out, d)
	}
	return out, mapErr(rows.Err())
}

func (r *DiscountRepository) Create(ctx context.Context, d *entity.Discount) error {
	return mapErr(r.pool.QueryRow(ctx, `
		INSERT INTO discounts (retailer_id, category_id, description, discount_code, discount_value,
		                       is_active, expiration_date, location, image)
		VALUES ($1, $2, $3, $4, $5::float8, $6, $7, `+pointSQL(8, 9)+`, $10)
		RETURNING id, created_at, updated_at
	`, d.RetailerID, d.CategoryID, d.Description, d.DiscountCode, d.DiscountValue,
		d.IsActive, d.ExpirationDate, d.Location.Longitude, d.Location.Latitude, d.Image).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt))
}

func (r *DiscountRepository) GetByID(ctx context.Context, id int64) (*entity.Discount, error) {
	return scanDiscount(r.pool.QueryRow(ctx, `SELECT `+discountColumns+` FROM discounts d WHERE d.id = $1`, id))
}

// GetByIDs returns the discounts in the order of ids; unknown ids are skipped.
func (r *DiscountRepository) GetByIDs(ctx context.Context, ids []int64) ([]*entity.Discount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+discountColumns+`
		FROM discounts d JOIN unnest($1::bigint[]) WITH ORDINALITY AS ids(id, ord) ON ids.id = d.id
		ORDER BY ids.ord
	`, ids)
	if err != nil {
		return nil, mapErr(err)
	}
	return r.collect(rows, false)
}

func discountFilterWhere(f entity.DiscountFilter) *whereBuilder {
	w := &whereBuilder{}
	if q := strings.TrimSpace(f.Query); q != "" {
		w.add("d.description ILIKE ?", containsPattern(q))
	}
	if f.RetailerID != nil {
		w.add("d.retailer_id = ?", *f.RetailerID)
	}
	if f.CategoryID != nil {
		w.add("d.category_id = ?", *f.CategoryID)
	}
	if f.MinValue != nil {
		w.add("d.discount_value >= ?::float8", *f.MinValue)
	}
	if f.MaxValue != nil {
		w.add("d.discount_value <= ?::float8", *f.MaxValue)
	}
	if f.IsActive != nil {
		w.add("d.is_active = ?", *f.IsActive)
	}
	return w
}

func (r *DiscountRepository) List(ctx context.Context, f entity.DiscountFilter) ([]*entity.Discount, error) {
	w := discountFilterWhere(f)
	limit := w.arg(clampLimit(f.Limit, 50, 200))
	offset := w.arg(max(f.Offset, 0))
	rows, err := r.pool.Query(ctx, `SELECT `+discountColumns+` FROM discounts d`+w.sql()+
		` ORDER BY d.created_at DESC, d.id DESC LIMIT `+limit+` OFFSET `+offset, w.args...)
	if err != nil {
		return nil, mapErr(err)
	}
	return r.collect(rows, false)
}

func (r *DiscountRepository) Update(ctx context.Context, d *entity.Discount) error {
	return mapErr(r.pool.QueryRow(ctx, `
		UPDATE discounts
		SET retailer_id = $1, category_id = $2, description = $3, discount_code = $4, discount_value = $5::float8,
		    is_active = $6, expiration_date = $7, location = `+pointSQL(8, 9)+`, image = $10, updated_at = now()
		WHERE id = $11
		RETURNING updated_at
	`, d.RetailerID, d.CategoryID, d.Description, d.DiscountCode, d.DiscountValue,
		d.IsActive, d.ExpirationDate, d.Location.Longitude, d.Location.Latitude, d.Image, d.ID).Scan(&d.UpdatedAt))
}

func (r *DiscountRepository) Delete(ctx context.Context, id int64) error {
	return affected(r.pool.Exec(ctx, `DELETE FROM discounts WHERE id = $1`, id))
}

func (r *DiscountRepository) Nearby(ctx context.Context, center entity.Point, radiusKm float64, limit int) ([]*entity.Discount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+discountColumns+`, ST_Distance(d.location, `+pointSQL(1, 2)+`) / 1000.0 AS distance_km
		FROM discounts d
		WHERE d.is_active
		  AND d.expiration_date > now()
		  AND ST_DWithin(d.location, `+pointSQL(1, 2)+`, $3::float8 * 1000)
		ORDER BY distance_km
		LIMIT $4
	`, center.Longitude, center.Latitude, radiusKm, clampLimit(limit, 50, 200))
	if err != nil {
		return nil, mapErr(err)
	}
	return r.collect(rows, true)
}

func (r *DiscountRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE discounts SET is_active = FALSE, updated_at = now()
		WHERE is_active AND expiration_date < $1
	`, now)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}

func (r *DiscountRepository) ListExpiring(ctx context.Context, from, to time.Time) ([]*entity.Discount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+discountColumns+`
		FROM discounts d
		WHERE d.is_active AND d.expiration_date >= $1 AND d.expiration_date <= $2
		ORDER BY d.expiration_date
	`, from, to)
	if err != nil {
		return nil, mapErr(err)
	}
	return r.collect(rows, false)
}

var _ repository.DiscountRepository = (*DiscountRepository)(nil)
