package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dishpal/coupon-core/internal/domain/entity"
	"github.com/dishpal/coupon-core/internal/domain/repository"
)

var retailerColumns = `r.id, r.name, r.contact_info, ` + latLonCols("r.location") + `, r.owner_id, r.analytics_data, r.created_at, r.updated_at`

type RetailerRepository struct {
	pool *pgxpool.Pool
}

func NewRetailerRepository(pool *pgxpool.Pool) *RetailerRepository {
	return &RetailerRepository{pool: pool}
}

func scanRetailer(row pgx.Row, extra ...any) (*entity.Retailer, error) {
	r := &entity.Retailer{}
	var analytics []byte
	dest := []any{&r.ID, &r.Name, &r.ContactInfo, &r.Location.Latitude, &r.Location.Longitude, &r.OwnerID, &analytics, &r.CreatedAt, &r.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, mapErr(err)
	}
	r.AnalyticsData = jsonObject(analytics)
	return r, nil
}

func (repo *RetailerRepository) Create(ctx context.Context, r *entity.Retailer) error {
	if r.AnalyticsData == nil {
		r.AnalyticsData = map[string]any{}
	}
	analytics, err := toJSON(r.AnalyticsData)
	if err != nil {
		return err
	}
	return mapErr(repo.pool.QueryRow(ctx, `
		INSERT INTO retailers (name, contact_info, location, owner_id, analytics_data)
		VALUES ($1, $2, `+pointSQL(3, 4)+`, $5, $6::jsonb)
		RETURNING id, created_at, updated_at
	`, r.Name, r.ContactInfo, r.Location.Longitude, r.Location.Latitude, r.OwnerID, analytics).
		Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt))
}

func (repo *RetailerRepository) GetByID(ctx context.Context, id int64) (*entity.Retailer, error) {
	return scanRetailer(repo.pool.QueryRow(ctx, `SELECT `+retailerColumns+` FROM retailers r WHERE r.id = $1`, id))
}

func (repo *RetailerRepository) query(ctx context.Context, sql string, args ...any) ([]*entity.Retailer, error) {
	rows, err := repo.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*entity.Retailer
	for rows.Next() {
		r, err := scanRetailer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, mapErr(rows.Err())
}

func (repo *RetailerRepository) List(ctx context.Context, limit, offset int) ([]*entity.Retailer, error) {
	return repo.query(ctx, `SELECT `+retailerColumns+` FROM retailers r ORDER BY r.id LIMIT $1 OFFSET $2`,
		clampLimit(limit, 50, 200), max(offset, 0))
}

func (repo *RetailerRepository) ListAll(ctx context.Context) ([]*entity.Retailer, error) {
	return repo.query(ctx, `SELECT `+retailerColumns+` FROM retailers r ORDER BY r.id`)
}

func (repo *RetailerRepository) Update(ctx context.Context, r *entity.Retailer) error {
	return mapErr(repo.pool.QueryRow(ctx, `
		UPDATE retailers
		SET name = $1, contact_info = $2, location = `+pointSQL(3, 4)+`, updated_at = now()
		WHERE id = $5
		RETURNING updated_at
	`, r.Name, r.ContactInfo, r.Location.Longitude, r.Location.Latitude, r.ID).Scan(&r.UpdatedAt))
}

func (repo *RetailerRepository) Delete(ctx context.Context, id int64) error {
	return affected(repo.pool.Exec(ctx, `DELETE FROM retailers WHERE id = $1`, id))
}

func (repo *RetailerRepository) Nearby(ctx context.Context, center entity.Point, radiusKm float64, limit int) ([]*entity.Retailer, []float64, error) {
	rows, err := repo.pool.Query(ctx, `
		SELECT `+retailerColumns+`, ST_Distance(r.location, `+pointSQL(1, 2)+`) / 1000.0 AS distance_km
		FROM retailers r
		WHERE ST_DWithin(r.location, `+pointSQL(1, 2)+`, $3::float8 * 1000)
		ORDER BY distance_km
		LIMIT $4
	`, center.Longitude, center.Latitude, radiusKm, clampLimit(limit, 50, 200))
	if err != nil {
		return nil, nil, mapErr(err)
	}
	defer rows.Close()
	var (
		out   []*entity.Retailer
		dists []float64
	)
	for rows.Next() {
		var d float64
		r, err := scanRetailer(rows, &d)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, r)
		dists = append(dists, d)
	}
	return out, dists, mapErr(rows.Err())
}

func (repo *RetailerRepository) UpdateAnalytics(ctx context.Context, id int64, data map[string]any) error {
	b, err := toJSON(data)
	if err != nil {
		return err
	}
	return affected(repo.pool.Exec(ctx, `UPDATE retailers SET analytics_data = $1::jsonb, updated_at = now() WHERE id = $2`, b, id))
}

func (repo *RetailerRepository) Analytics(ctx context.Context, id int64, now time.Time) (*entity.RetailerAnalytics, error) {
	a := &entity.RetailerAnalytics{}
	err := repo.pool.QueryRow(ctx, `
		SELECT
			count(d.id),
			count(d.id) FILTER (WHERE d.is_active AND d.expiration_date > $2),
			count(d.id) FILTER (WHERE d.expiration_date <= $2),
			COALESCE(avg(d.discount_value), 0)::float8,
			(SELECT count(*) FROM shared_discounts s JOIN discounts d2 ON d2.id = s.discount_id WHERE d2.retailer_id = $1),
			(SELECT count(*) FROM shared_discounts s JOIN discounts d2 ON d2.id = s.discount_id WHERE d2.retailer_id = $1 AND s.status = 'active'),
			(SELECT COALESCE(avg(jsonb_array_length(s.participants)), 0)::float8 FROM shared_discounts s JOIN discounts d2 ON d2.id = s.discount_id WHERE d2.retailer_id = $1)
		FROM discounts d
		WHERE d.retailer_id = $1
	`, id, now).Scan(&a.TotalDiscounts, &a.ActiveDiscounts, &a.ExpiredDiscounts, &a.AvgDiscountValue,
		&a.TotalSharedDiscounts, &a.ActiveSharedDiscounts, &a.AvgParticipants)
	if err != nil {
		return nil, mapErr(err)
	}
	return a, nil
}

var _ repository.RetailerRepository = (*RetailerRepository)(nil)
