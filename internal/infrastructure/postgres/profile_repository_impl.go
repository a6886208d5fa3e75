package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dishpal/coupon-core/internal/domain/entity"
	"github.com/dishpal/coupon-core/internal/domain/repository"
)

var profileColumns = `id, user_id, preferences, ` + latLonCols("location") + `, profile_image, created_at, updated_at`

type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func scanProfile(row pgx.Row) (*entity.UserProfile, error) {
	p := &entity.UserProfile{}
	var prefs []byte
	var lat, lon *float64
	if err := row.Scan(&p.ID, &p.UserID, &prefs, &lat, &lon, &p.ProfileImage, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	p.Preferences = jsonObject(prefs)
	p.Location = pointFrom(lat, lon)
	return p, nil
}

func (r *ProfileRepository) Create(ctx context.Context, p *entity.UserProfile) error {
	if p.Preferences == nil {
		p.Preferences = map[string]any{}
	}
	prefs, err := toJSON(p.Preferences)
	if err != nil {
		return err
	}
	lon, lat := pointArgs(p.Location)
	row := r.pool.QueryRow(ctx, `
		INSERT INTO user_profiles (user_id, preferences, location, profile_image)
		VALUES ($1, $2::jsonb, `+nullablePointSQL(3, 4)+`, $5)
		RETURNING id, created_at, updated_at
	`, p.UserID, prefs, lon, lat, p.ProfileImage)
	return mapErr(row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt))
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID int64) (*entity.UserProfile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM user_profiles WHERE user_id = $1`, userID))
}

func (r *ProfileRepository) ListByUserIDs(ctx context.Context, userIDs []int64) ([]*entity.UserProfile, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+profileColumns+` FROM user_profiles WHERE user_id = ANY($1) ORDER BY user_id`, userIDs)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*entity.UserProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, mapErr(rows.Err())
}

func (r *ProfileRepository) Update(ctx context.Context, p *entity.UserProfile) error {
	prefs, err := toJSON(p.Preferences)
	if err != nil {
		return err
	}
	lon, lat := pointArgs(p.Location)
	return mapErr(r.pool.QueryRow(ctx, `
		UPDATE user_profiles
		SET preferences = $1::jsonb, location = `+nullablePointSQL(2, 3)+`, profile_image = $4, updated_at = now()
		WHERE user_id = $5
		RETURNING id, updated_at
	`, prefs, lon, lat, p.ProfileImage, p.UserID).Scan(&p.ID, &p.UpdatedAt))
}

func (r *ProfileRepository) DeleteByUserIDs(ctx context.Context, userIDs []int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_profiles WHERE user_id = ANY($1)`, userIDs)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}

func (r *ProfileRepository) ListNearby(ctx context.Context, center entity.Point, radiusKm float64, excludeUserID *int64) ([]entity.NearbyUser, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.email, u.username, u.first_name
		FROM user_profiles p JOIN users u ON u.id = p.user_id
		WHERE p.location IS NOT NULL
		  AND u.is_active
		  AND ($4::bigint IS NULL OR u.id <> $4)
		  AND ST_DWithin(p.location, `+pointSQL(1, 2)+`, $3::float8 * 1000)
		ORDER BY u.id
	`, center.Longitude, center.Latitude, radiusKm, excludeUserID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []entity.NearbyUser
	for rows.Next() {
		var n entity.NearbyUser
		if err := rows.Scan(&n.UserID, &n.Email, &n.Username, &n.FirstName); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, n)
	}
	return out, mapErr(rows.Err())
}

var _ repository.ProfileRepository = (*ProfileRepository)(nil)
