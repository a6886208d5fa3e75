package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dishpal/coupon-core/internal/domain/entity"
	"github.com/dishpal/coupon-core/internal/domain/repository"
)

type VerificationRepository struct {
	pool *pgxpool.Pool
}

func NewVerificationRepository(pool *pgxpool.Pool) *VerificationRepository {
	return &VerificationRepository{pool: pool}
}

// Upsert replaces the user's verification record with a fresh, unused token.
func (r *VerificationRepository) Upsert(ctx context.Context, v *entity.ProfileVerification) error {
	return mapErr(r.pool.QueryRow(ctx, `
		INSERT INTO profile_verifications (user_id, token, created_at, expires_at, used)
		VALUES ($1, $2::uuid, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET token = EXCLUDED.token, created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at, used = EXCLUDED.used
		RETURNING id
	`, v.UserID, v.Token, v.CreatedAt, v.ExpiresAt, v.Used).Scan(&v.ID))
}

func (r *VerificationRepository) GetByUserID(ctx context.Context, userID int64) (*entity.ProfileVerification, error) {
	v := &entity.ProfileVerification{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, token::text, created_at, expires_at, used
		FROM profile_verifications WHERE user_id = $1
	`, userID).Scan(&v.ID, &v.UserID, &v.Token, &v.CreatedAt, &v.ExpiresAt, &v.Used)
	if err != nil {
		return nil, mapErr(err)
	}
	return v, nil
}

func (r *VerificationRepository) GetByEmailAndToken(ctx context.Context, email, token string) (*entity.ProfileVerification, error) {
	v := &entity.ProfileVerification{}
	err := r.pool.QueryRow(ctx, `
		SELECT pv.id, pv.user_id, pv.token::text, pv.created_at, pv.expires_at, pv.used
		FROM profile_verifications pv JOIN users u ON u.id = pv.user_id
		WHERE lower(u.email) = lower($1) AND pv.token::text = $2
	`, email, token).Scan(&v.ID, &v.UserID, &v.Token, &v.CreatedAt, &v.ExpiresAt, &v.Used)
	if err != nil {
		return nil, mapErr(err)
	}
	return v, nil
}

func (r *VerificationRepository) MarkUsed(ctx context.Context, id int64) error {
	return affected(r.pool.Exec(ctx, `UPDATE profile_verifications SET used = TRUE WHERE id = $1`, id))
}

var _ repository.VerificationRepository = (*VerificationRepository)(nil)
