package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dishpal/coupon-core/internal/domain/entity"
	"github.com/dishpal/coupon-core/internal/domain/repository"
)

const sharedColumns = `id, discount_id, group_name, participants, min_participants, max_participants, status, created_at, updated_at`

type SharedDiscountRepository struct {
	pool *pgxpool.Pool
}

func NewSharedDiscountRepository(pool *pgxpool.Pool) *SharedDiscountRepository {
	return &SharedDiscountRepository{pool: pool}
}

func scanShared(row pgx.Row) (*entity.SharedDiscount, error) {
	s := &entity.SharedDiscount{}
	var participants []byte
	var status string
	if err := row.Scan(&s.ID, &s.DiscountID, &s.GroupName, &participants, &s.MinParticipants, &s.MaxParticipants,
		&status, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	s.Status = entity.SharedStatus(status)
	if len(participants) > 0 {
		_ = json.Unmarshal(participants, &s.Participants)
	}
	if s.Participants == nil {
		s.Participants = []int64{}
	}
	return s, nil
}

func participantsJSON(ids []int64) ([]byte, error) {
	if ids == nil {
		ids = []int64{}
	}
	return json.Marshal(ids)
}

func (r *SharedDiscountRepository) Create(ctx context.Context, s *entity.SharedDiscount) error {
	p, err := participantsJSON(s.Participants)
	if err != nil {
		return err
	}
	return mapErr(r.pool.QueryRow(ctx, `
		INSERT INTO shared_discounts (discount_id, group_name, participants, min_participants, max_participants, status)
		VALUES ($1, $2, $3::jsonb, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, s.DiscountID, s.GroupName, p, s.MinParticipants, s.MaxParticipants, string(s.Status)).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt))
}

func (r *SharedDiscountRepository) GetByID(ctx context.Context, id int64) (*entity.SharedDiscount, error) {
	return scanShared(r.pool.QueryRow(ctx, `SELECT `+sharedColumns+` FROM shared_discounts WHERE id = $1`, id))
}

func (r *SharedDiscountRepository) List(ctx context.Context, limit, offset int) ([]*entity.SharedDiscount, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+sharedColumns+` FROM shared_discounts ORDER BY id LIMIT $1 OFFSET $2`,
		clampLimit(limit, 50, 200), max(offset, 0))
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*entity.SharedDiscount
	for rows.Next() {
		s, err := scanShared(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, mapErr(rows.Err())
}

func (r *SharedDiscountRepository) Update(ctx context.Context, s *entity.SharedDiscount) error {
	p, err := participantsJSON(s.Participants)
	if err != nil {
		return err
	}
	return mapErr(r.pool.QueryRow(ctx, `
		UPDATE shared_discounts
		SET discount_id = $1, group_name = $2, participants = $3::jsonb, min_participants = $4,
		    max_participants = $5, status = $6, updated_at = now()
		WHERE id = $7
		RETURNING updated_at
	`, s.DiscountID, s.GroupName, p, s.MinParticipants, s.MaxParticipants, string(s.Status), s.ID).Scan(&s.UpdatedAt))
}

func (r *SharedDiscountRepository) Delete(ctx context.Context, id int64) error {
	return affected(r.pool.Exec(ctx, `DELETE FROM shared_discounts WHERE id = $1`, id))
}

func (r *SharedDiscountRepository) exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}

func (r *SharedDiscountRepository) ExpireForExpiredDiscounts(ctx context.Context, now time.Time) (int64, error) {
	return r.exec(ctx, `
		UPDATE shared_discounts s SET status = 'expired', updated_at = now()
		FROM discounts d
		WHERE d.id = s.discount_id AND s.status = 'active' AND d.expiration_date < $1
	`, now)
}

func (r *SharedDiscountRepository) CompleteFull(ctx context.Context) (int64, error) {
	return r.exec(ctx, `
		UPDATE shared_discounts SET status = 'completed', updated_at = now()
		WHERE status = 'active' AND jsonb_array_length(participants) >= max_participants
	`)
}

func (r *SharedDiscountRepository) ExpireStale(ctx context.Context, createdBefore time.Time) (int64, error) {
	return r.exec(ctx, `
		UPDATE shared_discounts SET status = 'expired', updated_at = now()
		WHERE status = 'active' AND created_at < $1 AND jsonb_array_length(participants) < min_participants
	`, createdBefore)
}

var _ repository.SharedDiscountRepository = (*SharedDiscountRepository)(nil)
