package postgres

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dishpal/coupon-core/internal/domain/entity"
	"github.com/dishpal/coupon-core/internal/domain/repository"
)

const userColumns = `
	u.id, u.username, u.email, u.password_hash, u.first_name, u.last_name, u.phone_number,
	u.is_guest, u.is_active, u.is_staff, u.activated_profile, u.created_at, u.updated_at,
	(SELECT COALESCE(json_agg(json_build_object('id', r.id, 'name', r.name, 'description', r.description) ORDER BY r.name), '[]'::json)
	   FROM user_roles ur JOIN roles r ON r.id = ur.role_id
	  WHERE ur.user_id = u.id) AS roles`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var roles []byte
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.PhoneNumber,
		&u.IsGuest, &u.IsActive, &u.IsStaff, &u.ActivatedProfile, &u.CreatedAt, &u.UpdatedAt, &roles); err != nil {
		return nil, mapErr(err)
	}
	var rr []struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(roles, &rr); err == nil {
		for _, r := range rr {
			u.Roles = append(u.Roles, entity.Role{ID: r.ID, Name: r.Name, Description: r.Description})
		}
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, first_name, last_name, phone_number,
		                   is_guest, is_active, is_staff, activated_profile)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, u.Username, strings.ToLower(u.Email), u.PasswordHash, u.FirstName, u.LastName, u.PhoneNumber,
		u.IsGuest, u.IsActive, u.IsStaff, u.ActivatedProfile)

	u.Email = strings.ToLower(u.Email)
	return mapErr(row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt))
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE lower(u.email) = lower($1)`, email))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.username = $1`, username))
}

func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	return exists, mapErr(err)
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	u.UpdatedAt = time.Now()
	u.Email = strings.ToLower(u.Email)
	return affected(r.pool.Exec(ctx, `
		UPDATE users
		SET username = $1, email = $2, password_hash = $3, first_name = $4, last_name = $5,
		    phone_number = $6, is_guest = $7, is_active = $8, is_staff = $9, activated_profile = $10,
		    updated_at = $11
		WHERE id = $12
	`, u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.PhoneNumber,
		u.IsGuest, u.IsActive, u.IsStaff, u.ActivatedProfile, u.UpdatedAt, u.ID))
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return affected(r.pool.Exec(ctx, `UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`, hash, id))
}

func (r *UserRepository) SetActivated(ctx context.Context, id int64, activated bool) error {
	return affected(r.pool.Exec(ctx, `UPDATE users SET activated_profile = $1, updated_at = now() WHERE id = $2`, activated, id))
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	return affected(r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id))
}

func (r *UserRepository) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}

func userFilterWhere(f entity.UserFilter) *whereBuilder {
	w := &whereBuilder{}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := containsPattern(s)
		w.add("(u.username ILIKE ? OR u.email ILIKE ? OR u.first_name ILIKE ? OR u.last_name ILIKE ?)", like, like, like, like)
	}
	if role := strings.TrimSpace(f.Role); role != "" {
		w.add("EXISTS (SELECT 1 FROM user_roles ur JOIN roles r ON r.id = ur.role_id WHERE ur.user_id = u.id AND lower(r.name) = lower(?))", role)
	}
	if f.IsActive != nil {
		w.add("u.is_active = ?", *f.IsActive)
	}
	return w
}

func (r *UserRepository) List(ctx context.Context, f entity.UserFilter) ([]*entity.User, int, error) {
	w := userFilterWhere(f)
	where := w.sql()

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users u`+where, w.args...).Scan(&total); err != nil {
		return nil, 0, mapErr(err)
	}

	limit := w.arg(clampLimit(f.Limit, 50, 500))
	offset := w.arg(max(f.Offset, 0))
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users u`+where+` ORDER BY u.id LIMIT `+limit+` OFFSET `+offset, w.args...)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	var out []*entity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, mapErr(rows.Err())
}

var _ repository.UserRepository = (*UserRepository)(nil)
