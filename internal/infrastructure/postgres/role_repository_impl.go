package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dishpal/coupon-core/internal/domain/entity"
	"github.com/dishpal/coupon-core/internal/domain/repository"
)

type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

func (r *RoleRepository) Create(ctx context.Context, role *entity.Role) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, description) VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, role.Name, role.Description)
	return mapErr(row.Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt))
}

func (r *RoleRepository) get(ctx context.Context, where string, arg any) (*entity.Role, error) {
	role := &entity.Role{}
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, created_at, updated_at FROM roles WHERE `+where, arg).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return role, nil
}

func (r *RoleRepository) GetByID(ctx context.Context, id int64) (*entity.Role, error) {
	return r.get(ctx, "id = $1", id)
}

func (r *RoleRepository) GetByName(ctx context.Context, name string) (*entity.Role, error) {
	return r.get(ctx, "lower(name) = lower($1)", name)
}

func (r *RoleRepository) List(ctx context.Context) ([]*entity.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*entity.Role
	for rows.Next() {
		role := &entity.Role{}
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, role)
	}
	return out, mapErr(rows.Err())
}

func (r *RoleRepository) Update(ctx context.Context, role *entity.Role) error {
	return mapErr(r.pool.QueryRow(ctx, `
		UPDATE roles SET name = $1, description = $2, updated_at = now()
		WHERE id = $3
		RETURNING updated_at
	`, role.Name, role.Description, role.ID).Scan(&role.UpdatedAt))
}

func (r *RoleRepository) Delete(ctx context.Context, id int64) error {
	return affected(r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id))
}

// Assign links a role to a user; an existing link yields ErrConflict.
func (r *RoleRepository) Assign(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`, userID, roleID)
	return mapErr(err)
}

func (r *RoleRepository) Unassign(ctx context.Context, userID, roleID int64) error {
	return affected(r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID))
}

func (r *RoleRepository) ListForUser(ctx context.Context, userID int64) ([]entity.Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.name, r.description, r.created_at, r.updated_at
		FROM roles r JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name
	`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []entity.Role
	for rows.Next() {
		var role entity.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, role)
	}
	return out, mapErr(rows.Err())
}

var _ repository.RoleRepository = (*RoleRepository)(nil)
