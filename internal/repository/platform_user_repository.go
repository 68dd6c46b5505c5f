package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-platform/internal/domain"
)

// PlatformUserRepository handles persistence for credential-bearing accounts.
type PlatformUserRepository interface {
	Create(ctx context.Context, user *domain.PlatformUser) error
	GetByID(ctx context.Context, id string) (*domain.PlatformUser, error)
	GetByEmail(ctx context.Context, email string) (*domain.PlatformUser, error)
}

type platformUserRepository struct {
	pool *pgxpool.Pool
}

// NewPlatformUserRepository instantiates the repository.
func NewPlatformUserRepository(pool *pgxpool.Pool) PlatformUserRepository {
	return &platformUserRepository{pool: pool}
}

func (r *platformUserRepository) Create(ctx context.Context, user *domain.PlatformUser) error {
	const query = `
        INSERT INTO platform_users (name, email, password_hash)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *platformUserRepository) GetByID(ctx context.Context, id string) (*domain.PlatformUser, error) {
	const query = `
        SELECT id, name, email, password_hash, created_at, updated_at
        FROM platform_users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *platformUserRepository) GetByEmail(ctx context.Context, email string) (*domain.PlatformUser, error) {
	const query = `
        SELECT id, name, email, password_hash, created_at, updated_at
        FROM platform_users WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *platformUserRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.PlatformUser, error) {
	var user domain.PlatformUser
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserRoleRepository manages platform role assignments. "No role" is a
// representable state: it is simply the absence of a row.
type UserRoleRepository interface {
	GetRole(ctx context.Context, userID string) (domain.Role, error)
	ReplaceRole(ctx context.Context, userID string, role domain.Role) error
	DeleteRole(ctx context.Context, userID string) error
}

type userRoleRepository struct {
	pool *pgxpool.Pool
}

// NewUserRoleRepository instantiates the repository.
func NewUserRoleRepository(pool *pgxpool.Pool) UserRoleRepository {
	return &userRoleRepository{pool: pool}
}

func (r *userRoleRepository) GetRole(ctx context.Context, userID string) (domain.Role, error) {
	const query = `SELECT role FROM user_roles WHERE user_id=$1`
	var role domain.Role
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&role); err != nil {
		return "", err
	}
	return role, nil
}

// ReplaceRole swaps the assignment with a delete followed by an insert in
// one transaction rather than an update, so the no-role state stays
// reachable through the same code path.
func (r *userRoleRepository) ReplaceRole(ctx context.Context, userID string, role domain.Role) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id=$1`, userID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1,$2)`, userID, role); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *userRoleRepository) DeleteRole(ctx context.Context, userID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id=$1`, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
