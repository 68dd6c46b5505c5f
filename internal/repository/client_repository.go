package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-platform/internal/domain"
)

// ClientAccountRepository handles persistence for client-organization users.
type ClientAccountRepository interface {
	Create(ctx context.Context, account *domain.ClientAccount) error
	GetByID(ctx context.Context, id string) (*domain.ClientAccount, error)
	GetByEmail(ctx context.Context, email string) (*domain.ClientAccount, error)
}

type clientAccountRepository struct {
	pool *pgxpool.Pool
}

// NewClientAccountRepository instantiates the repository.
func NewClientAccountRepository(pool *pgxpool.Pool) ClientAccountRepository {
	return &clientAccountRepository{pool: pool}
}

func (r *clientAccountRepository) Create(ctx context.Context, account *domain.ClientAccount) error {
	const query = `
        INSERT INTO client_accounts (organization_id, name, email, password_hash, active_flag)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		account.OrganizationID,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.IsActive,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
}

func (r *clientAccountRepository) GetByID(ctx context.Context, id string) (*domain.ClientAccount, error) {
	const query = `
        SELECT id, organization_id, name, email, password_hash, active_flag, created_at, updated_at
        FROM client_accounts WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *clientAccountRepository) GetByEmail(ctx context.Context, email string) (*domain.ClientAccount, error) {
	const query = `
        SELECT id, organization_id, name, email, password_hash, active_flag, created_at, updated_at
        FROM client_accounts WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *clientAccountRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.ClientAccount, error) {
	var account domain.ClientAccount
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&account.ID,
		&account.OrganizationID,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&account.IsActive,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

// ClientOrganizationRepository handles persistence for client organizations.
type ClientOrganizationRepository interface {
	Create(ctx context.Context, org *domain.ClientOrganization) error
	GetByID(ctx context.Context, id string) (*domain.ClientOrganization, error)
}

type clientOrganizationRepository struct {
	pool *pgxpool.Pool
}

// NewClientOrganizationRepository instantiates the repository.
func NewClientOrganizationRepository(pool *pgxpool.Pool) ClientOrganizationRepository {
	return &clientOrganizationRepository{pool: pool}
}

func (r *clientOrganizationRepository) Create(ctx context.Context, org *domain.ClientOrganization) error {
	const query = `
        INSERT INTO client_organizations (name, active_flag)
        VALUES ($1,$2)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query, org.Name, org.IsActive).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
}

func (r *clientOrganizationRepository) GetByID(ctx context.Context, id string) (*domain.ClientOrganization, error) {
	const query = `
        SELECT id, name, active_flag, created_at, updated_at
        FROM client_organizations WHERE id=$1`
	var org domain.ClientOrganization
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&org.ID,
		&org.Name,
		&org.IsActive,
		&org.CreatedAt,
		&org.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &org, nil
}
