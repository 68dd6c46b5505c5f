package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-platform/internal/domain"
)

// EmbedTokenRepository persists embed capability tokens.
type EmbedTokenRepository interface {
	Create(ctx context.Context, token *domain.EmbedToken) error
	Update(ctx context.Context, token *domain.EmbedToken) error
	GetByID(ctx context.Context, id string) (*domain.EmbedToken, error)
	GetByToken(ctx context.Context, secret string) (*domain.EmbedToken, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]domain.EmbedToken, error)
	Delete(ctx context.Context, id string) error
	RecordUsage(ctx context.Context, id string, at time.Time) error
}

type embedTokenRepository struct {
	pool *pgxpool.Pool
}

// NewEmbedTokenRepository instantiates repository.
func NewEmbedTokenRepository(pool *pgxpool.Pool) EmbedTokenRepository {
	return &embedTokenRepository{pool: pool}
}

const embedTokenColumns = `id, organization_id, token, name, allowed_domains, expires_at,
               active_flag, usage_count, last_used_at, created_at, updated_at`

func (r *embedTokenRepository) Create(ctx context.Context, token *domain.EmbedToken) error {
	const query = `
        INSERT INTO embed_tokens (organization_id, token, name, allowed_domains, expires_at, active_flag)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		token.OrganizationID,
		token.Token,
		token.Name,
		token.AllowedDomains,
		token.ExpiresAt,
		token.IsActive,
	).Scan(&token.ID, &token.CreatedAt, &token.UpdatedAt)
}

func (r *embedTokenRepository) Update(ctx context.Context, token *domain.EmbedToken) error {
	const query = `
        UPDATE embed_tokens SET name=$1, allowed_domains=$2, expires_at=$3, active_flag=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		token.Name,
		token.AllowedDomains,
		token.ExpiresAt,
		token.IsActive,
		token.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *embedTokenRepository) GetByID(ctx context.Context, id string) (*domain.EmbedToken, error) {
	query := `SELECT ` + embedTokenColumns + ` FROM embed_tokens WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *embedTokenRepository) GetByToken(ctx context.Context, secret string) (*domain.EmbedToken, error) {
	query := `SELECT ` + embedTokenColumns + ` FROM embed_tokens WHERE token=$1`
	return r.fetchSingle(ctx, query, secret)
}

func (r *embedTokenRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.EmbedToken, error) {
	var token domain.EmbedToken
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&token.ID,
		&token.OrganizationID,
		&token.Token,
		&token.Name,
		&token.AllowedDomains,
		&token.ExpiresAt,
		&token.IsActive,
		&token.UsageCount,
		&token.LastUsedAt,
		&token.CreatedAt,
		&token.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *embedTokenRepository) ListByOrganization(ctx context.Context, organizationID string) ([]domain.EmbedToken, error) {
	query := `SELECT ` + embedTokenColumns + ` FROM embed_tokens WHERE organization_id=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.EmbedToken
	for rows.Next() {
		var token domain.EmbedToken
		if err := rows.Scan(
			&token.ID,
			&token.OrganizationID,
			&token.Token,
			&token.Name,
			&token.AllowedDomains,
			&token.ExpiresAt,
			&token.IsActive,
			&token.UsageCount,
			&token.LastUsedAt,
			&token.CreatedAt,
			&token.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, token)
	}
	return result, rows.Err()
}

func (r *embedTokenRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM embed_tokens WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// RecordUsage bumps the usage counter. Lost increments under concurrency
// are acceptable; a wrongful grant is not, so this stays outside the
// authorization decision.
func (r *embedTokenRepository) RecordUsage(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE embed_tokens SET usage_count=usage_count+1, last_used_at=$1 WHERE id=$2`
	_, err := r.pool.Exec(ctx, query, at, id)
	return err
}
