package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-platform/internal/domain"
)

// ConversationFilter captures inbox query parameters.
type ConversationFilter struct {
	OrganizationID  *string
	AssignedAgentID *string
	Statuses        []domain.ConversationStatus
	Archived        *bool
	Limit           int
	Offset          int
}

// ConversationRepository encapsulates conversation persistence.
type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	Claim(ctx context.Context, conversationID, agentID string) (bool, error)
	UpdateStatus(ctx context.Context, conversationID string, status domain.ConversationStatus, agentID *string) error
	SetArchived(ctx context.Context, conversationID string, archivedAt *time.Time) error
	TouchLastMessage(ctx context.Context, conversationID string, at time.Time, preview string) error
	Delete(ctx context.Context, conversationID string) error
	DeleteBulk(ctx context.Context, conversationIDs []string) (int64, error)
	ListWithFilter(ctx context.Context, filter ConversationFilter) ([]domain.Conversation, error)
}

type conversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository instantiates repository.
func NewConversationRepository(pool *pgxpool.Pool) ConversationRepository {
	return &conversationRepository{pool: pool}
}

const conversationColumns = `id, organization_id, client_account_id, guest_email, guest_name, subject,
               status, assigned_agent_id, archived_at, last_message_at, last_message_preview,
               created_at, updated_at`

func (r *conversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	const query = `
        INSERT INTO conversations (organization_id, client_account_id, guest_email, guest_name, subject, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		conv.OrganizationID,
		conv.ClientAccountID,
		conv.GuestEmail,
		conv.GuestName,
		conv.Subject,
		conv.Status,
	).Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)
}

func (r *conversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id=$1`
	var conv domain.Conversation
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&conv.ID,
		&conv.OrganizationID,
		&conv.ClientAccountID,
		&conv.GuestEmail,
		&conv.GuestName,
		&conv.Subject,
		&conv.Status,
		&conv.AssignedAgentID,
		&conv.ArchivedAt,
		&conv.LastMessageAt,
		&conv.LastMessagePreview,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &conv, nil
}

// Claim conditionally assigns the conversation. The WHERE clause on status
// is what makes two racing claims resolve to exactly one winner: the loser
// matches zero rows and gets ok=false.
func (r *conversationRepository) Claim(ctx context.Context, conversationID, agentID string) (bool, error) {
	const query = `
        UPDATE conversations
        SET status=$1, assigned_agent_id=$2, updated_at=NOW()
        WHERE id=$3 AND status=$4`
	cmd, err := r.pool.Exec(ctx, query,
		domain.ConversationStatusAssigned,
		agentID,
		conversationID,
		domain.ConversationStatusUnassigned,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *conversationRepository) UpdateStatus(ctx context.Context, conversationID string, status domain.ConversationStatus, agentID *string) error {
	const query = `
        UPDATE conversations SET status=$1, assigned_agent_id=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, status, agentID, conversationID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *conversationRepository) SetArchived(ctx context.Context, conversationID string, archivedAt *time.Time) error {
	const query = `UPDATE conversations SET archived_at=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, archivedAt, conversationID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *conversationRepository) TouchLastMessage(ctx context.Context, conversationID string, at time.Time, preview string) error {
	const query = `
        UPDATE conversations SET last_message_at=$1, last_message_preview=$2, updated_at=NOW()
        WHERE id=$3`
	_, err := r.pool.Exec(ctx, query, at, preview, conversationID)
	return err
}

func (r *conversationRepository) Delete(ctx context.Context, conversationID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM conversations WHERE id=$1`, conversationID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *conversationRepository) DeleteBulk(ctx context.Context, conversationIDs []string) (int64, error) {
	if len(conversationIDs) == 0 {
		return 0, nil
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM conversations WHERE id = ANY($1)`, conversationIDs)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *conversationRepository) ListWithFilter(ctx context.Context, filter ConversationFilter) ([]domain.Conversation, error) {
	base := `SELECT ` + conversationColumns + ` FROM conversations`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OrganizationID != nil {
		args = append(args, *filter.OrganizationID)
		clauses = append(clauses, fmt.Sprintf("organization_id=$%d", len(args)))
	}
	if filter.AssignedAgentID != nil {
		args = append(args, *filter.AssignedAgentID)
		clauses = append(clauses, fmt.Sprintf("assigned_agent_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Archived != nil {
		if *filter.Archived {
			clauses = append(clauses, "archived_at IS NOT NULL")
		} else {
			clauses = append(clauses, "archived_at IS NULL")
		}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY COALESCE(last_message_at, created_at) DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(
			&conv.ID,
			&conv.OrganizationID,
			&conv.ClientAccountID,
			&conv.GuestEmail,
			&conv.GuestName,
			&conv.Subject,
			&conv.Status,
			&conv.AssignedAgentID,
			&conv.ArchivedAt,
			&conv.LastMessageAt,
			&conv.LastMessagePreview,
			&conv.CreatedAt,
			&conv.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, conv)
	}
	return result, rows.Err()
}
