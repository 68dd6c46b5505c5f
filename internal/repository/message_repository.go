package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-platform/internal/domain"
)

// MessageRepository persists conversation messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error)
	MarkRead(ctx context.Context, conversationID string, senderTypes []domain.SenderType) error
	CountUnread(ctx context.Context, conversationID string) (int64, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository instantiates repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO messages (conversation_id, sender_type, sender_id, body, is_read)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		msg.ConversationID,
		msg.SenderType,
		msg.SenderID,
		msg.Body,
		msg.IsRead,
	).Scan(&msg.ID, &msg.CreatedAt)
}

// ListByConversation orders by created_at then id so equal timestamps
// still produce a deterministic order.
func (r *messageRepository) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	const query = `
        SELECT id, conversation_id, sender_type, sender_id, body, is_read, created_at
        FROM messages WHERE conversation_id=$1
        ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.SenderType,
			&msg.SenderID,
			&msg.Body,
			&msg.IsRead,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func (r *messageRepository) MarkRead(ctx context.Context, conversationID string, senderTypes []domain.SenderType) error {
	const query = `
        UPDATE messages SET is_read=TRUE
        WHERE conversation_id=$1 AND is_read=FALSE AND sender_type = ANY($2)`
	types := make([]string, 0, len(senderTypes))
	for _, t := range senderTypes {
		types = append(types, string(t))
	}
	_, err := r.pool.Exec(ctx, query, conversationID, types)
	return err
}

func (r *messageRepository) CountUnread(ctx context.Context, conversationID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM messages WHERE conversation_id=$1 AND is_read=FALSE`
	var count int64
	if err := r.pool.QueryRow(ctx, query, conversationID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
