package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"diet-coach/internal/domain"
)

// MessageRepository es el log append-only de mensajes de chat.
type MessageRepository interface {
	// Create inserta el mensaje y devuelve el registro con ID y CreatedAt asignados por la base.
	Create(ctx context.Context, message domain.ChatMessage) (domain.ChatMessage, error)
	ListByConversation(ctx context.Context, conversationID string) ([]domain.ChatMessage, error)
}

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

func (r *PgMessageRepository) Create(ctx context.Context, message domain.ChatMessage) (domain.ChatMessage, error) {
	const query = `
		INSERT INTO chat_messages (conversation_id, sender_id, sender_name, sender_role, kind, body, attachment_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	var attachmentURL interface{}
	if message.AttachmentURL != "" {
		attachmentURL = message.AttachmentURL
	}

	err := r.pool.QueryRow(ctx, query,
		message.ConversationID,
		message.SenderID,
		message.SenderName,
		message.SenderRole,
		message.Kind,
		message.Body,
		attachmentURL,
	).Scan(&message.ID, &message.CreatedAt)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return message, nil
}

func (r *PgMessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]domain.ChatMessage, error) {
	const query = `
		SELECT id, conversation_id, sender_id, sender_name, sender_role, kind, body, attachment_url, created_at
		FROM chat_messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, seq ASC
	`

	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.ChatMessage{}
	for rows.Next() {
		var msg domain.ChatMessage
		var attachmentURL *string

		err = rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.SenderID,
			&msg.SenderName,
			&msg.SenderRole,
			&msg.Kind,
			&msg.Body,
			&attachmentURL,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if attachmentURL != nil {
			msg.AttachmentURL = *attachmentURL
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
