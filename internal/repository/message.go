package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/model"
)

type MessageRepository interface {
	Create(ctx context.Context, params model.CreateMessageParams) (*model.Message, error)
	ListByConversation(ctx context.Context, conversationID string) ([]model.Message, error)
}

type messageRepo struct {
	db sqlxDB
}

func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) Create(ctx context.Context, params model.CreateMessageParams) (*model.Message, error) {
	var msg model.Message
	err := r.db.GetContext(ctx, &msg, `
		INSERT INTO messages (conversation_id, sender, text)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.ConversationID, params.Sender, params.Text)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepo) ListByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	msgs := []model.Message{}
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM messages
		WHERE conversation_id = $1
		ORDER BY seq
	`, conversationID)
	return msgs, err
}
