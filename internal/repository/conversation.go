package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/model"
)

type ConversationRepository interface {
	// GetOrCreate returns the conversation for the normalised pair, inserting
	// it when absent. Concurrent callers converge on the same row.
	GetOrCreate(ctx context.Context, low, high string) (*model.Conversation, error)
	ListByMember(ctx context.Context, userID string) ([]model.Conversation, error)
}

type conversationRepo struct {
	db sqlxDB
}

func NewConversationRepository(db *sqlx.DB) ConversationRepository {
	return &conversationRepo{db: db}
}

func (r *conversationRepo) GetOrCreate(ctx context.Context, low, high string) (*model.Conversation, error) {
	var conv model.Conversation
	// The no-op update makes RETURNING yield the existing row on conflict.
	err := r.db.GetContext(ctx, &conv, `
		INSERT INTO conversations (member_low, member_high)
		VALUES ($1, $2)
		ON CONFLICT (member_low, member_high) DO UPDATE SET
			member_low = EXCLUDED.member_low
		RETURNING *
	`, low, high)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepo) ListByMember(ctx context.Context, userID string) ([]model.Conversation, error) {
	convs := []model.Conversation{}
	err := r.db.SelectContext(ctx, &convs, `
		SELECT * FROM conversations
		WHERE member_low = $1 OR member_high = $1
		ORDER BY created_at, id
	`, userID)
	return convs, err
}
