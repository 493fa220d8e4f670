package model

import (
	"time"
)

type Message struct {
	ID             string    `db:"id" json:"_id"`
	ConversationID string    `db:"conversation_id" json:"conversationId"`
	Sender         string    `db:"sender" json:"sender"`
	Text           string    `db:"text" json:"text"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	Seq            int64     `db:"seq" json:"-"`
}

type CreateMessageParams struct {
	ConversationID string `json:"conversationId" validate:"notblank"`
	Sender         string `json:"sender" validate:"notblank"`
	Text           string `json:"text" validate:"notblank"`
}
