package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/s7654raj/Friends-Skill-Exchange/internal/errors"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/metrics"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/model"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/realtime"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/repository"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/util"
)

// Presence resolves the live connection currently bound to a user.
type Presence interface {
	Lookup(userID string) (realtime.Handle, bool)
}

type ChatService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	presence      Presence
}

func NewChatService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	presence Presence,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		messages:      messages,
		presence:      presence,
	}
}

// GetOrCreateConversation returns the single conversation between a and b,
// whichever order they are given in.
func (s *ChatService) GetOrCreateConversation(ctx context.Context, a, b string) (*model.Conversation, error) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" {
		return nil, apperrors.MissingRequired("senderId")
	}
	if b == "" {
		return nil, apperrors.MissingRequired("receiverId")
	}

	low, high := model.NormalizePair(a, b)
	conv, err := s.conversations.GetOrCreate(ctx, low, high)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("get or create conversation: %w", err))
	}
	return conv, nil
}

func (s *ChatService) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	convs, err := s.conversations.ListByMember(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list conversations: %w", err))
	}
	return convs, nil
}

func (s *ChatService) PostMessage(ctx context.Context, params model.CreateMessageParams) (*model.Message, error) {
	switch {
	case util.IsBlank(params.ConversationID):
		return nil, apperrors.MissingRequired("conversationId")
	case util.IsBlank(params.Sender):
		return nil, apperrors.MissingRequired("sender")
	case util.IsBlank(params.Text):
		return nil, apperrors.MissingRequired("text")
	}
	if !util.IsValidUUID(params.ConversationID) {
		return nil, apperrors.InvalidInput("conversationId", "unknown conversation")
	}

	msg, err := s.messages.Create(ctx, params)
	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, apperrors.InvalidInput("conversationId", "unknown conversation")
		}
		return nil, apperrors.Database(fmt.Errorf("create message: %w", err))
	}

	metrics.MessagesPostedTotal.Inc()
	log.Debug().
		Str("conversationId", msg.ConversationID).
		Str("messageId", msg.ID).
		Msg("message stored")
	return msg, nil
}

// ListMessages returns messages in creation order. An id that cannot name a
// conversation yields an empty list.
func (s *ChatService) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	if !util.IsValidUUID(conversationID) {
		return []model.Message{}, nil
	}

	msgs, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list messages: %w", err))
	}
	return msgs, nil
}

// Deliver pushes a getMessage event to the receiver's live connection. It
// never persists and never fails; the result reports whether a live
// connection accepted the push.
func (s *ChatService) Deliver(senderID, receiverID, text string) bool {
	h, ok := s.presence.Lookup(receiverID)
	if !ok {
		metrics.DeliveriesTotal.WithLabelValues(metrics.OutcomeOffline).Inc()
		log.Debug().Str("receiverId", receiverID).Msg("receiver offline, message not pushed")
		return false
	}

	payload, err := realtime.Encode(realtime.EventGetMessage, realtime.DeliveredMessage{
		SenderID: senderID,
		Text:     text,
	})
	if err != nil {
		metrics.DeliveriesTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		log.Error().Err(err).Msg("failed to encode message event")
		return false
	}

	if err := h.Send(payload); err != nil {
		metrics.DeliveriesTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		log.Warn().Err(err).Str("receiverId", receiverID).Str("connId", h.ID()).Msg("push to receiver failed")
		return false
	}

	metrics.DeliveriesTotal.WithLabelValues(metrics.OutcomeDelivered).Inc()
	return true
}
