package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/httputil"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/model"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

func (h *ChatHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/conversation", h.GetOrCreateConversation)
	r.Get("/conversations/{userId}", h.ListConversations)
	r.Post("/message", h.PostMessage)
	r.Get("/messages/{conversationId}", h.ListMessages)

	return r
}

type conversationRequest struct {
	SenderID   string `json:"senderId" validate:"notblank"`
	ReceiverID string `json:"receiverId" validate:"notblank"`
}

// POST /chat/conversation
func (h *ChatHandler) GetOrCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req conversationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	conv, err := h.chat.GetOrCreateConversation(r.Context(), req.SenderID, req.ReceiverID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// GET /chat/conversations/{userId}
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.chat.ListConversations(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	if convs == nil {
		convs = []model.Conversation{}
	}

	writeJSON(w, http.StatusOK, convs)
}

// POST /chat/message
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var params model.CreateMessageParams
	if err := httputil.DecodeJSON(r, &params); err != nil {
		writeError(w, err)
		return
	}

	msg, err := h.chat.PostMessage(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// GET /chat/messages/{conversationId}
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.chat.ListMessages(r.Context(), chi.URLParam(r, "conversationId"))
	if err != nil {
		writeError(w, err)
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}

	writeJSON(w, http.StatusOK, msgs)
}
