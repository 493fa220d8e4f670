package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/service"
)

type ConnectionHandler struct {
	connections *service.ConnectionService
	access      func(http.Handler) http.Handler
}

func NewConnectionHandler(connections *service.ConnectionService, access func(http.Handler) http.Handler) *ConnectionHandler {
	return &ConnectionHandler{connections: connections, access: access}
}

func (h *ConnectionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.access)

	r.Get("/requests", h.ListRequests)
	r.Post("/requests/{requestId}/accept", h.Accept)
	r.Post("/requests/{requestId}/reject", h.Reject)
	r.Get("/list", h.ListConnections)

	return r
}

// GET /connection/requests
func (h *ConnectionHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	incoming, err := h.connections.ListIncoming(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, incoming)
}

// POST /connection/requests/{requestId}/accept
func (h *ConnectionHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, true)
}

// POST /connection/requests/{requestId}/reject
func (h *ConnectionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, false)
}

func (h *ConnectionHandler) respond(w http.ResponseWriter, r *http.Request, accept bool) {
	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	req, err := h.connections.Respond(r.Context(), userID, chi.URLParam(r, "requestId"), accept)
	if err != nil {
		writeError(w, err)
		return
	}

	message := "Connection request rejected"
	if accept {
		message = "Connection request accepted"
	}
	writeJSON(w, http.StatusOK, connectionRequestResponse{Message: message, Request: req})
}

// GET /connection/list
func (h *ConnectionHandler) ListConnections(w http.ResponseWriter, r *http.Request) {
	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	peers, err := h.connections.ListConnections(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, peers)
}
