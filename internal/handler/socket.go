package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/realtime"
)

// Deliverer pushes a chat message to a live receiver.
type Deliverer interface {
	Deliver(senderID, receiverID, text string) bool
}

type SocketHandler struct {
	registry *realtime.Registry
	chat     Deliverer
	upgrader websocket.Upgrader
}

// NewSocketHandler accepts upgrades from the given origins. A "*" entry or an
// empty list allows any origin.
func NewSocketHandler(registry *realtime.Registry, chat Deliverer, allowedOrigins []string) *SocketHandler {
	h := &SocketHandler{registry: registry, chat: chat}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[strings.ToLower(o)] = struct{}{}
		}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}

// GET /socket
func (h *SocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the 4xx response.
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := realtime.NewConn(ws)
	conn.Start()
	logger := log.With().Str("connId", conn.ID()).Logger()
	logger.Debug().Msg("socket connected")

	announced := make(map[string]struct{})
	defer func() {
		for userID := range announced {
			h.registry.Remove(userID, conn)
		}
		conn.Close()
		logger.Debug().Int("users", len(announced)).Msg("socket disconnected")
	}()

	err = conn.ReadLoop(func(data []byte) {
		h.dispatch(conn, announced, data)
	})
	if err != nil {
		logger.Debug().Err(err).Msg("socket read ended")
	}
}

func (h *SocketHandler) dispatch(conn *realtime.Conn, announced map[string]struct{}, data []byte) {
	var ev realtime.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		sendError(conn, "INVALID_FRAME", "frame is not valid JSON")
		return
	}

	switch ev.Type {
	case realtime.EventAddUser:
		var userID string
		if err := json.Unmarshal(ev.Data, &userID); err != nil || strings.TrimSpace(userID) == "" {
			sendError(conn, "INVALID_FRAME", "addUser expects a user id string")
			return
		}
		h.registry.Announce(userID, conn)
		announced[userID] = struct{}{}
		log.Debug().Str("userId", userID).Str("connId", conn.ID()).Msg("user online")

	case realtime.EventSendMessage:
		var msg realtime.IncomingMessage
		if err := json.Unmarshal(ev.Data, &msg); err != nil || msg.ReceiverID == "" {
			sendError(conn, "INVALID_FRAME", "sendMessage expects senderId, receiverId and text")
			return
		}
		h.chat.Deliver(msg.SenderID, msg.ReceiverID, msg.Text)

	default:
		sendError(conn, "UNKNOWN_EVENT", "unknown event "+ev.Type)
	}
}

func sendError(conn *realtime.Conn, code, message string) {
	payload, err := realtime.Encode(realtime.EventError, realtime.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	_ = conn.Send(payload)
}
