package model

import (
	"time"

	"github.com/lib/pq"
)

type ConnectionStatus string

const (
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionAccepted ConnectionStatus = "accepted"
)

// ConnectionRequest links two users. A rejected request is deleted, so a
// row is either pending or accepted.
type ConnectionRequest struct {
	ID         string           `db:"id" json:"_id"`
	SenderID   string           `db:"sender_id" json:"senderId"`
	ReceiverID string           `db:"receiver_id" json:"receiverId"`
	Status     ConnectionStatus `db:"status" json:"status"`
	CreatedAt  time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updatedAt"`
}

// Peer returns the other side of the request.
func (r *ConnectionRequest) Peer(userID string) string {
	if r.SenderID == userID {
		return r.ReceiverID
	}
	return r.SenderID
}

// ConnectionState is how a search result relates to the caller.
type ConnectionState string

const (
	StateNone      ConnectionState = "none"
	StatePending   ConnectionState = "pending"
	StateConnected ConnectionState = "connected"
)

// StudentMatch is a student joined with their skills, as read by search.
type StudentMatch struct {
	UserID string         `db:"id"`
	Name   string         `db:"name"`
	Email  string         `db:"email"`
	Role   Role           `db:"role"`
	Skills pq.StringArray `db:"skills"`
}

// StudentCard is a search result returned to clients.
type StudentCard struct {
	User             PublicUser      `json:"userId"`
	Skills           []string        `json:"skills"`
	ConnectionStatus ConnectionState `json:"connectionStatus"`
}

// IncomingRequest is a pending request with its sender resolved.
type IncomingRequest struct {
	ID        string     `json:"_id"`
	Sender    PublicUser `json:"sender"`
	CreatedAt time.Time  `json:"createdAt"`
}
