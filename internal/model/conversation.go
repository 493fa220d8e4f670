package model

import (
	"encoding/json"
	"time"
)

// Conversation is a two member thread. Members are stored sorted so the
// pair (MemberLow, MemberHigh) identifies the conversation regardless of
// which side opened it.
type Conversation struct {
	ID         string    `db:"id"`
	MemberLow  string    `db:"member_low"`
	MemberHigh string    `db:"member_high"`
	CreatedAt  time.Time `db:"created_at"`
}

func (c *Conversation) Members() []string {
	return []string{c.MemberLow, c.MemberHigh}
}

func (c Conversation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        string    `json:"_id"`
		Members   []string  `json:"members"`
		CreatedAt time.Time `json:"createdAt"`
	}{
		ID:        c.ID,
		Members:   c.Members(),
		CreatedAt: c.CreatedAt,
	})
}

// NormalizePair orders two member ids lexically.
func NormalizePair(a, b string) (low, high string) {
	if a <= b {
		return a, b
	}
	return b, a
}
