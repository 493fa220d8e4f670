package model

import (
	"time"

	"github.com/lib/pq"
)

// Profile is the role specific row created alongside a user at signup.
// Skills is only stored for students.
type Profile struct {
	UserID       string         `db:"user_id" json:"userId"`
	ContactEmail string         `db:"contact_email" json:"contactEmail"`
	Skills       pq.StringArray `db:"skills" json:"skills,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
}
