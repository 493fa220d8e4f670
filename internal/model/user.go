package model

import (
	"time"
)

type User struct {
	ID                    string     `db:"id" json:"_id"`
	Name                  string     `db:"name" json:"name"`
	Email                 string     `db:"email" json:"email"`
	PasswordHash          string     `db:"password_hash" json:"-"`
	Role                  Role       `db:"role" json:"role"`
	RefreshTokenHash      *string    `db:"refresh_token_hash" json:"-"`
	RefreshTokenExpiresAt *time.Time `db:"refresh_token_expires_at" json:"-"`
	CreatedAt             time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updatedAt"`
}

// PublicUser is the user shape returned to clients.
type PublicUser struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}

type CreateUserParams struct {
	Name         string
	Email        string
	PasswordHash string
	Role         Role
}
