package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/model"
)

type ProfileRepository interface {
	// Create inserts the profile row for role, in student_profiles or sponsor_profiles.
	Create(ctx context.Context, role model.Role, userID, contactEmail string) (*model.Profile, error)
	FindByUserID(ctx context.Context, role model.Role, userID string) (*model.Profile, error)
	WithTx(tx *sqlx.Tx) ProfileRepository
}

type profileRepo struct {
	db sqlxDB
}

func NewProfileRepository(db *sqlx.DB) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) WithTx(tx *sqlx.Tx) ProfileRepository {
	return &profileRepo{db: tx}
}

// Table names come from model.Role, never from client input.
func (r *profileRepo) Create(ctx context.Context, role model.Role, userID, contactEmail string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.GetContext(ctx, &profile, fmt.Sprintf(`
		INSERT INTO %s (user_id, contact_email)
		VALUES ($1, $2)
		RETURNING *
	`, role.ProfileTable()), userID, contactEmail)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepo) FindByUserID(ctx context.Context, role model.Role, userID string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.GetContext(ctx, &profile, fmt.Sprintf(`
		SELECT * FROM %s WHERE user_id = $1
	`, role.ProfileTable()), userID)
	return HandleNotFound(&profile, err)
}
