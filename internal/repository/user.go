package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmailAndRole(ctx context.Context, email string, role model.Role) (*model.User, error)
	SearchByName(ctx context.Context, name string, limit int) ([]model.User, error)
	Create(ctx context.Context, params model.CreateUserParams) (*model.User, error)
	SetRefreshToken(ctx context.Context, id, hash string, expiresAt time.Time) error
	// ClearRefreshToken drops the stored hash wherever it matches; zero rows is not an error.
	ClearRefreshToken(ctx context.Context, hash string) (int64, error)
	ClearExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) UserRepository
}

type userRepo struct {
	db sqlxDB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) WithTx(tx *sqlx.Tx) UserRepository {
	return &userRepo{db: tx}
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = $1`, id)
	return HandleNotFound(&user, err)
}

func (r *userRepo) FindByEmailAndRole(ctx context.Context, email string, role model.Role) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE email = $1 AND role = $2
	`, email, role)
	return HandleNotFound(&user, err)
}

func (r *userRepo) SearchByName(ctx context.Context, name string, limit int) ([]model.User, error) {
	users := []model.User{}
	err := r.db.SelectContext(ctx, &users, `
		SELECT * FROM users
		WHERE name ILIKE $1 ESCAPE '\'
		ORDER BY name, id
		LIMIT $2
	`, containsPattern(name), limit)
	return users, err
}

func (r *userRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, params.Name, params.Email, params.PasswordHash, params.Role)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) SetRefreshToken(ctx context.Context, id, hash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET refresh_token_hash = $2, refresh_token_expires_at = $3, updated_at = NOW()
		WHERE id = $1
	`, id, hash, expiresAt)
	return err
}

func (r *userRepo) ClearRefreshToken(ctx context.Context, hash string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET refresh_token_hash = NULL, refresh_token_expires_at = NULL, updated_at = NOW()
		WHERE refresh_token_hash = $1
	`, hash)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *userRepo) ClearExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET refresh_token_hash = NULL, refresh_token_expires_at = NULL, updated_at = NOW()
		WHERE refresh_token_hash IS NOT NULL AND refresh_token_expires_at < $1
	`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
