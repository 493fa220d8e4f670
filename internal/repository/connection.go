package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/model"
)

type ConnectionRepository interface {
	// Create inserts a pending request. A second request for the same pair,
	// in either direction, is a unique violation.
	Create(ctx context.Context, senderID, receiverID string) (*model.ConnectionRequest, error)
	FindByID(ctx context.Context, id string) (*model.ConnectionRequest, error)
	// FindBetween returns the request for the unordered pair, if any.
	FindBetween(ctx context.Context, a, b string) (*model.ConnectionRequest, error)
	// ListByUser returns every request the user sent or received.
	ListByUser(ctx context.Context, userID string) ([]model.ConnectionRequest, error)
	ListPendingFor(ctx context.Context, receiverID string) ([]model.ConnectionRequest, error)
	// Accept marks a pending request addressed to receiverID as accepted.
	// It returns nil when no such pending request exists.
	Accept(ctx context.Context, id, receiverID string) (*model.ConnectionRequest, error)
	Delete(ctx context.Context, id string) (int64, error)
	// DeletePendingBefore removes pending requests created before cutoff.
	DeletePendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type connectionRepo struct {
	db sqlxDB
}

func NewConnectionRepository(db *sqlx.DB) ConnectionRepository {
	return &connectionRepo{db: db}
}

func (r *connectionRepo) Create(ctx context.Context, senderID, receiverID string) (*model.ConnectionRequest, error) {
	var req model.ConnectionRequest
	err := r.db.GetContext(ctx, &req, `
		INSERT INTO connection_requests (sender_id, receiver_id)
		VALUES ($1, $2)
		RETURNING *
	`, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *connectionRepo) FindByID(ctx context.Context, id string) (*model.ConnectionRequest, error) {
	var req model.ConnectionRequest
	err := r.db.GetContext(ctx, &req, `SELECT * FROM connection_requests WHERE id = $1`, id)
	return HandleNotFound(&req, err)
}

func (r *connectionRepo) FindBetween(ctx context.Context, a, b string) (*model.ConnectionRequest, error) {
	var req model.ConnectionRequest
	err := r.db.GetContext(ctx, &req, `
		SELECT * FROM connection_requests
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
	`, a, b)
	return HandleNotFound(&req, err)
}

func (r *connectionRepo) ListByUser(ctx context.Context, userID string) ([]model.ConnectionRequest, error) {
	reqs := []model.ConnectionRequest{}
	err := r.db.SelectContext(ctx, &reqs, `
		SELECT * FROM connection_requests
		WHERE sender_id = $1 OR receiver_id = $1
		ORDER BY created_at, id
	`, userID)
	return reqs, err
}

func (r *connectionRepo) ListPendingFor(ctx context.Context, receiverID string) ([]model.ConnectionRequest, error) {
	reqs := []model.ConnectionRequest{}
	err := r.db.SelectContext(ctx, &reqs, `
		SELECT * FROM connection_requests
		WHERE receiver_id = $1 AND status = 'pending'
		ORDER BY created_at, id
	`, receiverID)
	return reqs, err
}

func (r *connectionRepo) Accept(ctx context.Context, id, receiverID string) (*model.ConnectionRequest, error) {
	var req model.ConnectionRequest
	err := r.db.GetContext(ctx, &req, `
		UPDATE connection_requests
		SET status = 'accepted', updated_at = NOW()
		WHERE id = $1 AND receiver_id = $2 AND status = 'pending'
		RETURNING *
	`, id, receiverID)
	return HandleNotFound(&req, err)
}

func (r *connectionRepo) Delete(ctx context.Context, id string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM connection_requests WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *connectionRepo) DeletePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM connection_requests
		WHERE status = 'pending' AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
