package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/s7654raj/Friends-Skill-Exchange/internal/errors"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/metrics"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/model"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/repository"
)

type ConnectionService struct {
	users       repository.UserRepository
	connections repository.ConnectionRepository
}

func NewConnectionService(users repository.UserRepository, connections repository.ConnectionRepository) *ConnectionService {
	return &ConnectionService{users: users, connections: connections}
}

// findUser treats an id Postgres cannot parse the same as a missing row.
func (s *ConnectionService) findUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if repository.IsInvalidText(err) {
			return nil, nil
		}
		return nil, apperrors.Database(fmt.Errorf("find user: %w", err))
	}
	return user, nil
}

func (s *ConnectionService) findRequest(ctx context.Context, id string) (*model.ConnectionRequest, error) {
	req, err := s.connections.FindByID(ctx, id)
	if err != nil {
		if repository.IsInvalidText(err) {
			return nil, apperrors.NotFound("Connection request")
		}
		return nil, apperrors.Database(fmt.Errorf("find connection request: %w", err))
	}
	if req == nil {
		return nil, apperrors.NotFound("Connection request")
	}
	return req, nil
}

// SendRequest creates a pending request from senderID to receiverID. Only
// one request may exist per pair of users, whichever side sent it.
func (s *ConnectionService) SendRequest(ctx context.Context, senderID, receiverID string) (*model.ConnectionRequest, error) {
	receiverID = strings.TrimSpace(receiverID)
	if receiverID == "" {
		return nil, apperrors.MissingRequired("receiverId")
	}
	if receiverID == senderID {
		return nil, apperrors.InvalidInput("receiverId", "cannot connect with yourself")
	}

	receiver, err := s.findUser(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if receiver == nil {
		return nil, apperrors.NotFound("User")
	}

	existing, err := s.connections.FindBetween(ctx, senderID, receiverID)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("find connection request: %w", err))
	}
	if existing != nil {
		return nil, apperrors.Conflict("Connection request already exists")
	}

	req, err := s.connections.Create(ctx, senderID, receiverID)
	if err != nil {
		switch {
		case repository.IsUniqueViolation(err):
			return nil, apperrors.Conflict("Connection request already exists")
		case repository.IsForeignKeyViolation(err):
			return nil, apperrors.NotFound("User")
		}
		return nil, apperrors.Database(fmt.Errorf("create connection request: %w", err))
	}

	metrics.ConnectionRequestsTotal.WithLabelValues(metrics.ActionSent).Inc()
	log.Debug().Str("requestId", req.ID).Str("senderId", senderID).Str("receiverId", receiverID).Msg("connection request sent")
	return req, nil
}

// ListIncoming returns pending requests addressed to userID with their
// senders resolved. Requests from deleted users are skipped.
func (s *ConnectionService) ListIncoming(ctx context.Context, userID string) ([]model.IncomingRequest, error) {
	reqs, err := s.connections.ListPendingFor(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list pending requests: %w", err))
	}

	result := make([]model.IncomingRequest, 0, len(reqs))
	for _, req := range reqs {
		sender, err := s.findUser(ctx, req.SenderID)
		if err != nil {
			return nil, err
		}
		if sender == nil {
			continue
		}
		result = append(result, model.IncomingRequest{
			ID:        req.ID,
			Sender:    sender.Public(),
			CreatedAt: req.CreatedAt,
		})
	}
	return result, nil
}

// Respond accepts or rejects a pending request. Only the receiver may
// respond; a rejected request is deleted so the pair can try again.
func (s *ConnectionService) Respond(ctx context.Context, userID, requestID string, accept bool) (*model.ConnectionRequest, error) {
	req, err := s.findRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ReceiverID != userID {
		return nil, apperrors.Forbidden("Only the receiver can respond to a connection request")
	}
	if req.Status != model.ConnectionPending {
		return nil, apperrors.Conflict("Connection request already answered")
	}

	if !accept {
		if _, err := s.connections.Delete(ctx, req.ID); err != nil {
			return nil, apperrors.Database(fmt.Errorf("delete connection request: %w", err))
		}
		metrics.ConnectionRequestsTotal.WithLabelValues(metrics.ActionRejected).Inc()
		return req, nil
	}

	accepted, err := s.connections.Accept(ctx, req.ID, userID)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("accept connection request: %w", err))
	}
	if accepted == nil {
		// Answered or swept between the read and the update.
		return nil, apperrors.Conflict("Connection request already answered")
	}
	metrics.ConnectionRequestsTotal.WithLabelValues(metrics.ActionAccepted).Inc()
	return accepted, nil
}

// ListConnections returns the users userID has an accepted connection with.
func (s *ConnectionService) ListConnections(ctx context.Context, userID string) ([]model.PublicUser, error) {
	reqs, err := s.connections.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list connections: %w", err))
	}

	result := []model.PublicUser{}
	for i := range reqs {
		if reqs[i].Status != model.ConnectionAccepted {
			continue
		}
		peer, err := s.findUser(ctx, reqs[i].Peer(userID))
		if err != nil {
			return nil, err
		}
		if peer != nil {
			result = append(result, peer.Public())
		}
	}
	return result, nil
}

// States maps every user userID has a request with to its connection state.
// Users missing from the map have no relation.
func (s *ConnectionService) States(ctx context.Context, userID string) (map[string]model.ConnectionState, error) {
	reqs, err := s.connections.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("list connections: %w", err))
	}

	states := make(map[string]model.ConnectionState, len(reqs))
	for i := range reqs {
		state := model.StatePending
		if reqs[i].Status == model.ConnectionAccepted {
			state = model.StateConnected
		}
		states[reqs[i].Peer(userID)] = state
	}
	return states, nil
}
