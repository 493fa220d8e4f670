package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/config"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/database"
	apperrors "github.com/s7654raj/Friends-Skill-Exchange/internal/errors"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/model"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/repository"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/token"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/util"
)

const invalidCredentials = "Invalid credentials"

// TxRunner runs fn inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

type SignupInput struct {
	Name     string `json:"name" validate:"notblank"`
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"notblank"`
	Role     string `json:"role" validate:"notblank"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"notblank"`
	Role     string `json:"role" validate:"notblank"`
}

// Session is a freshly issued token pair for a user.
type Session struct {
	User         model.PublicUser
	AccessToken  string
	AccessTTL    time.Duration
	RefreshToken string
	RefreshTTL   time.Duration
}

// Refreshed is the result of exchanging a refresh token for a new access token.
type Refreshed struct {
	UserID      string
	AccessToken string
	AccessTTL   time.Duration
}

type AuthService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	tokens   *token.Service
	tx       TxRunner
	now      func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	tokens *token.Service,
	tx TxRunner,
) *AuthService {
	return &AuthService{
		users:    users,
		profiles: profiles,
		tokens:   tokens,
		tx:       tx,
		now:      time.Now,
	}
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if err := requireFields(map[string]string{"name": name, "email": email, "password": in.Password, "role": in.Role}); err != nil {
		return nil, err
	}
	role, ok := model.ParseRole(in.Role)
	if !ok {
		return nil, apperrors.InvalidInput("role", "must be student or sponsor")
	}

	existing, err := s.users.FindByEmailAndRole(ctx, email, role)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("find user: %w", err))
	}
	if existing != nil {
		return nil, apperrors.Conflict("User already exists")
	}

	passwordHash, err := util.HashPassword(in.Password)
	if err != nil {
		return nil, apperrors.Internal("Internal server error").WithCause(fmt.Errorf("hash password: %w", err))
	}

	var session *Session
	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		users := s.users.WithTx(tx)

		user, err := users.Create(ctx, model.CreateUserParams{
			Name:         name,
			Email:        email,
			PasswordHash: passwordHash,
			Role:         role,
		})
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		if _, err := s.profiles.WithTx(tx).Create(ctx, role, user.ID, email); err != nil {
			return fmt.Errorf("create %s profile: %w", role, err)
		}

		session, err = s.issueSession(ctx, users, user)
		return err
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("User already exists")
		}
		return nil, asInternal(err)
	}

	log.Info().Str("userId", session.User.ID).Str("role", string(role)).Msg("user signed up")
	return session, nil
}

// Login replaces any stored refresh token, so earlier sessions can no
// longer refresh.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	if err := requireFields(map[string]string{"email": email, "password": in.Password, "role": in.Role}); err != nil {
		return nil, err
	}

	role, ok := model.ParseRole(in.Role)
	if !ok {
		return nil, apperrors.Unauthorized(invalidCredentials)
	}

	user, err := s.users.FindByEmailAndRole(ctx, email, role)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("find user: %w", err))
	}
	if user == nil || !util.CheckPasswordHash(in.Password, user.PasswordHash) {
		return nil, apperrors.Unauthorized(invalidCredentials)
	}

	session, err := s.issueSession(ctx, s.users, user)
	if err != nil {
		return nil, asInternal(err)
	}
	return session, nil
}

// Logout forgets the refresh token. Unknown or already cleared tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return apperrors.ValidationError("No refresh token provided")
	}

	n, err := s.users.ClearRefreshToken(ctx, util.HashToken(refreshToken))
	if err != nil {
		return apperrors.Database(fmt.Errorf("clear refresh token: %w", err))
	}
	if n > 0 {
		log.Debug().Int64("rows", n).Msg("refresh token cleared")
	}
	return nil
}

// Refresh issues a short lived access token. The stored refresh token is left as is.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Refreshed, error) {
	if refreshToken == "" {
		return nil, apperrors.Unauthorized("No refresh token provided")
	}

	claims, err := s.tokens.Verify(refreshToken, token.Refresh)
	if err != nil {
		return nil, apperrors.Forbidden("Invalid refresh token").WithCause(err)
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("find user: %w", err))
	}
	if user == nil || user.RefreshTokenHash == nil ||
		!util.ConstantTimeEqual(*user.RefreshTokenHash, util.HashToken(refreshToken)) {
		return nil, apperrors.Forbidden("Invalid refresh token")
	}

	access, err := s.tokens.ReissueAccess(user.ID, user.Role)
	if err != nil {
		return nil, asInternal(err)
	}

	return &Refreshed{
		UserID:      user.ID,
		AccessToken: access,
		AccessTTL:   s.tokens.RefreshedAccessTTL(),
	}, nil
}

func (s *AuthService) GetUserInfo(ctx context.Context, userID string) (*model.PublicUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}
	pub := user.Public()
	return &pub, nil
}

// SearchUsers matches name as a case-insensitive literal substring.
func (s *AuthService) SearchUsers(ctx context.Context, name string) ([]model.PublicUser, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.MissingRequired("name")
	}

	users, err := s.users.SearchByName(ctx, name, config.SearchResultLimit)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("search users: %w", err))
	}

	result := make([]model.PublicUser, 0, len(users))
	for i := range users {
		result = append(result, users[i].Public())
	}
	return result, nil
}

func (s *AuthService) issueSession(ctx context.Context, users repository.UserRepository, user *model.User) (*Session, error) {
	access, err := s.tokens.IssueAccess(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.tokens.RefreshTTL())
	if err := users.SetRefreshToken(ctx, user.ID, util.HashToken(refresh), expiresAt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &Session{
		User:         user.Public(),
		AccessToken:  access,
		AccessTTL:    s.tokens.AccessTTL(),
		RefreshToken: refresh,
		RefreshTTL:   s.tokens.RefreshTTL(),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// requireFields reports the first blank field in a fixed order.
func requireFields(fields map[string]string) error {
	for _, name := range []string{"name", "email", "password", "role"} {
		v, ok := fields[name]
		if ok && util.IsBlank(v) {
			return apperrors.MissingRequired(name)
		}
	}
	return nil
}

func asInternal(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Internal("Internal server error").WithCause(err)
}
