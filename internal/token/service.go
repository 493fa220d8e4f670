// Package token issues and verifies the signed access and refresh tokens
// that make up a session.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/model"
)

// Class distinguishes the two token kinds. Each class has its own secret.
type Class string

const (
	Access  Class = "access"
	Refresh Class = "refresh"
)

var (
	ErrInvalidSignature = errors.New("token: invalid signature")
	ErrExpired          = errors.New("token: expired")
)

type Config struct {
	AccessSecret       string
	RefreshSecret      string
	AccessTTL          time.Duration
	RefreshedAccessTTL time.Duration
	RefreshTTL         time.Duration
}

type Claims struct {
	UserID string     `json:"_id"`
	Role   model.Role `json:"role"`
	Type   Class      `json:"typ"`
	jwt.RegisteredClaims
}

type Service struct {
	cfg Config
	now func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now for issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token: access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("token: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshedAccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token: lifetimes must be positive")
	}

	s := &Service{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) AccessTTL() time.Duration          { return s.cfg.AccessTTL }
func (s *Service) RefreshedAccessTTL() time.Duration { return s.cfg.RefreshedAccessTTL }
func (s *Service) RefreshTTL() time.Duration         { return s.cfg.RefreshTTL }

// IssueAccess signs an access token valid for AccessTTL.
func (s *Service) IssueAccess(userID string, role model.Role) (string, error) {
	return s.issue(Access, userID, role, s.cfg.AccessTTL)
}

// ReissueAccess signs the shorter lived access token handed out on refresh.
func (s *Service) ReissueAccess(userID string, role model.Role) (string, error) {
	return s.issue(Access, userID, role, s.cfg.RefreshedAccessTTL)
}

func (s *Service) IssueRefresh(userID string, role model.Role) (string, error) {
	return s.issue(Refresh, userID, role, s.cfg.RefreshTTL)
}

func (s *Service) issue(class Class, userID string, role model.Role, ttl time.Duration) (string, error) {
	now := s.now().UTC()
	claims := Claims{
		UserID: userID,
		Role:   role,
		Type:   class,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret(class))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", class, err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, expiry and class. Any failure other
// than expiry is reported as ErrInvalidSignature.
func (s *Service) Verify(tokenString string, class Class) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret(class), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalidSignature
	}

	if claims.Type != class || claims.UserID == "" || claims.Subject != claims.UserID {
		return nil, ErrInvalidSignature
	}
	return claims, nil
}

func (s *Service) secret(class Class) []byte {
	if class == Refresh {
		return []byte(s.cfg.RefreshSecret)
	}
	return []byte(s.cfg.AccessSecret)
}
