package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/audit"
	apperrors "github.com/s7654raj/Friends-Skill-Exchange/internal/errors"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/token"
)

type contextKey string

const ClaimsContextKey contextKey = "claims"

// TokenVerifier checks a token of the given class.
type TokenVerifier interface {
	Verify(tokenString string, class token.Class) (*token.Claims, error)
}

func GetClaims(ctx context.Context) *token.Claims {
	if claims, ok := ctx.Value(ClaimsContextKey).(*token.Claims); ok {
		return claims
	}
	return nil
}

// UserID returns the authenticated user id or "".
func UserID(ctx context.Context) string {
	if claims := GetClaims(ctx); claims != nil {
		return claims.UserID
	}
	return ""
}

type AuthMiddleware struct {
	tokens TokenVerifier
}

func NewAuthMiddleware(tokens TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handler requires a valid access token from the accessToken cookie or a
// Bearer Authorization header.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractToken(r)
		if raw == "" {
			writeError(w, apperrors.Unauthorized("Missing authentication token"))
			return
		}

		claims, err := m.tokens.Verify(raw, token.Access)
		if err != nil {
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAuthFailure,
				Details: map[string]any{"reason": err.Error(), "path": r.URL.Path},
			})
			if errors.Is(err, token.ErrExpired) {
				writeError(w, apperrors.TokenExpired())
				return
			}
			writeError(w, apperrors.InvalidToken("Invalid token"))
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) string {
	if value := ReadCookie(r, AccessTokenCookie); value != "" {
		return value
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}
