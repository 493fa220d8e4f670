package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/model"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/token"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newTokens(t *testing.T) (*token.Service, *clock) {
	t.Helper()
	c := &clock{t: time.Now()}
	svc, err := token.NewService(token.Config{
		AccessSecret:       "access-secret-for-middleware",
		RefreshSecret:      "refresh-secret-for-middleware",
		AccessTTL:          time.Hour,
		RefreshedAccessTTL: time.Minute,
		RefreshTTL:         24 * time.Hour,
	}, token.WithClock(c.Now))
	require.NoError(t, err)
	return svc, c
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

func TestAuthMiddleware(t *testing.T) {
	tokens, c := newTokens(t)
	mw := NewAuthMiddleware(tokens)

	var seen string
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	access, err := tokens.IssueAccess("user-1", model.RoleStudent)
	require.NoError(t, err)
	refresh, err := tokens.IssueRefresh("user-1", model.RoleStudent)
	require.NoError(t, err)

	t.Run("accepts cookie", func(t *testing.T) {
		seen = ""
		req := httptest.NewRequest(http.MethodGet, "/user-info", nil)
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: access})
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "user-1", seen)
	})

	t.Run("accepts bearer header", func(t *testing.T) {
		seen = ""
		req := httptest.NewRequest(http.MethodGet, "/user-info", nil)
		req.Header.Set("Authorization", "Bearer "+access)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "user-1", seen)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/user-info", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/user-info", nil)
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: refresh})
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_TOKEN", errorCode(t, rec))
	})

	t.Run("expired token", func(t *testing.T) {
		c.t = c.t.Add(2 * time.Hour)
		defer func() { c.t = c.t.Add(-2 * time.Hour) }()

		req := httptest.NewRequest(http.MethodGet, "/user-info", nil)
		req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: access})
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "TOKEN_EXPIRED", errorCode(t, rec))
	})
}

func TestUserID_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, UserID(req.Context()))
	assert.Nil(t, GetClaims(req.Context()))
}
