package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/s7654raj/Friends-Skill-Exchange/internal/errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   apperrors.ErrorCode
		wantMsg    string
	}{
		{"validation", apperrors.ValidationError("bad"), http.StatusBadRequest, apperrors.ErrCodeValidation, "bad"},
		{"missing", apperrors.MissingRequired("name"), http.StatusBadRequest, apperrors.ErrCodeMissingRequired, "name is required"},
		{"unauthorized", apperrors.Unauthorized("Invalid credentials"), http.StatusUnauthorized, apperrors.ErrCodeUnauthorized, "Invalid credentials"},
		{"forbidden", apperrors.Forbidden("nope"), http.StatusForbidden, apperrors.ErrCodeForbidden, "nope"},
		{"not found", apperrors.NotFound("User"), http.StatusNotFound, apperrors.ErrCodeNotFound, "User not found"},
		{"conflict", apperrors.Conflict("taken"), http.StatusConflict, apperrors.ErrCodeConflict, "taken"},
		{"body too large", apperrors.BodyTooLarge(), http.StatusRequestEntityTooLarge, apperrors.ErrCodeBodyTooLarge, "Request body too large"},
		{"rate limit", apperrors.RateLimitExceeded(), http.StatusTooManyRequests, apperrors.ErrCodeRateLimitExceeded, "Rate limit exceeded"},
		{"database", apperrors.Database(errors.New("pq: relation missing")), http.StatusInternalServerError, apperrors.ErrCodeDatabase, "Internal server error"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, apperrors.ErrCodeInternal, "An unexpected error occurred"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantCode, body.Code)
			assert.Equal(t, tc.wantMsg, body.Error)
		})
	}
}

type signupBody struct {
	Name  string `json:"name" validate:"notblank"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=student sponsor"`
}

func TestDecodeJSON(t *testing.T) {
	decode := func(body string) error {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var dst signupBody
		return DecodeJSON(req, &dst)
	}

	t.Run("accepts valid body", func(t *testing.T) {
		assert.NoError(t, decode(`{"name":"Ann","email":"ann@x.io","role":"student"}`))
	})

	t.Run("malformed JSON is a validation error", func(t *testing.T) {
		err := decode(`{"name":`)
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
	})

	t.Run("blank name reports json field name", func(t *testing.T) {
		err := decode(`{"name":"   ","email":"ann@x.io","role":"student"}`)
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeMissingRequired, appErr.Code)
		assert.Equal(t, "name is required", appErr.Message)
	})

	t.Run("unknown enum value", func(t *testing.T) {
		err := decode(`{"name":"Ann","email":"ann@x.io","role":"admin"}`)
		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))
	})

	t.Run("bad email", func(t *testing.T) {
		err := decode(`{"name":"Ann","email":"nope","role":"student"}`)
		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))
	})

	t.Run("body over MaxBytesReader cap", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("a", 64)+`"}`))
		req.Body = http.MaxBytesReader(rec, req.Body, 16)

		var dst signupBody
		err := DecodeJSON(req, &dst)
		assert.Equal(t, apperrors.ErrCodeBodyTooLarge, apperrors.GetCode(err))
	})
}
