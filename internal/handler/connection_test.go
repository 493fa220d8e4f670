package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/model"
)

func TestConnectionHandler_Flow(t *testing.T) {
	s := newTestServer(t)
	ann, annCookie := s.signup(t, "Ann", "ann@example.com", "student")
	bob, bobCookie := s.signup(t, "Bob", "bob@example.com", "student")
	_, catCookie := s.signup(t, "Cat", "cat@example.com", "student")

	rec := s.do(t, http.MethodPost, "/student/send-connection-request", map[string]string{"receiverId": bob.ID}, annCookie)
	require.Equal(t, http.StatusCreated, rec.Code)
	requestID := decode[connectionRequestEnvelope](t, rec).Request.ID

	t.Run("receiver sees the pending request", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/connection/requests", nil, bobCookie)
		require.Equal(t, http.StatusOK, rec.Code)
		incoming := decode[[]model.IncomingRequest](t, rec)
		require.Len(t, incoming, 1)
		assert.Equal(t, requestID, incoming[0].ID)
		assert.Equal(t, ann, incoming[0].Sender)

		rec = s.do(t, http.MethodGet, "/connection/requests", nil, annCookie)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("only the receiver may answer", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/connection/requests/"+requestID+"/accept", nil, annCookie)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		rec = s.do(t, http.MethodPost, "/connection/requests/"+requestID+"/accept", nil, catCookie)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown request", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/connection/requests/not-a-uuid/accept", nil, bobCookie)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("accept", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/connection/requests/"+requestID+"/accept", nil, bobCookie)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode[connectionRequestEnvelope](t, rec)
		assert.Equal(t, "Connection request accepted", body.Message)
		assert.Equal(t, model.ConnectionAccepted, body.Request.Status)

		rec = s.do(t, http.MethodPost, "/connection/requests/"+requestID+"/reject", nil, bobCookie)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("both sides list each other", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/connection/list", nil, annCookie)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []model.PublicUser{bob}, decode[[]model.PublicUser](t, rec))

		rec = s.do(t, http.MethodGet, "/connection/list", nil, bobCookie)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []model.PublicUser{ann}, decode[[]model.PublicUser](t, rec))

		rec = s.do(t, http.MethodGet, "/connection/list", nil, catCookie)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("reject deletes the request", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/student/send-connection-request", map[string]string{"receiverId": bob.ID}, catCookie)
		require.Equal(t, http.StatusCreated, rec.Code)
		id := decode[connectionRequestEnvelope](t, rec).Request.ID

		before := s.conns.Count()
		rec = s.do(t, http.MethodPost, "/connection/requests/"+id+"/reject", nil, bobCookie)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Connection request rejected", decode[connectionRequestEnvelope](t, rec).Message)
		assert.Equal(t, before-1, s.conns.Count())
	})

	t.Run("requires auth", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/connection/list", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
