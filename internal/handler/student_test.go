package handler

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/model"
)

type connectionRequestEnvelope struct {
	Message string                  `json:"message"`
	Request model.ConnectionRequest `json:"request"`
}

func TestParseSkills(t *testing.T) {
	skills, err := parseSkills([]string{`["go","sql"]`, "react, vue"})
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "sql", "react", " vue"}, skills)

	_, err = parseSkills([]string{`["go"`})
	assert.Error(t, err)

	skills, err = parseSkills(nil)
	require.NoError(t, err)
	assert.Empty(t, skills)
}

func TestStudentHandler_Skills(t *testing.T) {
	s := newTestServer(t)
	_, annCookie := s.signup(t, "Ann", "ann@example.com", "student")
	_, acmeCookie := s.signup(t, "Acme", "acme@example.com", "sponsor")

	t.Run("requires auth", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/student/skills", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("empty catalogue is an empty array", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/student/skills", nil, annCookie)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("update and list", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, "/student/skills", map[string][]string{"skills": {"Go", "SQL", "go"}}, annCookie)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, []string{"go", "sql"}, []string(decode[model.Profile](t, rec).Skills))

		rec = s.do(t, http.MethodGet, "/student/skills", nil, annCookie)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"go", "sql"}, decode[[]string](t, rec))
	})

	t.Run("missing skills field", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, "/student/skills", map[string]string{}, annCookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "MISSING_REQUIRED", decode[errorBody](t, rec).Code)
	})

	t.Run("sponsor has no student profile", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, "/student/skills", map[string][]string{"skills": {"go"}}, acmeCookie)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestStudentHandler_Search(t *testing.T) {
	s := newTestServer(t)
	_, annCookie := s.signup(t, "Ann", "ann@example.com", "student")
	bob, bobCookie := s.signup(t, "Bob", "bob@example.com", "student")
	_, bobbyCookie := s.signup(t, "Bobby", "bobby@example.com", "student")

	rec := s.do(t, http.MethodPut, "/student/skills", map[string][]string{"skills": {"go", "sql"}}, bobCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPut, "/student/skills", map[string][]string{"skills": {"go"}}, bobbyCookie)
	require.Equal(t, http.StatusOK, rec.Code)

	search := func(t *testing.T, query url.Values) []model.StudentCard {
		t.Helper()
		rec := s.do(t, http.MethodGet, "/student/search?"+query.Encode(), nil, annCookie)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decode[[]model.StudentCard](t, rec)
	}

	t.Run("by name", func(t *testing.T) {
		cards := search(t, url.Values{"name": {"bob"}})
		require.Len(t, cards, 2)
		assert.Equal(t, bob, cards[0].User)
		assert.Equal(t, model.StateNone, cards[0].ConnectionStatus)
	})

	t.Run("skills as JSON array", func(t *testing.T) {
		cards := search(t, url.Values{"skills": {`["go","sql"]`}})
		require.Len(t, cards, 1)
		assert.Equal(t, bob.ID, cards[0].User.ID)
	})

	t.Run("skills as comma list", func(t *testing.T) {
		cards := search(t, url.Values{"name": {"bob"}, "skills": {"GO"}})
		assert.Len(t, cards, 2)
	})

	t.Run("result carries pending state after a request", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/student/send-connection-request", map[string]string{"receiverId": bob.ID}, annCookie)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		cards := search(t, url.Values{"skills": {"sql"}})
		require.Len(t, cards, 1)
		assert.Equal(t, model.StatePending, cards[0].ConnectionStatus)
	})

	t.Run("no filter", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/student/search", nil, annCookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed skills", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/student/search?skills="+url.QueryEscape(`["go"`), nil, annCookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("requires auth", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/student/search?name=bob", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestStudentHandler_SendConnectionRequest(t *testing.T) {
	s := newTestServer(t)
	ann, annCookie := s.signup(t, "Ann", "ann@example.com", "student")
	bob, _ := s.signup(t, "Bob", "bob@example.com", "student")

	rec := s.do(t, http.MethodPost, "/student/send-connection-request", map[string]string{"receiverId": bob.ID}, annCookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode[connectionRequestEnvelope](t, rec)
	assert.Equal(t, "Connection request sent", body.Message)
	assert.Equal(t, ann.ID, body.Request.SenderID)
	assert.Equal(t, bob.ID, body.Request.ReceiverID)
	assert.Equal(t, model.ConnectionPending, body.Request.Status)
	assert.Contains(t, rec.Body.String(), `"_id"`)

	t.Run("duplicate", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/student/send-connection-request", map[string]string{"receiverId": bob.ID}, annCookie)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing receiver", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/student/send-connection-request", map[string]string{}, annCookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown receiver", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/student/send-connection-request",
			map[string]string{"receiverId": "00000000-0000-0000-0000-000000000000"}, annCookie)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("self", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/student/send-connection-request", map[string]string{"receiverId": ann.ID}, annCookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
