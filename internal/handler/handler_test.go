package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/middleware"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/model"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/realtime"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/repository/repotest"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/service"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/token"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/util"
)

func TestMain(m *testing.M) {
	util.PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type testServer struct {
	router   chi.Router
	users    *repotest.Users
	conns    *repotest.Connections
	registry *realtime.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	tokens, err := token.NewService(token.Config{
		AccessSecret:       "handler-access-secret",
		RefreshSecret:      "handler-refresh-secret",
		AccessTTL:          24 * time.Hour,
		RefreshedAccessTTL: time.Hour,
		RefreshTTL:         720 * time.Hour,
	})
	require.NoError(t, err)

	users := repotest.NewUsers()
	profiles := repotest.NewProfiles()
	convs := repotest.NewConversations()
	conns := repotest.NewConnections(users)
	registry := realtime.NewRegistry()

	authSvc := service.NewAuthService(users, profiles, tokens, &repotest.Tx{})
	chatSvc := service.NewChatService(convs, repotest.NewMessages(convs), registry)
	connSvc := service.NewConnectionService(users, conns)
	studentSvc := service.NewStudentService(repotest.NewStudents(users, profiles), connSvc)

	cookies := middleware.NewCookies(false, http.SameSiteLaxMode)
	access := middleware.NewAuthMiddleware(tokens)

	r := chi.NewRouter()
	r.Mount("/auth", NewAuthHandler(authSvc, cookies, access.Handler).Routes())
	r.Mount("/chat", NewChatHandler(chatSvc).Routes())
	r.Mount("/student", NewStudentHandler(studentSvc, connSvc, access.Handler).Routes())
	r.Mount("/connection", NewConnectionHandler(connSvc, access.Handler).Routes())
	r.Handle("/socket", NewSocketHandler(registry, chatSvc, nil))

	return &testServer{router: r, users: users, conns: conns, registry: registry}
}

// signup registers a user and returns it with its access cookie.
func (s *testServer) signup(t *testing.T, name, email, role string) (model.PublicUser, *http.Cookie) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/signup", signupBody{name, email, "pw-" + name, role})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	access := cookie(rec, middleware.AccessTokenCookie)
	require.NotNil(t, access)
	return decode[userEnvelope](t, rec).User, access
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func cookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
