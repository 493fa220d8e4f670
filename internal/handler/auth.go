package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/audit"
	apperrors "github.com/s7654raj/Friends-Skill-Exchange/internal/errors"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/httputil"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/metrics"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/middleware"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/model"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/service"
)

type AuthHandler struct {
	auth        *service.AuthService
	cookies     *middleware.Cookies
	access      func(http.Handler) http.Handler
	signupLimit func(http.Handler) http.Handler
	loginLimit  func(http.Handler) http.Handler
}

// AuthHandlerOption customises the middleware guarding individual routes.
type AuthHandlerOption func(*AuthHandler)

func WithSignupLimit(mw func(http.Handler) http.Handler) AuthHandlerOption {
	return func(h *AuthHandler) { h.signupLimit = mw }
}

func WithLoginLimit(mw func(http.Handler) http.Handler) AuthHandlerOption {
	return func(h *AuthHandler) { h.loginLimit = mw }
}

func NewAuthHandler(
	auth *service.AuthService,
	cookies *middleware.Cookies,
	access func(http.Handler) http.Handler,
	opts ...AuthHandlerOption,
) *AuthHandler {
	h := &AuthHandler{
		auth:        auth,
		cookies:     cookies,
		access:      access,
		signupLimit: passthrough,
		loginLimit:  passthrough,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func passthrough(next http.Handler) http.Handler { return next }

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(h.signupLimit).Post("/signup", h.Signup)
	r.With(h.loginLimit).Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Post("/refresh-token", h.RefreshToken)

	r.Group(func(r chi.Router) {
		r.Use(h.access)
		r.Get("/user-info", h.UserInfo)
		r.Get("/users/search", h.SearchUsers)
	})

	return r
}

type userResponse struct {
	Message string           `json:"message,omitempty"`
	User    model.PublicUser `json:"user"`
}

// POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in service.SignupInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		h.recordFailure(r, audit.EventSignupFailure, "signup", err)
		writeError(w, err)
		return
	}

	session, err := h.auth.Signup(r.Context(), in)
	if err != nil {
		h.recordFailure(r, audit.EventSignupFailure, "signup", err)
		writeError(w, err)
		return
	}

	h.setSession(w, session)
	metrics.AuthAttemptsTotal.WithLabelValues("signup", metrics.StatusSuccess).Inc()
	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventSignup,
		UserID:  session.User.ID,
		Details: map[string]any{"role": string(session.User.Role)},
	})

	writeJSON(w, http.StatusCreated, userResponse{
		Message: "User registered successfully",
		User:    session.User,
	})
}

// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		h.recordFailure(r, audit.EventLoginFailure, "login", err)
		writeError(w, err)
		return
	}

	session, err := h.auth.Login(r.Context(), in)
	if err != nil {
		h.recordFailure(r, audit.EventLoginFailure, "login", err)
		writeError(w, err)
		return
	}

	h.setSession(w, session)
	metrics.AuthAttemptsTotal.WithLabelValues("login", metrics.StatusSuccess).Inc()
	audit.LogFromRequest(r, audit.Event{Type: audit.EventLoginSuccess, UserID: session.User.ID})

	writeJSON(w, http.StatusOK, userResponse{
		Message: "Login successful",
		User:    session.User,
	})
}

// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), middleware.ReadCookie(r, middleware.RefreshTokenCookie)); err != nil {
		writeError(w, err)
		return
	}

	h.cookies.Clear(w)
	audit.LogFromRequest(r, audit.Event{Type: audit.EventLogout})
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

// POST /auth/refresh-token
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	refreshed, err := h.auth.Refresh(r.Context(), middleware.ReadCookie(r, middleware.RefreshTokenCookie))
	if err != nil {
		h.recordFailure(r, audit.EventRefreshRejected, "refresh", err)
		writeError(w, err)
		return
	}

	h.cookies.SetAccess(w, refreshed.AccessToken, refreshed.AccessTTL)
	metrics.AuthAttemptsTotal.WithLabelValues("refresh", metrics.StatusSuccess).Inc()
	audit.LogFromRequest(r, audit.Event{Type: audit.EventTokenRefresh, UserID: refreshed.UserID})
	writeJSON(w, http.StatusOK, messageResponse{Message: "Token refreshed successfully"})
}

// GET /auth/user-info
func (h *AuthHandler) UserInfo(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		writeError(w, apperrors.Unauthorized("Not authenticated"))
		return
	}

	user, err := h.auth.GetUserInfo(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: *user})
}

// GET /auth/users/search?name=
func (h *AuthHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.SearchUsers(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

func (h *AuthHandler) setSession(w http.ResponseWriter, session *service.Session) {
	h.cookies.SetAccess(w, session.AccessToken, session.AccessTTL)
	h.cookies.SetRefresh(w, session.RefreshToken, session.RefreshTTL)
}

func (h *AuthHandler) recordFailure(r *http.Request, event audit.EventType, op string, err error) {
	metrics.AuthAttemptsTotal.WithLabelValues(op, metrics.StatusFailure).Inc()
	audit.LogFromRequest(r, audit.Event{
		Type:    event,
		Details: map[string]any{"code": string(apperrors.GetCode(err))},
	})
}
