package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/s7654raj/Friends-Skill-Exchange/internal/errors"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/httputil"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/middleware"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/model"
	"github.com/s7654raj/Friends-Skill-Exchange/internal/service"
)

type StudentHandler struct {
	students    *service.StudentService
	connections *service.ConnectionService
	access      func(http.Handler) http.Handler
}

func NewStudentHandler(
	students *service.StudentService,
	connections *service.ConnectionService,
	access func(http.Handler) http.Handler,
) *StudentHandler {
	return &StudentHandler{students: students, connections: connections, access: access}
}

func (h *StudentHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.access)

	r.Get("/skills", h.ListSkills)
	r.Put("/skills", h.UpdateSkills)
	r.Get("/search", h.Search)
	r.Post("/send-connection-request", h.SendConnectionRequest)

	return r
}

// requireUser writes 401 and returns "" when no user is on the context.
func requireUser(w http.ResponseWriter, r *http.Request) string {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		writeError(w, apperrors.Unauthorized("Not authenticated"))
	}
	return userID
}

// GET /student/skills
func (h *StudentHandler) ListSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := h.students.ListSkills(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, skills)
}

type skillsRequest struct {
	Skills []string `json:"skills" validate:"required"`
}

// PUT /student/skills
func (h *StudentHandler) UpdateSkills(w http.ResponseWriter, r *http.Request) {
	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	var req skillsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.students.UpdateSkills(r.Context(), userID, req.Skills)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// GET /student/search?name=&skills=
func (h *StudentHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	query := r.URL.Query()
	skills, err := parseSkills(query["skills"])
	if err != nil {
		writeError(w, err)
		return
	}

	cards, err := h.students.Search(r.Context(), userID, query.Get("name"), skills)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cards)
}

// parseSkills accepts a JSON array, a comma separated list or repeated
// parameters.
func parseSkills(values []string) ([]string, error) {
	var skills []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if strings.HasPrefix(v, "[") {
			var list []string
			if err := json.Unmarshal([]byte(v), &list); err != nil {
				return nil, apperrors.InvalidInput("skills", "must be a JSON array of strings or a comma separated list")
			}
			skills = append(skills, list...)
			continue
		}
		skills = append(skills, strings.Split(v, ",")...)
	}
	return skills, nil
}

type connectionRequestBody struct {
	ReceiverID string `json:"receiverId" validate:"notblank"`
}

type connectionRequestResponse struct {
	Message string                   `json:"message"`
	Request *model.ConnectionRequest `json:"request"`
}

// POST /student/send-connection-request
func (h *StudentHandler) SendConnectionRequest(w http.ResponseWriter, r *http.Request) {
	userID := requireUser(w, r)
	if userID == "" {
		return
	}

	var body connectionRequestBody
	if err := httputil.DecodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	req, err := h.connections.SendRequest(r.Context(), userID, body.ReceiverID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, connectionRequestResponse{
		Message: "Connection request sent",
		Request: req,
	})
}
