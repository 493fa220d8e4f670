package handler

import (
	"net/http"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

type messageResponse struct {
	Message string `json:"message"`
}
