package middleware

import (
	"net/http"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/httputil"
)

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}
