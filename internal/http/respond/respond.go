// Package respond writes JSON bodies in the shape the web client expects.
// Errors are always {"detail": "..."}.
package respond

import (
	"encoding/json"
	"net/http"
)

// MsgSessionNotFound is the detail sent with every unknown-session 404.
const MsgSessionNotFound = "Sesión no encontrada"

type errorBody struct {
	Detail string `json:"detail"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func Error(w http.ResponseWriter, status int, detail string) {
	JSON(w, status, errorBody{Detail: detail})
}

func NotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, MsgSessionNotFound)
}

// Internal reports err under a caller-specific prefix such as "Error obteniendo sesión".
func Internal(w http.ResponseWriter, prefix string, err error) {
	Error(w, http.StatusInternalServerError, prefix+": "+err.Error())
}

// Unprocessable reports a validation failure.
func Unprocessable(w http.ResponseWriter, err error) {
	Error(w, http.StatusUnprocessableEntity, err.Error())
}
