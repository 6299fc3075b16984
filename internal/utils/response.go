package utils

import (
	"encoding/json"
	"net/http"

	"peerprep/interview/internal/models"
)

// JSON writes payload with statusCode. Encoding errors after the header is
// sent cannot be reported to the client and are ignored.
func JSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// Error writes a models.ErrorResponse carrying the candidate-facing message.
func Error(w http.ResponseWriter, statusCode int, code, message string) {
	JSON(w, statusCode, models.ErrorResponse{Code: code, Message: message})
}

// Markdown writes an exported transcript as text/markdown.
func Markdown(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(body))
}
