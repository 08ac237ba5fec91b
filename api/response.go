package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/brightpath/brainstorm/internal/chat"
	"github.com/brightpath/brainstorm/internal/conversation"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already sent; log for debugging only.
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// writeDomainError maps a coordinator error to an HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, conversation.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, conversation.ErrInvalidRole):
		writeError(w, http.StatusUnprocessableEntity, "invalid_role", err.Error())
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusUnprocessableEntity, "empty_message", err.Error())
	case errors.Is(err, chat.ErrBusy):
		writeError(w, http.StatusConflict, "generation_in_progress", err.Error())
	case errors.Is(err, chat.ErrClosed):
		writeError(w, http.StatusConflict, "conversation_closed", err.Error())
	case errors.Is(err, chat.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
