package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fleetbeacon/fleetbeacon/internal/apierr"
)

// Respond writes a JSON response with the given status code.
func Respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Error   string           `json:"error"`
	Message string           `json:"message,omitempty"`
	Details []apierr.Detail  `json:"details,omitempty"`
}

// RespondError writes a JSON error response.
func RespondError(w http.ResponseWriter, status int, err string, message string) {
	Respond(w, status, ErrorResponse{Error: err, Message: message})
}

// RespondAPIErr maps a typed apierr.Error to its HTTP status and JSON
// envelope. Internal errors never leak their cause to the client; the cause
// is logged separately by the caller.
func RespondAPIErr(w http.ResponseWriter, err *apierr.Error) {
	msg := err.Message
	if err.Kind == apierr.KindInternal {
		msg = "internal error"
	}
	Respond(w, err.HTTPStatus(), ErrorResponse{
		Error:   string(err.Kind),
		Message: msg,
		Details: err.Details,
	})
}
