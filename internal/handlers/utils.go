package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/ezasdf/users-api/internal/apperr"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	maxBodyBytes = 1 << 20
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Response{Status: statusSuccess, Message: message, Data: data})
}

// writeError maps err onto the envelope. Unclassified errors become a 500
// with a generic message and are logged.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeJSON(w, kind.Status(), Response{Status: statusError, Message: apperr.MessageOf(err)})
}

// decodeJSON reads a JSON object from the request body. Empty and
// malformed bodies are reported as an invalid payload.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return apperr.Wrap(apperr.InvalidPayload, apperr.MsgInvalidPayload, err)
	}
	return nil
}
