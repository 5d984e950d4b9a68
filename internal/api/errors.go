package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"drive-go/internal/drive"
)

// errorBody is the JSON shape of every error response:
// {"error": {"code": "...", "message": "..."}}.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps an error kind onto its HTTP status.
func statusOf(kind drive.Kind) int {
	switch kind {
	case drive.KindBadRequest:
		return http.StatusBadRequest
	case drive.KindUnauthenticated:
		return http.StatusUnauthorized
	case drive.KindForbidden:
		return http.StatusForbidden
	case drive.KindNotFound:
		return http.StatusNotFound
	case drive.KindConflict:
		return http.StatusConflict
	case drive.KindQuotaExceeded:
		return http.StatusRequestEntityTooLarge
	case drive.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as an error response. Details of upstream and internal
// failures are logged, not returned.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := drive.KindOf(err)
	status := statusOf(kind)

	message := strings.ReplaceAll(err.Error(), "\n", ": ")
	switch kind {
	case drive.KindUpstream:
		message = "a storage backend failed, try again later"
	case drive.KindInternal:
		message = "internal error"
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
	}
	writeError(w, status, string(kind), message)
}

// badRequest wraps a decoding or validation problem.
func badRequest(msg string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", drive.ErrBadRequest, msg)
	}
	return fmt.Errorf("%w: %s: %v", drive.ErrBadRequest, msg, err)
}
