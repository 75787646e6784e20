package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError, so every error
// response has the same shape:
//
//	{"detail": "Todo not found", "code": "TODO_NOT_FOUND"}
//
// Clients switch on "code"; "detail" is for humans.

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/todo-tracker/internal/apperror"
)

// writeJSON sends data as JSON with the given status.
//
// Headers and status must be written before the body; once Encode writes,
// later header changes are ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps err to a status and code with apperror.Describe.
//
// Unknown errors become a 500 with a generic detail; the real cause is only
// logged, never sent, since it may contain SQL or file paths.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code, detail := apperror.Describe(err)

	attrs := []any{
		slog.String("code", code),
		slog.String("path", r.URL.Path),
		slog.String("requestID", middleware.GetReqID(r.Context())),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("unhandled error", append(attrs, slog.String("error", err.Error()))...)
	} else {
		logger.Warn("request failed", append(attrs, slog.String("detail", detail))...)
	}

	apperror.Write(w, err)
}
