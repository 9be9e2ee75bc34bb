package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/ansuz/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps the core error taxonomy onto HTTP statuses. Cycle and
// self-dependency rejections surface their message so callers can see the
// offending path; other conflicts and validation failures do too. Anything
// unmapped is logged and reported as an opaque 500.
func writeError(w http.ResponseWriter, err error, logMsg string, attrs ...slog.Attr) {
	var cycleErr *apperr.CycleError
	var selfErr *apperr.SelfDependencyError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.As(err, &cycleErr), errors.As(err, &selfErr):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	default:
		attrs = append(attrs, slog.String("error", err.Error()))
		slog.LogAttrs(context.Background(), slog.LevelError, logMsg, attrs...)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
