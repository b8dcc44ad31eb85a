package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	applog "github.com/jwebster45206/novel-engine/internal/logger"
	"github.com/jwebster45206/novel-engine/internal/middleware"
	"github.com/jwebster45206/novel-engine/internal/session"
	"github.com/jwebster45206/novel-engine/pkg/engine"
	"github.com/jwebster45206/novel-engine/pkg/state"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

// maxBodyBytes caps request bodies; encoded saves are small.
const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	writeJSON(w, logger, status, ErrorResponse{Error: message})
}

func methodNotAllowed(w http.ResponseWriter, logger *slog.Logger, r *http.Request, allowed ...string) {
	logger.Warn("Method not allowed", "method", r.Method, "path", r.URL.Path)
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: "+strings.Join(allowed, ", "))
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, story.ErrNotFound),
		errors.Is(err, engine.ErrSceneNotFound),
		errors.Is(err, session.ErrSlotEmpty):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidChoice),
		errors.Is(err, session.ErrInvalidSlot),
		errors.Is(err, session.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrChoiceLocked),
		errors.Is(err, session.ErrGameEnded),
		errors.Is(err, state.ErrItemUnavailable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError reports err with its mapped status. Internal failures are
// logged and their details withheld from the client.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	status := statusFor(err)
	reqLog := applog.WithError(logger, err)
	if requestID := middleware.RequestID(r.Context()); requestID != "" {
		reqLog = applog.WithRequestID(reqLog, requestID)
	}
	if status == http.StatusInternalServerError {
		reqLog.Error("Request failed", "method", r.Method, "path", r.URL.Path)
		writeError(w, logger, status, "Internal server error")
		return
	}
	reqLog.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status)
	writeError(w, logger, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}
