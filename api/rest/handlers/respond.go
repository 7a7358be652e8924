package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"music-relay/core/models"
	"music-relay/logger"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response", logger.Err(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// respondError maps an error kind onto its HTTP status. Errors of no
// known kind are logged and hidden from the client.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var upstream *models.UpstreamError
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &upstream):
		slog.Warn("upstream call failed", "path", r.URL.Path, logger.Err(err))
		writeError(w, http.StatusInternalServerError, upstreamMessage(upstream))
	default:
		slog.Error("unhandled error", "method", r.Method, "path", r.URL.Path, logger.Err(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func upstreamMessage(err *models.UpstreamError) string {
	if err.Message != "" {
		return err.Message
	}
	return err.Error()
}
