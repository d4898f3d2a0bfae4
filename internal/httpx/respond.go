package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/skundu/blood-market/internal/domain"
)

func WriteJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	WriteJSON(w, logger, status, map[string]string{"error": message})
}

// WriteDomainError maps the error taxonomy to HTTP statuses. Internal detail
// stays in the log; the client sees a plain message.
func WriteDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteError(w, logger, http.StatusBadRequest, verr.Msg)
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, logger, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrNotAvailable):
		WriteError(w, logger, http.StatusConflict, "not available")
	default:
		logger.Error("request failed", "error", err)
		WriteError(w, logger, http.StatusInternalServerError, "internal server error")
	}
}
