package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/callflow-ai/internal/http/respond"
	"github.com/wolfman30/callflow-ai/pkg/logging"
)

type statsRepo interface {
	GetStats(ctx context.Context, sessionID string) (*Stats, error)
	IncrementCalls(ctx context.Context, sessionID string, minutes int) error
}

// Handler provides HTTP endpoints for session statistics.
type Handler struct {
	repo   statsRepo
	logger *logging.Logger
}

func NewHandler(repo statsRepo, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// GetStats returns the dashboard counters.
// GET /api/dashboard/{sessionID}
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	stats, err := h.repo.GetStats(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			respond.NotFound(w)
			return
		}
		h.logger.Error("failed to get stats", "session_id", id, "error", err)
		respond.Internal(w, "Error obteniendo estadísticas", err)
		return
	}
	respond.JSON(w, http.StatusOK, stats)
}

// IncrementCalls records one call.
// POST /api/dashboard/{sessionID}/increment-calls?minutes=1
func (h *Handler) IncrementCalls(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	minutes := 1
	if raw := r.URL.Query().Get("minutes"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respond.Error(w, http.StatusUnprocessableEntity, "minutes must be an integer")
			return
		}
		minutes = parsed
	}

	if err := h.repo.IncrementCalls(r.Context(), id, minutes); err != nil {
		h.logger.Error("failed to increment calls", "session_id", id, "error", err)
		respond.Internal(w, "Error actualizando llamadas", err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"status":            "updated",
		"calls_incremented": 1,
		"minutes_added":     minutes,
	})
}
