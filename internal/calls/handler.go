package calls

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/callflow-ai/internal/http/respond"
	"github.com/wolfman30/callflow-ai/internal/sessions"
	"github.com/wolfman30/callflow-ai/pkg/logging"
)

type simulator interface {
	Simulate(ctx context.Context, req SimulateRequest) (*SimulateResult, error)
	RetellConfig(ctx context.Context, sessionID string) (*RetellConfig, error)
}

// Handler serves the call endpoints.
type Handler struct {
	service simulator
	logger  *logging.Logger
}

func NewHandler(service simulator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Simulate handles POST /api/calls/simulate.
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	result, err := h.service.Simulate(r.Context(), req)
	if err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			respond.NotFound(w)
			return
		}
		h.logger.Error("call simulation failed", "session_id", req.SessionID, "error", err)
		respond.Internal(w, "Error simulando llamada", err)
		return
	}
	respond.JSON(w, http.StatusOK, result)
}

// RetellConfig handles GET /api/calls/retell-config/{sessionID}.
func (h *Handler) RetellConfig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	cfg, err := h.service.RetellConfig(r.Context(), id)
	if err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			respond.NotFound(w)
			return
		}
		h.logger.Error("retell config failed", "session_id", id, "error", err)
		respond.Internal(w, "Error obteniendo configuración", err)
		return
	}
	respond.JSON(w, http.StatusOK, cfg)
}
