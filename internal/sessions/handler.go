package sessions

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/callflow-ai/internal/http/respond"
	"github.com/wolfman30/callflow-ai/pkg/logging"
)

// Handler handles HTTP requests for sessions.
type Handler struct {
	repo   Repository
	logger *logging.Logger
	now    func() time.Time
}

func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger, now: time.Now}
}

// CreateResponse is returned by POST /api/sessions.
type CreateResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// Create handles POST /api/sessions.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode session request", "error", err)
		respond.Error(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respond.Unprocessable(w, err)
		return
	}

	s := NewSession(&req, h.now().UTC())
	if err := h.repo.Create(r.Context(), s); err != nil {
		h.logger.Error("failed to create session", "error", err)
		respond.Internal(w, "Error creando sesión", err)
		return
	}

	h.logger.Info("session created", "session_id", s.ID, "business_name", s.BusinessName, "api_provider", string(s.APIProvider))
	respond.JSON(w, http.StatusOK, CreateResponse{SessionID: s.ID, Status: "created"})
}

// Get handles GET /api/sessions/{sessionID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	s, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			respond.NotFound(w)
			return
		}
		h.logger.Error("failed to get session", "session_id", id, "error", err)
		respond.Internal(w, "Error obteniendo sesión", err)
		return
	}
	respond.JSON(w, http.StatusOK, s)
}

// Delete handles DELETE /api/sessions/{sessionID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			respond.NotFound(w)
			return
		}
		h.logger.Error("failed to delete session", "session_id", id, "error", err)
		respond.Internal(w, "Error eliminando sesión", err)
		return
	}
	h.logger.Info("session deleted", "session_id", id)
	respond.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetAgentConfig handles GET /api/sessions/{sessionID}/agent-config.
func (h *Handler) GetAgentConfig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	cfg, err := h.repo.GetAgentConfig(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			respond.NotFound(w)
			return
		}
		h.logger.Error("failed to get agent config", "session_id", id, "error", err)
		respond.Internal(w, "Error obteniendo configuración", err)
		return
	}
	respond.JSON(w, http.StatusOK, cfg)
}

// UpdateAgentConfig handles PUT /api/sessions/{sessionID}/agent-config.
func (h *Handler) UpdateAgentConfig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	var update AgentConfigUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		respond.Error(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if err := update.Validate(); err != nil {
		respond.Unprocessable(w, err)
		return
	}

	cfg, err := h.repo.GetAgentConfig(r.Context(), id)
	if err == nil {
		update.Apply(cfg)
		err = h.repo.SaveAgentConfig(r.Context(), cfg)
	}
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			respond.NotFound(w)
			return
		}
		h.logger.Error("failed to update agent config", "session_id", id, "error", err)
		respond.Internal(w, "Error actualizando configuración", err)
		return
	}

	h.logger.Info("agent config updated", "session_id", id, "plan", string(cfg.Plan), "voice_provider", cfg.VoiceProvider)
	respond.JSON(w, http.StatusOK, cfg)
}
