package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/callflow-ai/internal/http/respond"
	"github.com/wolfman30/callflow-ai/internal/sessions"
	"github.com/wolfman30/callflow-ai/pkg/logging"
	"golang.org/x/net/websocket"
)

const defaultHistoryPageSize = 50

type processor interface {
	ProcessMessage(ctx context.Context, req Request) (*Response, error)
	History(ctx context.Context, sessionID string, limit int) ([]Message, error)
}

// Handler serves the chat endpoints.
type Handler struct {
	service processor
	logger  *logging.Logger
}

func NewHandler(service processor, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// PostMessage handles POST /api/chat.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	resp, err := h.service.ProcessMessage(r.Context(), req)
	if err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			respond.NotFound(w)
			return
		}
		h.logger.Error("chat message failed", "session_id", req.SessionID, "error", err)
		respond.Internal(w, "Error procesando mensaje", err)
		return
	}
	respond.JSON(w, http.StatusOK, resp)
}

// History handles GET /api/chat/{sessionID}/history?limit=50.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	limit := defaultHistoryPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respond.Error(w, http.StatusUnprocessableEntity, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	messages, err := h.service.History(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("chat history failed", "session_id", id, "error", err)
		respond.Internal(w, "Error obteniendo historial", err)
		return
	}
	respond.JSON(w, http.StatusOK, messages)
}

// InboundFrame is what a websocket client sends.
type InboundFrame struct {
	Type     string `json:"type"` // "message", "ping"
	Text     string `json:"text"`
	UserType string `json:"user_type,omitempty"`
}

// OutboundFrame is what the server sends back over the websocket.
type OutboundFrame struct {
	Type string `json:"type"` // "message", "pong", "error"
	Text string `json:"text,omitempty"`
	*Response
}

// HandleWebSocket handles GET /api/chat/{sessionID}/ws. Each inbound message
// frame is processed like POST /api/chat and answered with one outbound frame.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(r.Context(), conn, sessionID)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(ctx context.Context, conn *websocket.Conn, sessionID string) {
	h.logger.Info("chat websocket opened", "session_id", sessionID)
	for {
		var frame InboundFrame
		if err := websocket.JSON.Receive(conn, &frame); err != nil {
			h.logger.Debug("chat websocket closed", "session_id", sessionID, "error", err)
			return
		}

		switch frame.Type {
		case "ping":
			_ = websocket.JSON.Send(conn, OutboundFrame{Type: "pong"})
			continue
		case "message":
		default:
			continue
		}
		if strings.TrimSpace(frame.Text) == "" {
			continue
		}

		resp, err := h.service.ProcessMessage(ctx, Request{SessionID: sessionID, Message: frame.Text, UserType: frame.UserType})
		if err != nil {
			text := "Error procesando mensaje: " + err.Error()
			if errors.Is(err, sessions.ErrSessionNotFound) {
				text = respond.MsgSessionNotFound
			}
			h.logger.Warn("chat websocket message failed", "session_id", sessionID, "error", err)
			_ = websocket.JSON.Send(conn, OutboundFrame{Type: "error", Text: text})
			continue
		}
		if err := websocket.JSON.Send(conn, OutboundFrame{Type: "message", Response: resp}); err != nil {
			h.logger.Debug("chat websocket send failed", "session_id", sessionID, "error", err)
			return
		}
	}
}
