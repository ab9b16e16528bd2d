package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/callflow-ai/internal/calls"
	"github.com/wolfman30/callflow-ai/internal/chat"
	"github.com/wolfman30/callflow-ai/internal/dashboard"
	"github.com/wolfman30/callflow-ai/internal/http/respond"
	httpmiddleware "github.com/wolfman30/callflow-ai/internal/http/middleware"
	"github.com/wolfman30/callflow-ai/internal/sessions"
	"github.com/wolfman30/callflow-ai/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	SessionsHandler    *sessions.Handler
	ChatHandler        *chat.Handler
	DashboardHandler   *dashboard.Handler
	CallsHandler       *calls.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// AdminAuthSecret protects session deletion and agent config updates when set.
	AdminAuthSecret string
	// ChatLimiter throttles chat messages per client IP when set.
	ChatLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Get("/", root)
	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	operator := httpmiddleware.AdminJWT(cfg.AdminAuthSecret)
	throttle := func(next http.Handler) http.Handler { return next }
	if cfg.ChatLimiter != nil {
		throttle = cfg.ChatLimiter.Middleware
	}

	r.Route("/api", func(api chi.Router) {
		if h := cfg.SessionsHandler; h != nil {
			api.Route("/sessions", func(r chi.Router) {
				r.Post("/", h.Create)
				r.Route("/{sessionID}", func(r chi.Router) {
					r.Get("/", h.Get)
					r.With(operator).Delete("/", h.Delete)
					r.Get("/agent-config", h.GetAgentConfig)
					r.With(operator).Put("/agent-config", h.UpdateAgentConfig)
				})
			})
		}
		if h := cfg.ChatHandler; h != nil {
			api.Route("/chat", func(r chi.Router) {
				r.With(throttle).Post("/", h.PostMessage)
				r.Get("/{sessionID}/history", h.History)
				r.With(throttle).Get("/{sessionID}/ws", h.HandleWebSocket)
			})
		}
		if h := cfg.DashboardHandler; h != nil {
			api.Route("/dashboard", func(r chi.Router) {
				r.Get("/{sessionID}", h.GetStats)
				r.Post("/{sessionID}/increment-calls", h.IncrementCalls)
			})
		}
		if h := cfg.CallsHandler; h != nil {
			api.Route("/calls", func(r chi.Router) {
				r.Post("/simulate", h.Simulate)
				r.Get("/retell-config/{sessionID}", h.RetellConfig)
			})
		}
	})

	return r
}

func root(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"message": "CallFlow AI Backend"})
}

func health(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "Backend funcionando correctamente",
	})
}
