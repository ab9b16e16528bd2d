package bootstrap

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/callflow-ai/internal/api/router"
	"github.com/wolfman30/callflow-ai/internal/calls"
	"github.com/wolfman30/callflow-ai/internal/chat"
	appconfig "github.com/wolfman30/callflow-ai/internal/config"
	"github.com/wolfman30/callflow-ai/internal/dashboard"
	"github.com/wolfman30/callflow-ai/internal/events"
	httpmiddleware "github.com/wolfman30/callflow-ai/internal/http/middleware"
	"github.com/wolfman30/callflow-ai/internal/observability/metrics"
	"github.com/wolfman30/callflow-ai/internal/sessions"
	"github.com/wolfman30/callflow-ai/pkg/logging"
)

// Services are the repositories the HTTP handlers run on.
type Services struct {
	Sessions  sessions.Repository
	Messages  *chat.MessageStore
	Stats     *dashboard.StatsRepository
	Providers chat.ProviderFactory
	Publisher events.Publisher
	Metrics   *metrics.ConversationMetrics
}

// WithSessionCache puts a redis read-through cache in front of repo when a
// client is available.
func WithSessionCache(repo sessions.Repository, client *redis.Client, cfg *appconfig.Config, logger *logging.Logger) sessions.Repository {
	if client == nil {
		return repo
	}
	logger.Info("session cache enabled", "ttl", cfg.SessionCacheTTL)
	return sessions.NewCachedRepository(repo, client, cfg.SessionCacheTTL, logger)
}

// SetupMetrics registers the conversation metrics on a fresh registry and
// returns the handler serving it.
func SetupMetrics() (http.Handler, *metrics.ConversationMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewConversationMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

// BuildRouterConfig wires the domain services into HTTP handlers.
// ctx bounds background work such as the chat rate limiter sweep.
func BuildRouterConfig(ctx context.Context, cfg *appconfig.Config, svc Services, metricsHandler http.Handler, logger *logging.Logger) *router.Config {
	if logger == nil {
		logger = logging.Default()
	}
	emitter := events.NewEmitter(svc.Publisher, logger)

	chatService := chat.NewService(svc.Sessions, svc.Messages, svc.Providers, svc.Stats,
		chat.WithEmitter(emitter),
		chat.WithPipelineObserver(svc.Metrics),
		chat.WithLogger(logger),
		chat.WithHistoryLimit(cfg.ChatHistoryLimit),
	)
	callService := calls.NewService(svc.Sessions, svc.Stats,
		calls.WithDelay(cfg.CallSimulationDelay),
		calls.WithMinutes(cfg.CallSimulationMinutes),
		calls.WithEmitter(emitter),
		calls.WithObserver(svc.Metrics),
		calls.WithLogger(logger),
	)

	var limiter *httpmiddleware.RateLimiter
	if cfg.ChatRateLimitRPS > 0 {
		limiter = httpmiddleware.NewRateLimiter(ctx, cfg.ChatRateLimitRPS, cfg.ChatRateLimitBurst)
	}

	return &router.Config{
		Logger:             logger,
		SessionsHandler:    sessions.NewHandler(svc.Sessions, logger),
		ChatHandler:        chat.NewHandler(chatService, logger),
		DashboardHandler:   dashboard.NewHandler(svc.Stats, logger),
		CallsHandler:       calls.NewHandler(callService, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		ChatLimiter:        limiter,
	}
}
