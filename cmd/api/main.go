package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wolfman30/callflow-ai/internal/api/router"
	"github.com/wolfman30/callflow-ai/internal/app/bootstrap"
	"github.com/wolfman30/callflow-ai/internal/chat"
	appconfig "github.com/wolfman30/callflow-ai/internal/config"
	"github.com/wolfman30/callflow-ai/internal/dashboard"
	"github.com/wolfman30/callflow-ai/internal/llm"
	"github.com/wolfman30/callflow-ai/internal/sessions"
	"github.com/wolfman30/callflow-ai/pkg/logging"
)

func main() {
	if err := appconfig.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting callflow-ai API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("Server exited gracefully")
}

func run(cfg *appconfig.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := bootstrap.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pg.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	eventPipeline, err := bootstrap.BuildEventPipeline(cfg, pg.Pool, logger)
	if err != nil {
		return err
	}
	defer eventPipeline.Close()
	go eventPipeline.Run(ctx)

	metricsHandler, conversationMetrics := bootstrap.SetupMetrics()

	providers, err := llm.NewFactoryFromConfig(ctx, cfg,
		llm.WithObserver(conversationMetrics),
		llm.WithFactoryLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("configure llm providers: %w", err)
	}
	defer func() { _ = providers.Close() }()

	sessionRepo := bootstrap.WithSessionCache(sessions.NewPostgresRepository(pg.Pool), redisClient, cfg, logger)

	// Setup router
	routerCfg := bootstrap.BuildRouterConfig(ctx, cfg, bootstrap.Services{
		Sessions:  sessionRepo,
		Messages:  chat.NewMessageStore(pg.DB),
		Stats:     dashboard.NewStatsRepository(pg.Pool),
		Providers: providers,
		Publisher: eventPipeline.Publisher,
		Metrics:   conversationMetrics,
	}, metricsHandler, logger)

	// Create HTTP server. WriteTimeout stays unset so websocket chats and
	// simulated calls are not cut off.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(routerCfg),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
