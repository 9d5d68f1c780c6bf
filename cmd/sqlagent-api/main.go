package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/sqlagent/sqlagent/internal/agent"
	"github.com/sqlagent/sqlagent/internal/api"
	"github.com/sqlagent/sqlagent/internal/app"
	"github.com/sqlagent/sqlagent/internal/auth"
	"github.com/sqlagent/sqlagent/internal/config"
	"github.com/sqlagent/sqlagent/internal/observability"
	"github.com/sqlagent/sqlagent/internal/session"
	"github.com/sqlagent/sqlagent/internal/webhook"
)

func main() {
	cfg, err := config.LoadFromEnv("sqlagent-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	pipeline, err := app.Open(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize query pipeline", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = pipeline.Close() }()

	runtime, err := agent.NewRuntime(agent.RuntimeConfig{
		Tool: pipeline.Query,
		Sessions: session.NewStore(session.Config{
			SizeBytes: cfg.Session.SizeBytes,
			TTL:       cfg.Session.TTL,
		}),
		MaxReplyRows: cfg.Webhook.MaxReplyRows,
		Logger:       logger,
	})
	if err != nil {
		logger.Error("failed to initialize agent runtime", slog.Any("error", err))
		os.Exit(1)
	}
	webhookHandler, err := webhook.NewHandler(webhook.Config{
		AuthToken:     cfg.Webhook.AuthToken,
		PublicURL:     cfg.Webhook.PublicURL,
		SkipSignature: cfg.Webhook.SkipSignature,
	}, runtime, logger)
	if err != nil {
		logger.Error("failed to initialize webhook", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.Webhook.SkipSignature {
		logger.Warn("webhook signature validation disabled")
	}

	deps := api.Dependencies{
		Logger:            logger,
		Readiness:         pipeline.Readiness,
		DependencyTimeout: 2 * time.Second,
		Query:             pipeline.Query,
		Webhook:           webhookHandler,
	}
	if pipeline.Archive != nil {
		deps.Archive = pipeline.Archive
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
