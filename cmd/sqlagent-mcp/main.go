package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sqlagent/sqlagent/internal/app"
	"github.com/sqlagent/sqlagent/internal/config"
	"github.com/sqlagent/sqlagent/internal/mcptool"
	"github.com/sqlagent/sqlagent/internal/observability"
	"github.com/sqlagent/sqlagent/internal/resttool"
)

const version = "0.1.0"

func main() {
	cfg, err := config.LoadFromEnv("sqlagent-mcp")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	// stdout carries the MCP protocol; logs go to stderr.
	logger := observability.NewLogger(cfg, os.Stderr)
	pipeline, err := app.Open(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize query pipeline", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = pipeline.Close() }()

	s, err := mcptool.NewServer(cfg.Service.Name, version, mcptool.Tools{
		Query:   pipeline.Query,
		Fetcher: resttool.NewClient(0),
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialize mcp server", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("serving mcp over stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Error("mcp server failed", slog.Any("error", err))
		os.Exit(1)
	}
}
