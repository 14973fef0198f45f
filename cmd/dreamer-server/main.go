// Package main provides the websocket session server for dreamer.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raphaelgruber/dreamer/internal/config"
	"github.com/raphaelgruber/dreamer/internal/llm"
	"github.com/raphaelgruber/dreamer/internal/metrics"
	"github.com/raphaelgruber/dreamer/internal/server"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "config file (overrides DREAMER_CONFIG)")
	port := flag.String("port", "", "listen port (overrides DREAMER_SERVER_PORT)")
	flag.Parse()

	if *configPath != "" {
		_ = os.Setenv("DREAMER_CONFIG", *configPath)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.ServerPort = *port
	}

	// Initialize logging
	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() { _ = closeLog() }()
	slog.SetDefault(logger)

	// A missing credential is fatal here: every session would fail.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	collector := metrics.NewCollector()
	model, err := llm.NewModel(ctx, cfg, collector)
	cancel()
	if err != nil {
		slog.Error("failed to create model", "provider", cfg.LLMProvider, "error", err)
		os.Exit(1)
	}

	slog.Info("starting dreamer-server",
		"port", cfg.ServerPort,
		"provider", cfg.LLMProvider,
		"model", model.Model(),
	)

	srv := server.New(server.Dependencies{
		Interpreter: model,
		Metrics:     collector,
		Logger:      logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, ":"+cfg.ServerPort); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
