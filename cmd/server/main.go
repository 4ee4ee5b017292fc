package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/scamr/caboard/internal/config"
	"github.com/scamr/caboard/internal/domain"
	"github.com/scamr/caboard/internal/httpserver"
	"github.com/scamr/caboard/internal/metrics"
	"github.com/scamr/caboard/internal/realtime"
	"github.com/scamr/caboard/internal/sqlite"
	"github.com/scamr/caboard/internal/tenor"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	repo, err := sqlite.NewRepository(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("create repository: %w", err)
	}
	defer repo.Close()
	logger.Info("opened database", "path", cfg.DatabasePath)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// The realtime hub lives for the whole process and is injected into
	// everything that emits; request handlers never reach for a global.
	hub := realtime.NewHub(logger, m)
	go hub.Run(ctx)

	board := domain.NewBoardService(repo, hub, logger)

	var gifs httpserver.GIFSearcher
	if cfg.TenorAPIKey != "" {
		gifs = tenor.NewClient(cfg.TenorAPIURL, cfg.TenorAPIKey)
	} else {
		logger.Warn("TENOR_API_KEY not set, gif search disabled")
	}

	server := httpserver.NewServer(cfg, board, hub, gifs, m, registry, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited with error", "error", err)
		}
	}()

	logger.Info("server started", "port", cfg.Port)

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig.String())
	cancel()

	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}

	return nil
}
