package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pzc163/ragflow-dev/internal/api"
	"github.com/pzc163/ragflow-dev/internal/config"
	"github.com/pzc163/ragflow-dev/internal/mineru"
	"github.com/pzc163/ragflow-dev/internal/pipeline"
)

func main() {
	_ = godotenv.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the conversion gateway and health probe.
	client := mineru.NewClient(log)
	prober := mineru.NewHealthProber(cfg.Endpoint, cfg.HealthCacheTTL)

	// Initialize pipeline.
	stats := pipeline.NewTierStats(time.Hour)
	fallback := pipeline.NewFallbackOrchestrator(client, log, stats)
	orch := pipeline.NewOrchestrator(cfg, fallback, prober, stats, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		client.Close()
	}()

	log.Info("starting parse service", "port", cfg.Port, "endpoint", cfg.Endpoint)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
