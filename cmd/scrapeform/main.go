package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/use-agent/scrapeform/api"
	"github.com/use-agent/scrapeform/config"
	"github.com/use-agent/scrapeform/jobclient"
	"github.com/use-agent/scrapeform/logging"
	"github.com/use-agent/scrapeform/session"
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	logging.Init(cfg.Log, os.Stdout)
	slog.Info("scrapeform starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"backend", cfg.Backend.BaseURL,
	)

	// ── 3. Backend client ───────────────────────────────────────────
	client := jobclient.New(cfg.Backend.BaseURL,
		jobclient.WithTimeout(cfg.Backend.Timeout),
		jobclient.WithToken(cfg.Backend.Token),
	)

	// ── 4. Session store ────────────────────────────────────────────
	sessions := session.New(cfg.Session.MaxEntries, cfg.Session.IdleTTL)
	defer sessions.Close()

	// ── 5. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(cfg, sessions, client, startTime)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// In-flight submissions may wait on the backend; give them 30 seconds.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("scrapeform stopped")
}
