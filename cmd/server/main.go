package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/recallgrade/recallgrade/internal/api"
	"github.com/recallgrade/recallgrade/internal/grader"
	"github.com/recallgrade/recallgrade/internal/infrastructure/backend"
	"github.com/recallgrade/recallgrade/internal/infrastructure/config"
	"github.com/recallgrade/recallgrade/internal/observability"
	"github.com/recallgrade/recallgrade/internal/service"
	"github.com/recallgrade/recallgrade/internal/store"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	observability.RegisterMetrics()

	// ── Dependencies ────────────────────────────────────────────────
	db, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	llm, err := backend.New(cfg)
	if err != nil {
		logger.Error("failed to configure grader", "error", err)
		os.Exit(1)
	}
	g := grader.NewGrader(llm, grader.WithLogger(logger))

	gradingSvc := service.NewGradingService(db, g, logger, cfg.GraderWorkers)
	defer gradingSvc.Close()
	handler := api.NewHandler(db, gradingSvc, g, logger)

	// ── Routes ──────────────────────────────────────────────────────
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status": "ok", "backend": %q}`, llm.Name())
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	api.RegisterRoutes(mux, handler)

	// ── Middleware chain: Logging → CORS → mux ──────────────────────
	logged := api.Logging(logger)(api.CORS(mux))

	// ── Server ──────────────────────────────────────────────────────
	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           logged,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		// POST /evaluate waits for one full backend call
		WriteTimeout: cfg.GraderTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// closed once Shutdown has drained in-flight handlers; the deferred
	// grading and store shutdowns must not run before that
	shutdownDone := make(chan struct{})

	go func() {
		defer close(shutdownDone)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		logger.Info("shutting down server")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server forced to shutdown", "error", err)
		}
	}()

	logger.Info("starting server",
		"address", cfg.ServerAddress,
		"backend", llm.Name(),
		"workers", cfg.GraderWorkers,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed to start", "error", err)
		os.Exit(1)
	}

	<-shutdownDone
	logger.Info("server stopped, draining grading queue")
}
