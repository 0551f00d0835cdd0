package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Tadwork/code-dojo/internal/api"
	"github.com/Tadwork/code-dojo/internal/assist"
	_ "github.com/Tadwork/code-dojo/internal/assist/gemini"
	_ "github.com/Tadwork/code-dojo/internal/assist/pollinations"
	"github.com/Tadwork/code-dojo/internal/config"
	"github.com/Tadwork/code-dojo/internal/events"
	"github.com/Tadwork/code-dojo/internal/exec"
	"github.com/Tadwork/code-dojo/internal/jobs"
	"github.com/Tadwork/code-dojo/internal/metrics"
	"github.com/Tadwork/code-dojo/internal/routers"
	"github.com/Tadwork/code-dojo/internal/session"
	"github.com/Tadwork/code-dojo/internal/store"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	logger.Info("configuration loaded",
		zap.String("environment", cfg.Environment),
		zap.String("aiProvider", cfg.AIProvider),
		zap.String("duplicateJoinPolicy", cfg.DuplicateJoinPolicy))

	st, err := store.Open(cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		logger.Fatal("failed to open session store", zap.Error(err))
	}

	runner := exec.NewClient(cfg.PistonURL, logger)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		runner.CheckRuntimes(ctx)
	}()

	assistant, err := assist.NewProvider(cfg.AIProvider)
	if err != nil {
		logger.Error("AI provider disabled", zap.String("provider", cfg.AIProvider), zap.Error(err))
	}

	publisher := events.NewPublisher(cfg.RedisAddr, logger)
	defer publisher.Close()
	if publisher.Enabled() {
		logger.Info("room event publisher enabled", zap.String("redisAddr", cfg.RedisAddr))
	}

	hub := session.NewHub(session.DuplicatePolicy(cfg.DuplicateJoinPolicy))
	handlers := api.NewHandlers(logger, hub, st, runner, assistant, publisher, cfg.Environment)

	var cleanup *jobs.CleanupJob
	if cfg.CleanupEnabled {
		cleanup = jobs.NewCleanupJob(st, jobs.CleanupConfig{
			Schedule: cfg.CleanupSchedule,
			TTL:      cfg.SessionTTL,
		}, logger)
		if err := cleanup.Start(); err != nil {
			logger.Error("failed to start session cleanup job", zap.Error(err))
		} else {
			logger.Info("session cleanup job started", zap.String("schedule", cfg.CleanupSchedule))
		}
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:8000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Mount("/", routers.New(handlers))

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	logger.Info("shutting down...")
	if cleanup != nil {
		cleanup.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}
