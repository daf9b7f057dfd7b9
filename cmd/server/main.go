package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chatrelay "chat-relay"
	"chat-relay/internal/config"
	"chat-relay/internal/database"
	"chat-relay/internal/handlers"
	"chat-relay/internal/middleware"
	"chat-relay/internal/relay"
	"chat-relay/internal/router"
	"chat-relay/internal/telemetry"
)

const version = "0.1.0"

func main() {
	log.Println("Starting chat relay...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Logging & Telemetry ────
	logger, logFile, err := telemetry.InitLogger(telemetry.LoggerOptions{
		Dir:     cfg.LogDir,
		Debug:   cfg.IsDevelopment(),
		Console: true,
	})
	if err != nil {
		log.Fatalf("✗ Logger initialization failed: %v", err)
	}
	defer logFile.Close()

	providers, err := telemetry.InitTelemetry(context.Background(), cfg.LogDir, version, 10*time.Second)
	if err != nil {
		log.Fatalf("✗ Telemetry initialization failed: %v", err)
	}
	defer providers.Shutdown(context.Background())
	logger.Info("telemetry initialized", slog.String("dir", cfg.LogDir))

	// ──── Step 3: Rate Limiter ────
	limiter, closeLimiter := newLimiter(cfg, logger)
	defer closeLimiter()

	// ──── Step 4: Backend Relay ────
	backendRelay := relay.New(cfg.ChatEndpoint(),
		relay.WithTimeouts(cfg.RelayFirstTimeout, cfg.RelayRetryTimeout),
		relay.WithAttempts(cfg.RelayAttempts),
		relay.WithBackoff(cfg.RelayBackoff),
		relay.WithLogger(logger),
		relay.WithTracer(providers.Tracer),
		relay.WithMeter(providers.Meter),
	)
	logger.Info("relay configured",
		slog.String("endpoint", backendRelay.Endpoint()),
		slog.Int("attempts", cfg.RelayAttempts))

	// ──── Step 5: HTTP Server ────
	staticFS, err := fs.Sub(chatrelay.StaticFS, "static")
	if err != nil {
		log.Fatalf("✗ Static assets unavailable: %v", err)
	}

	chatHandler := handlers.NewChatHandler(backendRelay, cfg.IsDevelopment(), logger)
	r := router.New(chatHandler, limiter, staticFS, cfg.AllowedOrigin, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Must outlive the relay's full retry budget.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
		}
	}()

	logger.Info("chat relay ready",
		slog.String("addr", "http://localhost:"+cfg.Port),
		slog.String("backend", cfg.BackendURL),
		slog.String("env", cfg.Env))

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newLimiter shares the chat budget through Redis when REDIS_URL is set and
// falls back to an in-process limiter otherwise.
func newLimiter(cfg *config.Config, logger *slog.Logger) (middleware.Limiter, func()) {
	if cfg.RedisURL != "" {
		client, err := database.NewRedisClient(cfg.RedisURL)
		if err == nil {
			logger.Info("✓ Redis rate limiter connected")
			return middleware.NewRedisLimiter(client, cfg.RateLimitPerMin, time.Minute), func() { client.Close() }
		}
		logger.Warn("Redis unavailable, using in-memory rate limiter", slog.String("error", err.Error()))
	}

	rl := middleware.NewRateLimiter(cfg.RateLimitPerMin, time.Minute)
	return rl, rl.Close
}
