package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/shoutwars/server/internal/v1/config"
	"github.com/shoutwars/server/internal/v1/health"
	"github.com/shoutwars/server/internal/v1/logging"
	"github.com/shoutwars/server/internal/v1/middleware"
	"github.com/shoutwars/server/internal/v1/ratelimit"
	"github.com/shoutwars/server/internal/v1/room"
	"github.com/shoutwars/server/internal/v1/session"
	"github.com/shoutwars/server/internal/v1/sweeper"
	"github.com/shoutwars/server/internal/v1/tracing"
	"github.com/shoutwars/server/internal/v1/transport"
)

func main() {
	// Load .env file for local development.
	envPaths := []string{".env", "../../../.env", "../../.env"}
	var envLoaded bool

	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			slog.Info("Loaded environment from", "path", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		slog.Warn("No .env file found in any expected location, relying on environment variables")
	}

	// Validate environment variables before starting the server
	cfg, err := config.ValidateEnv()
	if err != nil {
		slog.Error("Environment validation failed", "error", err)
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.Development()); err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}

	// --- Optional tracing ---
	ctx := context.Background()
	var tracerShutdown func(context.Context) error
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "shoutwars-server", cfg.OTelCollectorAddr)
		if err != nil {
			slog.Error("Failed to initialize tracing, continuing without it", "error", err)
		} else {
			tracerShutdown = tp.Shutdown
			slog.Info("Tracing initialized", "collector", cfg.OTelCollectorAddr)
		}
	}

	// --- Registries and the background sweeper ---
	rooms := room.NewRegistry(cfg.RoomLimit, cfg.LobbyLifetime, cfg.GameLifetime)
	sessions := session.NewRegistry()

	sweep := sweeper.New(rooms, sessions, cfg.CleanerInterval, cfg.UserTimeout)
	sweep.Start()

	// --- Set up Server ---
	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	if tracerShutdown != nil {
		router.Use(otelgin.Middleware("shoutwars-server"))
	}

	limiter, err := ratelimit.NewRateLimiter(cfg)
	if err != nil {
		slog.Error("Failed to create rate limiter", "error", err)
		os.Exit(1)
	}
	router.Use(limiter.Middleware())

	corsConfig := cors.DefaultConfig()
	if cfg.AllowedOrigins != "" {
		corsConfig.AllowOrigins = []string{cfg.AllowedOrigins}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	// Protocol routes
	transport.NewHandler(rooms, sessions).Register(router, cfg.Password)

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoints
	healthHandler := health.NewHandler(rooms, sessions)
	router.GET("/health/live", healthHandler.Liveness)
	router.GET("/health/ready", healthHandler.Readiness)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// --- Graceful Shutdown ---
	go func() {
		slog.Info("Server started", "url", "http://localhost:"+cfg.Port)
		if cfg.Password != "" {
			slog.Info("Bearer auth enabled")
		}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Failed to run server", "error", err)
			syscall.Kill(os.Getpid(), syscall.SIGTERM)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Join the sweeper before tearing down the HTTP server
	sweep.Stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown:", "error", err)
	}

	if tracerShutdown != nil {
		if err := tracerShutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shut down tracer provider:", "error", err)
		}
	}

	slog.Info("Server exiting")
}
