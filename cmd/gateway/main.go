package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"

	"github.com/voxpay/gateway/internal/authz"
	"github.com/voxpay/gateway/internal/config"
	"github.com/voxpay/gateway/internal/generate"
	"github.com/voxpay/gateway/internal/narrate"
	"github.com/voxpay/gateway/internal/runtime"
	"github.com/voxpay/gateway/internal/server"
	"github.com/voxpay/gateway/internal/telemetry"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("VOXPAY_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize OpenTelemetry
	tp, err := telemetry.Setup(telemetry.Identity{
		ServiceName: "voxpay-gateway",
		Version:     version,
		Environment: cfg.Telemetry.Environment,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	otel.SetTracerProvider(tp)
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []runtime.Option{
		runtime.WithAuthorizer(authz.NewClient(cfg.Authz.BaseURL), cfg.Authz.AgentID),
		runtime.WithExplanationCache(cfg.Caches.Explanation.TTL, cfg.Caches.Explanation.Enabled),
		runtime.WithLogger(logger),
	}

	if cfg.Generation.APIKey != "" {
		gen, err := generate.NewGemini(ctx, cfg.Generation.APIKey, cfg.Generation.Model)
		if err != nil {
			log.Fatalf("Failed to create generation client: %v", err)
		}
		opts = append(opts, runtime.WithGenerator(gen))
	} else {
		logger.Warn("no generation API key configured, every turn will use fallback text")
	}

	if cfg.Synthesis.Enabled {
		synth := narrate.NewClient(cfg.Synthesis.BaseURL, cfg.Synthesis.APIKey, cfg.Synthesis.Model, cfg.Synthesis.Voice)
		cache := narrate.NewCache(cfg.Caches.Narration.Dir, cfg.Caches.Narration.Enabled, logger)
		opts = append(opts, runtime.WithNarrator(
			narrate.NewNarrator(synth, cache, cfg.Synthesis.Model, cfg.Synthesis.Voice, logger)))
	}

	switch cfg.Storage.Driver {
	case "sqlite":
		opts = append(opts, runtime.WithSQLiteStore(cfg.Storage.Path))
	case "memory":
		opts = append(opts, runtime.WithMemoryStore())
	case "none":
	default:
		log.Fatalf("Unknown storage driver: %s", cfg.Storage.Driver)
	}

	pipeline, err := runtime.New(opts...)
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}
	defer pipeline.Close()

	srv := server.New(cfg.Server.Port, logger, pipeline)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping gateway")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("gateway shutdown complete")
}
