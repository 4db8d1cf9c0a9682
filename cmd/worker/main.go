package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/config"
	"github.com/noah-isme/backend-electronic/internal/obs"
	"github.com/noah-isme/backend-electronic/internal/platform"
	"github.com/noah-isme/backend-electronic/internal/queue"
	"github.com/noah-isme/backend-electronic/internal/static"
)

func main() {
	cfg, err := config.Load(envOrDefault("CONTENT_ROOT", "."))
	if err != nil {
		fatal := obs.NewLogger("console", "error")
		fatal.Fatal().Err(err).Msg("load configuration")
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "worker").Logger()

	if cfg.Tracing.Enabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			Endpoint:      cfg.Tracing.Endpoint,
			SamplingRatio: cfg.Tracing.SamplingRatio,
			Environment:   cfg.Environment,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}
	if cfg.MetricsEnabled {
		queue.MustRegisterMetrics(nil)
	}

	opt, err := platform.AsynqOpt(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker needs redis")
	}
	imagesDir, err := static.EnsureDir(cfg.ContentRoot)
	if err != nil {
		logger.Fatal().Err(err).Msg("prepare images directory")
	}

	handlers := queue.Handlers{
		Mail:      common.LogEmailSender{Logger: logger},
		ImagesDir: imagesDir,
		Logger:    logger,
	}
	srv := queue.NewServer(opt, envInt("WORKER_CONCURRENCY", 5), logger)
	if err := srv.Start(queue.Instrument(handlers.Mux())); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}
	logger.Info().Msg("worker started")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if parsed, err := strconv.Atoi(envOrDefault(key, "")); err == nil {
		return parsed
	}
	return fallback
}
