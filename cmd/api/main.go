package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-electronic/internal/app"
	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/config"
	"github.com/noah-isme/backend-electronic/internal/db"
	"github.com/noah-isme/backend-electronic/internal/events"
	"github.com/noah-isme/backend-electronic/internal/health"
	"github.com/noah-isme/backend-electronic/internal/identity"
	"github.com/noah-isme/backend-electronic/internal/lock"
	"github.com/noah-isme/backend-electronic/internal/obs"
	"github.com/noah-isme/backend-electronic/internal/platform"
	"github.com/noah-isme/backend-electronic/internal/queue"
	"github.com/noah-isme/backend-electronic/internal/ratelimit"
	"github.com/noah-isme/backend-electronic/internal/repo"
	"github.com/noah-isme/backend-electronic/internal/resilience"
	"github.com/noah-isme/backend-electronic/internal/routes"
	"github.com/noah-isme/backend-electronic/internal/static"
	"github.com/noah-isme/backend-electronic/internal/token"
)

func main() {
	cfg, err := config.Load(envOrDefault("CONTENT_ROOT", "."))
	if err != nil {
		// Configuration errors abort before anything listens.
		fatal := obs.NewLogger("console", "error")
		fatal.Fatal().Err(err).Msg("load configuration")
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.Environment).Logger()

	tracingEnabled := cfg.Tracing.Enabled
	if tracingEnabled {
		telemetry := obs.TracingConfig{
			Endpoint:      cfg.Tracing.Endpoint,
			SamplingRatio: cfg.Tracing.SamplingRatio,
			Environment:   cfg.Environment,
		}
		shutdown, err := obs.InitTracer(context.Background(), telemetry)
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
		shutdownMeter, err := obs.InitMeter(context.Background(), telemetry)
		if err != nil {
			logger.Error().Err(err).Msg("initialise otlp metrics")
		} else {
			defer func() {
				if err := shutdownMeter(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown meter")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cfg.AutoMigrate {
		if err := db.Migrate(cfg.ConnectionString); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
		logger.Info().Msg("migrations applied")
	}

	pool, err := platform.OpenPool(ctx, cfg, obs.ServiceName)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer pool.Close()
	queries := db.New(pool)

	roles := identity.RoleManager{Store: repo.UserRepository{Q: queries}}
	if err := roles.EnsureRoles(ctx); err != nil {
		logger.Fatal().Err(err).Msg("seed roles")
	}

	imagesDir, err := static.EnsureDir(cfg.ContentRoot)
	if err != nil {
		logger.Fatal().Err(err).Msg("prepare images directory")
	}

	redisClient, err := platform.OpenRedis(ctx, cfg, cfg.MetricsEnabled)
	if err != nil {
		logger.Fatal().Err(err).Msg("open redis")
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
	} else {
		logger.Warn().Msg("redis not configured; caching, idempotency and distributed locks use local fallbacks")
	}

	tasks, closeTasks := newTasks(cfg, redisClient, imagesDir, logger)
	defer closeTasks()

	publisher, closePublisher := newPublisher(cfg, logger)
	defer closePublisher()
	bus := &events.Bus{
		Publisher: publisher,
		Notifiers: []events.Notifier{queue.OrderNotifier{Tasks: tasks}},
	}

	var locker lock.Mutex = &lock.Local{}
	if redisClient != nil {
		locker = lock.Locker{R: redisClient, Wait: 2 * time.Second}
	}

	store, err := ratelimit.NewStore(redisClient, "ratelimit:login")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limit store")
	}
	loginLimiter, err := ratelimit.New(store, cfg.LoginRate)
	if err != nil {
		logger.Fatal().Err(err).Str("rate", cfg.LoginRate).Msg("parse login rate")
	}

	jwtService, err := token.NewJwtService(token.ConfigFrom(cfg.JWT))
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise token service")
	}

	deps := app.Dependencies{
		Config:       cfg,
		Logger:       logger,
		Querier:      queries,
		Tx:           db.PoolTx{Pool: pool},
		Tokens:       jwtService,
		Redis:        redisClient,
		LoginLimiter: loginLimiter,
		Events:       bus,
		Tasks:        tasks,
		Locker:       locker,
		ImagesDir:    imagesDir,
		HashParams:   argon2id.DefaultParams,
		Health:       health.Pingers{DB: pool, Redis: redisClient},
		Tracing:      tracingEnabled,
	}
	if cfg.MetricsEnabled {
		obs.MustRegisterDomainMetrics(nil)
		queue.MustRegisterMetrics(nil)
		resilience.MustRegisterMetrics(nil)
		deps.HTTPMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, nil, nil)
		deps.MetricsHandler = promhttp.Handler()
	}

	application, err := app.New(deps, routes.Mount)
	if err != nil {
		logger.Fatal().Err(err).Msg("compose application")
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := application.Run(runCtx); err != nil {
		logger.Error().Err(err).Msg("server exited unexpectedly")
		return
	}
	logger.Info().Msg("server stopped")
}

// newTasks hands work to the asynq worker when Redis is available and runs
// it inline otherwise.
func newTasks(cfg *config.Config, client *redis.Client, imagesDir string, logger zerolog.Logger) (queue.Enqueuer, func()) {
	if client == nil {
		handlers := queue.Handlers{Mail: common.LogEmailSender{Logger: logger}, ImagesDir: imagesDir, Logger: logger}
		return queue.Inline{Handler: handlers.Mux()}, func() {}
	}
	opt, err := platform.AsynqOpt(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse task queue connection")
	}
	c := asynq.NewClient(opt)
	return queue.Client{C: c}, func() {
		if err := c.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}
}

func newPublisher(cfg *config.Config, logger zerolog.Logger) (events.Publisher, func()) {
	if len(cfg.Kafka.Brokers) == 0 {
		return events.LogPublisher{Logger: logger}, func() {}
	}
	p := events.KafkaPublisher{Writer: events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), Timeout: 5 * time.Second}
	breaker := resilience.NewBreaker("kafka", 5, 0.5, 30*time.Second)
	breaker.Logger = logger
	logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publishing events to kafka")
	return events.GuardedPublisher{Next: p, Breaker: breaker}, func() {
		if err := p.Close(); err != nil {
			logger.Error().Err(err).Msg("close kafka writer")
		}
	}
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		if trimmed := strings.TrimSpace(val); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
