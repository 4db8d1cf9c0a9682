package app

import (
	"net/http"

	"github.com/alexedwards/argon2id"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/backend-electronic/internal/config"
	"github.com/noah-isme/backend-electronic/internal/db"
	"github.com/noah-isme/backend-electronic/internal/events"
	"github.com/noah-isme/backend-electronic/internal/health"
	"github.com/noah-isme/backend-electronic/internal/lock"
	"github.com/noah-isme/backend-electronic/internal/obs"
	"github.com/noah-isme/backend-electronic/internal/queue"
	"github.com/noah-isme/backend-electronic/internal/token"
)

// Dependencies enumerates the process-wide services built in main and
// shared by the pipeline, the request scopes and the controllers.
type Dependencies struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Querier db.Querier
	Tx      db.TxRunner
	Tokens  *token.JwtService

	// Redis is optional; nil disables caching and idempotency keys.
	Redis        *redis.Client
	LoginLimiter *limiter.Limiter
	Events       events.Emitter
	Tasks        queue.Enqueuer
	Locker       lock.Mutex

	ImagesDir  string
	HashParams *argon2id.Params

	Health         health.Checker
	HTTPMetrics    *obs.HTTPMetrics
	MetricsHandler http.Handler
	Tracing        bool
}

// ScopeFactory returns the request scope factory for d.
func (d Dependencies) ScopeFactory() *ScopeFactory {
	return &ScopeFactory{
		Querier:    d.Querier,
		Tx:         d.Tx,
		Tokens:     d.Tokens,
		Policy:     identityPolicy(d.Config),
		HashParams: d.HashParams,
		RefreshTTL: d.Config.JWT.RefreshTTL,
		Logger:     d.Logger,
	}
}
