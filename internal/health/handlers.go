package health

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-electronic/internal/common"
)

// ErrDisabled reports an optional dependency that is not configured.
var ErrDisabled = errors.New("disabled")

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady flips the readiness flag. The server clears it when draining so
// load balancers stop routing new traffic before the listener closes.
func SetReady(v bool) { ready.Store(v) }

// Checker represents dependencies that can be pinged for readiness.
type Checker interface {
	PingDB(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker      Checker
	DBTimeout    time.Duration
	RedisTimeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency pings. Redis is optional:
// a Checker returning ErrDisabled for it does not fail readiness.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.Checker == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "NOT_READY", "dependencies unavailable", nil)
		return
	}
	if !ready.Load() {
		common.JSONError(w, http.StatusServiceUnavailable, "SHUTTING_DOWN", "server is draining", nil)
		return
	}
	ctx := r.Context()
	healthy := true
	dbStatus := "ok"
	if err := h.Checker.PingDB(ctx, h.dbTimeout()); err != nil {
		dbStatus = err.Error()
		healthy = false
	}
	redisStatus := "ok"
	if err := h.Checker.PingRedis(ctx, h.redisTimeout()); err != nil {
		redisStatus = err.Error()
		if !errors.Is(err, ErrDisabled) {
			healthy = false
		}
	}
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	common.JSON(w, status, map[string]string{"db": dbStatus, "redis": redisStatus})
}

func (h Handler) dbTimeout() time.Duration {
	if h.DBTimeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.DBTimeout
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}

// Pingers pings the pgx pool and, when configured, Redis.
type Pingers struct {
	DB    *pgxpool.Pool
	Redis *redis.Client
}

// PingDB implements Checker.
func (p Pingers) PingDB(ctx context.Context, timeout time.Duration) error {
	if p.DB == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.DB.Ping(ctx)
}

// PingRedis implements Checker.
func (p Pingers) PingRedis(ctx context.Context, timeout time.Duration) error {
	if p.Redis == nil {
		return ErrDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Redis.Ping(ctx).Err()
}
