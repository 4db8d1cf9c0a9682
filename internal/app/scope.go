package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/db"
	"github.com/noah-isme/backend-electronic/internal/identity"
	"github.com/noah-isme/backend-electronic/internal/repo"
	"github.com/noah-isme/backend-electronic/internal/token"
)

// Scope is the per-request service graph handed to controllers. It is
// built when the handler starts and dropped when it returns.
type Scope struct {
	repo.Set
	UserManager identity.UserManager
	RoleManager identity.RoleManager
	Tokens      *token.JwtService
	Refresh     token.RefreshTokens
	Logger      zerolog.Logger

	factory *ScopeFactory
}

// Tx runs fn with every repository of the scope rebound to one
// transaction. The transaction commits when fn returns nil.
func (s *Scope) Tx(ctx context.Context, fn func(tx *Scope) error) error {
	if s.factory == nil || s.factory.Tx == nil {
		return errors.New("app: transactions not configured")
	}
	return s.factory.Tx.InTx(ctx, func(q db.Querier) error {
		return fn(s.factory.bind(q, s.Logger))
	})
}

// Fail writes err as the canonical error body. Repository sentinels are
// mapped for resource; anything else is logged and reported as 500.
func (s *Scope) Fail(w http.ResponseWriter, err error, resource string) {
	err = repo.AppError(err, resource)
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus >= http.StatusInternalServerError {
		s.Logger.Error().Err(err).Msg("request failed")
	}
	common.WriteError(w, err)
}

// ScopeFactory creates request scopes over the process-wide pool.
type ScopeFactory struct {
	Querier    db.Querier
	Tx         db.TxRunner
	Tokens     *token.JwtService
	Policy     identity.Policy
	HashParams *argon2id.Params
	RefreshTTL time.Duration
	Logger     zerolog.Logger
}

// Handler is a controller action receiving its request scope.
type Handler func(w http.ResponseWriter, r *http.Request, s *Scope)

// New builds a scope bound to the pool for r.
func (f *ScopeFactory) New(r *http.Request) *Scope {
	logger := f.Logger
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		logger = logger.With().Str("request_id", reqID).Logger()
	}
	return f.bind(f.Querier, logger)
}

// Handle adapts a scoped handler to http.HandlerFunc.
func (f *ScopeFactory) Handle(h Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(w, r, f.New(r))
	}
}

func (f *ScopeFactory) bind(q db.Querier, logger zerolog.Logger) *Scope {
	set := repo.NewSet(q)
	return &Scope{
		Set: set,
		UserManager: identity.UserManager{
			Store:  set.Users,
			Policy: f.Policy,
			Params: f.HashParams,
		},
		RoleManager: identity.RoleManager{Store: set.Users},
		Tokens:      f.Tokens,
		Refresh:     token.RefreshTokens{Q: q, TTL: f.RefreshTTL},
		Logger:      logger,
		factory:     f,
	}
}
