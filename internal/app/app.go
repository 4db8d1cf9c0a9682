// Package app composes the HTTP application: the request pipeline, the
// per-request scope and the server lifecycle.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/config"
	"github.com/noah-isme/backend-electronic/internal/health"
	"github.com/noah-isme/backend-electronic/internal/identity"
)

// MountFunc registers controller routes on the terminal router.
type MountFunc func(r chi.Router, a *App)

// App is the composed HTTP application.
type App struct {
	Deps     Dependencies
	Scopes   *ScopeFactory
	Pipeline Pipeline
	router   chi.Router
}

// New wires the pipeline, the operational endpoints and the routes
// registered by mount.
func New(deps Dependencies, mount MountFunc) (*App, error) {
	if deps.Config == nil {
		return nil, errors.New("app: config is required")
	}
	if deps.Querier == nil {
		return nil, errors.New("app: querier is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("app: token service is required")
	}
	a := &App{
		Deps:     deps,
		Scopes:   deps.ScopeFactory(),
		Pipeline: BuildPipeline(deps),
	}

	r := chi.NewRouter()
	a.Pipeline.Apply(r)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "resource not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		common.JSONError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	hh := health.Handler{Checker: deps.Health}
	r.Get("/health/live", hh.Live)
	r.Get("/health/ready", hh.Ready)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	if mount != nil {
		mount(r, a)
	}
	a.router = r
	return a, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.router }

// Run serves on the configured address until ctx is cancelled, then drains
// in-flight requests within Server.ShutdownTimeout.
func (a *App) Run(ctx context.Context) error {
	cfg := a.Deps.Config
	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           a.router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.Deps.Logger.Info().Str("addr", srv.Addr).Str("env", cfg.Environment).
			Strs("pipeline", a.Pipeline.Names()).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	a.Deps.Logger.Info().Dur("timeout", cfg.Server.ShutdownTimeout).Msg("shutting down")
	health.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	srv.SetKeepAlivesEnabled(false)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-serverErr
}

func identityPolicy(cfg *config.Config) identity.Policy {
	return identity.Policy{PasswordPolicy: cfg.Password}
}
