package app

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/noah-isme/backend-electronic/internal/auth"
	"github.com/noah-isme/backend-electronic/internal/docs"
	"github.com/noah-isme/backend-electronic/internal/obs"
	"github.com/noah-isme/backend-electronic/internal/security"
	"github.com/noah-isme/backend-electronic/internal/static"
)

// Stage is one named middleware of the request pipeline.
type Stage struct {
	Name       string
	Middleware func(http.Handler) http.Handler
}

// Pipeline is the ordered list of stages every request passes through
// before reaching the controller router. The first stage is outermost.
type Pipeline []Stage

// Names lists the stage names in order.
func (p Pipeline) Names() []string {
	names := make([]string, len(p))
	for i, s := range p {
		names[i] = s.Name
	}
	return names
}

// Apply installs the stages on r in order.
func (p Pipeline) Apply(r chi.Router) {
	for _, s := range p {
		r.Use(s.Middleware)
	}
}

// BuildPipeline selects the stages for the configured environment.
func BuildPipeline(d Dependencies) Pipeline {
	cfg := d.Config
	p := Pipeline{
		{"request-id", middleware.RequestID},
		{"real-ip", security.TrustedRealIP{Proxies: cfg.Server.TrustedProxies}.Middleware},
		{"recoverer", middleware.Recoverer},
	}
	if d.Tracing {
		p = append(p, Stage{"tracing", obs.TracingMiddleware})
	}
	p = append(p, Stage{"request-log", obs.RequestLogger{Logger: d.Logger}.Middleware})
	if d.HTTPMetrics != nil {
		p = append(p, Stage{"metrics", obs.HTTPObs{Metrics: d.HTTPMetrics}.Middleware})
	}
	p = append(p,
		Stage{"cors", cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
			ExposedHeaders:   []string{"Location", "Retry-After", "X-RateLimit-Remaining"},
			AllowCredentials: !allowsAnyOrigin(cfg.CORSOrigins),
			MaxAge:           300,
		})},
		Stage{"security-headers", security.Headers{Enable: true}.Middleware},
		Stage{"body-limit", security.BodyLimit{Max: cfg.Server.MaxBodyBytes}.Middleware},
	)
	// The redirect precedes every stage that can answer on its own, so
	// nothing is served over plain HTTP in production.
	if cfg.IsProduction() {
		port, _ := strconv.Atoi(cfg.Server.HTTPSPort)
		p = append(p, Stage{"https-redirect", security.HTTPSRedirect{
			HTTPSPort:   port,
			HSTSSeconds: 365 * 24 * 60 * 60,
		}.Middleware})
	} else {
		p = append(p, Stage{"swagger", docs.Swagger{Doc: docs.Build(docs.Operations())}.Middleware})
	}
	p = append(p, Stage{"static-images", static.Images{Dir: d.ImagesDir}.Middleware})
	var tokens auth.TokenParser
	if d.Tokens != nil {
		tokens = d.Tokens
	}
	p = append(p, Stage{"authentication", auth.Authenticator{Tokens: tokens, Logger: d.Logger}.Authenticate})
	return p
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return len(origins) == 0
}
