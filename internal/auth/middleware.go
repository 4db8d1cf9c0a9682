// Package auth authenticates bearer tokens and enforces per-route
// authorization policies.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/token"
)

// TokenParser validates access tokens.
type TokenParser interface {
	Parse(raw string) (token.Claims, error)
}

type ctxKey string

const rejectedKey ctxKey = "auth/rejected"

// Authenticator is the authentication pipeline stage.
type Authenticator struct {
	Tokens TokenParser
	Logger zerolog.Logger
}

// Authenticate attaches the principal when the request carries a valid
// bearer token. Requests without one, or with an invalid one, continue
// anonymously; route policies decide whether that is acceptable.
func (a Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := BearerToken(r)
		if !ok || a.Tokens == nil {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := a.Tokens.Parse(raw)
		if err != nil {
			a.Logger.Debug().Err(err).Str("path", r.URL.Path).Msg("bearer token rejected")
			ctx := context.WithValue(r.Context(), rejectedKey, true)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithPrincipal(r.Context(), claims.Principal())))
	})
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(header[7:])
	return tok, tok != ""
}

func challenge(w http.ResponseWriter, r *http.Request) {
	value := "Bearer"
	if rejected, _ := r.Context().Value(rejectedKey).(bool); rejected {
		value = `Bearer error="invalid_token"`
	}
	w.Header().Set("WWW-Authenticate", value)
	common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "missing or invalid token", nil)
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := common.PrincipalFrom(r.Context()); !ok {
			challenge(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits principals holding at least one of roles. Anonymous
// requests get 401, authenticated ones without the role get 403.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := common.PrincipalFrom(r.Context())
			if !ok {
				challenge(w, r)
				return
			}
			if !p.HasRole(roles...) {
				common.WriteError(w, common.Forbidden("insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
