package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-electronic/internal/auth"
	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/token"
)

func newTokens(t *testing.T) *token.JwtService {
	t.Helper()
	svc, err := token.NewJwtService(token.Config{
		Key:       "0123456789abcdef0123456789abcdef",
		Issuer:    "store-api",
		Audience:  "store-clients",
		AccessTTL: time.Minute,
		ClockSkew: 5 * time.Second,
	})
	require.NoError(t, err)
	return svc
}

func chain(tokens *token.JwtService, policy func(http.Handler) http.Handler) http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := common.PrincipalFrom(r.Context())
		w.Header().Set("X-User", p.UserID)
		w.WriteHeader(http.StatusNoContent)
	})
	a := auth.Authenticator{Tokens: tokens, Logger: zerolog.Nop()}
	return a.Authenticate(policy(inner))
}

func passthrough(next http.Handler) http.Handler { return next }

func do(h http.Handler, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticateAttachesPrincipal(t *testing.T) {
	tokens := newTokens(t)
	access, err := tokens.GenerateToken(token.Subject{UserID: "u-1", Roles: []string{"Customer"}})
	require.NoError(t, err)

	rec := do(chain(tokens, passthrough), access.Token)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "u-1", rec.Header().Get("X-User"))

	rec = do(chain(tokens, passthrough), "garbage")
	require.Equal(t, http.StatusNoContent, rec.Code, "invalid tokens continue anonymously")
	require.Empty(t, rec.Header().Get("X-User"))
}

func TestRequireAuth(t *testing.T) {
	tokens := newTokens(t)
	h := chain(tokens, auth.RequireAuth)

	rec := do(h, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	rec = do(h, "garbage")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")

	access, err := tokens.GenerateToken(token.Subject{UserID: "u-1"})
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, do(h, access.Token).Code)
}

func TestRequireRole(t *testing.T) {
	tokens := newTokens(t)
	h := chain(tokens, auth.RequireRole("Admin"))

	require.Equal(t, http.StatusUnauthorized, do(h, "").Code)

	customer, err := tokens.GenerateToken(token.Subject{UserID: "u-1", Roles: []string{"Customer"}})
	require.NoError(t, err)
	rec := do(h, customer.Token)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), `"FORBIDDEN"`)

	admin, err := tokens.GenerateToken(token.Subject{UserID: "u-2", Roles: []string{"Admin"}})
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, do(h, admin.Token).Code)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := auth.BearerToken(req)
	require.False(t, ok)

	req.Header.Set("Authorization", "bearer abc")
	tok, ok := auth.BearerToken(req)
	require.True(t, ok)
	require.Equal(t, "abc", tok)

	req.Header.Set("Authorization", "Basic abc")
	_, ok = auth.BearerToken(req)
	require.False(t, ok)
}
