// Package apptest builds request scopes over the in-memory fake for
// controller tests.
package apptest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-electronic/internal/app"
	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/config"
	"github.com/noah-isme/backend-electronic/internal/db/dbtest"
	"github.com/noah-isme/backend-electronic/internal/identity"
	"github.com/noah-isme/backend-electronic/internal/repo"
	"github.com/noah-isme/backend-electronic/internal/token"
)

// Key is a valid signing key for tests.
const Key = "0123456789abcdef0123456789abcdef"

// FastHash keeps argon2id cheap in tests.
var FastHash = &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

// Tokens returns a token service for the test issuer and audience.
func Tokens(t testing.TB) *token.JwtService {
	t.Helper()
	svc, err := token.NewJwtService(token.Config{Key: Key, Issuer: "store-api", Audience: "store-clients", AccessTTL: time.Hour})
	require.NoError(t, err)
	return svc
}

// Factory returns a scope factory over f with the default password policy.
func Factory(t testing.TB, f *dbtest.Fake) *app.ScopeFactory {
	t.Helper()
	return &app.ScopeFactory{
		Querier:    f,
		Tx:         f,
		Tokens:     Tokens(t),
		Policy:     identity.Policy{PasswordPolicy: config.PasswordPolicy{RequiredLength: 8, RequireDigit: true}},
		HashParams: FastHash,
		RefreshTTL: 24 * time.Hour,
		Logger:     zerolog.Nop(),
	}
}

// As attaches a principal with roles to r.
func As(r *http.Request, userID string, roles ...string) *http.Request {
	return r.WithContext(common.WithPrincipal(r.Context(), common.Principal{UserID: userID, Roles: roles}))
}

// Data decodes the {"data": ...} envelope of rec into T.
func Data[T any](t testing.TB, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var body struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Data
}

// ErrorCode returns the error code of a canonical error body.
func ErrorCode(t testing.TB, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error common.ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error.Code
}

// User stores a user with roles. The password hash is a placeholder.
func User(t testing.TB, f *dbtest.Fake, email string, roles ...string) repo.User {
	t.Helper()
	users := repo.NewSet(f).Users
	u, err := users.Create(context.Background(), repo.NewUser{Email: email, Name: "Test " + email, PasswordHash: "x"})
	require.NoError(t, err)
	for _, role := range roles {
		require.NoError(t, users.AddToRole(context.Background(), u.ID, role))
	}
	return u
}

// Product stores an uncategorised product.
func Product(t testing.TB, f *dbtest.Fake, name string, price int64, stock int) repo.Product {
	t.Helper()
	p, err := repo.NewSet(f).Products.Create(context.Background(), repo.ProductInput{Name: name, Price: price, Stock: stock})
	require.NoError(t, err)
	return p
}
