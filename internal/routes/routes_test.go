package routes_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"sort"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-electronic/internal/account"
	"github.com/noah-isme/backend-electronic/internal/app"
	"github.com/noah-isme/backend-electronic/internal/app/apptest"
	"github.com/noah-isme/backend-electronic/internal/config"
	"github.com/noah-isme/backend-electronic/internal/db/dbtest"
	"github.com/noah-isme/backend-electronic/internal/docs"
	"github.com/noah-isme/backend-electronic/internal/lock"
	"github.com/noah-isme/backend-electronic/internal/ratelimit"
	"github.com/noah-isme/backend-electronic/internal/repo"
	"github.com/noah-isme/backend-electronic/internal/routes"
	"github.com/noah-isme/backend-electronic/internal/token"
)

type stack struct {
	fake *dbtest.Fake
	app  *app.App
}

func build(t *testing.T, mutate func(*app.Dependencies)) *stack {
	t.Helper()
	fake := dbtest.New()
	store, err := ratelimit.NewStore(nil, "test:login")
	require.NoError(t, err)
	lim, err := ratelimit.New(store, "100-M")
	require.NoError(t, err)
	deps := app.Dependencies{
		Config: &config.Config{
			Environment: config.EnvDevelopment,
			CORSOrigins: []string{"*"},
			Server:      config.ServerSettings{MaxBodyBytes: 1 << 20},
			Password:    config.PasswordPolicy{RequiredLength: 8, RequireDigit: true},
		},
		Logger:       zerolog.Nop(),
		Querier:      fake,
		Tx:           fake,
		Tokens:       apptest.Tokens(t),
		LoginLimiter: lim,
		Locker:       &lock.Local{},
		ImagesDir:    t.TempDir(),
		HashParams:   apptest.FastHash,
	}
	if mutate != nil {
		mutate(&deps)
	}
	a, err := app.New(deps, routes.Mount)
	require.NoError(t, err)
	return &stack{fake: fake, app: a}
}

func (s *stack) do(t *testing.T, method, target, bearer, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.app.Handler().ServeHTTP(rec, req)
	return rec
}

func (s *stack) admin(t *testing.T) string {
	t.Helper()
	u := apptest.User(t, s.fake, "admin@store.test", "Admin")
	tok, err := apptest.Tokens(t).GenerateToken(token.Subject{UserID: u.ID, Email: u.Email, Roles: []string{"Admin"}})
	require.NoError(t, err)
	return tok.Token
}

func (s *stack) customer(t *testing.T, email string) account.Result {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register", "", `{"email":"`+email+`","password":"secret123"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return apptest.Data[account.Result](t, rec)
}

func TestRoutesMatchDocumentedOperations(t *testing.T) {
	s := build(t, nil)
	router, ok := s.app.Handler().(chi.Routes)
	require.True(t, ok)

	var served []string
	require.NoError(t, chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if len(route) > 1 {
			route = strings.TrimSuffix(route, "/")
		}
		served = append(served, method+" "+route)
		return nil
	}))

	var documented []string
	for _, op := range docs.Operations() {
		documented = append(documented, op.Method+" "+op.Path)
	}
	sort.Strings(served)
	sort.Strings(documented)
	require.Equal(t, documented, served)
}

func TestPoliciesAreEnforced(t *testing.T) {
	s := build(t, nil)
	cust := s.customer(t, "pat@store.test")

	rec := s.do(t, http.MethodGet, "/api/cart", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	rec = s.do(t, http.MethodGet, "/api/cart", "not-a-jwt", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")

	rec = s.do(t, http.MethodPost, "/api/products", cust.AccessToken.Token, `{"name":"X","price":1}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/users", cust.AccessToken.Token, "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/products", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/nowhere", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShoppingFlow(t *testing.T) {
	s := build(t, nil)
	adminToken := s.admin(t)
	cust := s.customer(t, "quinn@store.test")
	bearer := cust.AccessToken.Token

	rec := s.do(t, http.MethodPost, "/api/categories", adminToken, `{"name":"Audio"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cat := apptest.Data[repo.Category](t, rec)

	rec = s.do(t, http.MethodPost, "/api/products", adminToken, `{"name":"Headphones","price":15000,"stock":4,"categoryId":"`+cat.ID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	product := apptest.Data[repo.Product](t, rec)

	rec = s.do(t, http.MethodPost, "/api/cart/items", bearer, `{"productId":"`+product.ID+`","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/orders", bearer, `{"shippingAddress":"42 Canal Street"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var placed struct {
		Data struct {
			ID    string `json:"id"`
			Total int64  `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &placed))
	require.Equal(t, int64(30000), placed.Data.Total)

	rec = s.do(t, http.MethodPost, "/api/orders/"+placed.Data.ID+"/payments", bearer, `{"amount":30000,"method":"card"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPatch, "/api/admin/orders/"+placed.Data.ID+"/status", adminToken, `{"status":"Shipped"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/orders/"+placed.Data.ID, bearer, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Shipped", apptest.Data[repo.Order](t, rec).Status)

	rec = s.do(t, http.MethodGet, "/api/auth/me", bearer, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func (s *stack) login(t *testing.T, remote, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remote
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.app.Handler().ServeHTTP(rec, req)
	return rec
}

func strictLogin(t *testing.T, proxies ...netip.Prefix) func(*app.Dependencies) {
	return func(d *app.Dependencies) {
		store, err := ratelimit.NewStore(nil, "test:strict")
		require.NoError(t, err)
		d.LoginLimiter, err = ratelimit.New(store, "2-M")
		require.NoError(t, err)
		d.Config.Server.TrustedProxies = proxies
	}
}

func TestLoginIsRateLimited(t *testing.T) {
	s := build(t, strictLogin(t))
	s.customer(t, "rate@store.test")

	body := `{"email":"rate@store.test","password":"wrong-pass1"}`
	for i := 0; i < 2; i++ {
		rec := s.login(t, "203.0.113.9:40000", body)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := s.login(t, "203.0.113.9:40001", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = s.login(t, "198.51.100.1:40000", body)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginLimitIgnoresSpoofedForwardingHeaders(t *testing.T) {
	s := build(t, strictLogin(t))
	s.customer(t, "spoof@store.test")

	body := `{"email":"spoof@store.test","password":"wrong-pass1"}`
	forged := []string{"198.51.100.10", "198.51.100.11", "198.51.100.12", "198.51.100.13"}
	for i, ip := range forged {
		rec := s.login(t, "203.0.113.20:40000", body, "X-Forwarded-For", ip, "X-Real-IP", ip)
		if i < 2 {
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			continue
		}
		require.Equal(t, http.StatusTooManyRequests, rec.Code, "forged %s", ip)
	}
}

func TestLoginLimitUsesForwardedAddressFromTrustedProxy(t *testing.T) {
	s := build(t, strictLogin(t, netip.MustParsePrefix("10.0.0.0/8")))
	s.customer(t, "proxy@store.test")

	body := `{"email":"proxy@store.test","password":"wrong-pass1"}`
	for i := 0; i < 2; i++ {
		rec := s.login(t, "10.0.0.2:40000", body, "X-Forwarded-For", "203.0.113.30")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := s.login(t, "10.0.0.2:40000", body, "X-Forwarded-For", "203.0.113.30")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Another client behind the same proxy has its own bucket.
	rec = s.login(t, "10.0.0.2:40000", body, "X-Forwarded-For", "203.0.113.31")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutIsIdempotent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s := build(t, func(d *app.Dependencies) { d.Redis = client })
	bearer := s.customer(t, "idem@store.test").AccessToken.Token
	p := apptest.Product(t, s.fake, "Speaker", 9000, 10)

	rec := s.do(t, http.MethodPost, "/api/cart/items", bearer, `{"productId":"`+p.ID+`","quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/orders", bearer, `{"shippingAddress":"5 Bay Road"}`, "Idempotency-Key", "order-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/orders", bearer, `{"shippingAddress":"5 Bay Road"}`, "Idempotency-Key", "order-1")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "IDEMPOTENT_REPLAY", apptest.ErrorCode(t, rec))
}

