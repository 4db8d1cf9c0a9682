package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHeadersMiddlewareSetsSecurityHeaders(t *testing.T) {
	handler := Headers{Enable: true, CSP: "default-src 'self'"}.Middleware(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://example.com/api/products", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	require.Equal(t, "no-referrer", rr.Header().Get("Referrer-Policy"))
	require.Equal(t, "default-src 'self'", rr.Header().Get("Content-Security-Policy"))
}

func TestHeadersMiddlewareDisabled(t *testing.T) {
	handler := Headers{Enable: false}.Middleware(okHandler())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://example.com", nil))
	require.Empty(t, rr.Header().Get("X-Content-Type-Options"))
}

func TestHTTPSRedirectMovesPlainHTTP(t *testing.T) {
	handler := HTTPSRedirect{HSTSSeconds: 31536000}.Middleware(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://shop.example.com:8080/api/products?page=2", nil))

	require.Equal(t, http.StatusMovedPermanently, rr.Code)
	require.Equal(t, "https://shop.example.com/api/products?page=2", rr.Header().Get("Location"))
}

func TestHTTPSRedirectUsesConfiguredPort(t *testing.T) {
	handler := HTTPSRedirect{HTTPSPort: 8443}.Middleware(okHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://localhost:8080/health", nil))

	require.Equal(t, http.StatusMovedPermanently, rr.Code)
	require.Equal(t, "https://localhost:8443/health", rr.Header().Get("Location"))
}

func TestHTTPSRedirectPassesTLSAndSetsHSTS(t *testing.T) {
	handler := HTTPSRedirect{HSTSSeconds: 3600}.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "https://shop.example.com/api/products", nil)
	req.TLS = &tls.ConnectionState{}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "max-age=3600; includeSubDomains", rr.Header().Get("Strict-Transport-Security"))
}

func TestHTTPSRedirectTrustsForwardedProto(t *testing.T) {
	handler := HTTPSRedirect{}.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "http://shop.example.com/api/products", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, rr.Header().Get("Strict-Transport-Security"))
}
