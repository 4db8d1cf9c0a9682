package obs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-electronic/internal/common"
)

func TestHTTPMetricsUseChiRoutePattern(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewHTTPMetrics("store", []float64{1, 10}, registry)

	r := chi.NewRouter()
	r.Use(HTTPObs{Metrics: metrics}.Middleware)
	r.Get("/api/products/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/products/42", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	total := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/api/products/{id}", "204"))
	require.Equal(t, float64(1), total)
	require.NotZero(t, testutil.CollectAndCount(metrics.ReqDur))
	require.Equal(t, float64(0), testutil.ToFloat64(metrics.InFlight))
}

func TestNewHTTPMetricsReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := NewHTTPMetrics("store", nil, registry)
	second := NewHTTPMetrics("store", nil, registry)
	require.Same(t, first.ReqTotal, second.ReqTotal)
}

func TestRequestLoggerRecordsPrincipal(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "debug")

	r := chi.NewRouter()
	r.Use(RequestLogger{Logger: logger}.Middleware)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := common.WithPrincipal(req.Context(), common.Principal{UserID: "user-1"})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Get("/api/cart", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "warn", entry["level"])
	require.Equal(t, "/api/cart", entry["route"])
	require.Equal(t, float64(http.StatusNotFound), entry["status"])
	require.Equal(t, "user-1", entry["user_id"])
	require.Equal(t, ServiceName, entry["service"])
}

func TestStatusRecorderKeepsFirstStatus(t *testing.T) {
	rec := NewStatusRecorder(httptest.NewRecorder())
	_, _ = rec.Write([]byte("ok"))
	rec.WriteHeader(http.StatusTeapot)
	require.Equal(t, http.StatusOK, rec.Status())
	require.Equal(t, int64(2), rec.BytesWritten())
}
