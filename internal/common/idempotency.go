package common

import (
	"context"
	"net/http"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// IdempotencyHeader carries the client supplied key on write requests.
const IdempotencyHeader = "Idempotency-Key"

// Idem provides an Idempotency-Key middleware backed by Redis. Keys are
// scoped to the caller and the route; a request that fails with a server
// error releases its key so the client can retry.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

func (i Idem) ttl() time.Duration {
	if i.TTL <= 0 {
		return 24 * time.Hour
	}
	return i.TTL
}

func idemKey(r *http.Request, header string) string {
	owner := "anon"
	if id, ok := UserID(r.Context()); ok {
		owner = id
	}
	return "idem:" + Sha256Hex(owner+"|"+r.Method+"|"+r.URL.Path+"|"+header)
}

// Middleware enforces idempotency semantics for write endpoints.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := idemKey(r, header)
		ok, err := i.R.SetNX(r.Context(), key, "in-flight", i.ttl()).Result()
		if err != nil {
			JSONError(w, http.StatusServiceUnavailable, "IDEMPOTENCY_UNAVAILABLE", "idempotency store error", nil)
			return
		}
		if !ok {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}

		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		completed := false
		defer func() {
			if !completed || rec.status >= http.StatusInternalServerError {
				_ = i.R.Del(context.Background(), key).Err()
			}
		}()
		next.ServeHTTP(rec, r)
		completed = true
		_ = i.R.Set(context.Background(), key, "done", i.ttl()).Err()
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (s *statusWriter) WriteHeader(code int) {
	if !s.wrote {
		s.status = code
		s.wrote = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusWriter) Write(p []byte) (int, error) {
	s.wrote = true
	return s.ResponseWriter.Write(p)
}
