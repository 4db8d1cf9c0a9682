package security

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// TrustedRealIP rewrites RemoteAddr from True-Client-IP, X-Real-IP or
// X-Forwarded-For, but only for requests whose socket peer is one of
// Proxies. Any other peer is the client, whatever headers it sends.
type TrustedRealIP struct {
	Proxies []netip.Prefix
}

// Middleware implements the http.Handler middleware interface.
func (t TrustedRealIP) Middleware(next http.Handler) http.Handler {
	rewrite := middleware.RealIP(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if t.trusts(r.RemoteAddr) {
			rewrite.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (t TrustedRealIP) trusts(remoteAddr string) bool {
	if len(t.Proxies) == 0 {
		return false
	}
	host := strings.TrimSpace(remoteAddr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range t.Proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
