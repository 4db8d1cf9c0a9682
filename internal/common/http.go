package common

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the host part of RemoteAddr. Forwarding headers are
// not read here; the pipeline rewrites RemoteAddr for trusted proxies only.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
