package security

import (
	"net"
	"net/http"
	"strconv"

	"github.com/unrolled/secure"
)

// HTTPSRedirect sends plain HTTP requests to their https:// equivalent and
// marks TLS responses with Strict-Transport-Security.
type HTTPSRedirect struct {
	// HTTPSPort is the public TLS port. Zero or 443 keeps the default port.
	HTTPSPort   int
	HSTSSeconds int64
}

// Middleware answers non-TLS requests with 301. Requests that arrived over
// TLS, directly or via a proxy setting X-Forwarded-Proto, pass through.
func (h HTTPSRedirect) Middleware(next http.Handler) http.Handler {
	hostFunc := secure.SSLHostFunc(h.targetHost)
	sec := secure.New(secure.Options{
		SSLRedirect:          true,
		SSLHostFunc:          &hostFunc,
		SSLProxyHeaders:      map[string]string{"X-Forwarded-Proto": "https"},
		STSSeconds:           h.HSTSSeconds,
		STSIncludeSubdomains: h.HSTSSeconds > 0,
	})
	return sec.Handler(next)
}

func (h HTTPSRedirect) targetHost(host string) string {
	name := host
	if hostOnly, _, err := net.SplitHostPort(host); err == nil {
		name = hostOnly
	}
	if h.HTTPSPort == 0 || h.HTTPSPort == 443 {
		return name
	}
	return net.JoinHostPort(name, strconv.Itoa(h.HTTPSPort))
}
