package security

import (
	"net/http"

	"github.com/unrolled/secure"
)

// Headers configures the security headers attached to every response.
type Headers struct {
	Enable bool
	// CSP is an optional Content-Security-Policy value. Swagger UI needs
	// inline scripts, so development leaves it empty.
	CSP string
}

// Middleware attaches standard security headers to each response.
func (h Headers) Middleware(next http.Handler) http.Handler {
	if !h.Enable {
		return next
	}
	sec := secure.New(secure.Options{
		ContentTypeNosniff:    true,
		FrameDeny:             true,
		ReferrerPolicy:        "no-referrer",
		PermissionsPolicy:     "geolocation=(), microphone=()",
		ContentSecurityPolicy: h.CSP,
	})
	return sec.Handler(next)
}
