package docs

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

const (
	// UIPrefix is where Swagger UI is mounted.
	UIPrefix = "/swagger/"
	// DocPath serves the OpenAPI JSON document.
	DocPath = UIPrefix + "doc.json"
)

// Swagger is the pipeline stage serving the document and Swagger UI.
type Swagger struct {
	Doc *openapi3.T
}

// Middleware answers /swagger requests and passes everything else on.
func (s Swagger) Middleware(next http.Handler) http.Handler {
	raw, err := json.Marshal(s.Doc)
	ui := httpSwagger.Handler(
		httpSwagger.URL(DocPath),
		httpSwagger.PersistAuthorization(true),
	)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/swagger" || r.URL.Path == UIPrefix:
			http.Redirect(w, r, UIPrefix+"index.html", http.StatusMovedPermanently)
		case r.URL.Path == DocPath:
			if err != nil {
				http.Error(w, "openapi document unavailable", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			_, _ = w.Write(raw)
		case strings.HasPrefix(r.URL.Path, UIPrefix):
			ui.ServeHTTP(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}
