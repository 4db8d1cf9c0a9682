// Package docs builds the OpenAPI description of the HTTP API and serves
// it with Swagger UI.
package docs

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

const (
	// Title and Version identify the document.
	Title   = "Auth Demo"
	Version = "v1"

	// SecuritySchemeName is the key of the bearer scheme in components.
	SecuritySchemeName = "Bearer"
)

var pathParam = regexp.MustCompile(`\{([^}/]+)\}`)

var integerParams = map[string]bool{"page": true, "limit": true, "minPrice": true, "maxPrice": true}

// Build assembles the OpenAPI 3 document for ops.
func Build(ops []Operation) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       Title,
			Version:     Version,
			Description: "Electronic store API",
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: componentSchemas(),
			SecuritySchemes: openapi3.SecuritySchemes{
				SecuritySchemeName: &openapi3.SecuritySchemeRef{Value: openapi3.NewSecurityScheme().
					WithType("http").
					WithScheme("bearer").
					WithBearerFormat("JWT").
					WithDescription("Please enter JWT with 'Bearer ' prefix")},
			},
		},
		Security: *openapi3.NewSecurityRequirements().
			With(openapi3.NewSecurityRequirement().Authenticate(SecuritySchemeName)),
	}
	for _, op := range ops {
		doc.AddOperation(op.Path, op.Method, operation(op))
	}
	return doc
}

func operation(op Operation) *openapi3.Operation {
	o := openapi3.NewOperation()
	o.Tags = []string{op.Tag}
	o.Summary = op.Summary
	o.OperationID = operationID(op)
	if op.Access == Anonymous {
		// overrides the document-wide bearer requirement
		o.Security = openapi3.NewSecurityRequirements()
	}
	for _, m := range pathParam.FindAllStringSubmatch(op.Path, -1) {
		o.AddParameter(openapi3.NewPathParameter(m[1]).WithSchema(openapi3.NewStringSchema()))
	}
	for _, name := range op.Query {
		schema := openapi3.NewStringSchema()
		if integerParams[name] {
			schema = openapi3.NewInt64Schema()
		}
		o.AddParameter(openapi3.NewQueryParameter(name).WithSchema(schema))
	}
	if op.Request != "" {
		body := openapi3.NewRequestBody().WithRequired(true)
		if op.Upload {
			body = body.WithFormDataSchemaRef(ref(op.Request))
		} else {
			body = body.WithJSONSchemaRef(ref(op.Request))
		}
		o.RequestBody = &openapi3.RequestBodyRef{Value: body}
	}

	success := openapi3.NewResponse().WithDescription(http.StatusText(op.Status))
	switch {
	case op.Response == "":
	case op.Paged:
		success = success.WithJSONSchema(pagedOf(op.Response))
	case op.List:
		success = success.WithJSONSchema(envelope(arrayOf(op.Response).NewRef()))
	default:
		success = success.WithJSONSchema(envelope(ref(op.Response)))
	}
	o.AddResponse(op.Status, success)

	errorResponse := func(status int) {
		o.AddResponse(status, openapi3.NewResponse().
			WithDescription(http.StatusText(status)).
			WithJSONSchemaRef(ref("Error")))
	}
	if op.Request != "" || len(op.Query) > 0 {
		errorResponse(http.StatusBadRequest)
	}
	if op.Access != Anonymous {
		errorResponse(http.StatusUnauthorized)
	}
	if op.Access == AdminOnly || strings.Contains(op.Path, "{id}") && op.Access == Authenticated {
		errorResponse(http.StatusForbidden)
	}
	if strings.Contains(op.Path, "{") {
		errorResponse(http.StatusNotFound)
	}
	if op.Method != http.MethodGet {
		errorResponse(http.StatusConflict)
	}
	return o
}

// operationID derives e.g. "postApiOrdersIdPayments" from the route.
func operationID(op Operation) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(op.Method))
	for _, seg := range strings.Split(op.Path, "/") {
		seg = strings.Trim(seg, "{}")
		for _, part := range strings.Split(seg, "-") {
			if part == "" {
				continue
			}
			b.WriteString(strings.ToUpper(part[:1]) + part[1:])
		}
	}
	return b.String()
}
