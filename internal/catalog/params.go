package catalog

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/repo"
)

// Listing defaults.
const (
	DefaultPageSize = 20
	MaxPageSize     = common.MaxPageSize
)

// ListParams captures filters for product listing.
type ListParams struct {
	Category string
	Search   string
	MinPrice *int64
	MaxPrice *int64
	Page     int
	Limit    int
}

// ParseListParams normalises raw query values into typed filters.
func ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{Page: 1, Limit: DefaultPageSize}
	params.Search = strings.TrimSpace(values.Get("q"))
	params.Category = strings.TrimSpace(values.Get("category"))

	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return params, badRequest("page", "page must be a positive integer", err)
		}
		params.Page = page
	}
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 {
			return params, badRequest("limit", "limit must be a positive integer", err)
		}
		params.Limit = min(l, MaxPageSize)
	}

	var err error
	if params.MinPrice, err = parsePrice(values, "minPrice"); err != nil {
		return params, err
	}
	if params.MaxPrice, err = parsePrice(values, "maxPrice"); err != nil {
		return params, err
	}
	if params.MinPrice != nil && params.MaxPrice != nil && *params.MinPrice > *params.MaxPrice {
		return params, badRequest("price", "minPrice cannot be greater than maxPrice", fmt.Errorf("invalid price range"))
	}
	return params, nil
}

func parsePrice(values url.Values, field string) (*int64, error) {
	v := strings.TrimSpace(values.Get(field))
	if v == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil || parsed < 0 {
		return nil, badRequest(field, field+" must be a non-negative integer", err)
	}
	return &parsed, nil
}

// Query converts the parameters into a repository query.
func (p ListParams) Query() repo.ProductQuery {
	return repo.ProductQuery{
		CategoryID: p.Category,
		Search:     p.Search,
		MinPrice:   p.MinPrice,
		MaxPrice:   p.MaxPrice,
		Limit:      p.Limit,
		Offset:     common.NewPagination(p.Page, p.Limit, 0).Offset(),
	}
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       common.CodeBadRequest,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details:    map[string]any{"field": field},
	}
}
