package common

import (
	"net/http"
	"strconv"
	"strings"
)

// MaxPageSize caps the limit query parameter.
const MaxPageSize = 100

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int64 `json:"totalPages"`
}

// NewPagination fills the derived page count.
func NewPagination(page, limit int, total int64) Pagination {
	p := Pagination{Page: page, Limit: limit, TotalItems: total}
	if limit > 0 {
		p.TotalPages = (total + int64(limit) - 1) / int64(limit)
	}
	return p
}

// Offset returns the number of rows to skip for the page.
func (p Pagination) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// ParsePagination extracts page and limit from query values.
func ParsePagination(r *http.Request, defaultLimit int) (page, limit int) {
	q := r.URL.Query()
	page = AtoiDefault(q.Get("page"), 1)
	if page < 1 {
		page = 1
	}
	limit = AtoiDefault(q.Get("limit"), defaultLimit)
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// AtoiDefault converts value to an int, falling back to def when parsing fails.
func AtoiDefault(value string, def int) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
