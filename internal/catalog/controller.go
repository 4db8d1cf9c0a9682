// Package catalog serves categories, products and product images.
package catalog

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-electronic/internal/app"
	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/queue"
	"github.com/noah-isme/backend-electronic/internal/repo"
)

// Controller exposes the catalog endpoints.
type Controller struct {
	Cache     *Cache
	ImagesDir string
	// Tasks receives cleanup jobs for replaced images; nil removes them inline.
	Tasks queue.Enqueuer
	// MaxImageBytes caps uploads; zero uses DefaultMaxImageBytes.
	MaxImageBytes int64
}

type categoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

func (req *categoryRequest) input() (repo.CategoryInput, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return repo.CategoryInput{}, common.ValidationError([]common.FieldError{{Field: "name", Rule: "required"}})
	}
	return repo.CategoryInput{Name: name, Description: strings.TrimSpace(req.Description)}, nil
}

type productRequest struct {
	CategoryID  string `json:"categoryId" validate:"omitempty,uuid"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=4000"`
	Price       *int64 `json:"price" validate:"required,gte=0"`
	Stock       int    `json:"stock" validate:"gte=0"`
}

func (req *productRequest) input() (repo.ProductInput, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return repo.ProductInput{}, common.ValidationError([]common.FieldError{{Field: "name", Rule: "required"}})
	}
	return repo.ProductInput{
		CategoryID:  req.CategoryID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Price:       *req.Price,
		Stock:       req.Stock,
	}, nil
}

// ListCategories handles GET /api/categories.
func (c *Controller) ListCategories(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	rows, err := cached(r.Context(), c.Cache, s.Logger, keyCategories, func() ([]repo.Category, error) {
		return s.Categories.List(r.Context())
	})
	if err != nil {
		s.Fail(w, err, "category")
		return
	}
	common.Data(w, http.StatusOK, rows)
}

// GetCategory handles GET /api/categories/{id}.
func (c *Controller) GetCategory(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	id := chi.URLParam(r, "id")
	cat, err := cached(r.Context(), c.Cache, s.Logger, categoryKey(id), func() (repo.Category, error) {
		return s.Categories.Get(r.Context(), id)
	})
	if err != nil {
		s.Fail(w, err, "category")
		return
	}
	common.Data(w, http.StatusOK, cat)
}

// CreateCategory handles POST /api/categories.
func (c *Controller) CreateCategory(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	var req categoryRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	in, err := req.input()
	if err != nil {
		common.WriteError(w, err)
		return
	}
	cat, err := s.Categories.Create(r.Context(), in)
	if err != nil {
		s.Fail(w, err, "category")
		return
	}
	c.invalidate(r, s, keyCategories)
	w.Header().Set("Location", "/api/categories/"+cat.ID)
	common.Data(w, http.StatusCreated, cat)
}

// UpdateCategory handles PUT /api/categories/{id}.
func (c *Controller) UpdateCategory(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	id := chi.URLParam(r, "id")
	var req categoryRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	in, err := req.input()
	if err != nil {
		common.WriteError(w, err)
		return
	}
	cat, err := s.Categories.Update(r.Context(), id, in)
	if err != nil {
		s.Fail(w, err, "category")
		return
	}
	c.invalidate(r, s, keyCategories, categoryKey(cat.ID))
	common.Data(w, http.StatusOK, cat)
}

// DeleteCategory handles DELETE /api/categories/{id}.
func (c *Controller) DeleteCategory(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	id := chi.URLParam(r, "id")
	if err := s.Categories.Delete(r.Context(), id); err != nil {
		s.Fail(w, err, "category")
		return
	}
	c.invalidate(r, s, keyCategories, categoryKey(id))
	w.WriteHeader(http.StatusNoContent)
}

// ListProducts handles GET /api/products with filters and pagination.
func (c *Controller) ListProducts(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	params, err := ParseListParams(r.URL.Query())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	items, total, err := s.Products.List(r.Context(), params.Query())
	if err != nil {
		s.Fail(w, err, "product")
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.Paged(w, items, common.NewPagination(params.Page, params.Limit, total))
}

// GetProduct handles GET /api/products/{id}.
func (c *Controller) GetProduct(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	p, err := s.Products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.Fail(w, err, "product")
		return
	}
	common.Data(w, http.StatusOK, p)
}

// CreateProduct handles POST /api/products.
func (c *Controller) CreateProduct(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	var req productRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	in, err := req.input()
	if err != nil {
		common.WriteError(w, err)
		return
	}
	p, err := s.Products.Create(r.Context(), in)
	if err != nil {
		s.Fail(w, err, "product")
		return
	}
	w.Header().Set("Location", "/api/products/"+p.ID)
	common.Data(w, http.StatusCreated, p)
}

// UpdateProduct handles PUT /api/products/{id}.
func (c *Controller) UpdateProduct(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	var req productRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	in, err := req.input()
	if err != nil {
		common.WriteError(w, err)
		return
	}
	p, err := s.Products.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.Fail(w, err, "product")
		return
	}
	common.Data(w, http.StatusOK, p)
}

// DeleteProduct handles DELETE /api/products/{id}. The image file is
// removed once the row is gone.
func (c *Controller) DeleteProduct(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	id := chi.URLParam(r, "id")
	p, err := s.Products.Get(r.Context(), id)
	if err != nil {
		s.Fail(w, err, "product")
		return
	}
	if err := s.Products.Delete(r.Context(), id); err != nil {
		s.Fail(w, err, "product")
		return
	}
	c.discardImage(r.Context(), s, p.ImageURL)
	w.WriteHeader(http.StatusNoContent)
}

func (c *Controller) invalidate(r *http.Request, s *app.Scope, keys ...string) {
	if err := c.Cache.Invalidate(r.Context(), keys...); err != nil {
		s.Logger.Warn().Err(err).Strs("keys", keys).Msg("catalog cache invalidation failed")
	}
}
