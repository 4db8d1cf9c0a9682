// Package cart serves the authenticated user's shopping cart.
package cart

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-electronic/internal/app"
	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/repo"
)

// View is the cart as returned to clients.
type View struct {
	ID        string          `json:"id"`
	Items     []repo.CartLine `json:"items"`
	ItemCount int             `json:"itemCount"`
	Total     int64           `json:"total"`
}

// Load returns the user's cart with line totals, creating it on first use.
func Load(ctx context.Context, s *app.Scope, userID string) (View, error) {
	c, err := s.Carts.GetOrCreate(ctx, userID)
	if err != nil {
		return View{}, err
	}
	lines, err := s.Carts.Items(ctx, c.ID)
	if err != nil {
		return View{}, err
	}
	v := View{ID: c.ID, Items: lines}
	for _, l := range lines {
		v.ItemCount += l.Quantity
		v.Total += l.LineTotal
	}
	return v, nil
}

// Controller exposes the cart endpoints.
type Controller struct{}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=1000"`
}

type quantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=1000"`
}

func caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := common.UserID(r.Context())
	if !ok {
		common.WriteError(w, common.Unauthorized("authentication required"))
	}
	return id, ok
}

func (c Controller) respond(w http.ResponseWriter, r *http.Request, s *app.Scope, userID string) {
	v, err := Load(r.Context(), s, userID)
	if err != nil {
		s.Fail(w, err, "cart")
		return
	}
	common.Data(w, http.StatusOK, v)
}

// Get handles GET /api/cart.
func (c Controller) Get(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	c.respond(w, r, s, userID)
}

// AddItem handles POST /api/cart/items. Adding a product already in the
// cart increases its quantity; the result may not exceed the stock.
func (c Controller) AddItem(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	err := s.Tx(r.Context(), func(tx *app.Scope) error {
		product, err := tx.Products.Get(r.Context(), req.ProductID)
		if err != nil {
			return repo.AppError(err, "product")
		}
		cart, err := tx.Carts.GetOrCreate(r.Context(), userID)
		if err != nil {
			return err
		}
		qty, err := tx.Carts.UpsertItem(r.Context(), cart.ID, product.ID, req.Quantity)
		if err != nil {
			return err
		}
		if qty > product.Stock {
			return repo.ErrInsufficientStock
		}
		return nil
	})
	if err != nil {
		s.Fail(w, err, "cart item")
		return
	}
	c.respond(w, r, s, userID)
}

// UpdateItem handles PUT /api/cart/items/{productId}.
func (c Controller) UpdateItem(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	var req quantityRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	productID := chi.URLParam(r, "productId")
	err := s.Tx(r.Context(), func(tx *app.Scope) error {
		cart, err := tx.Carts.GetOrCreate(r.Context(), userID)
		if err != nil {
			return err
		}
		product, err := tx.Products.Get(r.Context(), productID)
		if err != nil {
			return repo.AppError(err, "product")
		}
		if req.Quantity > product.Stock {
			return repo.ErrInsufficientStock
		}
		return tx.Carts.UpdateQuantity(r.Context(), cart.ID, productID, req.Quantity)
	})
	if err != nil {
		s.Fail(w, err, "cart item")
		return
	}
	c.respond(w, r, s, userID)
}

// RemoveItem handles DELETE /api/cart/items/{productId}.
func (c Controller) RemoveItem(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	cart, err := s.Carts.GetOrCreate(r.Context(), userID)
	if err != nil {
		s.Fail(w, err, "cart")
		return
	}
	if err := s.Carts.RemoveItem(r.Context(), cart.ID, chi.URLParam(r, "productId")); err != nil {
		s.Fail(w, err, "cart item")
		return
	}
	c.respond(w, r, s, userID)
}

// Clear handles DELETE /api/cart.
func (c Controller) Clear(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	cart, err := s.Carts.GetOrCreate(r.Context(), userID)
	if err != nil {
		s.Fail(w, err, "cart")
		return
	}
	if err := s.Carts.Clear(r.Context(), cart.ID); err != nil {
		s.Fail(w, err, "cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
