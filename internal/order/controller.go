// Package order turns carts into orders and manages their lifecycle.
package order

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-electronic/internal/app"
	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/db"
	"github.com/noah-isme/backend-electronic/internal/events"
	"github.com/noah-isme/backend-electronic/internal/obs"
	"github.com/noah-isme/backend-electronic/internal/queue"
	"github.com/noah-isme/backend-electronic/internal/repo"
)

// Controller exposes the order endpoints.
type Controller struct {
	// Events receives order events; nil disables emission.
	Events events.Emitter
}

// View is an order with its lines.
type View struct {
	repo.Order
	Items []repo.OrderItem `json:"items"`
}

type checkoutRequest struct {
	ShippingAddress string `json:"shippingAddress" validate:"required,min=5,max=500"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=Paid Shipped Delivered Cancelled"`
}

// StatusChange is the payload of order.status_changed.
type StatusChange struct {
	OrderID string `json:"orderId"`
	From    string `json:"from"`
	To      string `json:"to"`
}

var errEmptyCart = common.NewAppError("CART_EMPTY", "cart is empty", http.StatusBadRequest, nil)

// Checkout handles POST /api/orders. Stock is taken, the order and its
// lines are written and the cart is emptied in one transaction.
func (c *Controller) Checkout(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.WriteError(w, common.Unauthorized("authentication required"))
		return
	}
	var req checkoutRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	address := strings.TrimSpace(req.ShippingAddress)

	var placed View
	err := s.Tx(r.Context(), func(tx *app.Scope) error {
		cart, err := tx.Carts.GetOrCreate(r.Context(), userID)
		if err != nil {
			return err
		}
		lines, err := tx.Carts.Items(r.Context(), cart.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return errEmptyCart
		}

		priced := make([]repo.NewOrderItem, 0, len(lines))
		var total int64
		for _, l := range lines {
			p, err := tx.Products.AdjustStock(r.Context(), l.ProductID, -l.Quantity)
			if err != nil {
				return repo.AppError(err, "product")
			}
			priced = append(priced, repo.NewOrderItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				UnitPrice:   p.Price,
				Quantity:    l.Quantity,
			})
			total += p.Price * int64(l.Quantity)
		}

		o, err := tx.Orders.Create(r.Context(), repo.NewOrder{UserID: userID, Total: total, ShippingAddress: address})
		if err != nil {
			return err
		}
		placed = View{Order: o, Items: make([]repo.OrderItem, 0, len(priced))}
		for _, it := range priced {
			it.OrderID = o.ID
			added, err := tx.OrderItems.Add(r.Context(), it)
			if err != nil {
				return err
			}
			placed.Items = append(placed.Items, added)
		}
		return tx.Carts.Clear(r.Context(), cart.ID)
	})
	if err != nil {
		s.Fail(w, err, "order")
		return
	}

	obs.RecordOrderPlaced(r.Context())
	s.Logger.Info().Str("order_id", placed.ID).Int64("total", placed.Total).Int("lines", len(placed.Items)).Msg("order placed")
	c.emit(r.Context(), s, events.TopicOrderPlaced, placed.ID, c.confirmation(r.Context(), s, placed))
	w.Header().Set("Location", "/api/orders/"+placed.ID)
	common.Data(w, http.StatusCreated, placed)
}

func (c *Controller) confirmation(ctx context.Context, s *app.Scope, v View) queue.OrderConfirmation {
	p := queue.OrderConfirmation{OrderID: v.ID, UserID: v.UserID, Total: v.Total}
	for _, it := range v.Items {
		p.ItemCount += it.Quantity
	}
	if u, err := s.Users.GetByID(ctx, v.UserID); err == nil {
		p.Email, p.Name = u.Email, u.Name
	}
	return p
}

func (c *Controller) emit(ctx context.Context, s *app.Scope, topic, orderID string, payload any) {
	if c.Events == nil {
		return
	}
	if _, err := c.Events.Emit(ctx, topic, orderID, payload); err != nil {
		s.Logger.Warn().Err(err).Str("topic", topic).Str("order_id", orderID).Msg("order event not delivered")
	}
}

// List handles GET /api/orders for the caller's own orders.
func (c *Controller) List(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.WriteError(w, common.Unauthorized("authentication required"))
		return
	}
	page, limit := common.ParsePagination(r, 20)
	pg := common.NewPagination(page, limit, 0)
	rows, total, err := s.Orders.ListByUser(r.Context(), userID, limit, pg.Offset())
	if err != nil {
		s.Fail(w, err, "order")
		return
	}
	common.Paged(w, rows, common.NewPagination(page, limit, total))
}

// Get handles GET /api/orders/{id}.
func (c *Controller) Get(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	o, err := Visible(r.Context(), s, chi.URLParam(r, "id"))
	if err != nil {
		s.Fail(w, err, "order")
		return
	}
	items, err := s.OrderItems.ListByOrder(r.Context(), o.ID)
	if err != nil {
		s.Fail(w, err, "order")
		return
	}
	common.Data(w, http.StatusOK, View{Order: o, Items: items})
}

// Items handles GET /api/orders/{id}/items.
func (c *Controller) Items(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	o, err := Visible(r.Context(), s, chi.URLParam(r, "id"))
	if err != nil {
		s.Fail(w, err, "order")
		return
	}
	items, err := s.OrderItems.ListByOrder(r.Context(), o.ID)
	if err != nil {
		s.Fail(w, err, "order")
		return
	}
	common.Data(w, http.StatusOK, items)
}

// Cancel handles POST /api/orders/{id}/cancel. Only the owner may cancel,
// only while the order is pending; the stock is given back.
func (c *Controller) Cancel(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.WriteError(w, common.Unauthorized("authentication required"))
		return
	}
	var cancelled repo.Order
	err := s.Tx(r.Context(), func(tx *app.Scope) error {
		o, err := tx.Orders.GetForUpdate(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return repo.ErrNotFound
		}
		if o.Status != StatusPending {
			return errNotPending
		}
		if err := restock(r.Context(), tx, o.ID); err != nil {
			return err
		}
		cancelled, err = tx.Orders.UpdateStatus(r.Context(), o.ID, StatusCancelled)
		return err
	})
	if err != nil {
		s.Fail(w, err, "order")
		return
	}
	c.emit(r.Context(), s, events.TopicOrderCancelled, cancelled.ID, StatusChange{OrderID: cancelled.ID, From: StatusPending, To: StatusCancelled})
	common.Data(w, http.StatusOK, cancelled)
}

func restock(ctx context.Context, tx *app.Scope, orderID string) error {
	items, err := tx.OrderItems.ListByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	for _, it := range items {
		if _, err := tx.Products.AdjustStock(ctx, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// AdminList handles GET /api/admin/orders with an optional status filter.
func (c *Controller) AdminList(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status != "" && !ValidStatus(status) {
		common.WriteError(w, common.BadRequest("unknown status "+status))
		return
	}
	page, limit := common.ParsePagination(r, 20)
	pg := common.NewPagination(page, limit, 0)
	rows, total, err := s.Orders.ListAll(r.Context(), status, limit, pg.Offset())
	if err != nil {
		s.Fail(w, err, "order")
		return
	}
	common.Paged(w, rows, common.NewPagination(page, limit, total))
}

// UpdateStatus handles PATCH /api/admin/orders/{id}/status. Cancelling a
// paid order refunds its completed payments; cancelling gives stock back.
func (c *Controller) UpdateStatus(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	var req statusRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	var (
		from    string
		updated repo.Order
	)
	err := s.Tx(r.Context(), func(tx *app.Scope) error {
		o, err := tx.Orders.GetForUpdate(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			return err
		}
		from = o.Status
		if !CanTransition(from, req.Status) {
			return ErrInvalidTransition(from, req.Status)
		}
		if req.Status == StatusCancelled {
			if err := restock(r.Context(), tx, o.ID); err != nil {
				return err
			}
			if err := refund(r.Context(), tx, o.ID); err != nil {
				return err
			}
		}
		updated, err = tx.Orders.UpdateStatus(r.Context(), o.ID, req.Status)
		return err
	})
	if err != nil {
		s.Fail(w, err, "order")
		return
	}
	change := StatusChange{OrderID: updated.ID, From: from, To: updated.Status}
	c.emit(r.Context(), s, events.TopicOrderStatusChanged, updated.ID, change)
	if updated.Status == StatusCancelled {
		c.emit(r.Context(), s, events.TopicOrderCancelled, updated.ID, change)
	}
	s.Logger.Info().Str("order_id", updated.ID).Str("from", from).Str("to", updated.Status).Msg("order status changed")
	common.Data(w, http.StatusOK, updated)
}

func refund(ctx context.Context, tx *app.Scope, orderID string) error {
	payments, err := tx.Payments.ListByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	for _, p := range payments {
		if p.Status != string(db.PaymentStatusCompleted) {
			continue
		}
		if _, err := tx.Payments.UpdateStatus(ctx, p.ID, string(db.PaymentStatusRefunded)); err != nil {
			return err
		}
	}
	return nil
}
