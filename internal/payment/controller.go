// Package payment records simulated payments against pending orders.
package payment

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/backend-electronic/internal/app"
	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/db"
	"github.com/noah-isme/backend-electronic/internal/events"
	"github.com/noah-isme/backend-electronic/internal/lock"
	"github.com/noah-isme/backend-electronic/internal/obs"
	"github.com/noah-isme/backend-electronic/internal/order"
	"github.com/noah-isme/backend-electronic/internal/repo"
)

// DefaultLockTTL bounds how long one payment may hold the order lock.
const DefaultLockTTL = 15 * time.Second

var (
	errInProgress = common.Conflict("PAYMENT_IN_PROGRESS", "another payment for this order is in progress")
	errDeclined   = common.NewAppError("PAYMENT_DECLINED", "payment was declined", http.StatusPaymentRequired, nil)
)

func errNotPayable(status string) error {
	return common.Conflict("ORDER_NOT_PAYABLE", "only pending orders can be paid").
		WithDetails(map[string]any{"status": status})
}

func errAmountMismatch(expected, got int64) error {
	return common.NewAppError(common.CodeValidation, "amount must equal the order total", http.StatusBadRequest, nil).
		WithDetails(map[string]any{"expected": expected, "amount": got})
}

// Controller serves the payment endpoints.
type Controller struct {
	Lock      lock.Mutex
	LockTTL   time.Duration
	Processor Processor
	Events    events.Emitter
}

type payRequest struct {
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Method string `json:"method" validate:"required,oneof=card bank_transfer ewallet cash_on_delivery"`
}

// Completed is the payload of payment.completed.
type Completed struct {
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
}

func (c *Controller) withLock(ctx context.Context, orderID string, fn func(context.Context) error) error {
	if c.Lock == nil {
		return fn(ctx)
	}
	ttl := c.LockTTL
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return c.Lock.WithLock(ctx, lock.OrderKey(orderID), ttl, fn)
}

func (c *Controller) processor() Processor {
	if c.Processor == nil {
		return Simulated{}
	}
	return c.Processor
}

// Pay handles POST /api/orders/{id}/payments.
func (c *Controller) Pay(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.WriteError(w, common.Unauthorized("authentication required"))
		return
	}
	var req payRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	orderID := chi.URLParam(r, "id")

	ctx, span := otel.Tracer("payment.Controller").Start(r.Context(), "Payment.Pay")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("payment.method", req.Method))

	result := "error"
	defer func() {
		span.SetAttributes(attribute.String("payment.result", result))
		obs.RecordPayment(ctx, req.Method, result)
	}()

	var paid repo.Payment
	err := c.withLock(ctx, orderID, func(ctx context.Context) error {
		return s.Tx(ctx, func(tx *app.Scope) error {
			o, err := tx.Orders.GetForUpdate(ctx, orderID)
			if err != nil {
				return err
			}
			if o.UserID != userID {
				return repo.ErrNotFound
			}
			if o.Status != order.StatusPending {
				return errNotPayable(o.Status)
			}
			if req.Amount != o.Total {
				return errAmountMismatch(o.Total, req.Amount)
			}
			receipt, err := c.processor().Charge(ctx, Charge{OrderID: o.ID, Amount: o.Total, Method: req.Method})
			if err != nil {
				return err
			}
			status := db.PaymentStatusCompleted
			if !receipt.Approved {
				status = db.PaymentStatusFailed
			}
			paid, err = tx.Payments.Create(ctx, repo.NewPayment{
				OrderID:   o.ID,
				Amount:    o.Total,
				Method:    req.Method,
				Status:    string(status),
				Reference: receipt.Reference,
			})
			if err != nil || !receipt.Approved {
				return err
			}
			_, err = tx.Orders.UpdateStatus(ctx, o.ID, order.StatusPaid)
			return err
		})
	})
	switch {
	case errors.Is(err, lock.ErrBusy):
		result = "busy"
		common.WriteError(w, errInProgress)
		return
	case err != nil:
		if common.IsAppError(repo.AppError(err, "order")) {
			result = "rejected"
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		s.Fail(w, err, "order")
		return
	case paid.Status == string(db.PaymentStatusFailed):
		result = "declined"
		s.Logger.Info().Str("order_id", orderID).Str("reference", paid.Reference).Msg("payment declined")
		common.WriteError(w, errDeclined.WithDetails(map[string]any{"paymentId": paid.ID, "reference": paid.Reference}))
		return
	}

	result = "completed"
	s.Logger.Info().Str("order_id", orderID).Str("payment_id", paid.ID).Int64("amount", paid.Amount).Msg("payment completed")
	if c.Events != nil {
		payload := Completed{PaymentID: paid.ID, OrderID: paid.OrderID, Amount: paid.Amount, Method: paid.Method, Reference: paid.Reference}
		if _, err := c.Events.Emit(ctx, events.TopicPaymentCompleted, paid.OrderID, payload); err != nil {
			s.Logger.Warn().Err(err).Str("order_id", orderID).Msg("payment event not delivered")
		}
	}
	w.Header().Set("Location", "/api/payments/"+paid.ID)
	common.Data(w, http.StatusCreated, paid)
}

// ListByOrder handles GET /api/orders/{id}/payments.
func (c *Controller) ListByOrder(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	o, err := order.Visible(r.Context(), s, chi.URLParam(r, "id"))
	if err != nil {
		s.Fail(w, err, "order")
		return
	}
	rows, err := s.Payments.ListByOrder(r.Context(), o.ID)
	if err != nil {
		s.Fail(w, err, "payment")
		return
	}
	common.Data(w, http.StatusOK, rows)
}

// Get handles GET /api/payments/{id}. Payments of orders the caller cannot
// see look missing.
func (c *Controller) Get(w http.ResponseWriter, r *http.Request, s *app.Scope) {
	p, err := s.Payments.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.Fail(w, err, "payment")
		return
	}
	if _, err := order.Visible(r.Context(), s, p.OrderID); err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) && appErr.HTTPStatus == http.StatusNotFound {
			err = common.NotFound("payment")
		}
		s.Fail(w, err, "payment")
		return
	}
	common.Data(w, http.StatusOK, p)
}
