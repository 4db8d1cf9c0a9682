package order

import (
	"net/http"

	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/db"
)

// Order statuses.
const (
	StatusPending   = string(db.OrderStatusPending)
	StatusPaid      = string(db.OrderStatusPaid)
	StatusShipped   = string(db.OrderStatusShipped)
	StatusDelivered = string(db.OrderStatusDelivered)
	StatusCancelled = string(db.OrderStatusCancelled)
)

var transitions = map[string][]string{
	StatusPending: {StatusPaid, StatusCancelled},
	StatusPaid:    {StatusShipped, StatusCancelled},
	StatusShipped: {StatusDelivered},
}

// ValidStatus reports whether status names an order status.
func ValidStatus(status string) bool {
	return db.OrderStatus(status).Valid()
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ErrInvalidTransition is returned for a status change the order does not allow.
func ErrInvalidTransition(from, to string) *common.AppError {
	return common.Conflict("INVALID_STATUS_TRANSITION", "cannot move order from "+from+" to "+to).
		WithDetails(map[string]any{"from": from, "to": to})
}

var errNotPending = common.NewAppError("INVALID_STATUS_TRANSITION", "only pending orders can be cancelled", http.StatusConflict, nil)
