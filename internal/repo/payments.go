package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-electronic/internal/db"
)

// PaymentQuerier is the subset of db.Querier used by PaymentRepository.
type PaymentQuerier interface {
	CreatePayment(ctx context.Context, arg db.CreatePaymentParams) (db.Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (db.Payment, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]db.Payment, error)
	UpdatePaymentStatus(ctx context.Context, arg db.UpdatePaymentStatusParams) (db.Payment, error)
}

// NewPayment carries the fields of a payment attempt.
type NewPayment struct {
	OrderID   string
	Amount    int64
	Method    string
	Status    string
	Reference string
}

// PaymentRepository reads and writes payments.
type PaymentRepository struct {
	Q PaymentQuerier
}

// Create records a payment. References are unique.
func (r PaymentRepository) Create(ctx context.Context, in NewPayment) (Payment, error) {
	oid, err := parseID(in.OrderID)
	if err != nil {
		return Payment{}, err
	}
	status := db.PaymentStatus(in.Status)
	if status == "" {
		status = db.PaymentStatusPending
	}
	row, err := r.Q.CreatePayment(ctx, db.CreatePaymentParams{
		OrderID:   oid,
		Amount:    in.Amount,
		Method:    in.Method,
		Status:    status,
		Reference: in.Reference,
	})
	if err != nil {
		return Payment{}, translate(err)
	}
	return paymentFromRow(row), nil
}

// Get returns a single payment.
func (r PaymentRepository) Get(ctx context.Context, id string) (Payment, error) {
	pid, err := parseID(id)
	if err != nil {
		return Payment{}, err
	}
	row, err := r.Q.GetPayment(ctx, pid)
	if err != nil {
		return Payment{}, translate(err)
	}
	return paymentFromRow(row), nil
}

// ListByOrder returns the payments made against an order, oldest first.
func (r PaymentRepository) ListByOrder(ctx context.Context, orderID string) ([]Payment, error) {
	oid, err := parseID(orderID)
	if err != nil {
		return nil, err
	}
	rows, err := r.Q.ListPaymentsByOrder(ctx, oid)
	if err != nil {
		return nil, err
	}
	return mapRows(rows, paymentFromRow), nil
}

// UpdateStatus sets the payment status.
func (r PaymentRepository) UpdateStatus(ctx context.Context, id, status string) (Payment, error) {
	pid, err := parseID(id)
	if err != nil {
		return Payment{}, err
	}
	row, err := r.Q.UpdatePaymentStatus(ctx, db.UpdatePaymentStatusParams{ID: pid, Status: db.PaymentStatus(status)})
	if err != nil {
		return Payment{}, translate(err)
	}
	return paymentFromRow(row), nil
}
