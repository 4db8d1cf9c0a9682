package db

import (
	"context"

	"github.com/google/uuid"
)

const orderColumns = `id, user_id, status, total, shipping_address, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Status,
		&i.Total,
		&i.ShippingAddress,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectOrders(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
	Close()
}) ([]Order, error) {
	defer rows.Close()
	var items []Order
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (user_id, status, total, shipping_address)
VALUES ($1, $2, $3, $4)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	UserID          uuid.UUID   `json:"user_id"`
	Status          OrderStatus `json:"status"`
	Total           int64       `json:"total"`
	ShippingAddress string      `json:"shipping_address"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder, arg.UserID, arg.Status, arg.Total, arg.ShippingAddress)
	return scanOrder(row)
}

const getOrder = `-- name: GetOrder :one
SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

// GetOrderForUpdate locks the order row until the surrounding transaction ends.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const listOrdersByUser = `-- name: ListOrdersByUser :many
SELECT ` + orderColumns + ` FROM orders
WHERE user_id = $1
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3`

type ListOrdersByUserParams struct {
	UserID uuid.UUID `json:"user_id"`
	Limit  int32     `json:"limit"`
	Offset int32     `json:"offset"`
}

func (q *Queries) ListOrdersByUser(ctx context.Context, arg ListOrdersByUserParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByUser, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const countOrdersByUser = `-- name: CountOrdersByUser :one
SELECT count(*) FROM orders WHERE user_id = $1`

func (q *Queries) CountOrdersByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countOrdersByUser, userID).Scan(&count)
	return count, err
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderColumns + ` FROM orders
WHERE ($1::order_status IS NULL OR status = $1)
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3`

type ListOrdersParams struct {
	Status NullOrderStatus `json:"status"`
	Limit  int32           `json:"limit"`
	Offset int32           `json:"offset"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

const countOrders = `-- name: CountOrders :one
SELECT count(*) FROM orders WHERE ($1::order_status IS NULL OR status = $1)`

func (q *Queries) CountOrders(ctx context.Context, status NullOrderStatus) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countOrders, status).Scan(&count)
	return count, err
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID     uuid.UUID   `json:"id"`
	Status OrderStatus `json:"status"`
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status))
}

const orderItemColumns = `id, order_id, product_id, product_name, unit_price, quantity`

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (order_id, product_id, product_name, unit_price, quantity)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + orderItemColumns

type CreateOrderItemParams struct {
	OrderID     uuid.UUID `json:"order_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	UnitPrice   int64     `json:"unit_price"`
	Quantity    int32     `json:"quantity"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem, arg.OrderID, arg.ProductID, arg.ProductName, arg.UnitPrice, arg.Quantity)
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.ProductID, &i.ProductName, &i.UnitPrice, &i.Quantity)
	return i, err
}

const listOrderItems = `-- name: ListOrderItems :many
SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY product_name, id`

func (q *Queries) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.ProductID, &i.ProductName, &i.UnitPrice, &i.Quantity); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const paymentColumns = `id, order_id, amount, method, status, reference, created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }) (Payment, error) {
	var i Payment
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.Amount,
		&i.Method,
		&i.Status,
		&i.Reference,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createPayment = `-- name: CreatePayment :one
INSERT INTO payments (order_id, amount, method, status, reference)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + paymentColumns

type CreatePaymentParams struct {
	OrderID   uuid.UUID     `json:"order_id"`
	Amount    int64         `json:"amount"`
	Method    string        `json:"method"`
	Status    PaymentStatus `json:"status"`
	Reference string        `json:"reference"`
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, createPayment, arg.OrderID, arg.Amount, arg.Method, arg.Status, arg.Reference)
	return scanPayment(row)
}

const getPayment = `-- name: GetPayment :one
SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

func (q *Queries) GetPayment(ctx context.Context, id uuid.UUID) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPayment, id))
}

const listPaymentsByOrder = `-- name: ListPaymentsByOrder :many
SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1 ORDER BY created_at, id`

func (q *Queries) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Payment
	for rows.Next() {
		i, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updatePaymentStatus = `-- name: UpdatePaymentStatus :one
UPDATE payments SET status = $2, updated_at = now()
WHERE id = $1
RETURNING ` + paymentColumns

type UpdatePaymentStatusParams struct {
	ID     uuid.UUID     `json:"id"`
	Status PaymentStatus `json:"status"`
}

func (q *Queries) UpdatePaymentStatus(ctx context.Context, arg UpdatePaymentStatusParams) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, updatePaymentStatus, arg.ID, arg.Status))
}
