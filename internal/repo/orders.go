package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-electronic/internal/db"
)

// OrderQuerier is the subset of db.Querier used by OrderRepository.
type OrderQuerier interface {
	CreateOrder(ctx context.Context, arg db.CreateOrderParams) (db.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (db.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (db.Order, error)
	ListOrdersByUser(ctx context.Context, arg db.ListOrdersByUserParams) ([]db.Order, error)
	CountOrdersByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	ListOrders(ctx context.Context, arg db.ListOrdersParams) ([]db.Order, error)
	CountOrders(ctx context.Context, status db.NullOrderStatus) (int64, error)
	UpdateOrderStatus(ctx context.Context, arg db.UpdateOrderStatusParams) (db.Order, error)
}

// NewOrder carries the fields of a freshly placed order.
type NewOrder struct {
	UserID          string
	Total           int64
	ShippingAddress string
}

// OrderRepository reads and writes orders.
type OrderRepository struct {
	Q OrderQuerier
}

// ListByUser returns one page of the user's orders, newest first.
func (r OrderRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, int64, error) {
	uid, err := parseID(userID)
	if err != nil {
		return nil, 0, err
	}
	total, err := r.Q.CountOrdersByUser(ctx, uid)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.Q.ListOrdersByUser(ctx, db.ListOrdersByUserParams{UserID: uid, Limit: int32(limit), Offset: int32(offset)})
	if err != nil {
		return nil, 0, err
	}
	return mapRows(rows, orderFromRow), total, nil
}

// ListAll returns one page of every order, optionally filtered by status.
func (r OrderRepository) ListAll(ctx context.Context, status string, limit, offset int) ([]Order, int64, error) {
	filter := db.NullOrderStatus{OrderStatus: db.OrderStatus(status), Valid: status != ""}
	total, err := r.Q.CountOrders(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.Q.ListOrders(ctx, db.ListOrdersParams{Status: filter, Limit: int32(limit), Offset: int32(offset)})
	if err != nil {
		return nil, 0, err
	}
	return mapRows(rows, orderFromRow), total, nil
}

// Get returns a single order.
func (r OrderRepository) Get(ctx context.Context, id string) (Order, error) {
	oid, err := parseID(id)
	if err != nil {
		return Order{}, err
	}
	row, err := r.Q.GetOrder(ctx, oid)
	if err != nil {
		return Order{}, translate(err)
	}
	return orderFromRow(row), nil
}

// GetForUpdate returns the order and locks its row until the transaction ends.
func (r OrderRepository) GetForUpdate(ctx context.Context, id string) (Order, error) {
	oid, err := parseID(id)
	if err != nil {
		return Order{}, err
	}
	row, err := r.Q.GetOrderForUpdate(ctx, oid)
	if err != nil {
		return Order{}, translate(err)
	}
	return orderFromRow(row), nil
}

// Create inserts a Pending order.
func (r OrderRepository) Create(ctx context.Context, in NewOrder) (Order, error) {
	uid, err := parseID(in.UserID)
	if err != nil {
		return Order{}, err
	}
	row, err := r.Q.CreateOrder(ctx, db.CreateOrderParams{
		UserID:          uid,
		Status:          db.OrderStatusPending,
		Total:           in.Total,
		ShippingAddress: in.ShippingAddress,
	})
	if err != nil {
		return Order{}, translate(err)
	}
	return orderFromRow(row), nil
}

// UpdateStatus sets the order status. Transition rules live with the caller.
func (r OrderRepository) UpdateStatus(ctx context.Context, id, status string) (Order, error) {
	oid, err := parseID(id)
	if err != nil {
		return Order{}, err
	}
	row, err := r.Q.UpdateOrderStatus(ctx, db.UpdateOrderStatusParams{ID: oid, Status: db.OrderStatus(status)})
	if err != nil {
		return Order{}, translate(err)
	}
	return orderFromRow(row), nil
}

// OrderItemQuerier is the subset of db.Querier used by OrderItemsRepository.
type OrderItemQuerier interface {
	CreateOrderItem(ctx context.Context, arg db.CreateOrderItemParams) (db.OrderItem, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]db.OrderItem, error)
}

// NewOrderItem carries a line frozen at checkout time.
type NewOrderItem struct {
	OrderID     string
	ProductID   string
	ProductName string
	UnitPrice   int64
	Quantity    int
}

// OrderItemsRepository reads and writes order lines.
type OrderItemsRepository struct {
	Q OrderItemQuerier
}

// ListByOrder returns the lines of an order.
func (r OrderItemsRepository) ListByOrder(ctx context.Context, orderID string) ([]OrderItem, error) {
	oid, err := parseID(orderID)
	if err != nil {
		return nil, err
	}
	rows, err := r.Q.ListOrderItems(ctx, oid)
	if err != nil {
		return nil, err
	}
	return mapRows(rows, orderItemFromRow), nil
}

// Add appends a line to an order.
func (r OrderItemsRepository) Add(ctx context.Context, in NewOrderItem) (OrderItem, error) {
	oid, err := parseID(in.OrderID)
	if err != nil {
		return OrderItem{}, err
	}
	pid, err := parseID(in.ProductID)
	if err != nil {
		return OrderItem{}, err
	}
	row, err := r.Q.CreateOrderItem(ctx, db.CreateOrderItemParams{
		OrderID:     oid,
		ProductID:   pid,
		ProductName: in.ProductName,
		UnitPrice:   in.UnitPrice,
		Quantity:    int32(in.Quantity),
	})
	if err != nil {
		return OrderItem{}, translate(err)
	}
	return orderItemFromRow(row), nil
}
