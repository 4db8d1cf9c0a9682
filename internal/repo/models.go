package repo

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-electronic/internal/db"
)

// Product is a catalog entry. Prices are integer minor units.
type Product struct {
	ID          string    `json:"id"`
	CategoryID  string    `json:"categoryId,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	Stock       int       `json:"stock"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Category groups products.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// User is an identity record. The password hash never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Order is a placed order.
type Order struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	Status          string    `json:"status"`
	Total           int64     `json:"total"`
	ShippingAddress string    `json:"shippingAddress"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// OrderItem is a priced line of an order, frozen at checkout.
type OrderItem struct {
	ID          string `json:"id"`
	OrderID     string `json:"orderId"`
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	UnitPrice   int64  `json:"unitPrice"`
	Quantity    int    `json:"quantity"`
	LineTotal   int64  `json:"lineTotal"`
}

// Payment records a payment attempt against an order.
type Payment struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"orderId"`
	Amount    int64     `json:"amount"`
	Method    string    `json:"method"`
	Status    string    `json:"status"`
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Cart is the per-user shopping cart.
type Cart struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
}

// CartLine is a cart item joined with the current product data.
type CartLine struct {
	ProductID string    `json:"productId"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Stock     int       `json:"stock"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Quantity  int       `json:"quantity"`
	LineTotal int64     `json:"lineTotal"`
	AddedAt   time.Time `json:"addedAt"`
}

func nullableID(id uuid.NullUUID) string {
	if !id.Valid {
		return ""
	}
	return id.UUID.String()
}

func productFromRow(p db.Product) Product {
	return Product{
		ID:          p.ID.String(),
		CategoryID:  nullableID(p.CategoryID),
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       int(p.Stock),
		ImageURL:    p.ImageUrl.String,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func categoryFromRow(c db.Category) Category {
	return Category{
		ID:          c.ID.String(),
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func userFromRow(u db.User) User {
	return User{
		ID:           u.ID.String(),
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func orderFromRow(o db.Order) Order {
	return Order{
		ID:              o.ID.String(),
		UserID:          o.UserID.String(),
		Status:          string(o.Status),
		Total:           o.Total,
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func orderItemFromRow(i db.OrderItem) OrderItem {
	return OrderItem{
		ID:          i.ID.String(),
		OrderID:     i.OrderID.String(),
		ProductID:   i.ProductID.String(),
		ProductName: i.ProductName,
		UnitPrice:   i.UnitPrice,
		Quantity:    int(i.Quantity),
		LineTotal:   i.UnitPrice * int64(i.Quantity),
	}
}

func paymentFromRow(p db.Payment) Payment {
	return Payment{
		ID:        p.ID.String(),
		OrderID:   p.OrderID.String(),
		Amount:    p.Amount,
		Method:    p.Method,
		Status:    string(p.Status),
		Reference: p.Reference,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func cartLineFromRow(r db.ListCartItemsRow) CartLine {
	return CartLine{
		ProductID: r.ProductID.String(),
		Name:      r.Name,
		Price:     r.Price,
		Stock:     int(r.Stock),
		ImageURL:  r.ImageUrl.String,
		Quantity:  int(r.Quantity),
		LineTotal: r.Price * int64(r.Quantity),
		AddedAt:   r.AddedAt,
	}
}

func mapRows[R, T any](rows []R, fn func(R) T) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, fn(r))
	}
	return out
}
