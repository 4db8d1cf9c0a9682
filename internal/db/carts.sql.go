package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const ensureCart = `-- name: EnsureCart :one
INSERT INTO carts (user_id) VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET updated_at = carts.updated_at
RETURNING id, user_id, created_at, updated_at`

// EnsureCart returns the user's cart, creating it on first use.
func (q *Queries) EnsureCart(ctx context.Context, userID uuid.UUID) (Cart, error) {
	var i Cart
	err := q.db.QueryRow(ctx, ensureCart, userID).Scan(&i.ID, &i.UserID, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const listCartItems = `-- name: ListCartItems :many
SELECT ci.cart_id, ci.product_id, ci.quantity, ci.added_at,
       p.name, p.price, p.stock, p.image_url
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = $1
ORDER BY ci.added_at, ci.product_id`

type ListCartItemsRow struct {
	CartID    uuid.UUID   `json:"cart_id"`
	ProductID uuid.UUID   `json:"product_id"`
	Quantity  int32       `json:"quantity"`
	AddedAt   time.Time   `json:"added_at"`
	Name      string      `json:"name"`
	Price     int64       `json:"price"`
	Stock     int32       `json:"stock"`
	ImageUrl  pgtype.Text `json:"image_url"`
}

func (q *Queries) ListCartItems(ctx context.Context, cartID uuid.UUID) ([]ListCartItemsRow, error) {
	rows, err := q.db.Query(ctx, listCartItems, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListCartItemsRow
	for rows.Next() {
		var i ListCartItemsRow
		if err := rows.Scan(
			&i.CartID,
			&i.ProductID,
			&i.Quantity,
			&i.AddedAt,
			&i.Name,
			&i.Price,
			&i.Stock,
			&i.ImageUrl,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const cartItemColumns = `cart_id, product_id, quantity, added_at`

func scanCartItem(row interface{ Scan(...any) error }) (CartItem, error) {
	var i CartItem
	err := row.Scan(&i.CartID, &i.ProductID, &i.Quantity, &i.AddedAt)
	return i, err
}

const getCartItem = `-- name: GetCartItem :one
SELECT ` + cartItemColumns + ` FROM cart_items WHERE cart_id = $1 AND product_id = $2`

type CartItemKey struct {
	CartID    uuid.UUID `json:"cart_id"`
	ProductID uuid.UUID `json:"product_id"`
}

func (q *Queries) GetCartItem(ctx context.Context, arg CartItemKey) (CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx, getCartItem, arg.CartID, arg.ProductID))
}

const upsertCartItem = `-- name: UpsertCartItem :one
INSERT INTO cart_items (cart_id, product_id, quantity) VALUES ($1, $2, $3)
ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
RETURNING ` + cartItemColumns

type CartItemQuantityParams struct {
	CartID    uuid.UUID `json:"cart_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int32     `json:"quantity"`
}

// UpsertCartItem adds Quantity to the line, creating it if needed.
func (q *Queries) UpsertCartItem(ctx context.Context, arg CartItemQuantityParams) (CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx, upsertCartItem, arg.CartID, arg.ProductID, arg.Quantity))
}

const updateCartItemQuantity = `-- name: UpdateCartItemQuantity :one
UPDATE cart_items SET quantity = $3
WHERE cart_id = $1 AND product_id = $2
RETURNING ` + cartItemColumns

func (q *Queries) UpdateCartItemQuantity(ctx context.Context, arg CartItemQuantityParams) (CartItem, error) {
	return scanCartItem(q.db.QueryRow(ctx, updateCartItemQuantity, arg.CartID, arg.ProductID, arg.Quantity))
}

const deleteCartItem = `-- name: DeleteCartItem :execrows
DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`

func (q *Queries) DeleteCartItem(ctx context.Context, arg CartItemKey) (int64, error) {
	result, err := q.db.Exec(ctx, deleteCartItem, arg.CartID, arg.ProductID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const clearCart = `-- name: ClearCart :exec
DELETE FROM cart_items WHERE cart_id = $1`

func (q *Queries) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	_, err := q.db.Exec(ctx, clearCart, cartID)
	return err
}
