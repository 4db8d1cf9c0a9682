package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-electronic/internal/db"
)

// CartQuerier is the subset of db.Querier used by CartRepository.
type CartQuerier interface {
	EnsureCart(ctx context.Context, userID uuid.UUID) (db.Cart, error)
	ListCartItems(ctx context.Context, cartID uuid.UUID) ([]db.ListCartItemsRow, error)
	GetCartItem(ctx context.Context, arg db.CartItemKey) (db.CartItem, error)
	UpsertCartItem(ctx context.Context, arg db.CartItemQuantityParams) (db.CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, arg db.CartItemQuantityParams) (db.CartItem, error)
	DeleteCartItem(ctx context.Context, arg db.CartItemKey) (int64, error)
	ClearCart(ctx context.Context, cartID uuid.UUID) error
}

// CartRepository reads and writes the per-user cart.
type CartRepository struct {
	Q CartQuerier
}

func cartKey(cartID, productID string) (db.CartItemKey, error) {
	cid, err := parseID(cartID)
	if err != nil {
		return db.CartItemKey{}, err
	}
	pid, err := parseID(productID)
	if err != nil {
		return db.CartItemKey{}, err
	}
	return db.CartItemKey{CartID: cid, ProductID: pid}, nil
}

// GetOrCreate returns the user's cart, creating an empty one on first use.
func (r CartRepository) GetOrCreate(ctx context.Context, userID string) (Cart, error) {
	uid, err := parseID(userID)
	if err != nil {
		return Cart{}, err
	}
	row, err := r.Q.EnsureCart(ctx, uid)
	if err != nil {
		return Cart{}, translate(err)
	}
	return Cart{ID: row.ID.String(), UserID: row.UserID.String()}, nil
}

// Items returns the cart lines joined with current product data.
func (r CartRepository) Items(ctx context.Context, cartID string) ([]CartLine, error) {
	cid, err := parseID(cartID)
	if err != nil {
		return nil, err
	}
	rows, err := r.Q.ListCartItems(ctx, cid)
	if err != nil {
		return nil, err
	}
	return mapRows(rows, cartLineFromRow), nil
}

// Quantity returns the quantity of productID in the cart, zero when absent.
func (r CartRepository) Quantity(ctx context.Context, cartID, productID string) (int, error) {
	key, err := cartKey(cartID, productID)
	if err != nil {
		return 0, err
	}
	item, err := r.Q.GetCartItem(ctx, key)
	if db.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int(item.Quantity), nil
}

// UpsertItem adds quantity to the line, creating it when needed, and returns
// the resulting quantity.
func (r CartRepository) UpsertItem(ctx context.Context, cartID, productID string, quantity int) (int, error) {
	key, err := cartKey(cartID, productID)
	if err != nil {
		return 0, err
	}
	item, err := r.Q.UpsertCartItem(ctx, db.CartItemQuantityParams{CartID: key.CartID, ProductID: key.ProductID, Quantity: int32(quantity)})
	if err != nil {
		return 0, translate(err)
	}
	return int(item.Quantity), nil
}

// UpdateQuantity sets the quantity of an existing line.
func (r CartRepository) UpdateQuantity(ctx context.Context, cartID, productID string, quantity int) error {
	key, err := cartKey(cartID, productID)
	if err != nil {
		return err
	}
	_, err = r.Q.UpdateCartItemQuantity(ctx, db.CartItemQuantityParams{CartID: key.CartID, ProductID: key.ProductID, Quantity: int32(quantity)})
	return translate(err)
}

// RemoveItem deletes a line.
func (r CartRepository) RemoveItem(ctx context.Context, cartID, productID string) error {
	key, err := cartKey(cartID, productID)
	if err != nil {
		return err
	}
	return affected(r.Q.DeleteCartItem(ctx, key))
}

// Clear empties the cart.
func (r CartRepository) Clear(ctx context.Context, cartID string) error {
	cid, err := parseID(cartID)
	if err != nil {
		return err
	}
	return r.Q.ClearCart(ctx, cid)
}
