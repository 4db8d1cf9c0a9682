package db

import (
	"context"

	"github.com/google/uuid"
)

// Querier lists every statement of the store schema.
type Querier interface {
	// identity
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
	GetUserByEmail(ctx context.Context, normalizedEmail string) (User, error)
	ListUsers(ctx context.Context, arg ListUsersParams) ([]User, error)
	CountUsers(ctx context.Context) (int64, error)
	UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (User, error)
	UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) (int64, error)
	DeleteUser(ctx context.Context, id uuid.UUID) (int64, error)
	UpsertRole(ctx context.Context, name string) error
	RoleExists(ctx context.Context, name string) (bool, error)
	ListUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error)
	AddUserRole(ctx context.Context, arg AddUserRoleParams) error
	RemoveUserRole(ctx context.Context, arg RemoveUserRoleParams) (int64, error)
	CreateRefreshToken(ctx context.Context, arg CreateRefreshTokenParams) (RefreshToken, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id uuid.UUID) (int64, error)
	RevokeUserRefreshTokens(ctx context.Context, userID uuid.UUID) error

	// catalog
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (Category, error)
	CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error)
	UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) (int64, error)
	CountProductsInCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
	ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error)
	CountProducts(ctx context.Context, arg ProductFilter) (int64, error)
	GetProduct(ctx context.Context, id uuid.UUID) (Product, error)
	CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error)
	UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) (int64, error)
	SetProductImage(ctx context.Context, arg SetProductImageParams) (Product, error)
	AdjustProductStock(ctx context.Context, arg AdjustProductStockParams) (Product, error)

	// cart
	EnsureCart(ctx context.Context, userID uuid.UUID) (Cart, error)
	ListCartItems(ctx context.Context, cartID uuid.UUID) ([]ListCartItemsRow, error)
	GetCartItem(ctx context.Context, arg CartItemKey) (CartItem, error)
	UpsertCartItem(ctx context.Context, arg CartItemQuantityParams) (CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, arg CartItemQuantityParams) (CartItem, error)
	DeleteCartItem(ctx context.Context, arg CartItemKey) (int64, error)
	ClearCart(ctx context.Context, cartID uuid.UUID) error

	// orders and payments
	CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error)
	ListOrdersByUser(ctx context.Context, arg ListOrdersByUserParams) ([]Order, error)
	CountOrdersByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error)
	CountOrders(ctx context.Context, status NullOrderStatus) (int64, error)
	UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error)
	CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error)
	CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (Payment, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error)
	UpdatePaymentStatus(ctx context.Context, arg UpdatePaymentStatusParams) (Payment, error)
}

var _ Querier = (*Queries)(nil)
