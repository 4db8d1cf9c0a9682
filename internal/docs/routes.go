package docs

import "net/http"

// Access is the authorization policy documented for an operation.
type Access int

const (
	Anonymous Access = iota
	Authenticated
	AdminOnly
)

// Operation describes one documented endpoint.
type Operation struct {
	Method   string
	Path     string
	Tag      string
	Summary  string
	Access   Access
	Query    []string
	Request  string
	Upload   bool
	Status   int
	Response string
	// Paged marks list responses carrying pagination metadata.
	Paged bool
	// List marks {"data": [...]} responses without pagination.
	List bool
}

// Operations lists every controller route served under /api plus the
// operational endpoints.
func Operations() []Operation {
	return []Operation{
		{Method: http.MethodPost, Path: "/api/auth/register", Tag: "Auth", Summary: "Register a customer account", Request: "Register", Status: http.StatusCreated, Response: "AuthResult"},
		{Method: http.MethodPost, Path: "/api/auth/login", Tag: "Auth", Summary: "Exchange credentials for tokens", Request: "Login", Status: http.StatusOK, Response: "AuthResult"},
		{Method: http.MethodPost, Path: "/api/auth/refresh", Tag: "Auth", Summary: "Rotate a refresh token", Request: "RefreshRequest", Status: http.StatusOK, Response: "AuthResult"},
		{Method: http.MethodPost, Path: "/api/auth/logout", Tag: "Auth", Summary: "Revoke a refresh token", Request: "RefreshRequest", Status: http.StatusNoContent},
		{Method: http.MethodGet, Path: "/api/auth/me", Tag: "Auth", Summary: "Current user", Access: Authenticated, Status: http.StatusOK, Response: "User"},
		{Method: http.MethodPost, Path: "/api/auth/change-password", Tag: "Auth", Summary: "Change the current password", Access: Authenticated, Request: "ChangePassword", Status: http.StatusNoContent},

		{Method: http.MethodGet, Path: "/api/categories", Tag: "Categories", Summary: "List categories", Status: http.StatusOK, Response: "Category", List: true},
		{Method: http.MethodGet, Path: "/api/categories/{id}", Tag: "Categories", Summary: "Get a category", Status: http.StatusOK, Response: "Category"},
		{Method: http.MethodPost, Path: "/api/categories", Tag: "Categories", Summary: "Create a category", Access: AdminOnly, Request: "CategoryInput", Status: http.StatusCreated, Response: "Category"},
		{Method: http.MethodPut, Path: "/api/categories/{id}", Tag: "Categories", Summary: "Update a category", Access: AdminOnly, Request: "CategoryInput", Status: http.StatusOK, Response: "Category"},
		{Method: http.MethodDelete, Path: "/api/categories/{id}", Tag: "Categories", Summary: "Delete an unused category", Access: AdminOnly, Status: http.StatusNoContent},

		{Method: http.MethodGet, Path: "/api/products", Tag: "Products", Summary: "Search products", Query: []string{"category", "q", "minPrice", "maxPrice", "page", "limit"}, Status: http.StatusOK, Response: "Product", Paged: true},
		{Method: http.MethodGet, Path: "/api/products/{id}", Tag: "Products", Summary: "Get a product", Status: http.StatusOK, Response: "Product"},
		{Method: http.MethodPost, Path: "/api/products", Tag: "Products", Summary: "Create a product", Access: AdminOnly, Request: "ProductInput", Status: http.StatusCreated, Response: "Product"},
		{Method: http.MethodPut, Path: "/api/products/{id}", Tag: "Products", Summary: "Update a product", Access: AdminOnly, Request: "ProductInput", Status: http.StatusOK, Response: "Product"},
		{Method: http.MethodDelete, Path: "/api/products/{id}", Tag: "Products", Summary: "Delete a product", Access: AdminOnly, Status: http.StatusNoContent},
		{Method: http.MethodPost, Path: "/api/products/{id}/image", Tag: "Products", Summary: "Upload the product image", Access: AdminOnly, Request: "ImageUpload", Upload: true, Status: http.StatusOK, Response: "Product"},

		{Method: http.MethodGet, Path: "/api/cart", Tag: "Cart", Summary: "Current cart", Access: Authenticated, Status: http.StatusOK, Response: "Cart"},
		{Method: http.MethodDelete, Path: "/api/cart", Tag: "Cart", Summary: "Empty the cart", Access: Authenticated, Status: http.StatusNoContent},
		{Method: http.MethodPost, Path: "/api/cart/items", Tag: "Cart", Summary: "Add a product to the cart", Access: Authenticated, Request: "CartItemInput", Status: http.StatusOK, Response: "Cart"},
		{Method: http.MethodPut, Path: "/api/cart/items/{productId}", Tag: "Cart", Summary: "Set a line quantity", Access: Authenticated, Request: "QuantityInput", Status: http.StatusOK, Response: "Cart"},
		{Method: http.MethodDelete, Path: "/api/cart/items/{productId}", Tag: "Cart", Summary: "Remove a line", Access: Authenticated, Status: http.StatusOK, Response: "Cart"},

		{Method: http.MethodPost, Path: "/api/orders", Tag: "Orders", Summary: "Check out the cart", Access: Authenticated, Request: "Checkout", Status: http.StatusCreated, Response: "Order"},
		{Method: http.MethodGet, Path: "/api/orders", Tag: "Orders", Summary: "List my orders", Access: Authenticated, Query: []string{"page", "limit"}, Status: http.StatusOK, Response: "Order", Paged: true},
		{Method: http.MethodGet, Path: "/api/orders/{id}", Tag: "Orders", Summary: "Get an order", Access: Authenticated, Status: http.StatusOK, Response: "Order"},
		{Method: http.MethodGet, Path: "/api/orders/{id}/items", Tag: "Orders", Summary: "List order items", Access: Authenticated, Status: http.StatusOK, Response: "OrderItem", List: true},
		{Method: http.MethodPost, Path: "/api/orders/{id}/cancel", Tag: "Orders", Summary: "Cancel a pending order", Access: Authenticated, Status: http.StatusOK, Response: "Order"},
		{Method: http.MethodGet, Path: "/api/admin/orders", Tag: "Orders", Summary: "List all orders", Access: AdminOnly, Query: []string{"status", "page", "limit"}, Status: http.StatusOK, Response: "Order", Paged: true},
		{Method: http.MethodPatch, Path: "/api/admin/orders/{id}/status", Tag: "Orders", Summary: "Advance an order status", Access: AdminOnly, Request: "StatusUpdate", Status: http.StatusOK, Response: "Order"},

		{Method: http.MethodPost, Path: "/api/orders/{id}/payments", Tag: "Payments", Summary: "Pay an order", Access: Authenticated, Request: "PaymentInput", Status: http.StatusCreated, Response: "Payment"},
		{Method: http.MethodGet, Path: "/api/orders/{id}/payments", Tag: "Payments", Summary: "List order payments", Access: Authenticated, Status: http.StatusOK, Response: "Payment", List: true},
		{Method: http.MethodGet, Path: "/api/payments/{id}", Tag: "Payments", Summary: "Get a payment", Access: Authenticated, Status: http.StatusOK, Response: "Payment"},

		{Method: http.MethodGet, Path: "/api/users", Tag: "Users", Summary: "List users", Access: AdminOnly, Query: []string{"page", "limit"}, Status: http.StatusOK, Response: "User", Paged: true},
		{Method: http.MethodPut, Path: "/api/users/me", Tag: "Users", Summary: "Update my profile", Access: Authenticated, Request: "ProfileUpdate", Status: http.StatusOK, Response: "User"},
		{Method: http.MethodGet, Path: "/api/users/{id}", Tag: "Users", Summary: "Get a user", Access: AdminOnly, Status: http.StatusOK, Response: "User"},
		{Method: http.MethodDelete, Path: "/api/users/{id}", Tag: "Users", Summary: "Delete a user", Access: AdminOnly, Status: http.StatusNoContent},
		{Method: http.MethodPost, Path: "/api/users/{id}/roles", Tag: "Users", Summary: "Grant a role", Access: AdminOnly, Request: "RoleAssignment", Status: http.StatusOK, Response: "User"},
		{Method: http.MethodDelete, Path: "/api/users/{id}/roles/{role}", Tag: "Users", Summary: "Revoke a role", Access: AdminOnly, Status: http.StatusOK, Response: "User"},

		{Method: http.MethodGet, Path: "/health/live", Tag: "Operations", Summary: "Liveness check", Status: http.StatusOK},
		{Method: http.MethodGet, Path: "/health/ready", Tag: "Operations", Summary: "Readiness check", Status: http.StatusOK},
	}
}
