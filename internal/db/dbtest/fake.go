// Package dbtest provides an in-memory db.Querier for tests that do not
// need Postgres.
package dbtest

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-electronic/internal/db"
)

type state struct {
	users      map[uuid.UUID]db.User
	roles      map[string]bool
	userRoles  map[uuid.UUID]map[string]bool
	refresh    map[uuid.UUID]db.RefreshToken
	categories map[uuid.UUID]db.Category
	products   map[uuid.UUID]db.Product
	carts      map[uuid.UUID]db.Cart
	cartItems  map[db.CartItemKey]db.CartItem
	orders     map[uuid.UUID]db.Order
	orderItems map[uuid.UUID]db.OrderItem
	payments   map[uuid.UUID]db.Payment
}

func (s state) clone() state {
	userRoles := make(map[uuid.UUID]map[string]bool, len(s.userRoles))
	for k, v := range s.userRoles {
		userRoles[k] = maps.Clone(v)
	}
	return state{
		users:      maps.Clone(s.users),
		roles:      maps.Clone(s.roles),
		userRoles:  userRoles,
		refresh:    maps.Clone(s.refresh),
		categories: maps.Clone(s.categories),
		products:   maps.Clone(s.products),
		carts:      maps.Clone(s.carts),
		cartItems:  maps.Clone(s.cartItems),
		orders:     maps.Clone(s.orders),
		orderItems: maps.Clone(s.orderItems),
		payments:   maps.Clone(s.payments),
	}
}

// Fake is an in-memory implementation of db.Querier and db.TxRunner.
// InTx snapshots the state and restores it when fn fails.
type Fake struct {
	mu    sync.Mutex
	txMu  sync.Mutex
	s     state
	clock time.Time
}

var (
	_ db.Querier  = (*Fake)(nil)
	_ db.TxRunner = (*Fake)(nil)
)

// New returns an empty fake seeded with the Admin and Customer roles.
func New() *Fake {
	return &Fake{
		s: state{
			users:      map[uuid.UUID]db.User{},
			roles:      map[string]bool{"Admin": true, "Customer": true},
			userRoles:  map[uuid.UUID]map[string]bool{},
			refresh:    map[uuid.UUID]db.RefreshToken{},
			categories: map[uuid.UUID]db.Category{},
			products:   map[uuid.UUID]db.Product{},
			carts:      map[uuid.UUID]db.Cart{},
			cartItems:  map[db.CartItemKey]db.CartItem{},
			orders:     map[uuid.UUID]db.Order{},
			orderItems: map[uuid.UUID]db.OrderItem{},
			payments:   map[uuid.UUID]db.Payment{},
		},
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// now returns a strictly increasing timestamp so ordering is deterministic.
func (f *Fake) now() time.Time {
	f.clock = f.clock.Add(time.Millisecond)
	return f.clock
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: db.UniqueViolation, ConstraintName: constraint}
}

func fkViolation(constraint string) error {
	return &pgconn.PgError{Code: db.ForeignKeyViolation, ConstraintName: constraint}
}

// InTx implements db.TxRunner. Transactions are serialised.
func (f *Fake) InTx(ctx context.Context, fn func(db.Querier) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()
	f.mu.Lock()
	snapshot := f.s.clone()
	f.mu.Unlock()
	if err := fn(f); err != nil {
		f.mu.Lock()
		f.s = snapshot
		f.mu.Unlock()
		return err
	}
	return ctx.Err()
}

func page[T any](items []T, limit, offset int32) []T {
	if offset >= int32(len(items)) {
		return nil
	}
	end := int(offset) + int(limit)
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// identity

func (f *Fake) CreateUser(_ context.Context, arg db.CreateUserParams) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.s.users {
		if u.NormalizedEmail == arg.NormalizedEmail {
			return db.User{}, uniqueViolation("users_normalized_email_key")
		}
	}
	now := f.now()
	u := db.User{
		ID:              uuid.New(),
		Email:           arg.Email,
		NormalizedEmail: arg.NormalizedEmail,
		Name:            arg.Name,
		PasswordHash:    arg.PasswordHash,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	f.s.users[u.ID] = u
	return u, nil
}

func (f *Fake) GetUserByID(_ context.Context, id uuid.UUID) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.s.users[id]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *Fake) GetUserByEmail(_ context.Context, normalizedEmail string) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.s.users {
		if u.NormalizedEmail == normalizedEmail {
			return u, nil
		}
	}
	return db.User{}, pgx.ErrNoRows
}

func (f *Fake) ListUsers(_ context.Context, arg db.ListUsersParams) ([]db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := slices.Collect(maps.Values(f.s.users))
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return page(users, arg.Limit, arg.Offset), nil
}

func (f *Fake) CountUsers(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.s.users)), nil
}

func (f *Fake) UpdateUserProfile(_ context.Context, arg db.UpdateUserProfileParams) (db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.s.users[arg.ID]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	u.Name = arg.Name
	u.UpdatedAt = f.now()
	f.s.users[u.ID] = u
	return u, nil
}

func (f *Fake) UpdateUserPassword(_ context.Context, arg db.UpdateUserPasswordParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.s.users[arg.ID]
	if !ok {
		return 0, nil
	}
	u.PasswordHash = arg.PasswordHash
	u.UpdatedAt = f.now()
	f.s.users[u.ID] = u
	return 1, nil
}

func (f *Fake) DeleteUser(_ context.Context, id uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.s.users[id]; !ok {
		return 0, nil
	}
	for _, o := range f.s.orders {
		if o.UserID == id {
			return 0, fkViolation("orders_user_id_fkey")
		}
	}
	delete(f.s.users, id)
	delete(f.s.userRoles, id)
	for k, rt := range f.s.refresh {
		if rt.UserID == id {
			delete(f.s.refresh, k)
		}
	}
	return 1, nil
}

func (f *Fake) UpsertRole(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.roles[name] = true
	return nil
}

func (f *Fake) RoleExists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s.roles[name], nil
}

func (f *Fake) ListUserRoles(_ context.Context, userID uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	roles := slices.Collect(maps.Keys(f.s.userRoles[userID]))
	sort.Strings(roles)
	return roles, nil
}

func (f *Fake) AddUserRole(_ context.Context, arg db.AddUserRoleParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.s.users[arg.UserID]; !ok {
		return fkViolation("user_roles_user_id_fkey")
	}
	if !f.s.roles[arg.Role] {
		return fkViolation("user_roles_role_fkey")
	}
	if f.s.userRoles[arg.UserID] == nil {
		f.s.userRoles[arg.UserID] = map[string]bool{}
	}
	f.s.userRoles[arg.UserID][arg.Role] = true
	return nil
}

func (f *Fake) RemoveUserRole(_ context.Context, arg db.RemoveUserRoleParams) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.s.userRoles[arg.UserID][arg.Role] {
		return 0, nil
	}
	delete(f.s.userRoles[arg.UserID], arg.Role)
	return 1, nil
}

func (f *Fake) CreateRefreshToken(_ context.Context, arg db.CreateRefreshTokenParams) (db.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rt := range f.s.refresh {
		if rt.TokenHash == arg.TokenHash {
			return db.RefreshToken{}, uniqueViolation("refresh_tokens_token_hash_key")
		}
	}
	rt := db.RefreshToken{
		ID:        uuid.New(),
		UserID:    arg.UserID,
		TokenHash: arg.TokenHash,
		ExpiresAt: arg.ExpiresAt,
		CreatedAt: f.now(),
	}
	f.s.refresh[rt.ID] = rt
	return rt, nil
}

func (f *Fake) GetRefreshTokenByHash(_ context.Context, tokenHash string) (db.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rt := range f.s.refresh {
		if rt.TokenHash == tokenHash {
			return rt, nil
		}
	}
	return db.RefreshToken{}, pgx.ErrNoRows
}

func (f *Fake) RevokeRefreshToken(_ context.Context, id uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt, ok := f.s.refresh[id]
	if !ok || rt.RevokedAt.Valid {
		return 0, nil
	}
	rt.RevokedAt = pgtype.Timestamptz{Time: f.now(), Valid: true}
	f.s.refresh[id] = rt
	return 1, nil
}

func (f *Fake) RevokeUserRefreshTokens(_ context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, rt := range f.s.refresh {
		if rt.UserID == userID && !rt.RevokedAt.Valid {
			rt.RevokedAt = pgtype.Timestamptz{Time: f.now(), Valid: true}
			f.s.refresh[id] = rt
		}
	}
	return nil
}

// catalog

func (f *Fake) ListCategories(context.Context) ([]db.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := slices.Collect(maps.Values(f.s.categories))
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *Fake) GetCategory(_ context.Context, id uuid.UUID) (db.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.s.categories[id]
	if !ok {
		return db.Category{}, pgx.ErrNoRows
	}
	return c, nil
}

func (f *Fake) categoryNameTaken(name string, except uuid.UUID) bool {
	for _, c := range f.s.categories {
		if c.Name == name && c.ID != except {
			return true
		}
	}
	return false
}

func (f *Fake) CreateCategory(_ context.Context, arg db.CreateCategoryParams) (db.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.categoryNameTaken(arg.Name, uuid.Nil) {
		return db.Category{}, uniqueViolation("categories_name_key")
	}
	now := f.now()
	c := db.Category{ID: uuid.New(), Name: arg.Name, Description: arg.Description, CreatedAt: now, UpdatedAt: now}
	f.s.categories[c.ID] = c
	return c, nil
}

func (f *Fake) UpdateCategory(_ context.Context, arg db.UpdateCategoryParams) (db.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.s.categories[arg.ID]
	if !ok {
		return db.Category{}, pgx.ErrNoRows
	}
	if f.categoryNameTaken(arg.Name, arg.ID) {
		return db.Category{}, uniqueViolation("categories_name_key")
	}
	c.Name, c.Description, c.UpdatedAt = arg.Name, arg.Description, f.now()
	f.s.categories[c.ID] = c
	return c, nil
}

func (f *Fake) DeleteCategory(_ context.Context, id uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.s.categories[id]; !ok {
		return 0, nil
	}
	for _, p := range f.s.products {
		if p.CategoryID.Valid && p.CategoryID.UUID == id {
			return 0, fkViolation("products_category_id_fkey")
		}
	}
	delete(f.s.categories, id)
	return 1, nil
}

func (f *Fake) CountProductsInCategory(_ context.Context, categoryID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.s.products {
		if p.CategoryID.Valid && p.CategoryID.UUID == categoryID {
			n++
		}
	}
	return n, nil
}

func matchProduct(p db.Product, filter db.ProductFilter) bool {
	if filter.CategoryID.Valid && (!p.CategoryID.Valid || p.CategoryID.UUID != filter.CategoryID.UUID) {
		return false
	}
	if filter.Search.Valid {
		needle := strings.ToLower(filter.Search.String)
		if !strings.Contains(strings.ToLower(p.Name), needle) && !strings.Contains(strings.ToLower(p.Description), needle) {
			return false
		}
	}
	if filter.MinPrice.Valid && p.Price < filter.MinPrice.Int64 {
		return false
	}
	if filter.MaxPrice.Valid && p.Price > filter.MaxPrice.Int64 {
		return false
	}
	return true
}

func (f *Fake) filterProducts(filter db.ProductFilter) []db.Product {
	var out []db.Product
	for _, p := range f.s.products {
		if matchProduct(p, filter) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *Fake) ListProducts(_ context.Context, arg db.ListProductsParams) ([]db.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return page(f.filterProducts(arg.ProductFilter), arg.Limit, arg.Offset), nil
}

func (f *Fake) CountProducts(_ context.Context, arg db.ProductFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.filterProducts(arg))), nil
}

func (f *Fake) GetProduct(_ context.Context, id uuid.UUID) (db.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.s.products[id]
	if !ok {
		return db.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *Fake) checkCategory(id uuid.NullUUID) error {
	if !id.Valid {
		return nil
	}
	if _, ok := f.s.categories[id.UUID]; !ok {
		return fkViolation("products_category_id_fkey")
	}
	return nil
}

func (f *Fake) CreateProduct(_ context.Context, arg db.CreateProductParams) (db.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkCategory(arg.CategoryID); err != nil {
		return db.Product{}, err
	}
	now := f.now()
	p := db.Product{
		ID:          uuid.New(),
		CategoryID:  arg.CategoryID,
		Name:        arg.Name,
		Description: arg.Description,
		Price:       arg.Price,
		Stock:       arg.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.s.products[p.ID] = p
	return p, nil
}

func (f *Fake) UpdateProduct(_ context.Context, arg db.UpdateProductParams) (db.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.s.products[arg.ID]
	if !ok {
		return db.Product{}, pgx.ErrNoRows
	}
	if err := f.checkCategory(arg.CategoryID); err != nil {
		return db.Product{}, err
	}
	p.CategoryID, p.Name, p.Description = arg.CategoryID, arg.Name, arg.Description
	p.Price, p.Stock, p.UpdatedAt = arg.Price, arg.Stock, f.now()
	f.s.products[p.ID] = p
	return p, nil
}

func (f *Fake) DeleteProduct(_ context.Context, id uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.s.products[id]; !ok {
		return 0, nil
	}
	for _, it := range f.s.orderItems {
		if it.ProductID == id {
			return 0, fkViolation("order_items_product_id_fkey")
		}
	}
	delete(f.s.products, id)
	for k := range f.s.cartItems {
		if k.ProductID == id {
			delete(f.s.cartItems, k)
		}
	}
	return 1, nil
}

func (f *Fake) SetProductImage(_ context.Context, arg db.SetProductImageParams) (db.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.s.products[arg.ID]
	if !ok {
		return db.Product{}, pgx.ErrNoRows
	}
	p.ImageUrl, p.UpdatedAt = arg.ImageUrl, f.now()
	f.s.products[p.ID] = p
	return p, nil
}

func (f *Fake) AdjustProductStock(_ context.Context, arg db.AdjustProductStockParams) (db.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.s.products[arg.ID]
	if !ok || p.Stock+arg.Delta < 0 {
		return db.Product{}, pgx.ErrNoRows
	}
	p.Stock += arg.Delta
	p.UpdatedAt = f.now()
	f.s.products[p.ID] = p
	return p, nil
}

// cart

func (f *Fake) EnsureCart(_ context.Context, userID uuid.UUID) (db.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.s.carts {
		if c.UserID == userID {
			return c, nil
		}
	}
	if _, ok := f.s.users[userID]; !ok {
		return db.Cart{}, fkViolation("carts_user_id_fkey")
	}
	now := f.now()
	c := db.Cart{ID: uuid.New(), UserID: userID, CreatedAt: now, UpdatedAt: now}
	f.s.carts[c.ID] = c
	return c, nil
}

func (f *Fake) ListCartItems(_ context.Context, cartID uuid.UUID) ([]db.ListCartItemsRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.ListCartItemsRow
	for k, it := range f.s.cartItems {
		if k.CartID != cartID {
			continue
		}
		p := f.s.products[k.ProductID]
		out = append(out, db.ListCartItemsRow{
			CartID:    it.CartID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			AddedAt:   it.AddedAt,
			Name:      p.Name,
			Price:     p.Price,
			Stock:     p.Stock,
			ImageUrl:  p.ImageUrl,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddedAt.Before(out[j].AddedAt) })
	return out, nil
}

func (f *Fake) GetCartItem(_ context.Context, arg db.CartItemKey) (db.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.s.cartItems[arg]
	if !ok {
		return db.CartItem{}, pgx.ErrNoRows
	}
	return it, nil
}

func (f *Fake) UpsertCartItem(_ context.Context, arg db.CartItemQuantityParams) (db.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.s.products[arg.ProductID]; !ok {
		return db.CartItem{}, fkViolation("cart_items_product_id_fkey")
	}
	key := db.CartItemKey{CartID: arg.CartID, ProductID: arg.ProductID}
	it, ok := f.s.cartItems[key]
	if !ok {
		it = db.CartItem{CartID: arg.CartID, ProductID: arg.ProductID, AddedAt: f.now()}
	}
	it.Quantity += arg.Quantity
	f.s.cartItems[key] = it
	return it, nil
}

func (f *Fake) UpdateCartItemQuantity(_ context.Context, arg db.CartItemQuantityParams) (db.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := db.CartItemKey{CartID: arg.CartID, ProductID: arg.ProductID}
	it, ok := f.s.cartItems[key]
	if !ok {
		return db.CartItem{}, pgx.ErrNoRows
	}
	it.Quantity = arg.Quantity
	f.s.cartItems[key] = it
	return it, nil
}

func (f *Fake) DeleteCartItem(_ context.Context, arg db.CartItemKey) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.s.cartItems[arg]; !ok {
		return 0, nil
	}
	delete(f.s.cartItems, arg)
	return 1, nil
}

func (f *Fake) ClearCart(_ context.Context, cartID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.s.cartItems {
		if k.CartID == cartID {
			delete(f.s.cartItems, k)
		}
	}
	return nil
}

// orders and payments

func (f *Fake) CreateOrder(_ context.Context, arg db.CreateOrderParams) (db.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.s.users[arg.UserID]; !ok {
		return db.Order{}, fkViolation("orders_user_id_fkey")
	}
	now := f.now()
	o := db.Order{
		ID:              uuid.New(),
		UserID:          arg.UserID,
		Status:          arg.Status,
		Total:           arg.Total,
		ShippingAddress: arg.ShippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	f.s.orders[o.ID] = o
	return o, nil
}

func (f *Fake) GetOrder(_ context.Context, id uuid.UUID) (db.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.s.orders[id]
	if !ok {
		return db.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (f *Fake) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (db.Order, error) {
	return f.GetOrder(ctx, id)
}

func (f *Fake) sortedOrders(keep func(db.Order) bool) []db.Order {
	var out []db.Order
	for _, o := range f.s.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *Fake) ListOrdersByUser(_ context.Context, arg db.ListOrdersByUserParams) ([]db.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.sortedOrders(func(o db.Order) bool { return o.UserID == arg.UserID })
	return page(out, arg.Limit, arg.Offset), nil
}

func (f *Fake) CountOrdersByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.sortedOrders(func(o db.Order) bool { return o.UserID == userID }))), nil
}

func statusFilter(status db.NullOrderStatus) func(db.Order) bool {
	return func(o db.Order) bool { return !status.Valid || o.Status == status.OrderStatus }
}

func (f *Fake) ListOrders(_ context.Context, arg db.ListOrdersParams) ([]db.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return page(f.sortedOrders(statusFilter(arg.Status)), arg.Limit, arg.Offset), nil
}

func (f *Fake) CountOrders(_ context.Context, status db.NullOrderStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.sortedOrders(statusFilter(status)))), nil
}

func (f *Fake) UpdateOrderStatus(_ context.Context, arg db.UpdateOrderStatusParams) (db.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.s.orders[arg.ID]
	if !ok {
		return db.Order{}, pgx.ErrNoRows
	}
	o.Status, o.UpdatedAt = arg.Status, f.now()
	f.s.orders[o.ID] = o
	return o, nil
}

func (f *Fake) CreateOrderItem(_ context.Context, arg db.CreateOrderItemParams) (db.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.s.orders[arg.OrderID]; !ok {
		return db.OrderItem{}, fkViolation("order_items_order_id_fkey")
	}
	it := db.OrderItem{
		ID:          uuid.New(),
		OrderID:     arg.OrderID,
		ProductID:   arg.ProductID,
		ProductName: arg.ProductName,
		UnitPrice:   arg.UnitPrice,
		Quantity:    arg.Quantity,
	}
	f.s.orderItems[it.ID] = it
	return it, nil
}

func (f *Fake) ListOrderItems(_ context.Context, orderID uuid.UUID) ([]db.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.OrderItem
	for _, it := range f.s.orderItems {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductName < out[j].ProductName })
	return out, nil
}

func (f *Fake) CreatePayment(_ context.Context, arg db.CreatePaymentParams) (db.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.s.orders[arg.OrderID]; !ok {
		return db.Payment{}, fkViolation("payments_order_id_fkey")
	}
	for _, p := range f.s.payments {
		if p.Reference == arg.Reference {
			return db.Payment{}, uniqueViolation("payments_reference_key")
		}
	}
	now := f.now()
	p := db.Payment{
		ID:        uuid.New(),
		OrderID:   arg.OrderID,
		Amount:    arg.Amount,
		Method:    arg.Method,
		Status:    arg.Status,
		Reference: arg.Reference,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.s.payments[p.ID] = p
	return p, nil
}

func (f *Fake) GetPayment(_ context.Context, id uuid.UUID) (db.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.s.payments[id]
	if !ok {
		return db.Payment{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *Fake) ListPaymentsByOrder(_ context.Context, orderID uuid.UUID) ([]db.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.Payment
	for _, p := range f.s.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *Fake) UpdatePaymentStatus(_ context.Context, arg db.UpdatePaymentStatusParams) (db.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.s.payments[arg.ID]
	if !ok {
		return db.Payment{}, pgx.ErrNoRows
	}
	p.Status, p.UpdatedAt = arg.Status, f.now()
	f.s.payments[p.ID] = p
	return p, nil
}
