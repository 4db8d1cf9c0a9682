package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const categoryColumns = `id, name, description, created_at, updated_at`

func scanCategory(row interface{ Scan(...any) error }) (Category, error) {
	var i Category
	err := row.Scan(&i.ID, &i.Name, &i.Description, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const listCategories = `-- name: ListCategories :many
SELECT ` + categoryColumns + ` FROM categories ORDER BY name`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		i, err := scanCategory(rows)
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

const getCategory = `-- name: GetCategory :one
SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

func (q *Queries) GetCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, getCategory, id))
}

const createCategory = `-- name: CreateCategory :one
INSERT INTO categories (name, description) VALUES ($1, $2)
RETURNING ` + categoryColumns

type CreateCategoryParams struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, createCategory, arg.Name, arg.Description))
}

const updateCategory = `-- name: UpdateCategory :one
UPDATE categories SET name = $2, description = $3, updated_at = now()
WHERE id = $1
RETURNING ` + categoryColumns

type UpdateCategoryParams struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	return scanCategory(q.db.QueryRow(ctx, updateCategory, arg.ID, arg.Name, arg.Description))
}

const deleteCategory = `-- name: DeleteCategory :execrows
DELETE FROM categories WHERE id = $1`

func (q *Queries) DeleteCategory(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteCategory, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const countProductsInCategory = `-- name: CountProductsInCategory :one
SELECT count(*) FROM products WHERE category_id = $1`

func (q *Queries) CountProductsInCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countProductsInCategory, categoryID).Scan(&count)
	return count, err
}

const productColumns = `id, category_id, name, description, price, stock, image_url, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var i Product
	err := row.Scan(
		&i.ID,
		&i.CategoryID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.Stock,
		&i.ImageUrl,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const productFilter = `
WHERE ($1::uuid IS NULL OR category_id = $1)
  AND ($2::text IS NULL OR name ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%')
  AND ($3::bigint IS NULL OR price >= $3)
  AND ($4::bigint IS NULL OR price <= $4)`

const listProducts = `-- name: ListProducts :many
SELECT ` + productColumns + ` FROM products` + productFilter + `
ORDER BY created_at DESC, id
LIMIT $5 OFFSET $6`

type ProductFilter struct {
	CategoryID uuid.NullUUID `json:"category_id"`
	Search     pgtype.Text   `json:"search"`
	MinPrice   pgtype.Int8   `json:"min_price"`
	MaxPrice   pgtype.Int8   `json:"max_price"`
}

type ListProductsParams struct {
	ProductFilter
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts,
		arg.CategoryID,
		arg.Search,
		arg.MinPrice,
		arg.MaxPrice,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		i, err := scanProduct(rows)
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

const countProducts = `-- name: CountProducts :one
SELECT count(*) FROM products` + productFilter

func (q *Queries) CountProducts(ctx context.Context, arg ProductFilter) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countProducts, arg.CategoryID, arg.Search, arg.MinPrice, arg.MaxPrice).Scan(&count)
	return count, err
}

const getProduct = `-- name: GetProduct :one
SELECT ` + productColumns + ` FROM products WHERE id = $1`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const createProduct = `-- name: CreateProduct :one
INSERT INTO products (category_id, name, description, price, stock)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + productColumns

type CreateProductParams struct {
	CategoryID  uuid.NullUUID `json:"category_id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Price       int64         `json:"price"`
	Stock       int32         `json:"stock"`
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct, arg.CategoryID, arg.Name, arg.Description, arg.Price, arg.Stock)
	return scanProduct(row)
}

const updateProduct = `-- name: UpdateProduct :one
UPDATE products
SET category_id = $2, name = $3, description = $4, price = $5, stock = $6, updated_at = now()
WHERE id = $1
RETURNING ` + productColumns

type UpdateProductParams struct {
	ID          uuid.UUID     `json:"id"`
	CategoryID  uuid.NullUUID `json:"category_id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Price       int64         `json:"price"`
	Stock       int32         `json:"stock"`
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, updateProduct, arg.ID, arg.CategoryID, arg.Name, arg.Description, arg.Price, arg.Stock)
	return scanProduct(row)
}

const deleteProduct = `-- name: DeleteProduct :execrows
DELETE FROM products WHERE id = $1`

func (q *Queries) DeleteProduct(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteProduct, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const setProductImage = `-- name: SetProductImage :one
UPDATE products SET image_url = $2, updated_at = now()
WHERE id = $1
RETURNING ` + productColumns

type SetProductImageParams struct {
	ID       uuid.UUID   `json:"id"`
	ImageUrl pgtype.Text `json:"image_url"`
}

func (q *Queries) SetProductImage(ctx context.Context, arg SetProductImageParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, setProductImage, arg.ID, arg.ImageUrl))
}

const adjustProductStock = `-- name: AdjustProductStock :one
UPDATE products SET stock = stock + $2, updated_at = now()
WHERE id = $1 AND stock + $2 >= 0
RETURNING ` + productColumns

type AdjustProductStockParams struct {
	ID    uuid.UUID `json:"id"`
	Delta int32     `json:"delta"`
}

// AdjustProductStock returns pgx.ErrNoRows when the product is missing or
// the stock would go negative.
func (q *Queries) AdjustProductStock(ctx context.Context, arg AdjustProductStockParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, adjustProductStock, arg.ID, arg.Delta))
}
