package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-electronic/internal/db"
)

// ProductQuerier is the subset of db.Querier used by ProductRepository.
type ProductQuerier interface {
	ListProducts(ctx context.Context, arg db.ListProductsParams) ([]db.Product, error)
	CountProducts(ctx context.Context, arg db.ProductFilter) (int64, error)
	GetProduct(ctx context.Context, id uuid.UUID) (db.Product, error)
	CreateProduct(ctx context.Context, arg db.CreateProductParams) (db.Product, error)
	UpdateProduct(ctx context.Context, arg db.UpdateProductParams) (db.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) (int64, error)
	SetProductImage(ctx context.Context, arg db.SetProductImageParams) (db.Product, error)
	AdjustProductStock(ctx context.Context, arg db.AdjustProductStockParams) (db.Product, error)
}

// ProductQuery filters product listings. Zero values disable a filter.
type ProductQuery struct {
	CategoryID string
	Search     string
	MinPrice   *int64
	MaxPrice   *int64
	Limit      int
	Offset     int
}

// ProductInput carries the writable product fields.
type ProductInput struct {
	CategoryID  string
	Name        string
	Description string
	Price       int64
	Stock       int
}

// ProductRepository reads and writes catalog products.
type ProductRepository struct {
	Q ProductQuerier
}

func (q ProductQuery) filter() (db.ProductFilter, error) {
	var f db.ProductFilter
	if q.CategoryID != "" {
		id, err := uuid.Parse(q.CategoryID)
		if err != nil {
			return f, ErrInvalidReference
		}
		f.CategoryID = uuid.NullUUID{UUID: id, Valid: true}
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		f.Search = pgtype.Text{String: s, Valid: true}
	}
	if q.MinPrice != nil {
		f.MinPrice = pgtype.Int8{Int64: *q.MinPrice, Valid: true}
	}
	if q.MaxPrice != nil {
		f.MaxPrice = pgtype.Int8{Int64: *q.MaxPrice, Valid: true}
	}
	return f, nil
}

func categoryRef(id string) (uuid.NullUUID, error) {
	if id == "" {
		return uuid.NullUUID{}, nil
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.NullUUID{}, ErrInvalidReference
	}
	return uuid.NullUUID{UUID: parsed, Valid: true}, nil
}

// List returns one page of products matching q and the total match count.
func (r ProductRepository) List(ctx context.Context, q ProductQuery) ([]Product, int64, error) {
	filter, err := q.filter()
	if err != nil {
		return nil, 0, err
	}
	total, err := r.Q.CountProducts(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.Q.ListProducts(ctx, db.ListProductsParams{
		ProductFilter: filter,
		Limit:         int32(q.Limit),
		Offset:        int32(q.Offset),
	})
	if err != nil {
		return nil, 0, err
	}
	return mapRows(rows, productFromRow), total, nil
}

// Get returns a single product.
func (r ProductRepository) Get(ctx context.Context, id string) (Product, error) {
	pid, err := parseID(id)
	if err != nil {
		return Product{}, err
	}
	row, err := r.Q.GetProduct(ctx, pid)
	if err != nil {
		return Product{}, translate(err)
	}
	return productFromRow(row), nil
}

// Create inserts a product.
func (r ProductRepository) Create(ctx context.Context, in ProductInput) (Product, error) {
	cat, err := categoryRef(in.CategoryID)
	if err != nil {
		return Product{}, err
	}
	row, err := r.Q.CreateProduct(ctx, db.CreateProductParams{
		CategoryID:  cat,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       int32(in.Stock),
	})
	if err != nil {
		return Product{}, translate(err)
	}
	return productFromRow(row), nil
}

// Update replaces the writable fields of a product.
func (r ProductRepository) Update(ctx context.Context, id string, in ProductInput) (Product, error) {
	pid, err := parseID(id)
	if err != nil {
		return Product{}, err
	}
	cat, err := categoryRef(in.CategoryID)
	if err != nil {
		return Product{}, err
	}
	row, err := r.Q.UpdateProduct(ctx, db.UpdateProductParams{
		ID:          pid,
		CategoryID:  cat,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       int32(in.Stock),
	})
	if err != nil {
		return Product{}, translate(err)
	}
	return productFromRow(row), nil
}

// Delete removes a product. Products referenced by placed orders are kept.
func (r ProductRepository) Delete(ctx context.Context, id string) error {
	pid, err := parseID(id)
	if err != nil {
		return err
	}
	err = affected(r.Q.DeleteProduct(ctx, pid))
	if errors.Is(err, ErrInvalidReference) {
		return ErrInUse
	}
	return err
}

// SetImage records the public URL of the product image. An empty url clears it.
func (r ProductRepository) SetImage(ctx context.Context, id, url string) (Product, error) {
	pid, err := parseID(id)
	if err != nil {
		return Product{}, err
	}
	row, err := r.Q.SetProductImage(ctx, db.SetProductImageParams{
		ID:       pid,
		ImageUrl: pgtype.Text{String: url, Valid: url != ""},
	})
	if err != nil {
		return Product{}, translate(err)
	}
	return productFromRow(row), nil
}

// AdjustStock adds delta to the product stock, refusing to go below zero.
func (r ProductRepository) AdjustStock(ctx context.Context, id string, delta int) (Product, error) {
	pid, err := parseID(id)
	if err != nil {
		return Product{}, err
	}
	row, err := r.Q.AdjustProductStock(ctx, db.AdjustProductStockParams{ID: pid, Delta: int32(delta)})
	if err == nil {
		return productFromRow(row), nil
	}
	if !db.IsNotFound(err) {
		return Product{}, err
	}
	if _, getErr := r.Q.GetProduct(ctx, pid); getErr != nil {
		return Product{}, translate(getErr)
	}
	return Product{}, ErrInsufficientStock
}
