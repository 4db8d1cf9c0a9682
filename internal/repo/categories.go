package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-electronic/internal/db"
)

// CategoryQuerier is the subset of db.Querier used by CategoryRepository.
type CategoryQuerier interface {
	ListCategories(ctx context.Context) ([]db.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (db.Category, error)
	CreateCategory(ctx context.Context, arg db.CreateCategoryParams) (db.Category, error)
	UpdateCategory(ctx context.Context, arg db.UpdateCategoryParams) (db.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) (int64, error)
	CountProductsInCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
}

// CategoryInput carries the writable category fields.
type CategoryInput struct {
	Name        string
	Description string
}

// CategoryRepository reads and writes product categories.
type CategoryRepository struct {
	Q CategoryQuerier
}

// List returns every category ordered by name.
func (r CategoryRepository) List(ctx context.Context) ([]Category, error) {
	rows, err := r.Q.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return mapRows(rows, categoryFromRow), nil
}

// Get returns a single category.
func (r CategoryRepository) Get(ctx context.Context, id string) (Category, error) {
	cid, err := parseID(id)
	if err != nil {
		return Category{}, err
	}
	row, err := r.Q.GetCategory(ctx, cid)
	if err != nil {
		return Category{}, translate(err)
	}
	return categoryFromRow(row), nil
}

// Create inserts a category. Names are unique.
func (r CategoryRepository) Create(ctx context.Context, in CategoryInput) (Category, error) {
	row, err := r.Q.CreateCategory(ctx, db.CreateCategoryParams{Name: in.Name, Description: in.Description})
	if err != nil {
		return Category{}, translate(err)
	}
	return categoryFromRow(row), nil
}

// Update renames or re-describes a category.
func (r CategoryRepository) Update(ctx context.Context, id string, in CategoryInput) (Category, error) {
	cid, err := parseID(id)
	if err != nil {
		return Category{}, err
	}
	row, err := r.Q.UpdateCategory(ctx, db.UpdateCategoryParams{ID: cid, Name: in.Name, Description: in.Description})
	if err != nil {
		return Category{}, translate(err)
	}
	return categoryFromRow(row), nil
}

// Delete removes a category that no product references.
func (r CategoryRepository) Delete(ctx context.Context, id string) error {
	cid, err := parseID(id)
	if err != nil {
		return err
	}
	n, err := r.Q.CountProductsInCategory(ctx, cid)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrInUse
	}
	err = affected(r.Q.DeleteCategory(ctx, cid))
	if errors.Is(err, ErrInvalidReference) {
		return ErrInUse
	}
	return err
}
