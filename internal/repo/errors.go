package repo

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-electronic/internal/db"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness constraint was violated.
	ErrConflict = errors.New("conflict")
	// ErrInUse indicates the row is still referenced by other rows.
	ErrInUse = errors.New("in use")
	// ErrInvalidReference indicates a referenced row does not exist.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrInsufficientStock indicates a stock decrement would go below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrUnknownRole indicates the role has not been created.
	ErrUnknownRole = errors.New("unknown role")
)

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsNotFound(err):
		return ErrNotFound
	case db.HasCode(err, db.UniqueViolation):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case db.HasCode(err, db.ForeignKeyViolation):
		return fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	return err
}

// parseID treats malformed identifiers as missing rows.
func parseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, ErrNotFound
	}
	return parsed, nil
}

func affected(n int64, err error) error {
	if err != nil {
		return translate(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
