package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-electronic/internal/db"
)

// UserQuerier is the subset of db.Querier used by UserRepository.
type UserQuerier interface {
	CreateUser(ctx context.Context, arg db.CreateUserParams) (db.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (db.User, error)
	GetUserByEmail(ctx context.Context, normalizedEmail string) (db.User, error)
	ListUsers(ctx context.Context, arg db.ListUsersParams) ([]db.User, error)
	CountUsers(ctx context.Context) (int64, error)
	UpdateUserProfile(ctx context.Context, arg db.UpdateUserProfileParams) (db.User, error)
	UpdateUserPassword(ctx context.Context, arg db.UpdateUserPasswordParams) (int64, error)
	DeleteUser(ctx context.Context, id uuid.UUID) (int64, error)
	UpsertRole(ctx context.Context, name string) error
	RoleExists(ctx context.Context, name string) (bool, error)
	ListUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error)
	AddUserRole(ctx context.Context, arg db.AddUserRoleParams) error
	RemoveUserRole(ctx context.Context, arg db.RemoveUserRoleParams) (int64, error)
}

// NewUser carries the fields stored on registration.
type NewUser struct {
	Email        string
	Name         string
	PasswordHash string
}

// UserRepository stores identity records and role membership.
type UserRepository struct {
	Q UserQuerier
}

// NormalizeEmail returns the lookup form of an e-mail address.
func NormalizeEmail(email string) string {
	return strings.ToUpper(strings.TrimSpace(email))
}

// List returns one page of users ordered by creation time and the total count.
func (r UserRepository) List(ctx context.Context, limit, offset int) ([]User, int64, error) {
	total, err := r.Q.CountUsers(ctx)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.Q.ListUsers(ctx, db.ListUsersParams{Limit: int32(limit), Offset: int32(offset)})
	if err != nil {
		return nil, 0, err
	}
	return mapRows(rows, userFromRow), total, nil
}

// GetByID returns a user by identifier.
func (r UserRepository) GetByID(ctx context.Context, id string) (User, error) {
	uid, err := parseID(id)
	if err != nil {
		return User{}, err
	}
	row, err := r.Q.GetUserByID(ctx, uid)
	if err != nil {
		return User{}, translate(err)
	}
	return userFromRow(row), nil
}

// GetByEmail returns a user by e-mail, ignoring case.
func (r UserRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	row, err := r.Q.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return User{}, translate(err)
	}
	return userFromRow(row), nil
}

// Create inserts a user. A duplicate e-mail yields ErrConflict.
func (r UserRepository) Create(ctx context.Context, in NewUser) (User, error) {
	row, err := r.Q.CreateUser(ctx, db.CreateUserParams{
		Email:           strings.TrimSpace(in.Email),
		NormalizedEmail: NormalizeEmail(in.Email),
		Name:            in.Name,
		PasswordHash:    in.PasswordHash,
	})
	if err != nil {
		return User{}, translate(err)
	}
	return userFromRow(row), nil
}

// UpdateProfile changes the display name.
func (r UserRepository) UpdateProfile(ctx context.Context, id, name string) (User, error) {
	uid, err := parseID(id)
	if err != nil {
		return User{}, err
	}
	row, err := r.Q.UpdateUserProfile(ctx, db.UpdateUserProfileParams{ID: uid, Name: name})
	if err != nil {
		return User{}, translate(err)
	}
	return userFromRow(row), nil
}

// UpdatePassword stores a new password hash.
func (r UserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	return affected(r.Q.UpdateUserPassword(ctx, db.UpdateUserPasswordParams{ID: uid, PasswordHash: hash}))
}

// Delete removes a user without orders.
func (r UserRepository) Delete(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	err = affected(r.Q.DeleteUser(ctx, uid))
	if errors.Is(err, ErrInvalidReference) {
		return ErrInUse
	}
	return err
}

// EnsureRole creates the role if it does not exist.
func (r UserRepository) EnsureRole(ctx context.Context, role string) error {
	return r.Q.UpsertRole(ctx, role)
}

// Roles lists the roles held by the user.
func (r UserRepository) Roles(ctx context.Context, id string) ([]string, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return r.Q.ListUserRoles(ctx, uid)
}

// AddToRole grants role to the user. Adding a held role is a no-op.
func (r UserRepository) AddToRole(ctx context.Context, id, role string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	ok, err := r.Q.RoleExists(ctx, role)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownRole
	}
	if err := r.Q.AddUserRole(ctx, db.AddUserRoleParams{UserID: uid, Role: role}); err != nil {
		err = translate(err)
		if errors.Is(err, ErrInvalidReference) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// RemoveFromRole revokes role from the user.
func (r UserRepository) RemoveFromRole(ctx context.Context, id, role string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	return affected(r.Q.RemoveUserRole(ctx, db.RemoveUserRoleParams{UserID: uid, Role: role}))
}
