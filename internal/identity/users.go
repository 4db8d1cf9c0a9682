package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/alexedwards/argon2id"

	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/repo"
)

// UserStore is the persistence used by UserManager.
type UserStore interface {
	GetByID(ctx context.Context, id string) (repo.User, error)
	GetByEmail(ctx context.Context, email string) (repo.User, error)
	Create(ctx context.Context, in repo.NewUser) (repo.User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
	Roles(ctx context.Context, id string) ([]string, error)
	AddToRole(ctx context.Context, id, role string) error
	RemoveFromRole(ctx context.Context, id, role string) error
}

// ErrEmailTaken is returned when registering an e-mail already in use.
var ErrEmailTaken = common.Conflict("EMAIL_ALREADY_USED", "email is already registered")

// UserManager creates users and verifies their credentials.
type UserManager struct {
	Store  UserStore
	Policy Policy
	// Params overrides the argon2id cost; nil uses argon2id.DefaultParams.
	Params *argon2id.Params
}

func (m UserManager) hash(password string) (string, error) {
	params := m.Params
	if params == nil {
		params = argon2id.DefaultParams
	}
	hash, err := argon2id.CreateHash(password, params)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// Create validates the password, stores the user and grants roles.
func (m UserManager) Create(ctx context.Context, email, name, password string, roles ...string) (repo.User, error) {
	if err := m.Policy.Check(password); err != nil {
		return repo.User{}, err
	}
	hash, err := m.hash(password)
	if err != nil {
		return repo.User{}, err
	}
	user, err := m.Store.Create(ctx, repo.NewUser{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
	})
	if errors.Is(err, repo.ErrConflict) {
		return repo.User{}, ErrEmailTaken
	}
	if err != nil {
		return repo.User{}, fmt.Errorf("create user: %w", err)
	}
	for _, role := range roles {
		if err := m.Store.AddToRole(ctx, user.ID, role); err != nil {
			return repo.User{}, fmt.Errorf("add role %s: %w", role, err)
		}
	}
	return user, nil
}

// CheckPassword reports whether password matches the stored hash.
func (m UserManager) CheckPassword(user repo.User, password string) bool {
	if user.PasswordHash == "" || password == "" {
		return false
	}
	ok, err := argon2id.ComparePasswordAndHash(password, user.PasswordHash)
	return err == nil && ok
}

// FindByEmail looks a user up by e-mail, ignoring case.
func (m UserManager) FindByEmail(ctx context.Context, email string) (repo.User, error) {
	user, err := m.Store.GetByEmail(ctx, email)
	return user, repo.AppError(err, "user")
}

// FindByID looks a user up by identifier.
func (m UserManager) FindByID(ctx context.Context, id string) (repo.User, error) {
	user, err := m.Store.GetByID(ctx, id)
	return user, repo.AppError(err, "user")
}

// ChangePassword replaces the password after verifying the current one.
func (m UserManager) ChangePassword(ctx context.Context, id, current, next string) error {
	user, err := m.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !m.CheckPassword(user, current) {
		return common.NewAppError("INVALID_CREDENTIALS", "current password is incorrect", http.StatusBadRequest, nil)
	}
	if err := m.Policy.Check(next); err != nil {
		return err
	}
	hash, err := m.hash(next)
	if err != nil {
		return err
	}
	return repo.AppError(m.Store.UpdatePassword(ctx, id, hash), "user")
}

// Roles lists the roles the user holds.
func (m UserManager) Roles(ctx context.Context, id string) ([]string, error) {
	roles, err := m.Store.Roles(ctx, id)
	return roles, repo.AppError(err, "user")
}

// AddToRole grants role to the user.
func (m UserManager) AddToRole(ctx context.Context, id, role string) error {
	return repo.AppError(m.Store.AddToRole(ctx, id, role), "user")
}

// RemoveFromRole revokes role from the user.
func (m UserManager) RemoveFromRole(ctx context.Context, id, role string) error {
	return repo.AppError(m.Store.RemoveFromRole(ctx, id, role), "role membership")
}
