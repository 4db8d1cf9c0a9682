package identity

import (
	"context"
	"fmt"
)

// Built-in roles.
const (
	RoleAdmin    = "Admin"
	RoleCustomer = "Customer"
)

// RoleStore creates roles.
type RoleStore interface {
	EnsureRole(ctx context.Context, role string) error
}

// RoleManager provisions roles.
type RoleManager struct {
	Store RoleStore
}

// EnsureRoles creates roles that do not exist yet. With no arguments it
// creates the built-in roles.
func (m RoleManager) EnsureRoles(ctx context.Context, roles ...string) error {
	if len(roles) == 0 {
		roles = []string{RoleAdmin, RoleCustomer}
	}
	for _, role := range roles {
		if err := m.Store.EnsureRole(ctx, role); err != nil {
			return fmt.Errorf("ensure role %s: %w", role, err)
		}
	}
	return nil
}
