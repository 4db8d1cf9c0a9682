package order

import (
	"context"

	"github.com/noah-isme/backend-electronic/internal/app"
	"github.com/noah-isme/backend-electronic/internal/common"
	"github.com/noah-isme/backend-electronic/internal/identity"
	"github.com/noah-isme/backend-electronic/internal/repo"
)

// CanView reports whether p may read o: its owner or an administrator.
func CanView(o repo.Order, p common.Principal) bool {
	return o.UserID == p.UserID || p.HasRole(identity.RoleAdmin)
}

// Visible loads an order the caller may read. Orders of other users look
// missing.
func Visible(ctx context.Context, s *app.Scope, id string) (repo.Order, error) {
	p, ok := common.PrincipalFrom(ctx)
	if !ok {
		return repo.Order{}, common.Unauthorized("authentication required")
	}
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return repo.Order{}, repo.AppError(err, "order")
	}
	if !CanView(o, p) {
		return repo.Order{}, common.NotFound("order")
	}
	return o, nil
}
