package repo

import "github.com/noah-isme/backend-electronic/internal/db"

// Set bundles the repositories bound to one Querier, either the pool or a
// transaction.
type Set struct {
	Products   ProductRepository
	Categories CategoryRepository
	Users      UserRepository
	Orders     OrderRepository
	OrderItems OrderItemsRepository
	Payments   PaymentRepository
	Carts      CartRepository
}

// NewSet binds every repository to q.
func NewSet(q db.Querier) Set {
	return Set{
		Products:   ProductRepository{Q: q},
		Categories: CategoryRepository{Q: q},
		Users:      UserRepository{Q: q},
		Orders:     OrderRepository{Q: q},
		OrderItems: OrderItemsRepository{Q: q},
		Payments:   PaymentRepository{Q: q},
		Carts:      CartRepository{Q: q},
	}
}
