// Package store defines the transactional unit of work shared by checkout,
// tracking and payment.
package store

import (
	"context"

	"github.com/ariefcatur/go-fulfillment/internal/cart"
	"github.com/ariefcatur/go-fulfillment/internal/catalog"
	"github.com/ariefcatur/go-fulfillment/internal/orders"
)

// Tx exposes stores bound to one database transaction.
type Tx interface {
	Catalog() catalog.Store
	Orders() orders.Store
	Carts() cart.Store
	// Savepoint runs fn in a nested transaction. If fn fails only its own
	// writes are undone and the outer transaction stays usable.
	Savepoint(ctx context.Context, fn func(Tx) error) error
}

// Runner commits when fn returns nil and rolls back otherwise.
type Runner interface {
	InTx(ctx context.Context, fn func(Tx) error) error
}
