// Package catalog holds the stocked aggregates (variant, product, category) and
// the persistence used to mutate their counters.
package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// Variant is one purchasable color/size combination of a product.
type Variant struct {
	ID        string
	ProductID string
	Color     string
	Size      string
	Quantity  int
}

// Product keeps its own TotalStock counter; it is decremented alongside its
// variants and never recomputed from them.
type Product struct {
	ID         string
	CategoryID string
	Name       string
	Price      decimal.Decimal
	Cost       decimal.Decimal
	TotalStock int
	InStock    bool
}

type Category struct {
	ID    string
	Name  string
	Stock int
}

// Store is the stock persistence the inventory ledger runs on. It must be bound
// to a transaction: LockVariant holds its row lock until that transaction ends.
type Store interface {
	// LockVariant loads a variant with an exclusive row lock.
	LockVariant(ctx context.Context, id string) (Variant, error)
	DecrementVariant(ctx context.Context, id string, qty int) (Variant, error)
	// DecrementProduct lowers total stock and recomputes InStock as TotalStock > 0.
	DecrementProduct(ctx context.Context, id string, qty int) (Product, error)
	DecrementCategory(ctx context.Context, id string, qty int) (Category, error)
}
