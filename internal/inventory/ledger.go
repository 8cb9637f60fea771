// Package inventory reserves stock across the variant, product and category
// counters.
package inventory

import (
	"context"
	"sort"

	"github.com/ariefcatur/go-fulfillment/internal/apperr"
	"github.com/ariefcatur/go-fulfillment/internal/catalog"
)

type Line struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// Reservation is the outcome for one requested line. Product carries the
// price and cost at reservation time.
type Reservation struct {
	Line
	Variant  catalog.Variant
	Product  catalog.Product
	Category catalog.Category
}

// Ledger has no state of its own; all counters live behind catalog.Store.
// There is no release: undoing a reservation means rolling back the
// transaction the store is bound to.
type Ledger struct{}

func NewLedger() *Ledger { return &Ledger{} }

// Reserve reserves a single line.
func (l *Ledger) Reserve(ctx context.Context, s catalog.Store, variantID string, qty int) (Reservation, error) {
	rs, err := l.ReserveAll(ctx, s, []Line{{VariantID: variantID, Quantity: qty}})
	if err != nil {
		return Reservation{}, err
	}
	return rs[0], nil
}

// ReserveAll locks every variant in id order and checks availability before
// writing anything, then decrements products and categories, each in id order.
// A single global lock order keeps concurrent checkouts from deadlocking.
// Reservations are returned in the order of lines.
func (l *Ledger) ReserveAll(ctx context.Context, s catalog.Store, lines []Line) ([]Reservation, error) {
	demand := map[string]int{}
	for _, ln := range lines {
		if ln.Quantity <= 0 {
			return nil, apperr.Invalid("invalid quantity %d for variant %s", ln.Quantity, ln.VariantID)
		}
		demand[ln.VariantID] += ln.Quantity
	}

	variantIDs := sortedKeys(demand)
	for _, id := range variantIDs {
		v, err := s.LockVariant(ctx, id)
		if err != nil {
			return nil, err
		}
		if v.Quantity < demand[id] {
			return nil, apperr.Insufficient(id, demand[id], v.Quantity)
		}
	}

	variants := make(map[string]catalog.Variant, len(variantIDs))
	productDemand := map[string]int{}
	for _, id := range variantIDs {
		v, err := s.DecrementVariant(ctx, id, demand[id])
		if err != nil {
			return nil, err
		}
		variants[id] = v
		productDemand[v.ProductID] += demand[id]
	}

	products := make(map[string]catalog.Product, len(productDemand))
	categoryDemand := map[string]int{}
	for _, id := range sortedKeys(productDemand) {
		p, err := s.DecrementProduct(ctx, id, productDemand[id])
		if err != nil {
			return nil, err
		}
		products[id] = p
		categoryDemand[p.CategoryID] += productDemand[id]
	}

	categories := make(map[string]catalog.Category, len(categoryDemand))
	for _, id := range sortedKeys(categoryDemand) {
		c, err := s.DecrementCategory(ctx, id, categoryDemand[id])
		if err != nil {
			return nil, err
		}
		categories[id] = c
	}

	out := make([]Reservation, 0, len(lines))
	for _, ln := range lines {
		v := variants[ln.VariantID]
		p := products[v.ProductID]
		out = append(out, Reservation{Line: ln, Variant: v, Product: p, Category: categories[p.CategoryID]})
	}
	return out, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
