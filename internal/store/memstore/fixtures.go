package memstore

import (
	"context"

	"github.com/ariefcatur/go-fulfillment/internal/apperr"
	"github.com/ariefcatur/go-fulfillment/internal/catalog"
	"github.com/ariefcatur/go-fulfillment/internal/customers"
	"github.com/ariefcatur/go-fulfillment/internal/orders"
)

// Seeding and inspection helpers. They read and write committed state.

func (s *Store) PutCategory(c catalog.Category) { s.with(func(st *state) { st.categories[c.ID] = c }) }
func (s *Store) PutProduct(p catalog.Product)   { s.with(func(st *state) { st.products[p.ID] = p }) }
func (s *Store) PutVariant(v catalog.Variant)   { s.with(func(st *state) { st.variants[v.ID] = v }) }

func (s *Store) PutCustomer(c customers.Customer) {
	s.with(func(st *state) { st.customers[c.ID] = c })
}

func (s *Store) PutCartEntry(customerID, variantID string, qty int) {
	s.with(func(st *state) { st.carts[[2]string{customerID, variantID}] = qty })
}

func (s *Store) PutOrder(o orders.Order) { s.with(func(st *state) { st.orders[o.ID] = o }) }

func (s *Store) Variant(id string) (v catalog.Variant) {
	s.with(func(st *state) { v = st.variants[id] })
	return v
}

func (s *Store) Product(id string) (p catalog.Product) {
	s.with(func(st *state) { p = st.products[id] })
	return p
}

func (s *Store) Category(id string) (c catalog.Category) {
	s.with(func(st *state) { c = st.categories[id] })
	return c
}

func (s *Store) InCart(customerID, variantID string) (ok bool) {
	s.with(func(st *state) { _, ok = st.carts[[2]string{customerID, variantID}] })
	return ok
}

func (s *Store) OrderCount() (n int) {
	s.with(func(st *state) { n = len(st.orders) })
	return n
}

func (s *Store) DetailCount() (n int) {
	s.with(func(st *state) {
		for _, ds := range st.details {
			n += len(ds)
		}
	})
	return n
}

// LockLog returns the variant ids passed to LockVariant by committed transactions.
func (s *Store) LockLog() (ids []string) {
	s.with(func(st *state) { ids = append(ids, st.locks...) })
	return ids
}

// GetOrder reads a committed order. It must not be called from inside InTx.
func (s *Store) GetOrder(_ context.Context, id string) (orders.Order, error) {
	var (
		o  orders.Order
		ok bool
	)
	s.with(func(st *state) { o, ok = st.orders[id] })
	if !ok {
		return orders.Order{}, apperr.NotFound("order", id)
	}
	return o, nil
}

func (s *Store) FindCustomer(_ context.Context, id string) (customers.Customer, error) {
	var (
		c  customers.Customer
		ok bool
	)
	s.with(func(st *state) { c, ok = st.customers[id] })
	if !ok {
		return customers.Customer{}, apperr.NotFound("customer", id)
	}
	return c, nil
}

func (s *Store) with(fn func(*state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.data)
}
