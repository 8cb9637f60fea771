// Package memstore is an in-process implementation of store.Runner. A
// transaction works on a copy of the data and replaces it on commit; the store
// mutex is held for the whole transaction, which stands in for row locks.
package memstore

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/ariefcatur/go-fulfillment/internal/apperr"
	"github.com/ariefcatur/go-fulfillment/internal/cart"
	"github.com/ariefcatur/go-fulfillment/internal/catalog"
	"github.com/ariefcatur/go-fulfillment/internal/customers"
	"github.com/ariefcatur/go-fulfillment/internal/orders"
	"github.com/ariefcatur/go-fulfillment/internal/store"
)

type Store struct {
	mu   sync.Mutex
	data *state

	// Fault injection.
	FailCartDelete   error
	FailStatusUpdate error
	FailInsertTrack  error
}

type state struct {
	variants   map[string]catalog.Variant
	products   map[string]catalog.Product
	categories map[string]catalog.Category
	customers  map[string]customers.Customer
	carts      map[[2]string]int
	orders     map[string]orders.Order
	details    map[string][]orders.Detail
	tracks     map[string]orders.Track
	created    map[string]int
	touched    map[string]int
	seq        int
	// locks records LockVariant calls in order, for lock-ordering assertions.
	locks []string
}

func New() *Store {
	return &Store{data: &state{
		variants:   map[string]catalog.Variant{},
		products:   map[string]catalog.Product{},
		categories: map[string]catalog.Category{},
		customers:  map[string]customers.Customer{},
		carts:      map[[2]string]int{},
		orders:     map[string]orders.Order{},
		details:    map[string][]orders.Detail{},
		tracks:     map[string]orders.Track{},
		created:    map[string]int{},
		touched:    map[string]int{},
	}}
}

func (s *state) clone() *state {
	details := make(map[string][]orders.Detail, len(s.details))
	for k, v := range s.details {
		details[k] = append([]orders.Detail(nil), v...)
	}
	return &state{
		variants:   maps.Clone(s.variants),
		products:   maps.Clone(s.products),
		categories: maps.Clone(s.categories),
		customers:  maps.Clone(s.customers),
		carts:      maps.Clone(s.carts),
		orders:     maps.Clone(s.orders),
		details:    details,
		tracks:     maps.Clone(s.tracks),
		created:    maps.Clone(s.created),
		touched:    maps.Clone(s.touched),
		seq:        s.seq,
		locks:      append([]string(nil), s.locks...),
	}
}

func (s *Store) InTx(ctx context.Context, fn func(store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&memTx{s: s, st: work}); err != nil {
		return err
	}
	s.data = work
	return nil
}

type memTx struct {
	s  *Store
	st *state
}

func (t *memTx) Catalog() catalog.Store { return (*catalogView)(t) }
func (t *memTx) Orders() orders.Store   { return (*ordersView)(t) }
func (t *memTx) Carts() cart.Store      { return (*cartView)(t) }

func (t *memTx) Savepoint(ctx context.Context, fn func(store.Tx) error) error {
	inner := t.st.clone()
	if err := fn(&memTx{s: t.s, st: inner}); err != nil {
		return err
	}
	*t.st = *inner
	return nil
}

// ---- catalog ----

type catalogView memTx

func (v *catalogView) LockVariant(_ context.Context, id string) (catalog.Variant, error) {
	v.st.locks = append(v.st.locks, id)
	vr, ok := v.st.variants[id]
	if !ok {
		return catalog.Variant{}, apperr.NotFound("variant", id)
	}
	return vr, nil
}

func (v *catalogView) DecrementVariant(_ context.Context, id string, qty int) (catalog.Variant, error) {
	vr, ok := v.st.variants[id]
	if !ok {
		return catalog.Variant{}, apperr.NotFound("variant", id)
	}
	vr.Quantity -= qty
	v.st.variants[id] = vr
	return vr, nil
}

func (v *catalogView) DecrementProduct(_ context.Context, id string, qty int) (catalog.Product, error) {
	p, ok := v.st.products[id]
	if !ok {
		return catalog.Product{}, apperr.NotFound("product", id)
	}
	p.TotalStock -= qty
	p.InStock = p.TotalStock > 0
	v.st.products[id] = p
	return p, nil
}

func (v *catalogView) DecrementCategory(_ context.Context, id string, qty int) (catalog.Category, error) {
	c, ok := v.st.categories[id]
	if !ok {
		return catalog.Category{}, apperr.NotFound("category", id)
	}
	c.Stock -= qty
	v.st.categories[id] = c
	return c, nil
}

// ---- carts ----

type cartView memTx

func (v *cartView) DeleteEntry(_ context.Context, customerID, variantID string) error {
	if v.s.FailCartDelete != nil {
		return v.s.FailCartDelete
	}
	delete(v.st.carts, [2]string{customerID, variantID})
	return nil
}

// ---- orders ----

type ordersView memTx

func (v *ordersView) InsertOrder(_ context.Context, o *orders.Order) error {
	v.st.orders[o.ID] = *o
	return nil
}

func (v *ordersView) InsertDetails(_ context.Context, ds []orders.Detail) error {
	for _, d := range ds {
		if _, ok := v.st.orders[d.OrderID]; !ok {
			return apperr.NotFound("order", d.OrderID)
		}
		v.st.details[d.OrderID] = append(v.st.details[d.OrderID], d)
	}
	return nil
}

func (v *ordersView) GetOrder(_ context.Context, id string) (orders.Order, error) {
	o, ok := v.st.orders[id]
	if !ok {
		return orders.Order{}, apperr.NotFound("order", id)
	}
	return o, nil
}

func (v *ordersView) OrderExists(_ context.Context, id string) (bool, error) {
	_, ok := v.st.orders[id]
	return ok, nil
}

func (v *ordersView) UpdateOrderStatus(_ context.Context, id string, st orders.Status) error {
	if v.s.FailStatusUpdate != nil {
		return v.s.FailStatusUpdate
	}
	o, ok := v.st.orders[id]
	if !ok {
		return apperr.NotFound("order", id)
	}
	o.Status = st
	v.st.orders[id] = o
	return nil
}

func (v *ordersView) DeleteOrder(_ context.Context, id string) error {
	if _, ok := v.st.orders[id]; !ok {
		return apperr.NotFound("order", id)
	}
	delete(v.st.orders, id)
	delete(v.st.details, id)
	for tid, tr := range v.st.tracks {
		if tr.OrderID == id {
			delete(v.st.tracks, tid)
		}
	}
	return nil
}

func (v *ordersView) DetailsByOrder(_ context.Context, orderID string) ([]orders.Detail, error) {
	return append([]orders.Detail(nil), v.st.details[orderID]...), nil
}

func (v *ordersView) InsertTrack(_ context.Context, tr *orders.Track) error {
	if v.s.FailInsertTrack != nil {
		return v.s.FailInsertTrack
	}
	if _, ok := v.st.orders[tr.OrderID]; !ok {
		return apperr.NotFound("order", tr.OrderID)
	}
	v.st.seq++
	v.st.tracks[tr.ID] = *tr
	v.st.created[tr.ID] = v.st.seq
	v.st.touched[tr.ID] = v.st.seq
	return nil
}

func (v *ordersView) UpdateTrack(_ context.Context, tr *orders.Track) error {
	if _, ok := v.st.tracks[tr.ID]; !ok {
		return apperr.NotFound("order track", tr.ID)
	}
	v.st.seq++
	v.st.tracks[tr.ID] = *tr
	v.st.touched[tr.ID] = v.st.seq
	return nil
}

func (v *ordersView) GetTrack(_ context.Context, id string) (orders.Track, error) {
	tr, ok := v.st.tracks[id]
	if !ok {
		return orders.Track{}, apperr.NotFound("order track", id)
	}
	return tr, nil
}

func (v *ordersView) ListTracks(_ context.Context) ([]orders.Track, error) {
	out := v.filter(func(orders.Track) bool { return true })
	sort.Slice(out, func(i, j int) bool { return v.st.created[out[i].ID] < v.st.created[out[j].ID] })
	return out, nil
}

func (v *ordersView) TracksByOrder(_ context.Context, orderID string) ([]orders.Track, error) {
	return v.recentFirst(v.filter(func(t orders.Track) bool { return t.OrderID == orderID })), nil
}

func (v *ordersView) TracksByStatus(_ context.Context, st orders.Status) ([]orders.Track, error) {
	return v.recentFirst(v.filter(func(t orders.Track) bool { return t.Status == st })), nil
}

func (v *ordersView) filter(keep func(orders.Track) bool) []orders.Track {
	var out []orders.Track
	for _, t := range v.st.tracks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func (v *ordersView) recentFirst(ts []orders.Track) []orders.Track {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].UpdatedAt.Equal(ts[j].UpdatedAt) {
			return ts[i].UpdatedAt.After(ts[j].UpdatedAt)
		}
		return v.st.touched[ts[i].ID] > v.st.touched[ts[j].ID]
	})
	return ts
}
