// Package tracking keeps the order audit trail and mirrors the latest status
// back onto the order.
package tracking

import (
	"context"
	"time"

	"github.com/ariefcatur/go-fulfillment/internal/apperr"
	"github.com/ariefcatur/go-fulfillment/internal/orders"
	"github.com/ariefcatur/go-fulfillment/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TrackPatch is a partial update; nil fields are left alone.
type TrackPatch struct {
	OrderID *string
	Status  *orders.Status
	Notes   *string
}

// Machine writes order tracks inside a caller-provided transaction. No
// transition graph is enforced: any status may follow any other.
type Machine struct {
	Log *zap.Logger
	Now func() time.Time
}

func NewMachine(log *zap.Logger) *Machine {
	return &Machine{Log: log, Now: func() time.Time { return time.Now().UTC() }}
}

// Append records a new track and moves the order to its status.
func (m *Machine) Append(ctx context.Context, tx store.Tx, orderID string, st orders.Status, notes string) (orders.Track, error) {
	o, err := tx.Orders().GetOrder(ctx, orderID)
	if err != nil {
		return orders.Track{}, err
	}

	now := m.Now()
	tr := orders.Track{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Status:    st,
		Notes:     notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.Orders().InsertTrack(ctx, &tr); err != nil {
		return orders.Track{}, err
	}
	m.syncStatus(ctx, tx, o, st)
	return tr, nil
}

// Update applies p to a track. A status change is compared with the owning
// order's current status, not with the track's previous one.
func (m *Machine) Update(ctx context.Context, tx store.Tx, trackID string, p TrackPatch) (orders.Track, error) {
	tr, err := tx.Orders().GetTrack(ctx, trackID)
	if err != nil {
		return orders.Track{}, err
	}

	if p.OrderID != nil && *p.OrderID != tr.OrderID {
		ok, err := tx.Orders().OrderExists(ctx, *p.OrderID)
		if err != nil {
			return orders.Track{}, err
		}
		if !ok {
			return orders.Track{}, apperr.NotFound("order", *p.OrderID)
		}
		tr.OrderID = *p.OrderID
	}
	if p.Status != nil {
		tr.Status = *p.Status
	}
	if p.Notes != nil {
		tr.Notes = *p.Notes
	}
	tr.UpdatedAt = m.Now()

	if err := tx.Orders().UpdateTrack(ctx, &tr); err != nil {
		return orders.Track{}, err
	}

	if p.Status != nil {
		o, err := tx.Orders().GetOrder(ctx, tr.OrderID)
		if err != nil {
			return orders.Track{}, err
		}
		m.syncStatus(ctx, tx, o, tr.Status)
	}
	return tr, nil
}

// syncStatus is best-effort: a failed write is rolled back to its savepoint
// and logged, and the track write stands.
func (m *Machine) syncStatus(ctx context.Context, tx store.Tx, o orders.Order, st orders.Status) {
	if o.Status == st {
		return
	}
	err := tx.Savepoint(ctx, func(sp store.Tx) error {
		return sp.Orders().UpdateOrderStatus(ctx, o.ID, st)
	})
	if err != nil {
		m.Log.Warn("order status sync failed",
			zap.String("order_id", o.ID),
			zap.String("from", string(o.Status)),
			zap.String("to", string(st)),
			zap.Error(err))
	}
}
