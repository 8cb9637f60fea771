package tracking

import (
	"context"

	"github.com/ariefcatur/go-fulfillment/internal/metrics"
	"github.com/ariefcatur/go-fulfillment/internal/orders"
	"github.com/ariefcatur/go-fulfillment/internal/store"
)

// Service runs each operation in its own transaction.
type Service struct {
	Runner  store.Runner
	Machine *Machine
	Metrics *metrics.Metrics
}

func (s *Service) CreateOrderTrack(ctx context.Context, orderID string, st orders.Status, notes string) (orders.Track, error) {
	var tr orders.Track
	err := s.Runner.InTx(ctx, func(tx store.Tx) error {
		var err error
		tr, err = s.Machine.Append(ctx, tx, orderID, st, notes)
		return err
	})
	if err != nil {
		return orders.Track{}, err
	}
	s.Metrics.TrackWritten(string(tr.Status))
	return tr, nil
}

func (s *Service) UpdateOrderTrack(ctx context.Context, trackID string, p TrackPatch) (orders.Track, error) {
	var tr orders.Track
	err := s.Runner.InTx(ctx, func(tx store.Tx) error {
		var err error
		tr, err = s.Machine.Update(ctx, tx, trackID, p)
		return err
	})
	if err != nil {
		return orders.Track{}, err
	}
	s.Metrics.TrackWritten(string(tr.Status))
	return tr, nil
}

func (s *Service) GetTrack(ctx context.Context, id string) (orders.Track, error) {
	var tr orders.Track
	err := s.Runner.InTx(ctx, func(tx store.Tx) error {
		var err error
		tr, err = tx.Orders().GetTrack(ctx, id)
		return err
	})
	return tr, err
}

func (s *Service) ListTracks(ctx context.Context) ([]orders.Track, error) {
	return s.list(ctx, func(tx store.Tx) ([]orders.Track, error) { return tx.Orders().ListTracks(ctx) })
}

func (s *Service) TracksByOrder(ctx context.Context, orderID string) ([]orders.Track, error) {
	return s.list(ctx, func(tx store.Tx) ([]orders.Track, error) { return tx.Orders().TracksByOrder(ctx, orderID) })
}

func (s *Service) TracksByStatus(ctx context.Context, st orders.Status) ([]orders.Track, error) {
	return s.list(ctx, func(tx store.Tx) ([]orders.Track, error) { return tx.Orders().TracksByStatus(ctx, st) })
}

func (s *Service) list(ctx context.Context, q func(store.Tx) ([]orders.Track, error)) ([]orders.Track, error) {
	var out []orders.Track
	err := s.Runner.InTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = q(tx)
		return err
	})
	return out, err
}
