package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-fulfillment/internal/apperr"
	"github.com/ariefcatur/go-fulfillment/internal/postgres"
	"github.com/jackc/pgx/v5"
)

type PGStore struct{ DB postgres.DBTX }

func NewPGStore(db postgres.DBTX) *PGStore { return &PGStore{DB: db} }

const orderColumns = `id, customer_id, ship_name, ship_phone, ship_address, notes, payment_method, paid,
	product_cost, sub_total, shipping_cost, total, status, created_at, updated_at`

const trackColumns = `id, order_id, status, notes, created_at, updated_at`

func (s *PGStore) InsertOrder(ctx context.Context, o *Order) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO orders(`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		o.ID, o.CustomerID, o.ShipName, o.ShipPhone, o.ShipAddress, o.Notes, string(o.PaymentMethod), o.Paid,
		o.ProductCost, o.SubTotal, o.ShippingCost, o.Total, string(o.Status), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// InsertDetails writes all lines in one round trip.
func (s *PGStore) InsertDetails(ctx context.Context, ds []Detail) error {
	if len(ds) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, d := range ds {
		b.Queue(`
			INSERT INTO order_details(id, order_id, variant_id, quantity, price, cost, total, reviewed)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			d.ID, d.OrderID, d.VariantID, d.Quantity, d.Price, d.Cost, d.Total, d.Reviewed)
	}
	br := s.DB.SendBatch(ctx, b)
	for range ds {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert order details: %w", err)
		}
	}
	return br.Close()
}

func (s *PGStore) GetOrder(ctx context.Context, id string) (Order, error) {
	o, err := scanOrder(s.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.NotFound("order", id)
	}
	if err != nil {
		return Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
	return o, nil
}

func (s *PGStore) OrderExists(ctx context.Context, id string) (bool, error) {
	var ok bool
	if err := s.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("order exists %s: %w", id, err)
	}
	return ok, nil
}

func (s *PGStore) UpdateOrderStatus(ctx context.Context, id string, st Status) error {
	ct, err := s.DB.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, id, string(st))
	if err != nil {
		return fmt.Errorf("update order status %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("order", id)
	}
	return nil
}

// DeleteOrder removes the order; details and tracks go with it by cascade.
func (s *PGStore) DeleteOrder(ctx context.Context, id string) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete order %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("order", id)
	}
	return nil
}

func (s *PGStore) DetailsByOrder(ctx context.Context, orderID string) ([]Detail, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, order_id, variant_id, quantity, price, cost, total, reviewed
		FROM order_details WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("order details %s: %w", orderID, err)
	}
	defer rows.Close()

	var out []Detail
	for rows.Next() {
		var d Detail
		if err := rows.Scan(&d.ID, &d.OrderID, &d.VariantID, &d.Quantity, &d.Price, &d.Cost, &d.Total, &d.Reviewed); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PGStore) InsertTrack(ctx context.Context, t *Track) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO order_tracks(`+trackColumns+`) VALUES ($1,$2,$3,$4,$5,$6)`,
		t.ID, t.OrderID, string(t.Status), t.Notes, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order track: %w", err)
	}
	return nil
}

func (s *PGStore) UpdateTrack(ctx context.Context, t *Track) error {
	ct, err := s.DB.Exec(ctx, `
		UPDATE order_tracks SET order_id=$2, status=$3, notes=$4, updated_at=$5 WHERE id=$1`,
		t.ID, t.OrderID, string(t.Status), t.Notes, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update order track %s: %w", t.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("order track", t.ID)
	}
	return nil
}

func (s *PGStore) GetTrack(ctx context.Context, id string) (Track, error) {
	t, err := scanTrack(s.DB.QueryRow(ctx, `SELECT `+trackColumns+` FROM order_tracks WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Track{}, apperr.NotFound("order track", id)
	}
	if err != nil {
		return Track{}, fmt.Errorf("get order track %s: %w", id, err)
	}
	return t, nil
}

func (s *PGStore) ListTracks(ctx context.Context) ([]Track, error) {
	return s.queryTracks(ctx, `SELECT `+trackColumns+` FROM order_tracks ORDER BY created_at, id`)
}

func (s *PGStore) TracksByOrder(ctx context.Context, orderID string) ([]Track, error) {
	return s.queryTracks(ctx, `SELECT `+trackColumns+` FROM order_tracks
		WHERE order_id=$1 ORDER BY updated_at DESC, created_at DESC`, orderID)
}

func (s *PGStore) TracksByStatus(ctx context.Context, st Status) ([]Track, error) {
	return s.queryTracks(ctx, `SELECT `+trackColumns+` FROM order_tracks
		WHERE status=$1 ORDER BY updated_at DESC, created_at DESC`, string(st))
}

func (s *PGStore) queryTracks(ctx context.Context, sql string, args ...any) ([]Track, error) {
	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query order tracks: %w", err)
	}
	defer rows.Close()

	var out []Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var method, status string
	err := row.Scan(&o.ID, &o.CustomerID, &o.ShipName, &o.ShipPhone, &o.ShipAddress, &o.Notes, &method, &o.Paid,
		&o.ProductCost, &o.SubTotal, &o.ShippingCost, &o.Total, &status, &o.CreatedAt, &o.UpdatedAt)
	o.PaymentMethod = PaymentMethod(method)
	o.Status = Status(status)
	return o, err
}

func scanTrack(row pgx.Row) (Track, error) {
	var t Track
	var status string
	err := row.Scan(&t.ID, &t.OrderID, &status, &t.Notes, &t.CreatedAt, &t.UpdatedAt)
	t.Status = Status(status)
	return t, err
}
