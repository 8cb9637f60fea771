package pgstore

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-fulfillment/internal/cart"
	"github.com/ariefcatur/go-fulfillment/internal/catalog"
	"github.com/ariefcatur/go-fulfillment/internal/orders"
	"github.com/ariefcatur/go-fulfillment/internal/store"
	"github.com/jackc/pgx/v5"
)

// Beginner is satisfied by *pgxpool.Pool.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

type Runner struct{ DB Beginner }

func New(db Beginner) *Runner { return &Runner{DB: db} }

func (r *Runner) InTx(ctx context.Context, fn func(store.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(bind(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type pgTx struct {
	tx      pgx.Tx
	catalog *catalog.PGStore
	orders  *orders.PGStore
	carts   *cart.PGStore
}

func bind(tx pgx.Tx) *pgTx {
	return &pgTx{
		tx:      tx,
		catalog: catalog.NewPGStore(tx),
		orders:  orders.NewPGStore(tx),
		carts:   cart.NewPGStore(tx),
	}
}

func (t *pgTx) Catalog() catalog.Store { return t.catalog }
func (t *pgTx) Orders() orders.Store   { return t.orders }
func (t *pgTx) Carts() cart.Store      { return t.carts }

// Savepoint uses pgx pseudo nested transactions (SAVEPOINT / ROLLBACK TO).
func (t *pgTx) Savepoint(ctx context.Context, fn func(store.Tx) error) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	if err := fn(bind(sp)); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}
