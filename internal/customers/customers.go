package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-fulfillment/internal/apperr"
	"github.com/ariefcatur/go-fulfillment/internal/postgres"
	"github.com/jackc/pgx/v5"
)

type Customer struct {
	ID    string
	Email string
	Name  string
}

type Directory interface {
	FindCustomer(ctx context.Context, id string) (Customer, error)
}

type PGDirectory struct{ DB postgres.DBTX }

func NewPGDirectory(db postgres.DBTX) *PGDirectory { return &PGDirectory{DB: db} }

func (d *PGDirectory) FindCustomer(ctx context.Context, id string) (Customer, error) {
	var c Customer
	err := d.DB.QueryRow(ctx, `SELECT id, email, name FROM customers WHERE id=$1`, id).Scan(&c.ID, &c.Email, &c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, apperr.NotFound("customer", id)
	}
	if err != nil {
		return Customer{}, fmt.Errorf("find customer %s: %w", id, err)
	}
	return c, nil
}
