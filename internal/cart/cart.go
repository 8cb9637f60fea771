package cart

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-fulfillment/internal/postgres"
)

type Store interface {
	// DeleteEntry removes one variant line from a customer's cart. Deleting a
	// line that is not there is not an error.
	DeleteEntry(ctx context.Context, customerID, variantID string) error
}

type PGStore struct{ DB postgres.DBTX }

func NewPGStore(db postgres.DBTX) *PGStore { return &PGStore{DB: db} }

func (s *PGStore) DeleteEntry(ctx context.Context, customerID, variantID string) error {
	if _, err := s.DB.Exec(ctx, `DELETE FROM cart_items WHERE customer_id=$1 AND variant_id=$2`, customerID, variantID); err != nil {
		return fmt.Errorf("delete cart entry: %w", err)
	}
	return nil
}
