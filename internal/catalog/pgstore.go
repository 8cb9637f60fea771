package catalog

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

func (s *PGStore) LockVariant(ctx context.Context, id string) (Variant, error) {
	var v Variant
	err := s.DB.QueryRow(ctx, `
		SELECT id, product_id, color, size, quantity
		FROM product_variants WHERE id=$1 FOR UPDATE`, id).
		Scan(&v.ID, &v.ProductID, &v.Color, &v.Size, &v.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return Variant{}, apperr.NotFound("variant", id)
	}
	if err != nil {
		return Variant{}, fmt.Errorf("lock variant %s: %w", id, err)
	}
	return v, nil
}

func (s *PGStore) DecrementVariant(ctx context.Context, id string, qty int) (Variant, error) {
	var v Variant
	err := s.DB.QueryRow(ctx, `
		UPDATE product_variants SET quantity = quantity - $2, updated_at = now()
		WHERE id=$1
		RETURNING id, product_id, color, size, quantity`, id, qty).
		Scan(&v.ID, &v.ProductID, &v.Color, &v.Size, &v.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return Variant{}, apperr.NotFound("variant", id)
	}
	if err != nil {
		return Variant{}, fmt.Errorf("decrement variant %s: %w", id, err)
	}
	return v, nil
}

func (s *PGStore) DecrementProduct(ctx context.Context, id string, qty int) (Product, error) {
	var p Product
	err := s.DB.QueryRow(ctx, `
		UPDATE products
		SET total_stock = total_stock - $2, in_stock = (total_stock - $2) > 0, updated_at = now()
		WHERE id=$1
		RETURNING id, category_id, name, price, cost, total_stock, in_stock`, id, qty).
		Scan(&p.ID, &p.CategoryID, &p.Name, &p.Price, &p.Cost, &p.TotalStock, &p.InStock)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, apperr.NotFound("product", id)
	}
	if err != nil {
		return Product{}, fmt.Errorf("decrement product %s: %w", id, err)
	}
	return p, nil
}

func (s *PGStore) DecrementCategory(ctx context.Context, id string, qty int) (Category, error) {
	var c Category
	err := s.DB.QueryRow(ctx, `
		UPDATE categories SET stock = stock - $2, updated_at = now()
		WHERE id=$1
		RETURNING id, name, stock`, id, qty).
		Scan(&c.ID, &c.Name, &c.Stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, apperr.NotFound("category", id)
	}
	if err != nil {
		return Category{}, fmt.Errorf("decrement category %s: %w", id, err)
	}
	return c, nil
}
