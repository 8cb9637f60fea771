package catalog

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/ariefcatur/go-fulfillment/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestLockVariant_SelectsForUpdate(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM product_variants WHERE id=$1 FOR UPDATE`)).
		WithArgs("v-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "product_id", "color", "size", "quantity"}).
			AddRow("v-1", "p-1", "red", "M", 10))

	v, err := NewPGStore(mock).LockVariant(context.Background(), "v-1")
	require.NoError(t, err)
	assert.Equal(t, Variant{ID: "v-1", ProductID: "p-1", Color: "red", Size: "M", Quantity: 10}, v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockVariant_NotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := NewPGStore(mock).LockVariant(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockVariant_InfrastructureErrorPropagates(t *testing.T) {
	mock := newMock(t)
	boom := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs("v-1").
		WillReturnError(boom)

	_, err := NewPGStore(mock).LockVariant(context.Background(), "v-1")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestDecrementVariantAndCategory(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE product_variants SET quantity = quantity - $2`)).
		WithArgs("v-1", 2).
		WillReturnRows(pgxmock.NewRows([]string{"id", "product_id", "color", "size", "quantity"}).
			AddRow("v-1", "p-1", "red", "M", 8))
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE categories SET stock = stock - $2`)).
		WithArgs("c-1", 2).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "stock"}).AddRow("c-1", "Shirts", 98))

	s := NewPGStore(mock)
	v, err := s.DecrementVariant(context.Background(), "v-1", 2)
	require.NoError(t, err)
	assert.Equal(t, 8, v.Quantity)

	c, err := s.DecrementCategory(context.Background(), "c-1", 2)
	require.NoError(t, err)
	assert.Equal(t, 98, c.Stock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementProduct_MissingProduct(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`in_stock = (total_stock - $2) > 0`)).
		WithArgs("p-x", 1).
		WillReturnError(pgx.ErrNoRows)

	_, err := NewPGStore(mock).DecrementProduct(context.Background(), "p-x", 1)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
