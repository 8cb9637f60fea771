// Package settings reads the system key/value settings table.
package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-fulfillment/internal/postgres"
	"github.com/jackc/pgx/v5"
)

// ErrMissing is returned when a key has no row.
var ErrMissing = errors.New("setting not found")

type Store interface {
	Get(ctx context.Context, key string) (string, error)
}

type PGStore struct{ DB postgres.DBTX }

func NewPGStore(db postgres.DBTX) *PGStore { return &PGStore{DB: db} }

func (s *PGStore) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.DB.QueryRow(ctx, `SELECT value FROM system_settings WHERE key=$1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrMissing, key)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return v, nil
}

// Map is an in-process Store, handy for fixed configuration and tests.
type Map map[string]string

func (m Map) Get(_ context.Context, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissing, key)
	}
	return v, nil
}
