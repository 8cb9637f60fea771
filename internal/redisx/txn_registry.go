package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTxnUnknown means the reference expired or was never registered.
var ErrTxnUnknown = errors.New("payment txn unknown or expired")

type TxnRegistry struct {
	RDB *redis.Client
	TTL time.Duration
}

func NewTxnRegistry(rdb *redis.Client, ttl time.Duration) *TxnRegistry {
	if ttl <= 0 {
		ttl = TTLPaymentTxn
	}
	return &TxnRegistry{RDB: rdb, TTL: ttl}
}

func (r *TxnRegistry) Put(ctx context.Context, txnRef, orderID string) error {
	return r.RDB.Set(ctx, fmt.Sprintf(KeyPaymentTxn, txnRef), orderID, r.TTL).Err()
}

// Lookup resolves a transaction reference back to its order id.
func (r *TxnRegistry) Lookup(ctx context.Context, txnRef string) (string, error) {
	id, err := r.RDB.Get(ctx, fmt.Sprintf(KeyPaymentTxn, txnRef)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTxnUnknown
	}
	return id, err
}
