package redisx

import "time"

const (
	// Payment correlation: payment:txn:{txn_ref} -> order_id
	KeyPaymentTxn = "payment:txn:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLPaymentTxn = 15 * time.Minute
	TTLDedup      = 48 * time.Hour
)
