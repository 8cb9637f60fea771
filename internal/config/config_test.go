package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SHIPPING_COST", "")
	t.Setenv("PAYMENT_TXN_TTL", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("PG_LOCK_TIMEOUT", "")

	cfg := Load()
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, "30000", cfg.ShippingCost.String())
	assert.Equal(t, 15*time.Minute, cfg.PaymentTxnTTL)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Zero(t, cfg.LockTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SHIPPING_COST", "12.50")
	t.Setenv("PAYMENT_TXN_TTL", "5m")
	t.Setenv("KAFKA_BROKERS", " a:9092, ,b:9092 ")
	t.Setenv("NOTIFY_WORKERS", "-3")
	t.Setenv("PG_LOCK_TIMEOUT", "3s")

	cfg := Load()
	assert.Equal(t, "12.5", cfg.ShippingCost.String())
	assert.Equal(t, 5*time.Minute, cfg.PaymentTxnTTL)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 4, cfg.NotifyWorkers)
	assert.Equal(t, 3*time.Second, cfg.LockTimeout)
}
