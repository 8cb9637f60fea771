// Package payment builds signed redirect URLs for the card/e-wallet gateway.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ariefcatur/go-fulfillment/internal/apperr"
	"github.com/ariefcatur/go-fulfillment/internal/orders"
	"github.com/ariefcatur/go-fulfillment/internal/settings"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	paramSignature = "secure_hash"
	timeLayout     = "20060102150405"
	protoVersion   = "2.1.0"
)

// TxnRegistry maps a transaction reference to its order so the asynchronous
// gateway callback can find the order again.
type TxnRegistry interface {
	Put(ctx context.Context, txnRef, orderID string) error
}

type OrderReader interface {
	GetOrder(ctx context.Context, id string) (orders.Order, error)
}

type Gateway struct {
	cfg atomic.Pointer[MerchantConfig]

	Orders OrderReader
	Txns   TxnRegistry
	Log    *zap.Logger
	// TTL is how long the payment link stays valid.
	TTL    time.Duration
	Now    func() time.Time
	NewRef func() string
}

// NewGateway takes the merchant config explicitly. cfg may be nil, in which
// case every URL request fails with a payment error until Reload succeeds.
func NewGateway(cfg *MerchantConfig, orders OrderReader, txns TxnRegistry, ttl time.Duration, log *zap.Logger) *Gateway {
	g := &Gateway{
		Orders: orders,
		Txns:   txns,
		Log:    log,
		TTL:    ttl,
		Now:    time.Now,
		NewRef: func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:20] },
	}
	if cfg != nil {
		c := *cfg
		g.cfg.Store(&c)
	}
	return g
}

// Reload swaps in freshly loaded merchant settings. On failure the previous
// config stays in place.
func (g *Gateway) Reload(ctx context.Context, s settings.Store) error {
	cfg, err := LoadMerchantConfig(ctx, s)
	if err != nil {
		return err
	}
	g.cfg.Store(&cfg)
	g.Log.Info("merchant config reloaded", zap.String("merchant", cfg.MerchantCode))
	return nil
}

func (g *Gateway) config() (MerchantConfig, error) {
	c := g.cfg.Load()
	if c == nil {
		return MerchantConfig{}, apperr.Payment("payment gateway is not configured")
	}
	return *c, nil
}

// CreatePaymentURL signs a redirect for amount and registers its transaction
// reference. The gateway expects the amount in minor units (×100).
func (g *Gateway) CreatePaymentURL(ctx context.Context, orderID string, amount decimal.Decimal) (string, error) {
	cfg, err := g.config()
	if err != nil {
		return "", err
	}
	if !amount.IsPositive() {
		return "", apperr.Invalid("payment amount must be positive, got %s", amount)
	}

	ref := g.NewRef()
	now := g.Now().In(cfg.Location)
	params := url.Values{}
	params.Set("version", protoVersion)
	params.Set("command", "pay")
	params.Set("merchant", cfg.MerchantCode)
	params.Set("amount", amount.Mul(decimal.NewFromInt(100)).Round(0).String())
	params.Set("currency", cfg.Currency)
	params.Set("txn_ref", ref)
	params.Set("order_info", "Payment for order "+orderID)
	params.Set("order_type", "other")
	params.Set("locale", "vn")
	params.Set("return_url", cfg.ReturnURL)
	params.Set("create_date", now.Format(timeLayout))
	params.Set("expire_date", now.Add(g.TTL).Format(timeLayout))

	query := params.Encode()
	signed := cfg.GatewayURL + "?" + query + "&" + paramSignature + "=" + hex.EncodeToString(sign(cfg.HashSecret, query))

	if err := g.Txns.Put(ctx, ref, orderID); err != nil {
		return "", fmt.Errorf("register payment txn: %w", err)
	}
	g.Log.Info("payment url created", zap.String("order_id", orderID), zap.String("txn_ref", ref))
	return signed, nil
}

// CreateRetryPaymentURL issues a new link for an unpaid gateway order.
func (g *Gateway) CreateRetryPaymentURL(ctx context.Context, orderID string) (string, error) {
	o, err := g.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	switch {
	case o.Paid:
		return "", apperr.Payment("order %s is already paid", orderID)
	case o.Status == orders.StatusCancelled:
		return "", apperr.Payment("order %s is cancelled", orderID)
	case o.PaymentMethod != orders.PaymentGateway:
		return "", apperr.Payment("order %s was not placed with gateway payment", orderID)
	}
	return g.CreatePaymentURL(ctx, o.ID, o.Total)
}

// VerifySignature reports whether params carry a valid signature for the
// current merchant secret.
func (g *Gateway) VerifySignature(params url.Values) bool {
	cfg, err := g.config()
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(params.Get(paramSignature))
	if err != nil {
		return false
	}
	rest := url.Values{}
	for k, v := range params {
		if k != paramSignature {
			rest[k] = v
		}
	}
	return hmac.Equal(got, sign(cfg.HashSecret, rest.Encode()))
}

// sign is HMAC-SHA512 over the canonical (key-sorted, URL-encoded) query.
func sign(secret, canonical string) []byte {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(canonical))
	return mac.Sum(nil)
}
