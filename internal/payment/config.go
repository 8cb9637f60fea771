package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-fulfillment/internal/apperr"
	"github.com/ariefcatur/go-fulfillment/internal/settings"
)

// Settings keys read by LoadMerchantConfig.
const (
	KeyMerchantCode = "payment.merchant_code"
	KeyHashSecret   = "payment.hash_secret"
	KeyGatewayURL   = "payment.gateway_url"
	KeyReturnURL    = "payment.return_url"
	KeyCurrency     = "payment.currency"
	KeyTimezone     = "payment.timezone"
)

// MerchantConfig is an immutable snapshot of the merchant credentials.
type MerchantConfig struct {
	MerchantCode string
	HashSecret   string
	GatewayURL   string
	ReturnURL    string
	Currency     string
	// Location is the gateway's clock for create/expire timestamps.
	Location *time.Location
}

// LoadMerchantConfig reads the merchant settings once. A missing required key
// is a payment error; currency and timezone fall back to VND and UTC.
func LoadMerchantConfig(ctx context.Context, s settings.Store) (MerchantConfig, error) {
	var cfg MerchantConfig
	required := []struct {
		key string
		dst *string
	}{
		{KeyMerchantCode, &cfg.MerchantCode},
		{KeyHashSecret, &cfg.HashSecret},
		{KeyGatewayURL, &cfg.GatewayURL},
		{KeyReturnURL, &cfg.ReturnURL},
	}
	for _, r := range required {
		v, err := s.Get(ctx, r.key)
		if errors.Is(err, settings.ErrMissing) || (err == nil && v == "") {
			return MerchantConfig{}, apperr.Payment("merchant setting %s is not configured", r.key)
		}
		if err != nil {
			return MerchantConfig{}, fmt.Errorf("load merchant config: %w", err)
		}
		*r.dst = v
	}

	cfg.Currency = optional(ctx, s, KeyCurrency, "VND")
	cfg.Location = time.UTC
	if tz := optional(ctx, s, KeyTimezone, ""); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return MerchantConfig{}, apperr.Payment("invalid %s %q: %v", KeyTimezone, tz, err)
		}
		cfg.Location = loc
	}
	return cfg, nil
}

func optional(ctx context.Context, s settings.Store, key, def string) string {
	v, err := s.Get(ctx, key)
	if err != nil || v == "" {
		return def
	}
	return v
}
