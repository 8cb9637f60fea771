// Package notify carries order confirmations from checkout to the mail worker
// over Kafka.
package notify

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderConfirmationRequested = "OrderConfirmationRequested"

	TopicOrderConfirmation = "order.confirmation"

	eventVersion = 1
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type Line struct {
	VariantID string          `json:"variant_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
}

// Confirmation is everything the mail body needs; the worker never reads the
// database.
type Confirmation struct {
	Recipient     string          `json:"recipient"`
	Name          string          `json:"name"`
	OrderID       string          `json:"order_id"`
	OrderDate     time.Time       `json:"order_date"`
	PaymentMethod string          `json:"payment_method"`
	ShipName      string          `json:"ship_name"`
	ShipPhone     string          `json:"ship_phone"`
	ShipAddress   string          `json:"ship_address"`
	Lines         []Line          `json:"lines"`
	SubTotal      decimal.Decimal `json:"sub_total"`
	ShippingCost  decimal.Decimal `json:"shipping_cost"`
	Total         decimal.Decimal `json:"total"`
}

// PartitionKey keeps every event of one order on one partition.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
