package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID            string
	CustomerID    string
	ShipName      string
	ShipPhone     string
	ShipAddress   string
	Notes         string
	PaymentMethod PaymentMethod
	Paid          bool
	ProductCost   decimal.Decimal
	SubTotal      decimal.Decimal
	ShippingCost  decimal.Decimal
	Total         decimal.Decimal
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Detail is one checkout line. Price and Cost are snapshots taken at checkout.
type Detail struct {
	ID        string
	OrderID   string
	VariantID string
	Quantity  int
	Price     decimal.Decimal
	Cost      decimal.Decimal
	Total     decimal.Decimal
	Reviewed  bool
}

// Track is an append-only audit entry of an order's status.
type Track struct {
	ID        string
	OrderID   string
	Status    Status
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
