package checkout

import (
	"context"

	"github.com/ariefcatur/go-fulfillment/internal/orders"
)

// PaymentStrategy is the one step of checkout that differs per payment
// method. Finalize runs inside the checkout transaction after the order,
// its details and the first track are written; an error rolls all of it back.
// The returned string is a redirect URL, empty when there is nothing to
// redirect to.
type PaymentStrategy interface {
	Method() orders.PaymentMethod
	Finalize(ctx context.Context, o orders.Order) (string, error)
}

// CashOnDelivery leaves the order NEW and unpaid until it is delivered.
type CashOnDelivery struct{}

func (CashOnDelivery) Method() orders.PaymentMethod { return orders.PaymentCOD }

func (CashOnDelivery) Finalize(context.Context, orders.Order) (string, error) { return "", nil }
