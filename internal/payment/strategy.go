package payment

import (
	"context"

	"github.com/ariefcatur/go-fulfillment/internal/orders"
)

// Method and Finalize make Gateway the checkout strategy for gateway orders:
// the order awaits payment behind the returned redirect URL. An order with
// nothing to charge gets no URL and is kept as is.
func (g *Gateway) Method() orders.PaymentMethod { return orders.PaymentGateway }

func (g *Gateway) Finalize(ctx context.Context, o orders.Order) (string, error) {
	if !o.Total.IsPositive() {
		return "", nil
	}
	return g.CreatePaymentURL(ctx, o.ID, o.Total)
}
