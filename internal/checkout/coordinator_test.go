package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-fulfillment/internal/apperr"
	"github.com/ariefcatur/go-fulfillment/internal/catalog"
	"github.com/ariefcatur/go-fulfillment/internal/customers"
	"github.com/ariefcatur/go-fulfillment/internal/inventory"
	"github.com/ariefcatur/go-fulfillment/internal/metrics"
	"github.com/ariefcatur/go-fulfillment/internal/notify"
	"github.com/ariefcatur/go-fulfillment/internal/orders"
	"github.com/ariefcatur/go-fulfillment/internal/payment"
	"github.com/ariefcatur/go-fulfillment/internal/settings"
	"github.com/ariefcatur/go-fulfillment/internal/store"
	"github.com/ariefcatur/go-fulfillment/internal/store/memstore"
	"github.com/ariefcatur/go-fulfillment/internal/tracking"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Confirmation
	err  error
}

func (n *fakeNotifier) SendOrderConfirmation(_ context.Context, c notify.Confirmation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, c)
	return nil
}

type fakeRegistry struct{ refs map[string]string }

func (r *fakeRegistry) Put(_ context.Context, ref, orderID string) error {
	r.refs[ref] = orderID
	return nil
}

type fixture struct {
	c     *Coordinator
	s     *memstore.Store
	n     *fakeNotifier
	txns  *fakeRegistry
	gw    *payment.Gateway
	stats *metrics.Metrics
}

func newFixture(t *testing.T, variantQty, productTotal, categoryStock int) *fixture {
	t.Helper()
	s := memstore.New()
	s.PutCategory(catalog.Category{ID: "c-1", Name: "Shirts", Stock: categoryStock})
	s.PutProduct(catalog.Product{
		ID: "p-1", CategoryID: "c-1", Name: "Tee",
		Price: decimal.NewFromInt(100), Cost: decimal.NewFromInt(60),
		TotalStock: productTotal, InStock: productTotal > 0,
	})
	s.PutVariant(catalog.Variant{ID: "v-1", ProductID: "p-1", Color: "red", Size: "M", Quantity: variantQty})
	s.PutCustomer(customers.Customer{ID: "cu-1", Email: "ana@example.com", Name: "Ana"})

	cfg, err := payment.LoadMerchantConfig(context.Background(), settings.Map{
		payment.KeyMerchantCode: "SHOP01",
		payment.KeyHashSecret:   "s3cret",
		payment.KeyGatewayURL:   "https://pay.example.com/vpcpay.html",
		payment.KeyReturnURL:    "https://shop.example.com/return",
	})
	require.NoError(t, err)
	txns := &fakeRegistry{refs: map[string]string{}}
	gw := payment.NewGateway(&cfg, s, txns, 15*time.Minute, zap.NewNop())

	n := &fakeNotifier{}
	c := NewCoordinator(s, tracking.NewMachine(zap.NewNop()), s, n, decimal.NewFromInt(30), zap.NewNop(),
		CashOnDelivery{}, gw)
	c.Metrics = metrics.New(prometheus.NewRegistry(), "test")
	return &fixture{c: c, s: s, n: n, txns: txns, gw: gw, stats: c.Metrics}
}

func codRequest(lines ...inventory.Line) Request {
	return Request{
		CustomerID:    "cu-1",
		ShipName:      "Ana",
		ShipPhone:     "0900",
		ShipAddress:   "1 Main St",
		PaymentMethod: orders.PaymentCOD,
		Lines:         lines,
	}
}

func TestCheckout_DecrementsStockAndPersistsOrder(t *testing.T) {
	f := newFixture(t, 10, 50, 100)
	ctx := context.Background()

	res, err := f.c.Checkout(ctx, codRequest(inventory.Line{VariantID: "v-1", Quantity: 2}))
	require.NoError(t, err)

	assert.Equal(t, 8, f.s.Variant("v-1").Quantity)
	assert.Equal(t, 48, f.s.Product("p-1").TotalStock)
	assert.Equal(t, 98, f.s.Category("c-1").Stock)

	o := res.Order
	assert.Equal(t, orders.StatusNew, o.Status)
	assert.False(t, o.Paid)
	assert.True(t, o.ProductCost.Equal(decimal.NewFromInt(120)))
	assert.True(t, o.SubTotal.Equal(decimal.NewFromInt(200)))
	assert.True(t, o.ShippingCost.Equal(decimal.NewFromInt(30)))
	assert.True(t, o.Total.Equal(decimal.NewFromInt(230)))
	assert.Empty(t, res.PaymentURL)

	require.Len(t, res.Details, 1)
	assert.Equal(t, 2, res.Details[0].Quantity)
	assert.True(t, res.Details[0].Total.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, 1, f.s.DetailCount())

	stored, err := f.s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, stored.ID)

	var tracks []orders.Track
	require.NoError(t, f.s.InTx(ctx, func(tx store.Tx) error {
		tracks, err = tx.Orders().TracksByOrder(ctx, o.ID)
		return err
	}))
	require.Len(t, tracks, 1)
	assert.Equal(t, orders.StatusNew, tracks[0].Status)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.stats.Checkouts.WithLabelValues("COD", "ok")))
}

func TestCheckout_InsufficientLeavesNothingBehind(t *testing.T) {
	f := newFixture(t, 1, 1, 1)

	_, err := f.c.Checkout(context.Background(), codRequest(inventory.Line{VariantID: "v-1", Quantity: 2}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInsufficient))

	var ie *apperr.InsufficientError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 1, ie.Available)

	assert.Equal(t, 1, f.s.Variant("v-1").Quantity)
	assert.Equal(t, 0, f.s.OrderCount())
	assert.Equal(t, 0, f.s.DetailCount())
	assert.Empty(t, f.n.sent)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.stats.Checkouts.WithLabelValues("COD", "insufficient_inventory")))
}

func TestCheckout_LastUnitsFlipInStock(t *testing.T) {
	f := newFixture(t, 2, 2, 10)

	_, err := f.c.Checkout(context.Background(), codRequest(inventory.Line{VariantID: "v-1", Quantity: 2}))
	require.NoError(t, err)

	p := f.s.Product("p-1")
	assert.Equal(t, 0, p.TotalStock)
	assert.False(t, p.InStock)
}

func TestCheckout_NotificationFailureDoesNotFailCheckout(t *testing.T) {
	f := newFixture(t, 10, 50, 100)
	f.n.err = errors.New("broker unavailable")

	res, err := f.c.Checkout(context.Background(), codRequest(inventory.Line{VariantID: "v-1", Quantity: 1}))
	require.NoError(t, err)

	_, err = f.s.GetOrder(context.Background(), res.Order.ID)
	assert.NoError(t, err)
}

func TestCheckout_SendsConfirmation(t *testing.T) {
	f := newFixture(t, 10, 50, 100)

	res, err := f.c.Checkout(context.Background(), codRequest(inventory.Line{VariantID: "v-1", Quantity: 3}))
	require.NoError(t, err)

	require.Len(t, f.n.sent, 1)
	c := f.n.sent[0]
	assert.Equal(t, "ana@example.com", c.Recipient)
	assert.Equal(t, "Ana", c.Name)
	assert.Equal(t, res.Order.ID, c.OrderID)
	assert.Equal(t, "COD", c.PaymentMethod)
	assert.Equal(t, "1 Main St", c.ShipAddress)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 3, c.Lines[0].Quantity)
	assert.True(t, c.Total.Equal(decimal.NewFromInt(330)))
}

func TestCheckout_UnknownCustomerStillSucceeds(t *testing.T) {
	f := newFixture(t, 10, 50, 100)
	req := codRequest(inventory.Line{VariantID: "v-1", Quantity: 1})
	req.CustomerID = "cu-404"

	_, err := f.c.Checkout(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, f.n.sent)
}

func TestCheckout_ClearsPurchasedCartLines(t *testing.T) {
	f := newFixture(t, 10, 50, 100)
	f.s.PutCartEntry("cu-1", "v-1", 1)
	f.s.PutCartEntry("cu-1", "v-other", 4)

	_, err := f.c.Checkout(context.Background(), codRequest(inventory.Line{VariantID: "v-1", Quantity: 1}))
	require.NoError(t, err)

	assert.False(t, f.s.InCart("cu-1", "v-1"))
	assert.True(t, f.s.InCart("cu-1", "v-other"))
}

func TestCheckout_CartFailureIsBestEffort(t *testing.T) {
	f := newFixture(t, 10, 50, 100)
	f.s.PutCartEntry("cu-1", "v-1", 1)
	f.s.FailCartDelete = errors.New("cart table locked")

	res, err := f.c.Checkout(context.Background(), codRequest(inventory.Line{VariantID: "v-1", Quantity: 1}))
	require.NoError(t, err)

	assert.True(t, f.s.InCart("cu-1", "v-1"))
	assert.Equal(t, 9, f.s.Variant("v-1").Quantity)
	_, err = f.s.GetOrder(context.Background(), res.Order.ID)
	assert.NoError(t, err)
}

func TestCheckout_EmptyLinesCreatesEmptyOrder(t *testing.T) {
	f := newFixture(t, 10, 50, 100)

	res, err := f.c.Checkout(context.Background(), codRequest())
	require.NoError(t, err)

	assert.Empty(t, res.Details)
	assert.True(t, res.Order.SubTotal.IsZero())
	assert.True(t, res.Order.Total.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, 1, f.s.OrderCount())
	assert.Equal(t, 10, f.s.Variant("v-1").Quantity)
}

func TestCheckout_UnknownPaymentMethod(t *testing.T) {
	f := newFixture(t, 10, 50, 100)
	req := codRequest(inventory.Line{VariantID: "v-1", Quantity: 1})
	req.PaymentMethod = "BARTER"

	_, err := f.c.Checkout(context.Background(), req)
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
	assert.Equal(t, 10, f.s.Variant("v-1").Quantity)
}

func TestCheckout_UnknownVariant(t *testing.T) {
	f := newFixture(t, 10, 50, 100)

	_, err := f.c.Checkout(context.Background(), codRequest(
		inventory.Line{VariantID: "v-1", Quantity: 1},
		inventory.Line{VariantID: "v-404", Quantity: 1},
	))
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Equal(t, 10, f.s.Variant("v-1").Quantity)
	assert.Equal(t, 0, f.s.OrderCount())
}

func TestCheckout_GatewayReturnsPaymentURL(t *testing.T) {
	f := newFixture(t, 10, 50, 100)
	req := codRequest(inventory.Line{VariantID: "v-1", Quantity: 2})
	req.PaymentMethod = orders.PaymentGateway

	res, err := f.c.Checkout(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.PaymentURL, "https://pay.example.com/vpcpay.html?"))
	assert.Contains(t, res.PaymentURL, "amount=23000&")
	require.Len(t, f.txns.refs, 1)
	for _, orderID := range f.txns.refs {
		assert.Equal(t, res.Order.ID, orderID)
	}
	assert.Equal(t, orders.PaymentGateway, res.Order.PaymentMethod)
	assert.False(t, res.Order.Paid)
}

func TestCheckout_GatewayZeroTotalCreatesOrderWithoutURL(t *testing.T) {
	f := newFixture(t, 10, 50, 100)
	f.c.ShippingCost = decimal.Zero
	req := codRequest()
	req.PaymentMethod = orders.PaymentGateway

	res, err := f.c.Checkout(context.Background(), req)
	require.NoError(t, err)

	assert.Empty(t, res.PaymentURL)
	assert.Empty(t, f.txns.refs)
	assert.True(t, res.Order.Total.IsZero())
	assert.Equal(t, orders.PaymentGateway, res.Order.PaymentMethod)
	assert.Equal(t, 1, f.s.OrderCount())
}

func TestCheckout_GatewayNotConfiguredRollsBack(t *testing.T) {
	f := newFixture(t, 10, 50, 100)
	f.c.Register(payment.NewGateway(nil, f.s, f.txns, time.Minute, zap.NewNop()))
	req := codRequest(inventory.Line{VariantID: "v-1", Quantity: 2})
	req.PaymentMethod = orders.PaymentGateway

	_, err := f.c.Checkout(context.Background(), req)
	assert.True(t, errors.Is(err, apperr.ErrPayment))
	assert.Equal(t, 10, f.s.Variant("v-1").Quantity)
	assert.Equal(t, 0, f.s.OrderCount())
	assert.Empty(t, f.n.sent)
}

func TestCheckout_ConcurrentBuyersNeverOversell(t *testing.T) {
	f := newFixture(t, 5, 5, 5)
	f.c.Notifier = nil

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, short := 0, 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.c.Checkout(context.Background(), codRequest(inventory.Line{VariantID: "v-1", Quantity: 1}))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, apperr.ErrInsufficient) {
				short++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, 7, short)
	assert.Equal(t, 0, f.s.Variant("v-1").Quantity)
	assert.Equal(t, 5, f.s.OrderCount())
}
