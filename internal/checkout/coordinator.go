// Package checkout turns a checkout request into a persisted order.
package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/ariefcatur/go-fulfillment/internal/apperr"
	"github.com/ariefcatur/go-fulfillment/internal/customers"
	"github.com/ariefcatur/go-fulfillment/internal/inventory"
	"github.com/ariefcatur/go-fulfillment/internal/metrics"
	"github.com/ariefcatur/go-fulfillment/internal/notify"
	"github.com/ariefcatur/go-fulfillment/internal/orders"
	"github.com/ariefcatur/go-fulfillment/internal/store"
	"github.com/ariefcatur/go-fulfillment/internal/tracking"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Request struct {
	CustomerID    string
	ShipName      string
	ShipPhone     string
	ShipAddress   string
	Notes         string
	PaymentMethod orders.PaymentMethod
	Lines         []inventory.Line
}

type Result struct {
	Order   orders.Order
	Details []orders.Detail
	// PaymentURL is set for methods that redirect the customer.
	PaymentURL string
}

type Coordinator struct {
	Runner    store.Runner
	Ledger    *inventory.Ledger
	Machine   *tracking.Machine
	Directory customers.Directory
	Notifier  notify.Notifier
	Log       *zap.Logger
	Metrics   *metrics.Metrics

	ShippingCost decimal.Decimal
	Now          func() time.Time

	strategies map[orders.PaymentMethod]PaymentStrategy
}

func NewCoordinator(runner store.Runner, machine *tracking.Machine, dir customers.Directory, n notify.Notifier,
	shipping decimal.Decimal, log *zap.Logger, strategies ...PaymentStrategy) *Coordinator {
	c := &Coordinator{
		Runner:       runner,
		Ledger:       inventory.NewLedger(),
		Machine:      machine,
		Directory:    dir,
		Notifier:     n,
		Log:          log,
		ShippingCost: shipping,
		Now:          func() time.Time { return time.Now().UTC() },
		strategies:   map[orders.PaymentMethod]PaymentStrategy{},
	}
	for _, s := range strategies {
		c.Register(s)
	}
	return c
}

// Register adds or replaces the strategy for s.Method().
func (c *Coordinator) Register(s PaymentStrategy) { c.strategies[s.Method()] = s }

// Checkout reserves stock, writes the order with its details and first track,
// and runs the payment strategy, all in one transaction. Cart cleanup and the
// confirmation mail are best-effort: their failures are logged and never
// reach the caller.
func (c *Coordinator) Checkout(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	res, err := c.checkout(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = strings.ToLower(string(apperr.KindOf(err)))
	}
	c.Metrics.ObserveCheckout(string(req.PaymentMethod), outcome, time.Since(start))
	if err != nil {
		return Result{}, err
	}

	c.notify(ctx, res)
	return res, nil
}

func (c *Coordinator) checkout(ctx context.Context, req Request) (Result, error) {
	strategy, ok := c.strategies[req.PaymentMethod]
	if !ok {
		return Result{}, apperr.Invalid("unsupported payment method %q", req.PaymentMethod)
	}

	var res Result
	err := c.Runner.InTx(ctx, func(tx store.Tx) error {
		reserved, err := c.Ledger.ReserveAll(ctx, tx.Catalog(), req.Lines)
		if err != nil {
			return err
		}

		now := c.Now()
		o := orders.Order{
			ID:            uuid.NewString(),
			CustomerID:    req.CustomerID,
			ShipName:      req.ShipName,
			ShipPhone:     req.ShipPhone,
			ShipAddress:   req.ShipAddress,
			Notes:         req.Notes,
			PaymentMethod: req.PaymentMethod,
			ProductCost:   decimal.Zero,
			SubTotal:      decimal.Zero,
			ShippingCost:  c.ShippingCost,
			Status:        orders.StatusNew,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		details := make([]orders.Detail, 0, len(reserved))
		for _, r := range reserved {
			qty := decimal.NewFromInt(int64(r.Quantity))
			d := orders.Detail{
				ID:        uuid.NewString(),
				OrderID:   o.ID,
				VariantID: r.VariantID,
				Quantity:  r.Quantity,
				Price:     r.Product.Price,
				Cost:      r.Product.Cost,
				Total:     r.Product.Price.Mul(qty),
			}
			o.ProductCost = o.ProductCost.Add(d.Cost.Mul(qty))
			o.SubTotal = o.SubTotal.Add(d.Total)
			details = append(details, d)
		}
		o.Total = o.SubTotal.Add(o.ShippingCost)

		if err := tx.Orders().InsertOrder(ctx, &o); err != nil {
			return err
		}
		if len(details) > 0 {
			if err := tx.Orders().InsertDetails(ctx, details); err != nil {
				return err
			}
		}
		if _, err := c.Machine.Append(ctx, tx, o.ID, orders.StatusNew, "order created"); err != nil {
			return err
		}

		c.clearCart(ctx, tx, req)

		url, err := strategy.Finalize(ctx, o)
		if err != nil {
			return err
		}
		res = Result{Order: o, Details: details, PaymentURL: url}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	c.Log.Info("checkout completed",
		zap.String("order_id", res.Order.ID),
		zap.String("method", string(req.PaymentMethod)),
		zap.Int("lines", len(res.Details)),
		zap.String("total", res.Order.Total.String()))
	return res, nil
}

func (c *Coordinator) clearCart(ctx context.Context, tx store.Tx, req Request) {
	if req.CustomerID == "" || len(req.Lines) == 0 {
		return
	}
	err := tx.Savepoint(ctx, func(sp store.Tx) error {
		for _, ln := range req.Lines {
			if err := sp.Carts().DeleteEntry(ctx, req.CustomerID, ln.VariantID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.Log.Warn("cart cleanup failed", zap.String("customer_id", req.CustomerID), zap.Error(err))
	}
}

func (c *Coordinator) notify(ctx context.Context, res Result) {
	if c.Notifier == nil || c.Directory == nil || res.Order.CustomerID == "" {
		return
	}
	o := res.Order
	cust, err := c.Directory.FindCustomer(ctx, o.CustomerID)
	if err != nil {
		c.Log.Warn("confirmation skipped: customer lookup failed", zap.String("order_id", o.ID), zap.Error(err))
		return
	}

	lines := make([]notify.Line, 0, len(res.Details))
	for _, d := range res.Details {
		lines = append(lines, notify.Line{VariantID: d.VariantID, Quantity: d.Quantity, Price: d.Price, Total: d.Total})
	}
	err = c.Notifier.SendOrderConfirmation(ctx, notify.Confirmation{
		Recipient:     cust.Email,
		Name:          cust.Name,
		OrderID:       o.ID,
		OrderDate:     o.CreatedAt,
		PaymentMethod: string(o.PaymentMethod),
		ShipName:      o.ShipName,
		ShipPhone:     o.ShipPhone,
		ShipAddress:   o.ShipAddress,
		Lines:         lines,
		SubTotal:      o.SubTotal,
		ShippingCost:  o.ShippingCost,
		Total:         o.Total,
	})
	if err != nil {
		c.Log.Warn("confirmation send failed", zap.String("order_id", o.ID), zap.Error(err))
	}
}
