package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ariefcatur/go-fulfillment/internal/apperr"
	"github.com/ariefcatur/go-fulfillment/internal/checkout"
	"github.com/ariefcatur/go-fulfillment/internal/orders"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	VariantID string `json:"variant_id,omitempty"`
	Requested int    `json:"requested,omitempty"`
	Available *int   `json:"available,omitempty"`
}

var statusByKind = map[apperr.Kind]int{
	apperr.KindNotFound:     http.StatusNotFound,
	apperr.KindInsufficient: http.StatusConflict,
	apperr.KindPayment:      http.StatusPaymentRequired,
	apperr.KindInvalid:      http.StatusBadRequest,
}

// writeError maps domain kinds to status codes. Anything untyped is a 500
// and its message is not echoed back.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	code, ok := statusByKind[kind]
	if !ok {
		log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Kind: string(apperr.KindInternal)})
		return
	}

	body := errorBody{Error: err.Error(), Kind: string(kind)}
	var ie *apperr.InsufficientError
	if errors.As(err, &ie) {
		body.VariantID = ie.VariantID
		body.Requested = ie.Requested
		body.Available = &ie.Available
	}
	writeJSON(w, code, body)
}

type orderJSON struct {
	ID            string          `json:"id"`
	CustomerID    string          `json:"customer_id"`
	ShipName      string          `json:"ship_name"`
	ShipPhone     string          `json:"ship_phone"`
	ShipAddress   string          `json:"ship_address"`
	Notes         string          `json:"notes,omitempty"`
	PaymentMethod string          `json:"payment_method"`
	Paid          bool            `json:"paid"`
	Status        string          `json:"status"`
	SubTotal      decimal.Decimal `json:"sub_total"`
	ShippingCost  decimal.Decimal `json:"shipping_cost"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
	Lines         []lineJSON      `json:"lines"`
}

type lineJSON struct {
	VariantID string          `json:"variant_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
}

type checkoutJSON struct {
	Order      orderJSON `json:"order"`
	PaymentURL string    `json:"payment_url,omitempty"`
}

func toCheckoutJSON(r checkout.Result) checkoutJSON {
	o := r.Order
	lines := make([]lineJSON, 0, len(r.Details))
	for _, d := range r.Details {
		lines = append(lines, lineJSON{VariantID: d.VariantID, Quantity: d.Quantity, Price: d.Price, Total: d.Total})
	}
	return checkoutJSON{
		Order: orderJSON{
			ID:            o.ID,
			CustomerID:    o.CustomerID,
			ShipName:      o.ShipName,
			ShipPhone:     o.ShipPhone,
			ShipAddress:   o.ShipAddress,
			Notes:         o.Notes,
			PaymentMethod: string(o.PaymentMethod),
			Paid:          o.Paid,
			Status:        string(o.Status),
			SubTotal:      o.SubTotal,
			ShippingCost:  o.ShippingCost,
			Total:         o.Total,
			CreatedAt:     o.CreatedAt,
			Lines:         lines,
		},
		PaymentURL: r.PaymentURL,
	}
}

type trackJSON struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toTrackJSON(t orders.Track) trackJSON {
	return trackJSON{
		ID:        t.ID,
		OrderID:   t.OrderID,
		Status:    string(t.Status),
		Notes:     t.Notes,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func toTracksJSON(ts []orders.Track) []trackJSON {
	out := make([]trackJSON, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTrackJSON(t))
	}
	return out
}
