package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ariefcatur/go-fulfillment/internal/apperr"
	"github.com/ariefcatur/go-fulfillment/internal/checkout"
	"github.com/ariefcatur/go-fulfillment/internal/inventory"
	"github.com/ariefcatur/go-fulfillment/internal/orders"
	"github.com/ariefcatur/go-fulfillment/internal/tracking"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type Checkouter interface {
	Checkout(ctx context.Context, req checkout.Request) (checkout.Result, error)
}

type TrackService interface {
	CreateOrderTrack(ctx context.Context, orderID string, st orders.Status, notes string) (orders.Track, error)
	UpdateOrderTrack(ctx context.Context, trackID string, p tracking.TrackPatch) (orders.Track, error)
	GetTrack(ctx context.Context, id string) (orders.Track, error)
	ListTracks(ctx context.Context) ([]orders.Track, error)
	TracksByOrder(ctx context.Context, orderID string) ([]orders.Track, error)
	TracksByStatus(ctx context.Context, st orders.Status) ([]orders.Track, error)
}

type PaymentLinker interface {
	CreateRetryPaymentURL(ctx context.Context, orderID string) (string, error)
}

type Handler struct {
	Checkout Checkouter
	Tracks   TrackService
	Payments PaymentLinker
	Log      *zap.Logger

	validate *validator.Validate
}

func NewHandler(c Checkouter, t TrackService, p PaymentLinker, log *zap.Logger) *Handler {
	return &Handler{Checkout: c, Tracks: t, Payments: p, Log: log, validate: validator.New()}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/checkout", h.checkout)
	r.Post("/orders/{id}/tracks", h.createTrack)
	r.Get("/orders/{id}/tracks", h.tracksByOrder)
	r.Post("/orders/{id}/payment-url", h.retryPaymentURL)
	r.Get("/tracks", h.listTracks)
	r.Get("/tracks/{id}", h.getTrack)
	r.Patch("/tracks/{id}", h.updateTrack)
}

type lineReq struct {
	VariantID string `json:"variant_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

// An empty lines list is accepted and yields an order without details.
type checkoutReq struct {
	CustomerID    string    `json:"customer_id" validate:"required"`
	ShipName      string    `json:"ship_name" validate:"required"`
	ShipPhone     string    `json:"ship_phone" validate:"required"`
	ShipAddress   string    `json:"ship_address" validate:"required"`
	Notes         string    `json:"notes" validate:"max=500"`
	PaymentMethod string    `json:"payment_method" validate:"required"`
	Lines         []lineReq `json:"lines" validate:"dive"`
}

type createTrackReq struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes" validate:"max=500"`
}

type updateTrackReq struct {
	OrderID *string `json:"order_id" validate:"omitempty,min=1"`
	Status  *string `json:"status" validate:"omitempty,min=1"`
	Notes   *string `json:"notes" validate:"omitempty,max=500"`
}

// decode reads a JSON body into v and validates its tags.
func (h *Handler) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Invalid("invalid json: %v", err)
	}
	if err := h.validate.Struct(v); err != nil {
		return apperr.Invalid("%v", err)
	}
	return nil
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := h.decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	lines := make([]inventory.Line, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, inventory.Line{VariantID: l.VariantID, Quantity: l.Quantity})
	}

	res, err := h.Checkout.Checkout(r.Context(), checkout.Request{
		CustomerID:    req.CustomerID,
		ShipName:      req.ShipName,
		ShipPhone:     req.ShipPhone,
		ShipAddress:   req.ShipAddress,
		Notes:         req.Notes,
		PaymentMethod: orders.PaymentMethod(req.PaymentMethod),
		Lines:         lines,
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCheckoutJSON(res))
}

func (h *Handler) createTrack(w http.ResponseWriter, r *http.Request) {
	var req createTrackReq
	if err := h.decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	st, err := parseStatus(req.Status)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	tr, err := h.Tracks.CreateOrderTrack(r.Context(), chi.URLParam(r, "id"), st, req.Notes)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTrackJSON(tr))
}

func (h *Handler) updateTrack(w http.ResponseWriter, r *http.Request) {
	var req updateTrackReq
	if err := h.decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	p := tracking.TrackPatch{OrderID: req.OrderID, Notes: req.Notes}
	if req.Status != nil {
		st, err := parseStatus(*req.Status)
		if err != nil {
			writeError(w, h.Log, err)
			return
		}
		p.Status = &st
	}
	tr, err := h.Tracks.UpdateOrderTrack(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrackJSON(tr))
}

func (h *Handler) getTrack(w http.ResponseWriter, r *http.Request) {
	tr, err := h.Tracks.GetTrack(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrackJSON(tr))
}

// listTracks serves GET /tracks and GET /tracks?status=.
func (h *Handler) listTracks(w http.ResponseWriter, r *http.Request) {
	var (
		ts  []orders.Track
		err error
	)
	if s := r.URL.Query().Get("status"); s != "" {
		st, perr := parseStatus(s)
		if perr != nil {
			writeError(w, h.Log, perr)
			return
		}
		ts, err = h.Tracks.TracksByStatus(r.Context(), st)
	} else {
		ts, err = h.Tracks.ListTracks(r.Context())
	}
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toTracksJSON(ts))
}

func (h *Handler) tracksByOrder(w http.ResponseWriter, r *http.Request) {
	ts, err := h.Tracks.TracksByOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toTracksJSON(ts))
}

func (h *Handler) retryPaymentURL(w http.ResponseWriter, r *http.Request) {
	u, err := h.Payments.CreateRetryPaymentURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"payment_url": u})
}

func parseStatus(s string) (orders.Status, error) {
	st, err := orders.ParseStatus(s)
	if err != nil {
		return "", apperr.Invalid("%v", err)
	}
	return st, nil
}
