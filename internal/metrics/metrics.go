package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics methods are safe on a nil receiver, which records nothing.
type Metrics struct {
	Checkouts *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
	Tracks    *prometheus.CounterVec
}

func New(reg prometheus.Registerer, service string) *Metrics {
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fulfillment",
		Subsystem: service,
		Name:      "checkout_total",
		Help:      "Checkouts by payment method and outcome.",
	}, []string{"method", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fulfillment",
		Subsystem: service,
		Name:      "checkout_duration_ms",
		Help:      "Checkout latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"method"})
	tracks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fulfillment",
		Subsystem: service,
		Name:      "order_tracks_total",
		Help:      "Order track entries written, by status.",
	}, []string{"status"})

	reg.MustRegister(checkouts, latency, tracks)
	return &Metrics{Checkouts: checkouts, LatencyMS: latency, Tracks: tracks}
}

func (m *Metrics) ObserveCheckout(method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(method, outcome).Inc()
	m.LatencyMS.WithLabelValues(method).Observe(float64(d.Milliseconds()))
}

func (m *Metrics) TrackWritten(status string) {
	if m == nil {
		return
	}
	m.Tracks.WithLabelValues(status).Inc()
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
