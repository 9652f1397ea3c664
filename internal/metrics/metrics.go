package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus collectors for the storefront service.
type Metrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec

	OrdersPlaced         *prometheus.CounterVec
	NotificationSends    *prometheus.CounterVec
	NotificationsDropped prometheus.Counter
	StockReleaseFailures prometheus.Counter
}

func New() *Metrics {
	return newWith(prometheus.DefaultRegisterer)
}

// NewForTest registers collectors on a private registry so parallel tests
// do not collide on the default one.
func NewForTest() *Metrics {
	return newWith(prometheus.NewRegistry())
}

func newWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		OrdersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "orders_placed_total",
			Help:      "Orders accepted, by payment method.",
		}, []string{"payment_method"}),
		NotificationSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "notification_sends_total",
			Help:      "Notification delivery attempts, by channel and outcome.",
		}, []string{"channel", "outcome"}),
		NotificationsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "notifications_dropped_total",
			Help:      "Events dropped because the dispatch queue was full.",
		}),
		StockReleaseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "stock_release_failures_total",
			Help:      "Compensating stock releases that failed; indicates a stock accuracy bug.",
		}),
	}

	reg.MustRegister(
		m.Requests, m.LatencyMS,
		m.OrdersPlaced, m.NotificationSends, m.NotificationsDropped, m.StockReleaseFailures,
	)
	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}
