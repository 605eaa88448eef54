package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "outreach"

// SendBuckets covers provider round trips from fast acks to the send timeout
var SendBuckets = []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15}

// Metrics holds the collectors of the outreach engine. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	Dispatches   *prometheus.CounterVec
	Messages     *prometheus.CounterVec
	SendDuration *prometheus.HistogramVec
	Checkouts    *prometheus.CounterVec
}

// New creates and registers the collectors on registry
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,
		Dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "campaign",
				Name:      "dispatch_total",
				Help:      "Campaign dispatch attempts by result",
			},
			[]string{"result"},
		),
		Messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "campaign",
				Name:      "messages_total",
				Help:      "Per-recipient delivery attempts by channel and status",
			},
			[]string{"channel", "status"},
		),
		SendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "campaign",
				Name:      "send_duration_seconds",
				Help:      "Channel provider send latency",
				Buckets:   SendBuckets,
			},
			[]string{"channel"},
		),
		Checkouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "billing",
				Name:      "checkout_total",
				Help:      "Checkouts started, split by whether a voucher discount applied",
			},
			[]string{"discounted"},
		),
	}

	registry.MustRegister(m.Dispatches, m.Messages, m.SendDuration, m.Checkouts)
	return m
}

// ObserveDispatch counts one dispatch outcome
func (m *Metrics) ObserveDispatch(result string) {
	if m == nil {
		return
	}
	m.Dispatches.WithLabelValues(result).Inc()
}

// ObserveSend records one provider call
func (m *Metrics) ObserveSend(channel, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues(channel, status).Inc()
	m.SendDuration.WithLabelValues(channel).Observe(took.Seconds())
}

// ObserveCheckout counts a started checkout
func (m *Metrics) ObserveCheckout(discounted bool) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(strconv.FormatBool(discounted)).Inc()
}

// Handler exposes the registry for scraping
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
