package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event labels outside the known TryOto events.
const (
	EventOther    = "other"
	EventRejected = "rejected"
)

var knownEvents = map[string]struct{}{
	"shipment.created":          {},
	"shipment.updated":          {},
	"shipment.cancelled":        {},
	"shipment.in_transit":       {},
	"shipment.out_for_delivery": {},
	"shipment.delivered":        {},
	"shipment.returned":         {},
	"shipment.failed":           {},
	"tracking.updated":          {},
}

// EventLabel returns event when it is a known TryOto event, EventOther
// otherwise. Webhook bodies are caller-controlled and must not mint series.
func EventLabel(event string) string {
	if event == EventRejected {
		return event
	}
	if _, ok := knownEvents[event]; ok {
		return event
	}
	return EventOther
}

// Metrics holds the Prometheus metrics of the webhook relay.
type Metrics struct {
	WebhooksTotal   *prometheus.CounterVec
	ForwardDuration *prometheus.HistogramVec
	ForwardErrors   *prometheus.CounterVec
}

// NewMetrics creates the relay metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		WebhooksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oto_webhooks_total",
				Help: "Total number of webhook deliveries by event and outcome",
			},
			[]string{"event", "status"},
		),
		ForwardDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oto_webhook_forward_duration_seconds",
				Help:    "Time spent forwarding a webhook to the TryOto API",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"event"},
		),
		ForwardErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oto_webhook_forward_errors_total",
				Help: "Webhook forwarding failures by error kind",
			},
			[]string{"kind"},
		),
	}
}

// RecordWebhook records one webhook delivery under EventLabel(event).
func (m *Metrics) RecordWebhook(event, status string, duration float64) {
	label := EventLabel(event)
	m.WebhooksTotal.WithLabelValues(label, status).Inc()
	m.ForwardDuration.WithLabelValues(label).Observe(duration)
}

// RecordError records a forwarding failure.
func (m *Metrics) RecordError(kind string) {
	m.ForwardErrors.WithLabelValues(kind).Inc()
}
