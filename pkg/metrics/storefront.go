package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Storefront records checkout, webhook and outbox activity. A nil
// *Storefront or one built without a registerer drops every observation.
type Storefront struct {
	ordersCreated   *prometheus.CounterVec
	paymentFailures *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	outboxPublished *prometheus.CounterVec
	outboxFailed    *prometheus.CounterVec
	outboxBatch     prometheus.Histogram
}

// NewStorefront registers the storefront metrics on the provided registerer.
func NewStorefront(reg prometheus.Registerer) *Storefront {
	if reg == nil {
		return &Storefront{}
	}
	m := &Storefront{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_orders_created_total",
			Help: "Orders materialized from a bag snapshot.",
		}, []string{"source"}),
		paymentFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_payment_processor_failures_total",
			Help: "Failed calls to the payment processor.",
		}, []string{"operation"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_webhook_events_total",
			Help: "Payment processor webhook events by type and outcome.",
		}, []string{"event_type", "outcome"}),
		outboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_outbox_published_total",
			Help: "Outbox events published.",
		}, []string{"event_type"}),
		outboxFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_outbox_failed_total",
			Help: "Outbox publish attempts that failed.",
		}, []string{"event_type"}),
		outboxBatch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "storefront_outbox_batch_duration_seconds",
			Help:    "Duration of one outbox publish batch.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.ordersCreated, m.paymentFailures, m.webhookEvents, m.outboxPublished, m.outboxFailed, m.outboxBatch)
	return m
}

func (m *Storefront) OrderCreated(source string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(source)).Inc()
}

func (m *Storefront) PaymentFailure(operation string) {
	if m == nil || m.paymentFailures == nil {
		return
	}
	m.paymentFailures.WithLabelValues(normalizeLabel(operation)).Inc()
}

func (m *Storefront) WebhookEvent(eventType, outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (m *Storefront) OutboxPublished(eventType string) {
	if m == nil || m.outboxPublished == nil {
		return
	}
	m.outboxPublished.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *Storefront) OutboxFailed(eventType string) {
	if m == nil || m.outboxFailed == nil {
		return
	}
	m.outboxFailed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *Storefront) ObserveOutboxBatch(d time.Duration) {
	if m == nil || m.outboxBatch == nil {
		return
	}
	m.outboxBatch.Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
