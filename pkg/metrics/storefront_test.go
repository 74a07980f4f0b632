package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestStorefrontMetricsExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStorefront(reg)
	m.OrderCreated("checkout")
	m.OrderCreated("checkout")
	m.WebhookEvent("payment_intent.succeeded", "")
	m.OutboxPublished("order_created")
	m.ObserveOutboxBatch(120 * time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "storefront_orders_created_total", "source", "checkout"); err != nil {
		t.Fatalf("fetch orders: %v", err)
	} else if got != 2 {
		t.Fatalf("expected orders=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "storefront_webhook_events_total", "outcome", "unknown"); err != nil {
		t.Fatalf("fetch webhook: %v", err)
	} else if got != 1 {
		t.Fatalf("expected webhook=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "storefront_outbox_published_total", "event_type", "order_created"); err != nil {
		t.Fatalf("fetch outbox: %v", err)
	} else if got != 1 {
		t.Fatalf("expected outbox=1, got %f", got)
	}
	mf := findMetricFamily(mfs, "storefront_outbox_batch_duration_seconds")
	if mf == nil || mf.GetMetric()[0].GetHistogram().GetSampleSum() <= 0 {
		t.Fatal("expected batch duration sample")
	}
}

func TestStorefrontMetricsNilSafe(t *testing.T) {
	var m *Storefront
	m.OrderCreated("checkout")
	m.PaymentFailure("create")
	NewStorefront(nil).OutboxFailed("order_paid")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
