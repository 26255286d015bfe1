package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func newTestMetrics(t *testing.T) *BillingMetrics {
	t.Helper()
	return newBillingMetricsWithRegisterer(prometheus.NewRegistry())
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := c.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := g.Write(metric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	return metric.Gauge.GetValue()
}

func TestNewBillingMetrics(t *testing.T) {
	metrics := newTestMetrics(t)

	if metrics.ordersStarted == nil {
		t.Error("ordersStarted counter should not be nil")
	}
	if metrics.ordersCompleted == nil {
		t.Error("ordersCompleted counter should not be nil")
	}
	if metrics.ordersFailed == nil {
		t.Error("ordersFailed counter vec should not be nil")
	}
	if metrics.rollbacksTotal == nil {
		t.Error("rollbacksTotal counter should not be nil")
	}
	if metrics.statusUpdates == nil {
		t.Error("statusUpdates counter vec should not be nil")
	}
	if metrics.billNumberRetries == nil {
		t.Error("billNumberRetries counter should not be nil")
	}
	if metrics.orderDuration == nil {
		t.Error("orderDuration histogram should not be nil")
	}
	if metrics.activeOrders == nil {
		t.Error("activeOrders gauge should not be nil")
	}
}

func TestRecordOrderLifecycle(t *testing.T) {
	metrics := newTestMetrics(t)

	metrics.RecordOrderStarted()
	if got := counterValue(t, metrics.ordersStarted); got != 1.0 {
		t.Errorf("expected ordersStarted 1.0, got %f", got)
	}
	if got := gaugeValue(t, metrics.activeOrders); got != 1.0 {
		t.Errorf("expected activeOrders 1.0, got %f", got)
	}

	metrics.RecordOrderCompleted()
	if got := counterValue(t, metrics.ordersCompleted); got != 1.0 {
		t.Errorf("expected ordersCompleted 1.0, got %f", got)
	}
	if got := gaugeValue(t, metrics.activeOrders); got != 0.0 {
		t.Errorf("expected activeOrders 0.0, got %f", got)
	}
}

func TestRecordOrderFailedByReason(t *testing.T) {
	metrics := newTestMetrics(t)

	metrics.RecordOrderStarted()
	metrics.RecordOrderFailed("insufficient_stock")
	metrics.RecordRollback()

	failed, err := metrics.ordersFailed.GetMetricWithLabelValues("insufficient_stock")
	if err != nil {
		t.Fatalf("get labeled counter: %v", err)
	}
	if got := counterValue(t, failed); got != 1.0 {
		t.Errorf("expected failed counter 1.0, got %f", got)
	}
	if got := counterValue(t, metrics.rollbacksTotal); got != 1.0 {
		t.Errorf("expected rollbacks 1.0, got %f", got)
	}
	if got := gaugeValue(t, metrics.activeOrders); got != 0.0 {
		t.Errorf("expected activeOrders 0.0, got %f", got)
	}
}

func TestRecordStatusUpdate(t *testing.T) {
	metrics := newTestMetrics(t)

	metrics.RecordStatusUpdate("PAID")
	metrics.RecordStatusUpdate("PAID")
	metrics.RecordStatusUpdate("CANCELLED")

	paid, err := metrics.statusUpdates.GetMetricWithLabelValues("PAID")
	if err != nil {
		t.Fatalf("get labeled counter: %v", err)
	}
	if got := counterValue(t, paid); got != 2.0 {
		t.Errorf("expected PAID counter 2.0, got %f", got)
	}
}

func TestRecordOrderDuration(t *testing.T) {
	metrics := newTestMetrics(t)

	metrics.RecordOrderDuration(150 * time.Millisecond)

	metric := &dto.Metric{}
	if err := metrics.orderDuration.Write(metric); err != nil {
		t.Fatalf("failed to write histogram: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 1 {
		t.Errorf("expected 1 sample, got %d", metric.Histogram.GetSampleCount())
	}
}

func TestDuplicateRegistrationReusesCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()

	first := newBillingMetricsWithRegisterer(registry)
	second := newBillingMetricsWithRegisterer(registry)

	second.RecordOrderStarted()
	if got := counterValue(t, first.ordersStarted); got != 1.0 {
		t.Errorf("expected shared counter 1.0, got %f", got)
	}
}
