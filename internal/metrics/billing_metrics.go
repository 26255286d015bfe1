package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BillingMetrics содержит метрики для транзакции оформления счёта.
type BillingMetrics struct {
	// Счётчики операций
	ordersStarted     prometheus.Counter
	ordersCompleted   prometheus.Counter
	ordersFailed      *prometheus.CounterVec
	rollbacksTotal    prometheus.Counter
	statusUpdates     *prometheus.CounterVec
	billNumberRetries prometheus.Counter

	// Гистограмма времени выполнения
	orderDuration prometheus.Histogram

	// Счётчики событий
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	// Gauge для транзакций в полёте
	activeOrders prometheus.Gauge
}

// NewBillingMetrics создаёт новый экземпляр метрик биллинга.
func NewBillingMetrics() *BillingMetrics {
	return newBillingMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newBillingMetricsWithRegisterer(registerer prometheus.Registerer) *BillingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &BillingMetrics{
		ordersStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "bookshop_orders_started_total",
			Help: "Total number of bill creation transactions started",
		}),
		ordersCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "bookshop_orders_completed_total",
			Help: "Total number of bill creation transactions completed successfully",
		}),
		ordersFailed: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "bookshop_orders_failed_total",
			Help: "Total number of failed bill creation transactions grouped by reason",
		}, []string{"reason"}),
		rollbacksTotal: registerCounter(registerer, prometheus.CounterOpts{
			Name: "bookshop_order_rollbacks_total",
			Help: "Total number of compensating stock releases performed",
		}),
		statusUpdates: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "bookshop_bill_status_updates_total",
			Help: "Total number of bill status updates grouped by new status",
		}, []string{"status"}),
		billNumberRetries: registerCounter(registerer, prometheus.CounterOpts{
			Name: "bookshop_bill_number_retries_total",
			Help: "Total number of bill number collisions retried",
		}),
		orderDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "bookshop_order_duration_seconds",
			Help:    "Duration of bill creation transactions in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "bookshop_timeline_events_total",
			Help: "Total number of bill timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "bookshop_outbox_events_total",
			Help: "Total number of billing events enqueued to the outbox",
		}),
		activeOrders: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "bookshop_active_orders",
			Help: "Number of bill creation transactions currently in flight",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderStarted увеличивает счётчик начатых транзакций.
func (m *BillingMetrics) RecordOrderStarted() {
	m.ordersStarted.Inc()
	m.activeOrders.Inc()
}

// RecordOrderCompleted увеличивает счётчик успешных транзакций.
func (m *BillingMetrics) RecordOrderCompleted() {
	m.ordersCompleted.Inc()
	m.activeOrders.Dec()
}

// RecordOrderFailed увеличивает счётчик неудачных транзакций с причиной.
func (m *BillingMetrics) RecordOrderFailed(reason string) {
	m.ordersFailed.WithLabelValues(reason).Inc()
	m.activeOrders.Dec()
}

// RecordRollback увеличивает счётчик компенсирующих возвратов стока.
func (m *BillingMetrics) RecordRollback() {
	m.rollbacksTotal.Inc()
}

// RecordStatusUpdate увеличивает счётчик смен статуса.
func (m *BillingMetrics) RecordStatusUpdate(status string) {
	m.statusUpdates.WithLabelValues(status).Inc()
}

// RecordBillNumberRetry увеличивает счётчик коллизий номера счёта.
func (m *BillingMetrics) RecordBillNumberRetry() {
	m.billNumberRetries.Inc()
}

// RecordOrderDuration записывает время выполнения транзакции.
func (m *BillingMetrics) RecordOrderDuration(duration time.Duration) {
	m.orderDuration.Observe(duration.Seconds())
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *BillingMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *BillingMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
