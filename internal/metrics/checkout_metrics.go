package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics содержит метрики settlement-операций.
type CheckoutMetrics struct {
	// Счётчики исходов checkout
	checkoutStarted   prometheus.Counter
	checkoutCompleted prometheus.Counter
	checkoutRejected  prometheus.Counter
	checkoutPartial   prometheus.Counter

	// Гистограмма времени выполнения
	checkoutDuration prometheus.Histogram

	// Счётчики событий
	stockDecrements prometheus.Counter
	outboxEvents    prometheus.Counter
}

// NewCheckoutMetrics создаёт новый экземпляр метрик checkout.
func NewCheckoutMetrics() *CheckoutMetrics {
	return newCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		checkoutStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_checkout_started_total",
			Help: "Total number of checkout settlements started",
		}),
		checkoutCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_checkout_completed_total",
			Help: "Total number of checkout settlements completed successfully",
		}),
		checkoutRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_checkout_rejected_total",
			Help: "Total number of checkout settlements rejected during validation",
		}),
		checkoutPartial: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_checkout_partial_total",
			Help: "Total number of checkout settlements that failed mid-commit",
		}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_checkout_duration_seconds",
			Help:    "Duration of checkout settlements in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		stockDecrements: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_stock_decrements_total",
			Help: "Total number of successful per-product stock decrements",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_checkout_outbox_events_total",
			Help: "Total number of checkout events enqueued to outbox",
		}),
	}
}

// RecordCheckoutStarted увеличивает счётчик начатых settlement.
func (m *CheckoutMetrics) RecordCheckoutStarted() {
	if m != nil {
		m.checkoutStarted.Inc()
	}
}

// RecordCheckoutCompleted увеличивает счётчик успешных settlement.
func (m *CheckoutMetrics) RecordCheckoutCompleted() {
	if m != nil {
		m.checkoutCompleted.Inc()
	}
}

// RecordCheckoutRejected увеличивает счётчик отклонённых settlement.
func (m *CheckoutMetrics) RecordCheckoutRejected() {
	if m != nil {
		m.checkoutRejected.Inc()
	}
}

// RecordCheckoutPartial увеличивает счётчик частично закоммиченных settlement.
func (m *CheckoutMetrics) RecordCheckoutPartial() {
	if m != nil {
		m.checkoutPartial.Inc()
	}
}

// RecordCheckoutDuration фиксирует длительность settlement.
func (m *CheckoutMetrics) RecordCheckoutDuration(d time.Duration) {
	if m != nil {
		m.checkoutDuration.Observe(d.Seconds())
	}
}

// RecordStockDecrement увеличивает счётчик успешных списаний стока.
func (m *CheckoutMetrics) RecordStockDecrement() {
	if m != nil {
		m.stockDecrements.Inc()
	}
}

// RecordOutboxEvent увеличивает счётчик событий, поставленных в outbox.
func (m *CheckoutMetrics) RecordOutboxEvent() {
	if m != nil {
		m.outboxEvents.Inc()
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
