package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics счётчики жизненного цикла заказов и платежей.
type Metrics struct {
	ordersCreated        prometheus.Counter
	ordersCancelled      prometheus.Counter
	paymentsCreated      prometheus.Counter
	settlementsCompleted prometheus.Counter
	settlementsRejected  prometheus.Counter

	settlementDuration prometheus.Histogram
}

func New() *Metrics {
	return newWithRegisterer(prometheus.DefaultRegisterer)
}

func newWithRegisterer(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "dermamart_orders_created_total",
			Help: "Total number of orders placed",
		}),
		ordersCancelled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "dermamart_orders_cancelled_total",
			Help: "Total number of orders cancelled",
		}),
		paymentsCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "dermamart_payments_created_total",
			Help: "Total number of payments created at checkout",
		}),
		settlementsCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "dermamart_settlements_completed_total",
			Help: "Total number of payments settled successfully",
		}),
		settlementsRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "dermamart_settlements_rejected_total",
			Help: "Total number of settlement attempts rejected",
		}),
		settlementDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "dermamart_settlement_duration_seconds",
			Help:    "Duration of the payment settlement transaction",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	c := prometheus.NewCounter(opts)
	if err := registerer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing
			}
		}
	}
	return c
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	h := prometheus.NewHistogram(opts)
	if err := registerer.Register(h); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing
			}
		}
	}
	return h
}

// All increment methods are nil-safe so services can run without metrics
// in tests.

func (m *Metrics) OrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

func (m *Metrics) OrderCancelled() {
	if m == nil {
		return
	}
	m.ordersCancelled.Inc()
}

func (m *Metrics) PaymentCreated() {
	if m == nil {
		return
	}
	m.paymentsCreated.Inc()
}

func (m *Metrics) SettlementCompleted(d time.Duration) {
	if m == nil {
		return
	}
	m.settlementsCompleted.Inc()
	m.settlementDuration.Observe(d.Seconds())
}

func (m *Metrics) SettlementRejected() {
	if m == nil {
		return
	}
	m.settlementsRejected.Inc()
}
