package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newWithRegisterer(reg)

	m.OrderCreated()
	m.OrderCreated()
	m.OrderCancelled()
	m.PaymentCreated()
	m.SettlementCompleted(50 * time.Millisecond)
	m.SettlementRejected()
	m.SettlementRejected()
	m.SettlementRejected()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ordersCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ordersCancelled))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paymentsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.settlementsCompleted))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.settlementsRejected))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.OrderCreated()
		m.OrderCancelled()
		m.PaymentCreated()
		m.SettlementCompleted(time.Millisecond)
		m.SettlementRejected()
	})
}

func TestDoubleRegistrationReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := newWithRegisterer(reg)
	second := newWithRegisterer(reg)

	first.OrderCreated()
	second.OrderCreated()

	assert.Equal(t, 2.0, testutil.ToFloat64(second.ordersCreated))
}
