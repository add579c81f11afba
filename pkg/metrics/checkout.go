package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records counters for the checkout and reconciliation flows.
type CheckoutMetrics struct {
	ordersCreated   *prometheus.CounterVec
	paymentsVerify  *prometheus.CounterVec
	ordersCancelled prometheus.Counter
	refundsIssued   prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created, labeled by payment method.",
	}, []string{"method"})
	paymentsVerify := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_verified_total",
		Help: "Gateway payment verification attempts, labeled by result.",
	}, []string{"result"})
	ordersCancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Orders cancelled by users or admins.",
	})
	refundsIssued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "refunds_issued_total",
		Help: "Wallet refunds issued on cancellation.",
	})
	reg.MustRegister(ordersCreated, paymentsVerify, ordersCancelled, refundsIssued)
	return &CheckoutMetrics{
		ordersCreated:   ordersCreated,
		paymentsVerify:  paymentsVerify,
		ordersCancelled: ordersCancelled,
		refundsIssued:   refundsIssued,
	}
}

// IncOrderCreated counts a created order for the given payment method.
func (m *CheckoutMetrics) IncOrderCreated(method string) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.WithLabelValues(normalizeLabel(method)).Inc()
}

// IncPaymentVerified counts a verification attempt with its result.
func (m *CheckoutMetrics) IncPaymentVerified(result string) {
	if m == nil || m.paymentsVerify == nil {
		return
	}
	m.paymentsVerify.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncOrderCancelled counts a cancellation.
func (m *CheckoutMetrics) IncOrderCancelled() {
	if m == nil || m.ordersCancelled == nil {
		return
	}
	m.ordersCancelled.Inc()
}

// IncRefundIssued counts a wallet refund.
func (m *CheckoutMetrics) IncRefundIssued() {
	if m == nil || m.refundsIssued == nil {
		return
	}
	m.refundsIssued.Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return value
}
