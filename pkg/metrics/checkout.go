package metrics

import (
	"time"

	"github.com/angelmondragon/fitconnect-client/pkg/enums"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fitconnect"

// CheckoutMetrics records what the checkout flow and cart do during a session.
type CheckoutMetrics struct {
	transitions *prometheus.CounterVec
	submissions *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	mutations   prometheus.Counter
	cartUnits   prometheus.Gauge
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_transitions_total",
		Help:      "Checkout state machine transitions.",
	}, []string{"from", "to"})
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_submissions_total",
		Help:      "Order submissions by payment method and outcome.",
	}, []string{"method", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "order_submission_duration_seconds",
		Help:      "Time spent waiting for the order service.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
	mutations := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_mutations_total",
		Help:      "Effective cart mutations.",
	})
	cartUnits := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cart_units",
		Help:      "Units currently in the cart.",
	})
	reg.MustRegister(transitions, submissions, latency, mutations, cartUnits)
	return &CheckoutMetrics{
		transitions: transitions,
		submissions: submissions,
		latency:     latency,
		mutations:   mutations,
		cartUnits:   cartUnits,
	}
}

// ObserveTransition counts a move between checkout states.
func (m *CheckoutMetrics) ObserveTransition(from, to enums.CheckoutState) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from.String()), normalizeLabel(to.String())).Inc()
}

// ObserveSubmission counts a submission attempt. Attempts rejected before
// reaching the service report a zero duration and are left out of the
// latency histogram.
func (m *CheckoutMetrics) ObserveSubmission(method enums.PaymentMethod, outcome string, elapsed time.Duration) {
	if m == nil || m.submissions == nil {
		return
	}
	label := normalizeLabel(method.String())
	m.submissions.WithLabelValues(label, normalizeLabel(outcome)).Inc()
	if elapsed > 0 {
		m.latency.WithLabelValues(label).Observe(elapsed.Seconds())
	}
}

// ObserveCart records a cart mutation and the resulting number of units.
func (m *CheckoutMetrics) ObserveCart(units int) {
	if m == nil || m.mutations == nil {
		return
	}
	m.mutations.Inc()
	m.cartUnits.Set(float64(units))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
