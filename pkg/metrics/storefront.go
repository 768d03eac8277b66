package metrics

import "github.com/prometheus/client_golang/prometheus"

// StorefrontMetrics counts domain level events: cart mutations, resolver
// transitions and order placement.
type StorefrontMetrics struct {
	cartMutations *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	orders        *prometheus.CounterVec
}

func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	cartMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutations by operation and persistence result.",
	}, []string{"op", "persisted"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_resolver_transitions_total",
		Help: "Checkout resolver state transitions by target state.",
	}, []string{"state"})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_orders_total",
		Help: "Order placement attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(cartMutations, transitions, orders)
	return &StorefrontMetrics{
		cartMutations: cartMutations,
		transitions:   transitions,
		orders:        orders,
	}
}

func (s *StorefrontMetrics) IncCartMutation(op string, persisted bool) {
	if s == nil || s.cartMutations == nil {
		return
	}
	label := "true"
	if !persisted {
		label = "false"
	}
	s.cartMutations.WithLabelValues(normalizeLabel(op), label).Inc()
}

func (s *StorefrontMetrics) IncTransition(state string) {
	if s == nil || s.transitions == nil {
		return
	}
	s.transitions.WithLabelValues(normalizeLabel(state)).Inc()
}

func (s *StorefrontMetrics) IncOrder(outcome string) {
	if s == nil || s.orders == nil {
		return
	}
	s.orders.WithLabelValues(normalizeLabel(outcome)).Inc()
}
