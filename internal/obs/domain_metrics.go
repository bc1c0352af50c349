package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrdersSubmittedTotal counts orders successfully posted to the backend.
	OrdersSubmittedTotal prometheus.Counter
	// ReceiptsSubmittedTotal counts import receipts successfully posted to the backend.
	ReceiptsSubmittedTotal prometheus.Counter
	// PromotionsAppliedTotal counts promo-code resolution outcomes.
	PromotionsAppliedTotal *prometheus.CounterVec
	// DomainEventsTotal counts emitted domain events by topic.
	DomainEventsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrdersSubmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_submitted_total",
			Help:      "Count of orders submitted to the store backend.",
		})
		ReceiptsSubmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipts_submitted_total",
			Help:      "Count of import receipts submitted to the store backend.",
		})
		PromotionsAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotions_applied_total",
			Help:      "Count of promo-code resolution outcomes.",
		}, []string{"result"})
		DomainEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "domain_events_total",
			Help:      "Count of emitted domain events by topic.",
		}, []string{"topic"})

		mustRegisterCollector(reg, OrdersSubmittedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				OrdersSubmittedTotal = v
			}
		})
		mustRegisterCollector(reg, ReceiptsSubmittedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				ReceiptsSubmittedTotal = v
			}
		})
		mustRegisterCollector(reg, PromotionsAppliedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PromotionsAppliedTotal = v
			}
		})
		mustRegisterCollector(reg, DomainEventsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DomainEventsTotal = v
			}
		})
	})
}

// IncOrdersSubmitted bumps the order counter when registered.
func IncOrdersSubmitted() {
	if OrdersSubmittedTotal != nil {
		OrdersSubmittedTotal.Inc()
	}
}

// IncReceiptsSubmitted bumps the receipt counter when registered.
func IncReceiptsSubmitted() {
	if ReceiptsSubmittedTotal != nil {
		ReceiptsSubmittedTotal.Inc()
	}
}

// IncPromotionApplied records a promo-code resolution outcome.
func IncPromotionApplied(result string) {
	if PromotionsAppliedTotal != nil {
		PromotionsAppliedTotal.WithLabelValues(result).Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
