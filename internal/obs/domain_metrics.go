package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuotesComputed counts completed quote computations.
	QuotesComputed prometheus.Counter
	// CouponRedemptions counts redemption attempts by outcome.
	CouponRedemptions *prometheus.CounterVec
	// RateCardMisses counts shipping lookups with no matching rate card.
	RateCardMisses prometheus.Counter
	// RuleRowsRejected counts configuration rows skipped at load time.
	RuleRowsRejected *prometheus.CounterVec
	// RuleCacheLookups counts rule cache hits and misses by family.
	RuleCacheLookups *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuotesComputed = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_computed_total",
			Help:      "Total number of quotes computed.",
		})
		CouponRedemptions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_redemptions_total",
			Help:      "Count of coupon redemption attempts by outcome.",
		}, []string{"result"})
		RateCardMisses = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_card_misses_total",
			Help:      "Shipping quotes that found no matching rate card.",
		})
		RuleRowsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_rows_rejected_total",
			Help:      "Configuration rows skipped because they failed validation.",
		}, []string{"table"})
		RuleCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_cache_lookups_total",
			Help:      "Rule cache lookups by family and result.",
		}, []string{"family", "result"})

		mustRegisterCollector(reg, QuotesComputed, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				QuotesComputed = v
			}
		})
		mustRegisterCollector(reg, CouponRedemptions, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CouponRedemptions = v
			}
		})
		mustRegisterCollector(reg, RateCardMisses, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				RateCardMisses = v
			}
		})
		mustRegisterCollector(reg, RuleRowsRejected, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RuleRowsRejected = v
			}
		})
		mustRegisterCollector(reg, RuleCacheLookups, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RuleCacheLookups = v
			}
		})
	})
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
