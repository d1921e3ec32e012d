package events

// Topic constants for domain events emitted by the pricing service.
const (
	TopicQuoteComputed   = "quote.computed"
	TopicCouponRedeemed  = "coupon.redeemed"
	TopicCouponExhausted = "coupon.exhausted"
	TopicRulesUpdated    = "rules.updated"
)

// DefaultTopics returns the canonical list of topics the service emits.
func DefaultTopics() []string {
	return []string{
		TopicQuoteComputed,
		TopicCouponRedeemed,
		TopicCouponExhausted,
		TopicRulesUpdated,
	}
}
