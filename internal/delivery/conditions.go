package delivery

import "github.com/noah-isme/backend-pricing/internal/pricing"

// ConditionKind tags an availability or pricing condition. The original
// expressed these as untyped JSON blobs dispatched on a type string; here
// every kind is a declared constant and the evaluator switches exhaustively.
type ConditionKind string

const (
	// Availability gates. All gates on an option must pass.
	CondMetroOnly     ConditionKind = "metro_only"
	CondExcludeRemote ConditionKind = "exclude_remote"
	CondWeekdayOnly   ConditionKind = "weekday_only"
	CondHighValueOnly ConditionKind = "high_value_only"

	// Pricing adjustments, applied in list order by Cost.
	CondHighValueDiscount ConditionKind = "high_value_discount"
	CondWeekendSurcharge  ConditionKind = "weekend_surcharge"
	CondRemoteSurcharge   ConditionKind = "remote_surcharge"
)

// Condition is a typed availability/pricing rule attached to a delivery
// option. A single ordered list serves both roles: gate kinds participate in
// Available, pricing kinds in Cost, dispatched by Kind.
type Condition struct {
	Kind       ConditionKind `json:"kind"`
	Threshold  pricing.Money `json:"threshold,omitempty"`
	PercentBps int32         `json:"percent_bps,omitempty"`
	Amount     pricing.Money `json:"amount,omitempty"`
}

// isGate reports whether the condition participates in availability checks.
func (c Condition) isGate() bool {
	switch c.Kind {
	case CondMetroOnly, CondExcludeRemote, CondWeekdayOnly, CondHighValueOnly:
		return true
	case CondHighValueDiscount, CondWeekendSurcharge, CondRemoteSurcharge:
		return false
	}
	return false
}
