package charge

import (
	"sort"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pricing/internal/pricing"
)

// Kind enumerates how an order charge is computed.
type Kind string

const (
	KindFixed      Kind = "fixed"
	KindPercentage Kind = "percentage"
	KindTiered     Kind = "tiered"
)

// ApplyTo scopes a charge to a payment context.
type ApplyTo string

const (
	ApplyToAll            ApplyTo = "all"
	ApplyToCODOnly        ApplyTo = "cod_only"
	ApplyToOnlineOnly     ApplyTo = "online_only"
	ApplyToPaymentMethods ApplyTo = "specific_payment_methods"
	ApplyToConditional    ApplyTo = "conditional"
)

// PaymentMethodCOD is the payment method code identifying cash on delivery.
const PaymentMethodCOD = "cod"

// AdvancePayment configures a partial upfront payment collected on COD orders.
type AdvancePayment struct {
	PercentBps int32         `json:"percent_bps,omitempty"`
	Amount     pricing.Money `json:"amount,omitempty"`
}

// Conditions gate charge applicability. They are evaluated for every
// apply-to kind, not just "conditional"; the original behaves that way and
// rate sheets in production depend on it.
type Conditions struct {
	MinOrderValue      pricing.Money   `json:"min_order_value,omitempty"`
	MaxOrderValue      pricing.Money   `json:"max_order_value,omitempty"`
	ExemptAbove        pricing.Money   `json:"exempt_above,omitempty"`
	ExcludedCategories []uuid.UUID     `json:"excluded_categories,omitempty"`
	ExcludedPincodes   []string        `json:"excluded_pincodes,omitempty"`
	IncludedStates     []string        `json:"included_states,omitempty"`
	AdvancePayment     *AdvancePayment `json:"advance_payment,omitempty"`
}

// Charge is an administrator-managed order charge row (COD fee, handling fee,
// convenience fee and the like).
type Charge struct {
	Code           string `validate:"required"`
	Kind           Kind   `validate:"oneof=fixed percentage tiered"`
	Amount         pricing.Money
	PercentBps     int32
	Tiers          []Tier
	ApplyTo        ApplyTo
	PaymentMethods []string
	Conditions     Conditions
	Priority       int
	Taxable        bool
	AfterDiscount  bool
	Enabled        bool
}

// Context carries the order attributes charge applicability depends on.
type Context struct {
	OrderValue  pricing.Money
	CategoryIDs []uuid.UUID
	Pincode     string
	State       string
}

// Applicable returns enabled charges whose scoping and conditions match,
// ordered by priority ascending.
func Applicable(charges []Charge, paymentMethod string, ctx Context) []Charge {
	out := make([]Charge, 0, len(charges))
	for _, c := range charges {
		if !c.Enabled {
			continue
		}
		if !c.appliesTo(paymentMethod) {
			continue
		}
		if !c.Conditions.match(ctx) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

func (c Charge) appliesTo(paymentMethod string) bool {
	switch c.ApplyTo {
	case ApplyToCODOnly:
		return paymentMethod == PaymentMethodCOD
	case ApplyToOnlineOnly:
		return paymentMethod != PaymentMethodCOD
	case ApplyToPaymentMethods:
		for _, m := range c.PaymentMethods {
			if m == paymentMethod {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func (cond Conditions) match(ctx Context) bool {
	if cond.MinOrderValue > 0 && ctx.OrderValue < cond.MinOrderValue {
		return false
	}
	if cond.MaxOrderValue > 0 && ctx.OrderValue > cond.MaxOrderValue {
		return false
	}
	if cond.ExemptAbove > 0 && ctx.OrderValue > cond.ExemptAbove {
		return false
	}
	for _, ex := range cond.ExcludedCategories {
		for _, have := range ctx.CategoryIDs {
			if ex == have {
				return false
			}
		}
	}
	for _, pin := range cond.ExcludedPincodes {
		if pin == ctx.Pincode {
			return false
		}
	}
	if len(cond.IncludedStates) > 0 {
		found := false
		for _, s := range cond.IncludedStates {
			if s == ctx.State {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Calculate computes the charge amount for the given order value. Unmatched
// tiers and unknown kinds yield zero; a zero charge is a valid outcome, not
// an error.
func (c Charge) Calculate(orderValue pricing.Money) pricing.Money {
	switch c.Kind {
	case KindFixed:
		return c.Amount
	case KindPercentage:
		return pricing.PercentOf(orderValue, c.PercentBps)
	case KindTiered:
		for _, t := range c.Tiers {
			if t.Contains(orderValue) {
				return t.Charge.Amount(orderValue)
			}
		}
		return 0
	default:
		return 0
	}
}

// AdvancePaymentConfig returns the advance payment settings, present only on
// COD-scoped charges that carry an advance_payment condition.
func (c Charge) AdvancePaymentConfig() *AdvancePayment {
	if c.ApplyTo != ApplyToCODOnly {
		return nil
	}
	return c.Conditions.AdvancePayment
}

// CalculateAdvancePayment computes the upfront portion of a COD total,
// rounding the percentage form half up.
func (c Charge) CalculateAdvancePayment(total pricing.Money) pricing.Money {
	ap := c.AdvancePaymentConfig()
	if ap == nil || total <= 0 {
		return 0
	}
	if ap.PercentBps > 0 {
		return pricing.PercentOfHalfUp(total, ap.PercentBps)
	}
	if ap.Amount > total {
		return total
	}
	return ap.Amount
}
