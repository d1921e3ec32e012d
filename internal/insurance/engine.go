package insurance

import (
	"github.com/noah-isme/backend-pricing/internal/pricing"
)

// ModifierKind tags a premium modifier. The original dispatched on raw JSON
// type strings; each kind is a declared constant here with an exhaustive
// switch in apply.
type ModifierKind string

const (
	ModZoneMultiplier      ModifierKind = "zone_multiplier"
	ModRemoteSurcharge     ModifierKind = "remote_surcharge"
	ModHighValueDiscount   ModifierKind = "high_value_discount"
	ModFragileSurcharge    ModifierKind = "fragile_item_surcharge"
	ModElectronicsSurcharge ModifierKind = "electronics_surcharge"
)

// Modifier mutates the running premium. Modifiers run in list order exactly
// as configured; reordering them changes the result.
type Modifier struct {
	Kind          ModifierKind  `json:"kind"`
	Zone          string        `json:"zone,omitempty"`
	MultiplierBps int32         `json:"multiplier_bps,omitempty"`
	Amount        pricing.Money `json:"amount,omitempty"`
	Threshold     pricing.Money `json:"threshold,omitempty"`
	PercentBps    int32         `json:"percent_bps,omitempty"`
}

// Plan is an administrator-managed shipping insurance configuration.
type Plan struct {
	MinOrderValue       pricing.Money
	MaxOrderValue       *pricing.Money // nil = unbounded
	CoverageBps         int32
	PremiumBps          int32
	MinPremium          pricing.Money
	MaxPremium          *pricing.Money
	Mandatory           bool
	Conditions          []Modifier
	ClaimProcessingDays int
}

// Context carries shipment attributes premium modifiers depend on.
type Context struct {
	Zone        string
	Remote      bool
	Fragile     bool
	Electronics bool
}

// Result is the outcome of a premium quote.
type Result struct {
	Eligible bool          `json:"eligible"`
	Premium  pricing.Money `json:"premium"`
	Coverage pricing.Money `json:"coverage_amount"`
}

// Premium quotes the insurance premium for an order value. Orders outside
// the plan's value window are not eligible and yield a zero premium.
func (p Plan) Premium(orderValue pricing.Money, ctx Context) Result {
	if orderValue < p.MinOrderValue {
		return Result{}
	}
	if p.MaxOrderValue != nil && orderValue > *p.MaxOrderValue {
		return Result{}
	}

	premium := pricing.PercentOf(orderValue, p.PremiumBps)
	premium = pricing.ClampMin(premium, p.MinPremium)
	premium = pricing.ClampMax(premium, p.MaxPremium)

	for _, m := range p.Conditions {
		premium = p.apply(m, premium, orderValue, ctx)
	}
	if premium < 0 {
		premium = 0
	}

	coverage := pricing.PercentOf(orderValue, p.CoverageBps)
	cap := orderValue
	if p.MaxOrderValue != nil {
		cap = *p.MaxOrderValue
	}
	if coverage > cap {
		coverage = cap
	}

	return Result{Eligible: true, Premium: premium, Coverage: coverage}
}

func (p Plan) apply(m Modifier, premium, orderValue pricing.Money, ctx Context) pricing.Money {
	switch m.Kind {
	case ModZoneMultiplier:
		if m.Zone == "" || m.Zone == ctx.Zone {
			if m.MultiplierBps > 0 {
				return premium * pricing.Money(m.MultiplierBps) / 10000
			}
		}
	case ModRemoteSurcharge:
		if ctx.Remote {
			return premium + m.Amount
		}
	case ModHighValueDiscount:
		if orderValue >= m.Threshold {
			return premium - pricing.PercentOf(premium, m.PercentBps)
		}
	case ModFragileSurcharge:
		if ctx.Fragile {
			return premium + pricing.PercentOf(premium, m.PercentBps) + m.Amount
		}
	case ModElectronicsSurcharge:
		if ctx.Electronics {
			return premium + pricing.PercentOf(premium, m.PercentBps) + m.Amount
		}
	}
	return premium
}
