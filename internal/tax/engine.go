package tax

import (
	"sort"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pricing/internal/pricing"
)

// ApplyOn selects the base amount a tax rule is computed against.
type ApplyOn string

const (
	ApplyOnSubtotal             ApplyOn = "subtotal"
	ApplyOnSubtotalWithCharges  ApplyOn = "subtotal_with_charges"
	ApplyOnSubtotalWithShipping ApplyOn = "subtotal_with_shipping"
)

// Rule is an administrator-managed tax configuration row.
type Rule struct {
	Code          string
	RateBps       int32 `validate:"gte=0"`
	Inclusive     bool
	ApplyOn       ApplyOn
	States        []string
	CategoryIDs   []uuid.UUID
	MinOrderValue pricing.Money
	Priority      int
	Enabled       bool
}

// Context carries the order attributes tax applicability depends on.
type Context struct {
	State       string
	CategoryIDs []uuid.UUID
	OrderValue  pricing.Money
}

// Applicable filters enabled rules by state membership, category
// intersection and minimum order value, ordered by priority ascending.
// Every returned rule is applied; tax rules are summed by the caller, they
// never compete on priority the way other evaluators do.
func Applicable(rules []Rule, ctx Context) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		if !matchesState(r.States, ctx.State) {
			continue
		}
		if !intersects(r.CategoryIDs, ctx.CategoryIDs) {
			continue
		}
		if r.MinOrderValue > 0 && ctx.OrderValue < r.MinOrderValue {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// Calculate returns the tax amount for one rule over the taxable base.
// Inclusive rates extract the tax already contained in the amount:
// amount - amount/(1+rate), so an 18% inclusive rate over 118.00 yields 18.00.
func Calculate(r Rule, taxable pricing.Money) pricing.Money {
	if taxable <= 0 || r.RateBps <= 0 {
		return 0
	}
	if r.Inclusive {
		if r.RateBps >= 10000 {
			return 0
		}
		return taxable - taxable*10000/(10000+pricing.Money(r.RateBps))
	}
	return pricing.PercentOf(taxable, r.RateBps)
}

func matchesState(states []string, state string) bool {
	if len(states) == 0 {
		return true
	}
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}

func intersects(want, have []uuid.UUID) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}
