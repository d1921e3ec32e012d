package bundle

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pricing/internal/pricing"
)

// Kind enumerates how a bundle rule discounts.
type Kind string

const (
	KindPercentage Kind = "percentage"
	KindFixed      Kind = "fixed"
)

// Conditions are optional extra gates on a bundle rule. Absent parts pass.
type Conditions struct {
	BrandIDs   []uuid.UUID   `json:"brand_ids,omitempty"`
	MinTotal   pricing.Money `json:"min_total,omitempty"`
	ProductIDs []uuid.UUID   `json:"product_ids,omitempty"`
}

// Rule is an administrator-managed bundle/bulk discount configuration.
type Rule struct {
	ID            uuid.UUID
	MinProducts   int `validate:"gt=0"`
	MaxProducts   *int
	Kind          Kind `validate:"oneof=percentage fixed"`
	PercentBps    int32
	FixedDiscount pricing.Money
	CategoryID    *uuid.UUID // nil = all categories
	CustomerTier  *string    // nil = all tiers
	Active        bool
	Priority      int
	ValidFrom     *time.Time
	ValidUntil    *time.Time
	Conditions    Conditions
}

// Product is a cart line seen by bundle condition matching.
type Product struct {
	ID      uuid.UUID
	BrandID *uuid.UUID
}

// matches reports whether the rule covers the given order shape.
func (r Rule) matches(productCount int, categoryID *uuid.UUID, tier string, now time.Time) bool {
	if !r.Active {
		return false
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && now.After(*r.ValidUntil) {
		return false
	}
	if productCount < r.MinProducts {
		return false
	}
	if r.MaxProducts != nil && productCount > *r.MaxProducts {
		return false
	}
	if r.CategoryID != nil {
		if categoryID == nil || *r.CategoryID != *categoryID {
			return false
		}
	}
	if r.CustomerTier != nil && *r.CustomerTier != tier {
		return false
	}
	return true
}

// Select picks the single winning rule: matching rules are ordered by
// priority descending, then discount percentage descending, and the first
// wins. Bundle discounts never sum.
func Select(rules []Rule, productCount int, categoryID *uuid.UUID, tier string, now time.Time) *Rule {
	matched := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.matches(productCount, categoryID, tier, now) {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority > matched[j].Priority
		}
		return matched[i].PercentBps > matched[j].PercentBps
	})
	return &matched[0]
}

// MatchesConditions applies the rule's extra gates to the concrete cart.
// Every configured gate must pass; an empty gate always passes.
func (r Rule) MatchesConditions(products []Product, total pricing.Money) bool {
	if len(r.Conditions.BrandIDs) > 0 && !anyBrand(products, r.Conditions.BrandIDs) {
		return false
	}
	if r.Conditions.MinTotal > 0 && total < r.Conditions.MinTotal {
		return false
	}
	if len(r.Conditions.ProductIDs) > 0 && !anyProduct(products, r.Conditions.ProductIDs) {
		return false
	}
	return true
}

// Discount computes the rule's discount, never exceeding the total.
func (r Rule) Discount(total pricing.Money) pricing.Money {
	switch r.Kind {
	case KindPercentage:
		return pricing.PercentOf(total, r.PercentBps)
	case KindFixed:
		if r.FixedDiscount > total {
			return total
		}
		if r.FixedDiscount < 0 {
			return 0
		}
		return r.FixedDiscount
	default:
		return 0
	}
}

func anyBrand(products []Product, brands []uuid.UUID) bool {
	for _, p := range products {
		if p.BrandID == nil {
			continue
		}
		for _, b := range brands {
			if b == *p.BrandID {
				return true
			}
		}
	}
	return false
}

func anyProduct(products []Product, ids []uuid.UUID) bool {
	for _, p := range products {
		for _, id := range ids {
			if id == p.ID {
				return true
			}
		}
	}
	return false
}
