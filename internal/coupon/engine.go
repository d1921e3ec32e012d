package coupon

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pricing/internal/pricing"
)

var (
	// ErrNotEligible is returned when the coupon cannot be applied to the provided context.
	ErrNotEligible = errors.New("coupon not eligible")
	// ErrInactive is returned when the coupon is disabled.
	ErrInactive = errors.New("coupon not active")
	// ErrNotStarted is returned before the coupon's start instant.
	ErrNotStarted = errors.New("coupon not started")
	// ErrExpired is returned after the coupon's expiry instant.
	ErrExpired = errors.New("coupon expired")
	// ErrUsageLimitExceeded indicates the coupon has exhausted its global usage quota.
	ErrUsageLimitExceeded = errors.New("coupon usage limit exceeded")
	// ErrPerUserLimitReached indicates the caller has exceeded the per-user allowance.
	ErrPerUserLimitReached = errors.New("coupon per-user usage limit reached")
	// ErrMinimumSpendUnmet indicates the order total did not meet the coupon requirement.
	ErrMinimumSpendUnmet = errors.New("coupon minimum spend not met")
	// ErrFirstOrderOnly is returned when the coupon is restricted to first orders.
	ErrFirstOrderOnly = errors.New("coupon restricted to first order")
	// ErrCustomerGroup is returned when the caller is outside the allowed customer groups.
	ErrCustomerGroup = errors.New("coupon restricted to customer groups")
	// ErrOutsideWindow is returned outside the allowed day/time redemption window.
	ErrOutsideWindow = errors.New("coupon outside redemption window")
)

// Kind enumerates coupon mechanics.
type Kind string

const (
	KindPercentage   Kind = "percentage"
	KindFixedAmount  Kind = "fixed_amount"
	KindFreeShipping Kind = "free_shipping"
	KindBuyXGetY     Kind = "buy_x_get_y"
)

// BuyXGetY configures the buy-X-get-Y mechanic. A nil ProductID means the
// coupon's general applicability rules select eligible items.
type BuyXGetY struct {
	BuyQty    int        `json:"buy_quantity" validate:"gt=0"`
	GetQty    int        `json:"get_quantity" validate:"gt=0"`
	ProductID *uuid.UUID `json:"product_id,omitempty"`
}

// DayTimeWindow restricts redemption to certain weekdays and hours. Either
// part may be empty, meaning unrestricted.
type DayTimeWindow struct {
	Days      []time.Weekday `json:"days,omitempty"`
	HourStart int            `json:"hour_start,omitempty"`
	HourEnd   int            `json:"hour_end,omitempty"`
}

// Allows reports whether the instant falls inside the window.
func (w DayTimeWindow) Allows(now time.Time) bool {
	if len(w.Days) > 0 {
		found := false
		for _, d := range w.Days {
			if d == now.Weekday() {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if w.HourEnd > w.HourStart {
		h := now.Hour()
		if h < w.HourStart || h >= w.HourEnd {
			return false
		}
	}
	return true
}

// Coupon captures the runtime constraints of a discount code.
type Coupon struct {
	ID                   uuid.UUID
	Code                 string `validate:"required"`
	Kind                 Kind   `validate:"oneof=percentage fixed_amount free_shipping buy_x_get_y"`
	Value                pricing.Money
	PercentBps           int32
	MinOrderAmount       pricing.Money
	MaxDiscountAmount    *pricing.Money
	UsageLimit           *int32
	PerUserLimit         *int32
	UsageCount           int32
	StartsAt             *time.Time
	ExpiresAt            *time.Time
	Active               bool
	Stackable            bool
	ApplicableProducts   []uuid.UUID
	ApplicableCategories []uuid.UUID
	ExcludedProducts     []uuid.UUID
	ExcludedCategories   []uuid.UUID
	FirstOrderOnly       bool
	CustomerGroups       []string
	BuyXGetY             *BuyXGetY
	DayTime              *DayTimeWindow
}

// Item represents a cart line eligible for coupon calculation.
type Item struct {
	ProductID  uuid.UUID
	CategoryID *uuid.UUID
	Qty        int
	UnitPrice  pricing.Money
}

// UserContext carries the caller attributes per-user checks depend on.
type UserContext struct {
	UserID      uuid.UUID
	PriorOrders int // non-cancelled orders placed before this one
	Groups      []string
	PerUserUsed int
}

// Validate ensures the coupon can be applied at the provided instant and
// order total.
func (c Coupon) Validate(now time.Time, orderTotal pricing.Money) error {
	if !c.Active {
		return ErrInactive
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return ErrNotStarted
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return ErrExpired
	}
	if c.UsageLimit != nil && *c.UsageLimit >= 0 && c.UsageCount >= *c.UsageLimit {
		return ErrUsageLimitExceeded
	}
	if orderTotal < c.MinOrderAmount {
		return ErrMinimumSpendUnmet
	}
	return nil
}

// CanBeUsedBy applies the per-customer constraints on top of Validate.
func (c Coupon) CanBeUsedBy(now time.Time, u UserContext) error {
	if c.PerUserLimit != nil && *c.PerUserLimit > 0 && u.PerUserUsed >= int(*c.PerUserLimit) {
		return ErrPerUserLimitReached
	}
	if c.FirstOrderOnly && u.PriorOrders > 0 {
		return ErrFirstOrderOnly
	}
	if len(c.CustomerGroups) > 0 {
		found := false
		for _, g := range c.CustomerGroups {
			for _, have := range u.Groups {
				if g == have {
					found = true
					break
				}
			}
		}
		if !found {
			return ErrCustomerGroup
		}
	}
	if c.DayTime != nil && !c.DayTime.Allows(now) {
		return ErrOutsideWindow
	}
	return nil
}

// AppliesToItem reports whether the coupon covers the item. Exclusions are
// checked first; allow-lists narrow applicability only when non-empty.
func (c Coupon) AppliesToItem(it Item) bool {
	for _, ex := range c.ExcludedProducts {
		if ex == it.ProductID {
			return false
		}
	}
	if it.CategoryID != nil {
		for _, ex := range c.ExcludedCategories {
			if ex == *it.CategoryID {
				return false
			}
		}
	}
	if len(c.ApplicableProducts) > 0 || len(c.ApplicableCategories) > 0 {
		for _, p := range c.ApplicableProducts {
			if p == it.ProductID {
				return true
			}
		}
		if it.CategoryID != nil {
			for _, cat := range c.ApplicableCategories {
				if cat == *it.CategoryID {
					return true
				}
			}
		}
		return false
	}
	return true
}

// Result describes the outcome of a discount calculation.
type Result struct {
	Discount     pricing.Money `json:"discount_amount"`
	FreeShipping bool          `json:"free_shipping"`
	FreeUnits    int           `json:"free_units,omitempty"`
}

// Discount computes the coupon's effect on the order. A zero discount is a
// valid outcome for a valid coupon (free shipping, no eligible items).
func (c Coupon) Discount(orderTotal pricing.Money, items []Item) Result {
	switch c.Kind {
	case KindPercentage:
		d := pricing.PercentOf(orderTotal, c.PercentBps)
		d = pricing.ClampMax(d, c.MaxDiscountAmount)
		return Result{Discount: d}
	case KindFixedAmount:
		d := c.Value
		if d > orderTotal {
			d = orderTotal
		}
		if d < 0 {
			d = 0
		}
		return Result{Discount: d}
	case KindFreeShipping:
		return Result{FreeShipping: true}
	case KindBuyXGetY:
		return c.buyXGetY(items)
	default:
		return Result{}
	}
}

// buyXGetY awards free units against the cheapest eligible items first. The
// cheapest-first tie-break protects revenue and is preserved from the
// original rule set.
func (c Coupon) buyXGetY(items []Item) Result {
	cfg := c.BuyXGetY
	if cfg == nil || cfg.BuyQty <= 0 || cfg.GetQty <= 0 {
		return Result{}
	}

	eligible := make([]Item, 0, len(items))
	totalQty := 0
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		if cfg.ProductID != nil {
			if it.ProductID != *cfg.ProductID {
				continue
			}
		} else if !c.AppliesToItem(it) {
			continue
		}
		eligible = append(eligible, it)
		totalQty += it.Qty
	}
	free := totalQty / cfg.BuyQty * cfg.GetQty
	if free <= 0 {
		return Result{}
	}

	sort.SliceStable(eligible, func(i, j int) bool { return eligible[i].UnitPrice < eligible[j].UnitPrice })

	var discount pricing.Money
	remaining := free
	for _, it := range eligible {
		if remaining <= 0 {
			break
		}
		units := it.Qty
		if units > remaining {
			units = remaining
		}
		discount += pricing.Money(units) * it.UnitPrice
		remaining -= units
	}
	return Result{Discount: discount, FreeUnits: free - remaining}
}
