package delivery

import (
	"time"

	"github.com/noah-isme/backend-pricing/internal/pricing"
)

// CodeSameDay identifies the same-day option; the cutoff time is enforced
// only for it.
const CodeSameDay = "same_day"

// Option is an administrator-managed delivery option (standard, express,
// same-day and similar).
type Option struct {
	Code           string `validate:"required"`
	DaysMin        int
	DaysMax        int
	MultiplierBps  int32 // 10000 = x1.0
	FixedSurcharge pricing.Money
	Zones          []string // nil or empty = all zones
	Conditions     []Condition
	CutoffTime     string // HH:MM:SS
	RestrictedDays []time.Weekday
	MinOrderValue  pricing.Money
	Active         bool
}

// Context carries the order attributes availability and pricing depend on.
type Context struct {
	OrderTime string // HH:MM:SS at quote time
	OrderDate time.Time
	Metro     bool
	Remote    bool
}

// Available reports whether the option can serve the order.
func (o Option) Available(zone string, orderValue pricing.Money, ctx Context) bool {
	if !o.Active {
		return false
	}
	if len(o.Zones) > 0 && !contains(o.Zones, zone) {
		return false
	}
	if o.MinOrderValue > 0 && orderValue < o.MinOrderValue {
		return false
	}
	// Cutoff is a lexicographic HH:MM:SS comparison, enforced for same-day only.
	if o.Code == CodeSameDay && o.CutoffTime != "" && ctx.OrderTime > o.CutoffTime {
		return false
	}
	if isRestricted(o.RestrictedDays, ctx.OrderDate.Weekday()) {
		return false
	}
	for _, c := range o.Conditions {
		if !c.isGate() {
			continue
		}
		if !o.gatePasses(c, orderValue, ctx) {
			return false
		}
	}
	return true
}

func (o Option) gatePasses(c Condition, orderValue pricing.Money, ctx Context) bool {
	switch c.Kind {
	case CondMetroOnly:
		return ctx.Metro
	case CondExcludeRemote:
		return !ctx.Remote
	case CondWeekdayOnly:
		wd := ctx.OrderDate.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	case CondHighValueOnly:
		return orderValue >= c.Threshold
	}
	return true
}

// CostBreakdown itemises the delivery cost over the base shipping charge.
type CostBreakdown struct {
	Base        pricing.Money `json:"base"`
	Surcharge   pricing.Money `json:"surcharge"`
	Adjustments pricing.Money `json:"adjustments"`
	Total       pricing.Money `json:"total"`
}

// Cost applies the option multiplier and surcharge to the base shipping
// charge, then walks the condition list for pricing adjustments. The
// high-value discount applies at most once.
func (o Option) Cost(base, orderValue pricing.Money, ctx Context) CostBreakdown {
	mult := o.MultiplierBps
	if mult <= 0 {
		mult = 10000
	}
	cost := base*pricing.Money(mult)/10000 + o.FixedSurcharge

	var adj pricing.Money
	discounted := false
	for _, c := range o.Conditions {
		switch c.Kind {
		case CondHighValueDiscount:
			if !discounted && orderValue >= c.Threshold {
				adj -= pricing.PercentOf(cost, c.PercentBps)
				discounted = true
			}
		case CondWeekendSurcharge:
			wd := ctx.OrderDate.Weekday()
			if wd == time.Saturday || wd == time.Sunday {
				adj += c.Amount
			}
		case CondRemoteSurcharge:
			if ctx.Remote {
				adj += c.Amount
			}
		}
	}

	total := cost + adj
	if total < 0 {
		total = 0
	}
	return CostBreakdown{
		Base:        base,
		Surcharge:   o.FixedSurcharge,
		Adjustments: adj,
		Total:       total,
	}
}

// maxEstimateWalkDays caps the estimate walk so a misconfigured option that
// restricts every weekday cannot spin forever.
const maxEstimateWalkDays = 366

// EstimatedDelivery walks forward from the order date one calendar day at a
// time, counting only days that are not restricted (and, when
// businessDaysOnly is set, not weekends), until the given number of valid
// days has elapsed. The walk is capped at one year; an option whose
// restrictions leave no valid weekday would otherwise never terminate.
func (o Option) EstimatedDelivery(from time.Time, days int, businessDaysOnly bool) time.Time {
	date := from
	for counted, walked := 0, 0; counted < days && walked < maxEstimateWalkDays; walked++ {
		date = date.AddDate(0, 0, 1)
		wd := date.Weekday()
		if isRestricted(o.RestrictedDays, wd) {
			continue
		}
		if businessDaysOnly && (wd == time.Saturday || wd == time.Sunday) {
			continue
		}
		counted++
	}
	return date
}

func isRestricted(restricted []time.Weekday, day time.Weekday) bool {
	for _, d := range restricted {
		if d == day {
			return true
		}
	}
	return false
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
