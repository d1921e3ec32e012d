package pricing

import (
	"time"

	"github.com/google/uuid"
)

// Item describes a cart line used for pricing calculation.
type Item struct {
	ProductID  uuid.UUID
	CategoryID *uuid.UUID
	BrandID    *uuid.UUID
	Qty        int
	UnitPrice  Money
}

// Subtotal returns the line subtotal, ignoring non-positive quantities.
func (it Item) Subtotal() Money {
	if it.Qty <= 0 {
		return 0
	}
	return Money(it.Qty) * it.UnitPrice
}

// AppliedCharge records one order charge applied to a quote.
type AppliedCharge struct {
	Code    string `json:"code"`
	Amount  Money  `json:"amount"`
	Taxable bool   `json:"taxable"`
}

// AppliedTax records one tax rule applied to a quote.
type AppliedTax struct {
	Code   string `json:"code"`
	Amount Money  `json:"amount"`
}

// Quote carries the order context through the pricing pipeline. Stages read
// the inputs and fill the accumulator fields; the struct is passed by value
// so every stage stays a pure function.
type Quote struct {
	// Inputs gathered by the caller at quote time.
	Items          []Item
	WeightG        int64
	Zone           string
	Pincode        string
	State          string
	PaymentMethod  string
	CustomerTier   string
	CustomerGroups []string
	OrderDate      time.Time
	OrderTime      string // HH:MM:SS
	Metro          bool
	Remote         bool
	ODA            bool
	CODAmount      Money
	DeclaredValue  Money

	// Accumulators filled by pipeline stages.
	Subtotal         Money
	BundleDiscount   Money
	CouponDiscount   Money
	FreeShipping     bool
	Shipping         Money
	DeliveryDays     int
	InsurancePremium Money
	Charges          []AppliedCharge
	AdvancePayment   Money
	Taxes            []AppliedTax
	Tax              Money
	Total            Money
}

// NewQuote initialises a quote from cart lines, computing the raw subtotal.
func NewQuote(items []Item) Quote {
	var subtotal Money
	for _, it := range items {
		subtotal += it.Subtotal()
	}
	return Quote{Items: items, Subtotal: subtotal}
}

// DiscountedSubtotal is the subtotal after bundle and coupon discounts,
// floored at zero.
func (q Quote) DiscountedSubtotal() Money {
	s := q.Subtotal - q.BundleDiscount - q.CouponDiscount
	if s < 0 {
		return 0
	}
	return s
}

// ChargesTotal sums all applied order charges.
func (q Quote) ChargesTotal() Money {
	var total Money
	for _, c := range q.Charges {
		total += c.Amount
	}
	return total
}

// TaxableCharges sums applied charges flagged as taxable.
func (q Quote) TaxableCharges() Money {
	var total Money
	for _, c := range q.Charges {
		if c.Taxable {
			total += c.Amount
		}
	}
	return total
}

// ShippingPayable is the shipping component owed by the customer, zero when a
// free-shipping coupon applies.
func (q Quote) ShippingPayable() Money {
	if q.FreeShipping {
		return 0
	}
	return q.Shipping
}
