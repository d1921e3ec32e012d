package carrier

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pricing/internal/pricing"
)

// RateCard is one weight/zone slab of a carrier service's rate sheet.
type RateCard struct {
	ID               uuid.UUID
	CarrierServiceID uuid.UUID
	ZoneCode         string `validate:"required"`
	WeightMinG       int64  `validate:"gte=0"`
	WeightMaxG       *int64 // nil = unbounded
	BaseRate         pricing.Money
	PerKg            pricing.Money
	Per500g          pricing.Money
	FuelBps          int32
	GSTBps           int32
	Handling         pricing.Money
	ODACharge        pricing.Money
	CODFixed         pricing.Money
	CODPercentBps    int32
	MinCOD           pricing.Money
	InsuranceBps     int32
	MinInsurance     pricing.Money
	EffectiveFrom    *time.Time
	EffectiveTo      *time.Time
	Active           bool
}

// Options toggle the optional components of a shipping charge.
type Options struct {
	COD           bool
	CODAmount     pricing.Money
	ODA           bool
	DeclaredValue pricing.Money
}

// Breakdown itemises a computed shipping charge. Components accumulate into
// Subtotal in a fixed order; GST is applied to Subtotal only and never
// compounds on itself.
type Breakdown struct {
	Base          pricing.Money `json:"base"`
	FuelSurcharge pricing.Money `json:"fuel_surcharge"`
	Handling      pricing.Money `json:"handling"`
	ODA           pricing.Money `json:"oda"`
	COD           pricing.Money `json:"cod"`
	Insurance     pricing.Money `json:"insurance"`
	Subtotal      pricing.Money `json:"subtotal"`
	GST           pricing.Money `json:"gst"`
	Total         pricing.Money `json:"total"`
}

// Calculate computes the shipping charge breakdown for the given chargeable
// weight. The per-kg rate is checked first; otherwise the excess weight is
// billed per half kilogram, always rounded up.
func (rc RateCard) Calculate(weightG int64, opts Options) Breakdown {
	var b Breakdown

	b.Base = rc.BaseRate
	excess := weightG - rc.WeightMinG
	if excess > 0 {
		if rc.PerKg > 0 {
			b.Base += excess * rc.PerKg / 1000
		} else if rc.Per500g > 0 {
			units := (excess + 499) / 500
			b.Base += units * rc.Per500g
		}
	}

	b.FuelSurcharge = pricing.PercentOf(b.Base, rc.FuelBps)
	b.Handling = rc.Handling
	if opts.ODA {
		b.ODA = rc.ODACharge
	}
	if opts.COD {
		b.COD = pricing.ClampMin(rc.CODFixed+pricing.PercentOf(opts.CODAmount, rc.CODPercentBps), rc.MinCOD)
	}
	if opts.DeclaredValue > 0 {
		b.Insurance = pricing.ClampMin(pricing.PercentOf(opts.DeclaredValue, rc.InsuranceBps), rc.MinInsurance)
	}

	b.Subtotal = b.Base + b.FuelSurcharge + b.Handling + b.ODA + b.COD + b.Insurance
	b.GST = pricing.PercentOf(b.Subtotal, rc.GSTBps)
	b.Total = b.Subtotal + b.GST
	return b
}

// Matches reports whether the card covers the weight/zone at the given time.
func (rc RateCard) Matches(weightG int64, zone string, now time.Time) bool {
	if !rc.Active {
		return false
	}
	if rc.ZoneCode != zone {
		return false
	}
	if rc.EffectiveFrom != nil && now.Before(*rc.EffectiveFrom) {
		return false
	}
	if rc.EffectiveTo != nil && now.After(*rc.EffectiveTo) {
		return false
	}
	if weightG < rc.WeightMinG {
		return false
	}
	if rc.WeightMaxG != nil && weightG > *rc.WeightMaxG {
		return false
	}
	return true
}

// Select picks the first rate card matching the weight, zone and instant.
// A nil result means no carrier serves the request; callers treat that as a
// zero shipping charge, not an error.
func Select(cards []RateCard, weightG int64, zone string, now time.Time) *RateCard {
	for i := range cards {
		if cards[i].Matches(weightG, zone, now) {
			return &cards[i]
		}
	}
	return nil
}
