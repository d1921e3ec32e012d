package quote

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pricing/internal/bundle"
	"github.com/noah-isme/backend-pricing/internal/carrier"
	"github.com/noah-isme/backend-pricing/internal/charge"
	"github.com/noah-isme/backend-pricing/internal/coupon"
	"github.com/noah-isme/backend-pricing/internal/delivery"
	"github.com/noah-isme/backend-pricing/internal/insurance"
	"github.com/noah-isme/backend-pricing/internal/pricing"
	"github.com/noah-isme/backend-pricing/internal/tax"
)

type fakeRules struct {
	taxes     []tax.Rule
	charges   []charge.Charge
	cards     []carrier.RateCard
	options   []delivery.Option
	plans     []insurance.Plan
	bundles   []bundle.Rule
	listCalls int
}

func (f *fakeRules) ListTaxRules(context.Context) ([]tax.Rule, error) {
	f.listCalls++
	return f.taxes, nil
}

func (f *fakeRules) ListOrderCharges(context.Context) ([]charge.Charge, error) {
	return f.charges, nil
}

func (f *fakeRules) ListRateCards(context.Context) ([]carrier.RateCard, error) {
	return f.cards, nil
}

func (f *fakeRules) ListDeliveryOptions(context.Context) ([]delivery.Option, error) {
	return f.options, nil
}

func (f *fakeRules) ListInsurancePlans(context.Context) ([]insurance.Plan, error) {
	return f.plans, nil
}

func (f *fakeRules) ListBundleRules(context.Context) ([]bundle.Rule, error) {
	return f.bundles, nil
}

type fakeCouponStore struct {
	coupons map[string]coupon.Coupon
}

func (f *fakeCouponStore) GetCouponByCode(_ context.Context, code string) (coupon.Coupon, error) {
	c, ok := f.coupons[code]
	if !ok {
		return coupon.Coupon{}, pgx.ErrNoRows
	}
	return c, nil
}

func (f *fakeCouponStore) GetCouponByCodeForUpdate(ctx context.Context, code string) (coupon.Coupon, error) {
	return f.GetCouponByCode(ctx, code)
}

func (f *fakeCouponStore) CountUsageByUser(context.Context, uuid.UUID, uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeCouponStore) CountPriorOrders(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeCouponStore) GetUsageByOrder(context.Context, uuid.UUID, uuid.UUID) (coupon.Usage, error) {
	return coupon.Usage{}, pgx.ErrNoRows
}

func (f *fakeCouponStore) InsertUsage(context.Context, coupon.Usage) error { return nil }

func (f *fakeCouponStore) IncrementUsageIfBelowLimit(context.Context, uuid.UUID) (bool, error) {
	return true, nil
}

var testNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func newTestService(rules *fakeRules, coupons map[string]coupon.Coupon) *Service {
	svc := &Service{
		Rules: rules,
		Log:   zerolog.Nop(),
		Now:   func() time.Time { return testNow },
	}
	if coupons != nil {
		svc.Coupons = &coupon.Service{
			Q:   &fakeCouponStore{coupons: coupons},
			Now: func() time.Time { return testNow },
		}
	}
	return svc
}

func items(prices ...int64) []pricing.Item {
	out := make([]pricing.Item, 0, len(prices))
	for _, p := range prices {
		out = append(out, pricing.Item{ProductID: uuid.New(), Qty: 1, UnitPrice: pricing.Money(p)})
	}
	return out
}

func TestQuoteBundleShippingAndTax(t *testing.T) {
	t.Parallel()

	rules := &fakeRules{
		bundles: []bundle.Rule{{
			ID:          uuid.New(),
			MinProducts: 3,
			Kind:        bundle.KindPercentage,
			PercentBps:  1000,
			Active:      true,
		}},
		cards: []carrier.RateCard{{
			ID:       uuid.New(),
			ZoneCode: "A",
			BaseRate: 5000,
			Per500g:  1000,
			FuelBps:  1000,
			GSTBps:   1800,
			Active:   true,
		}},
		taxes: []tax.Rule{{
			Code:    "gst",
			RateBps: 1800,
			ApplyOn: tax.ApplyOnSubtotal,
			Enabled: true,
		}},
	}
	svc := newTestService(rules, nil)

	res, err := svc.Quote(context.Background(), Input{
		Items:   items(10000, 20000, 30000),
		WeightG: 1000,
		Zone:    "A",
	})
	require.NoError(t, err)
	q := res.Quote

	require.Equal(t, pricing.Money(60000), q.Subtotal)
	require.Equal(t, pricing.Money(6000), q.BundleDiscount)
	require.Equal(t, pricing.Money(54000), q.DiscountedSubtotal())
	// base 5000 + 2 half-kg units, 10% fuel, 18% GST on the carrier subtotal
	require.Equal(t, pricing.Money(9086), q.Shipping)
	require.Equal(t, pricing.Money(9720), q.Tax)
	require.Equal(t, pricing.Money(54000+9086+9720), q.Total)
}

func TestQuoteRejectedCouponStillPrices(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeRules{}, map[string]coupon.Coupon{})

	res, err := svc.Quote(context.Background(), Input{
		Items:      items(25000),
		CouponCode: "NOPE",
	})
	require.NoError(t, err)
	require.ErrorIs(t, res.CouponError, coupon.ErrNotEligible)
	require.Equal(t, pricing.Money(0), res.Quote.CouponDiscount)
	require.Equal(t, pricing.Money(25000), res.Quote.Total)
}

func TestQuoteFreeShippingCoupon(t *testing.T) {
	t.Parallel()

	rules := &fakeRules{
		cards: []carrier.RateCard{{
			ID:       uuid.New(),
			ZoneCode: "A",
			BaseRate: 4000,
			Active:   true,
		}},
	}
	svc := newTestService(rules, map[string]coupon.Coupon{
		"FREESHIP": {
			ID:     uuid.New(),
			Code:   "FREESHIP",
			Kind:   coupon.KindFreeShipping,
			Active: true,
		},
	})

	res, err := svc.Quote(context.Background(), Input{
		Items:      items(30000),
		WeightG:    500,
		Zone:       "A",
		CouponCode: "FREESHIP",
	})
	require.NoError(t, err)
	require.NoError(t, res.CouponError)
	require.True(t, res.Quote.FreeShipping)
	require.Equal(t, pricing.Money(4000), res.Quote.Shipping)
	require.Equal(t, pricing.Money(0), res.Quote.ShippingPayable())
	require.Equal(t, pricing.Money(30000), res.Quote.Total)
}

func TestQuoteCODChargeAndAdvancePayment(t *testing.T) {
	t.Parallel()

	rules := &fakeRules{
		cards: []carrier.RateCard{{
			ID:       uuid.New(),
			ZoneCode: "B",
			BaseRate: 4000,
			CODFixed: 2500,
			Active:   true,
		}},
		charges: []charge.Charge{{
			Code:          "cod_fee",
			Kind:          charge.KindFixed,
			Amount:        5000,
			ApplyTo:       charge.ApplyToCODOnly,
			AfterDiscount: true,
			Enabled:       true,
			Conditions: charge.Conditions{
				AdvancePayment: &charge.AdvancePayment{PercentBps: 2500},
			},
		}},
	}
	svc := newTestService(rules, nil)

	res, err := svc.Quote(context.Background(), Input{
		Items:         items(50000),
		WeightG:       500,
		Zone:          "B",
		PaymentMethod: "cod",
	})
	require.NoError(t, err)
	q := res.Quote

	require.Equal(t, pricing.Money(6500), q.Shipping)
	require.Len(t, q.Charges, 1)
	require.Equal(t, pricing.Money(5000), q.ChargesTotal())
	require.Equal(t, pricing.Money(12500), q.AdvancePayment)
	require.Equal(t, pricing.Money(50000+6500+5000), q.Total)
}

func TestQuoteMandatoryInsuranceApplied(t *testing.T) {
	t.Parallel()

	rules := &fakeRules{
		plans: []insurance.Plan{{
			PremiumBps: 100,
			MinPremium: 500,
			Mandatory:  true,
		}},
	}
	svc := newTestService(rules, nil)

	res, err := svc.Quote(context.Background(), Input{Items: items(54000)})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(540), res.Quote.InsurancePremium)
	require.Equal(t, pricing.Money(54540), res.Quote.Total)
}

func TestQuoteOptionalInsuranceSkippedUnlessRequested(t *testing.T) {
	t.Parallel()

	rules := &fakeRules{
		plans: []insurance.Plan{{PremiumBps: 100, MinPremium: 500}},
	}
	svc := newTestService(rules, nil)

	res, err := svc.Quote(context.Background(), Input{Items: items(54000)})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(0), res.Quote.InsurancePremium)

	res, err = svc.Quote(context.Background(), Input{Items: items(54000), WantInsurance: true})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(540), res.Quote.InsurancePremium)
}

func TestQuoteDeliveryOptionMultiplier(t *testing.T) {
	t.Parallel()

	rules := &fakeRules{
		cards: []carrier.RateCard{{
			ID:       uuid.New(),
			ZoneCode: "A",
			BaseRate: 4000,
			Active:   true,
		}},
		options: []delivery.Option{{
			Code:          "express",
			DaysMin:       1,
			DaysMax:       2,
			MultiplierBps: 15000,
			Active:        true,
		}},
	}
	svc := newTestService(rules, nil)

	res, err := svc.Quote(context.Background(), Input{
		Items:          items(30000),
		WeightG:        500,
		Zone:           "A",
		DeliveryOption: "express",
	})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(6000), res.Quote.Shipping)
	require.Equal(t, 2, res.Quote.DeliveryDays)
}

func TestQuoteNoRateCardMeansFreeOfShippingCharge(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeRules{}, nil)

	res, err := svc.Quote(context.Background(), Input{Items: items(30000), WeightG: 500, Zone: "Z"})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(0), res.Quote.Shipping)
	require.Equal(t, pricing.Money(30000), res.Quote.Total)
}

func TestQuoteRequiresItems(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeRules{}, nil)
	_, err := svc.Quote(context.Background(), Input{})
	require.ErrorIs(t, err, ErrNoItems)
}
