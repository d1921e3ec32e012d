package quote

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pricing/internal/bundle"
	"github.com/noah-isme/backend-pricing/internal/cache"
	"github.com/noah-isme/backend-pricing/internal/carrier"
	"github.com/noah-isme/backend-pricing/internal/charge"
	"github.com/noah-isme/backend-pricing/internal/coupon"
	"github.com/noah-isme/backend-pricing/internal/delivery"
	"github.com/noah-isme/backend-pricing/internal/events"
	"github.com/noah-isme/backend-pricing/internal/insurance"
	"github.com/noah-isme/backend-pricing/internal/obs"
	"github.com/noah-isme/backend-pricing/internal/pricing"
	"github.com/noah-isme/backend-pricing/internal/tax"
)

// ErrNoItems is returned when a quote request carries an empty cart.
var ErrNoItems = errors.New("quote: at least one item is required")

// Cache key families, one per rule table.
const (
	familyTax       = "tax"
	familyCharges   = "charges"
	familyRateCards = "ratecards"
	familyDelivery  = "delivery"
	familyInsurance = "insurance"
	familyBundles   = "bundles"
)

type ruleSource interface {
	ListTaxRules(ctx context.Context) ([]tax.Rule, error)
	ListOrderCharges(ctx context.Context) ([]charge.Charge, error)
	ListRateCards(ctx context.Context) ([]carrier.RateCard, error)
	ListDeliveryOptions(ctx context.Context) ([]delivery.Option, error)
	ListInsurancePlans(ctx context.Context) ([]insurance.Plan, error)
	ListBundleRules(ctx context.Context) ([]bundle.Rule, error)
}

// Input is everything a caller supplies to price an order.
type Input struct {
	Items          []pricing.Item
	WeightG        int64
	Zone           string
	Pincode        string
	State          string
	PaymentMethod  string
	CustomerTier   string
	CustomerGroups []string
	UserID         *uuid.UUID
	CouponCode     string
	DeliveryOption string
	WantInsurance  bool
	Metro          bool
	Remote         bool
	ODA            bool
	Fragile        bool
	Electronics    bool
	DeclaredValue  pricing.Money
}

// Service assembles and runs the pricing pipeline for one order context.
type Service struct {
	Rules   ruleSource
	Coupons *coupon.Service
	Cache   *cache.Cache
	Events  *events.Bus
	Log     zerolog.Logger
	Now     func() time.Time
}

// Result is a computed quote plus the coupon rejection, if any. A rejected
// coupon does not fail the quote; the order is priced without it and the
// reason is reported alongside.
type Result struct {
	Quote       pricing.Quote
	CouponError error
}

// Quote prices the given order context. Rule families are loaded through the
// cache, the pipeline runs as pure stages over the assembled quote, and a
// quote.computed event is emitted best-effort.
func (s *Service) Quote(ctx context.Context, in Input) (Result, error) {
	if len(in.Items) == 0 {
		return Result{}, ErrNoItems
	}

	rules, err := s.loadRules(ctx)
	if err != nil {
		return Result{}, err
	}

	now := s.now()
	q := pricing.NewQuote(in.Items)
	q.WeightG = in.WeightG
	q.Zone = in.Zone
	q.Pincode = in.Pincode
	q.State = in.State
	q.PaymentMethod = in.PaymentMethod
	q.CustomerTier = in.CustomerTier
	q.CustomerGroups = in.CustomerGroups
	q.OrderDate = now
	q.OrderTime = now.Format("15:04:05")
	q.Metro = in.Metro
	q.Remote = in.Remote
	q.ODA = in.ODA
	q.DeclaredValue = in.DeclaredValue
	if in.PaymentMethod == charge.PaymentMethodCOD {
		q.CODAmount = q.Subtotal
	}

	res := Result{}
	var couponOutcome coupon.PreviewResult
	if in.CouponCode != "" && s.Coupons != nil {
		couponOutcome, res.CouponError = s.Coupons.Preview(ctx, in.CouponCode, in.UserID, q.Subtotal, couponItems(in.Items))
	}

	pipeline := pricing.New(
		s.bundleStage(rules.bundles, now),
		couponStage(couponOutcome, res.CouponError),
		s.shippingStage(rules.rateCards, rules.deliveryOptions, in, now),
		insuranceStage(rules.insurancePlans, in),
		chargesStage(rules.charges),
		taxStage(rules.taxes),
	)
	res.Quote = pipeline.Run(q)

	if obs.QuotesComputed != nil {
		obs.QuotesComputed.Inc()
	}
	s.emitQuoteComputed(ctx, in, res.Quote)
	return res, nil
}

type ruleSet struct {
	taxes           []tax.Rule
	charges         []charge.Charge
	rateCards       []carrier.RateCard
	deliveryOptions []delivery.Option
	insurancePlans  []insurance.Plan
	bundles         []bundle.Rule
}

func (s *Service) loadRules(ctx context.Context) (ruleSet, error) {
	var (
		rs  ruleSet
		err error
	)
	if rs.taxes, err = cache.Remember(ctx, s.Cache, familyTax, s.Rules.ListTaxRules); err != nil {
		return rs, err
	}
	if rs.charges, err = cache.Remember(ctx, s.Cache, familyCharges, s.Rules.ListOrderCharges); err != nil {
		return rs, err
	}
	if rs.rateCards, err = cache.Remember(ctx, s.Cache, familyRateCards, s.Rules.ListRateCards); err != nil {
		return rs, err
	}
	if rs.deliveryOptions, err = cache.Remember(ctx, s.Cache, familyDelivery, s.Rules.ListDeliveryOptions); err != nil {
		return rs, err
	}
	if rs.insurancePlans, err = cache.Remember(ctx, s.Cache, familyInsurance, s.Rules.ListInsurancePlans); err != nil {
		return rs, err
	}
	if rs.bundles, err = cache.Remember(ctx, s.Cache, familyBundles, s.Rules.ListBundleRules); err != nil {
		return rs, err
	}
	return rs, nil
}

func (s *Service) bundleStage(rules []bundle.Rule, now time.Time) pricing.Stage {
	return pricing.Stage{
		Name: pricing.StageBundle,
		Apply: func(q pricing.Quote) pricing.Quote {
			r := bundle.Select(rules, len(q.Items), sharedCategory(q.Items), q.CustomerTier, now)
			if r == nil {
				return q
			}
			if !r.MatchesConditions(bundleProducts(q.Items), q.Subtotal) {
				return q
			}
			q.BundleDiscount = r.Discount(q.Subtotal)
			return q
		},
	}
}

func couponStage(outcome coupon.PreviewResult, couponErr error) pricing.Stage {
	return pricing.Stage{
		Name: pricing.StageCoupon,
		Apply: func(q pricing.Quote) pricing.Quote {
			if couponErr != nil {
				return q
			}
			q.CouponDiscount = outcome.Discount
			q.FreeShipping = outcome.FreeShipping
			return q
		},
	}
}

func (s *Service) shippingStage(cards []carrier.RateCard, options []delivery.Option, in Input, now time.Time) pricing.Stage {
	return pricing.Stage{
		Name: pricing.StageShipping,
		Apply: func(q pricing.Quote) pricing.Quote {
			card := carrier.Select(cards, q.WeightG, q.Zone, now)
			if card == nil {
				if obs.RateCardMisses != nil {
					obs.RateCardMisses.Inc()
				}
				return q
			}
			breakdown := card.Calculate(q.WeightG, carrier.Options{
				COD:           q.PaymentMethod == charge.PaymentMethodCOD,
				CODAmount:     q.CODAmount,
				ODA:           q.ODA,
				DeclaredValue: q.DeclaredValue,
			})
			q.Shipping = breakdown.Total

			opt := findOption(options, in.DeliveryOption)
			if opt == nil {
				return q
			}
			dctx := delivery.Context{
				OrderTime: q.OrderTime,
				OrderDate: q.OrderDate,
				Metro:     q.Metro,
				Remote:    q.Remote,
			}
			if !opt.Available(q.Zone, q.DiscountedSubtotal(), dctx) {
				return q
			}
			cost := opt.Cost(q.Shipping, q.DiscountedSubtotal(), dctx)
			q.Shipping = cost.Total
			q.DeliveryDays = opt.DaysMax
			return q
		},
	}
}

func insuranceStage(plans []insurance.Plan, in Input) pricing.Stage {
	return pricing.Stage{
		Name: pricing.StageInsurance,
		Apply: func(q pricing.Quote) pricing.Quote {
			ictx := insurance.Context{
				Zone:        q.Zone,
				Remote:      q.Remote,
				Fragile:     in.Fragile,
				Electronics: in.Electronics,
			}
			for _, p := range plans {
				if !p.Mandatory && !in.WantInsurance {
					continue
				}
				r := p.Premium(q.DiscountedSubtotal(), ictx)
				if !r.Eligible {
					continue
				}
				q.InsurancePremium = r.Premium
				return q
			}
			return q
		},
	}
}

func chargesStage(charges []charge.Charge) pricing.Stage {
	return pricing.Stage{
		Name: pricing.StageCharges,
		Apply: func(q pricing.Quote) pricing.Quote {
			cctx := charge.Context{
				OrderValue:  q.DiscountedSubtotal(),
				CategoryIDs: categoryIDs(q.Items),
				Pincode:     q.Pincode,
				State:       q.State,
			}
			for _, c := range charge.Applicable(charges, q.PaymentMethod, cctx) {
				base := q.DiscountedSubtotal()
				if !c.AfterDiscount {
					base = q.Subtotal
				}
				amount := c.Calculate(base)
				if amount <= 0 {
					continue
				}
				q.Charges = append(q.Charges, pricing.AppliedCharge{
					Code:    c.Code,
					Amount:  amount,
					Taxable: c.Taxable,
				})
				if ap := c.AdvancePaymentConfig(); ap != nil && q.AdvancePayment == 0 {
					q.AdvancePayment = c.CalculateAdvancePayment(q.DiscountedSubtotal())
				}
			}
			return q
		},
	}
}

func taxStage(rules []tax.Rule) pricing.Stage {
	return pricing.Stage{
		Name: pricing.StageTax,
		Apply: func(q pricing.Quote) pricing.Quote {
			tctx := tax.Context{
				State:       q.State,
				CategoryIDs: categoryIDs(q.Items),
				OrderValue:  q.DiscountedSubtotal(),
			}
			for _, r := range tax.Applicable(rules, tctx) {
				base := q.DiscountedSubtotal()
				switch r.ApplyOn {
				case tax.ApplyOnSubtotalWithCharges:
					base += q.TaxableCharges()
				case tax.ApplyOnSubtotalWithShipping:
					base += q.ShippingPayable()
				}
				amount := tax.Calculate(r, base)
				if amount <= 0 {
					continue
				}
				q.Taxes = append(q.Taxes, pricing.AppliedTax{Code: r.Code, Amount: amount})
				q.Tax += amount
			}
			return q
		},
	}
}

func (s *Service) emitQuoteComputed(ctx context.Context, in Input, q pricing.Quote) {
	if s.Events == nil {
		return
	}
	payload := map[string]any{
		"zone":            q.Zone,
		"payment_method":  q.PaymentMethod,
		"subtotal":        q.Subtotal,
		"bundle_discount": q.BundleDiscount,
		"coupon_discount": q.CouponDiscount,
		"shipping":        q.ShippingPayable(),
		"insurance":       q.InsurancePremium,
		"charges":         q.ChargesTotal(),
		"tax":             q.Tax,
		"total":           q.Total,
	}
	if in.CouponCode != "" {
		payload["coupon_code"] = in.CouponCode
	}
	if _, err := s.Events.Emit(ctx, events.TopicQuoteComputed, payload); err != nil {
		s.Log.Warn().Err(err).Msg("emit quote.computed")
	}
}

func (s *Service) rateCards(ctx context.Context) ([]carrier.RateCard, error) {
	return cache.Remember(ctx, s.Cache, familyRateCards, s.Rules.ListRateCards)
}

func (s *Service) deliveryOptions(ctx context.Context) ([]delivery.Option, error) {
	return cache.Remember(ctx, s.Cache, familyDelivery, s.Rules.ListDeliveryOptions)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func findOption(options []delivery.Option, code string) *delivery.Option {
	if code == "" {
		return nil
	}
	for i := range options {
		if options[i].Code == code {
			return &options[i]
		}
	}
	return nil
}

// sharedCategory returns the category shared by every cart line, or nil when
// lines span categories.
func sharedCategory(items []pricing.Item) *uuid.UUID {
	var shared *uuid.UUID
	for _, it := range items {
		if it.CategoryID == nil {
			return nil
		}
		if shared == nil {
			shared = it.CategoryID
			continue
		}
		if *shared != *it.CategoryID {
			return nil
		}
	}
	return shared
}

func categoryIDs(items []pricing.Item) []uuid.UUID {
	var out []uuid.UUID
	seen := map[uuid.UUID]bool{}
	for _, it := range items {
		if it.CategoryID == nil || seen[*it.CategoryID] {
			continue
		}
		seen[*it.CategoryID] = true
		out = append(out, *it.CategoryID)
	}
	return out
}

func bundleProducts(items []pricing.Item) []bundle.Product {
	out := make([]bundle.Product, 0, len(items))
	for _, it := range items {
		out = append(out, bundle.Product{
			ID:      it.ProductID,
			BrandID: it.BrandID,
		})
	}
	return out
}

func couponItems(items []pricing.Item) []coupon.Item {
	out := make([]coupon.Item, 0, len(items))
	for _, it := range items {
		out = append(out, coupon.Item{
			ProductID:  it.ProductID,
			CategoryID: it.CategoryID,
			Qty:        it.Qty,
			UnitPrice:  it.UnitPrice,
		})
	}
	return out
}
