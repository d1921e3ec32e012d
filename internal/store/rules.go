package store

import (
	"context"
	"encoding/json"

	"github.com/noah-isme/backend-pricing/internal/bundle"
	"github.com/noah-isme/backend-pricing/internal/carrier"
	"github.com/noah-isme/backend-pricing/internal/charge"
	"github.com/noah-isme/backend-pricing/internal/delivery"
	"github.com/noah-isme/backend-pricing/internal/insurance"
	"github.com/noah-isme/backend-pricing/internal/obs"
	"github.com/noah-isme/backend-pricing/internal/tax"
)

const listTaxRules = `
SELECT code, rate_bps, inclusive, apply_on, states, category_ids,
       min_order_value, priority, enabled
FROM tax_rules
ORDER BY priority ASC, code ASC
`

// ListTaxRules loads every tax rule, skipping rows that fail validation.
func (q *Queries) ListTaxRules(ctx context.Context) ([]tax.Rule, error) {
	rows, err := q.db.Query(ctx, listTaxRules)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tax.Rule
	for rows.Next() {
		var (
			r        tax.Rule
			applyOn  string
			catsJSON []byte
		)
		if err := rows.Scan(&r.Code, &r.RateBps, &r.Inclusive, &applyOn, &r.States, &catsJSON,
			&r.MinOrderValue, &r.Priority, &r.Enabled); err != nil {
			return nil, err
		}
		r.ApplyOn = tax.ApplyOn(applyOn)
		if err := unmarshalList(catsJSON, &r.CategoryIDs); err != nil {
			rejectRow("tax_rules")
			continue
		}
		// Inclusive rates at or above 100% produce degenerate math.
		if !q.valid(r) || (r.Inclusive && r.RateBps >= 10000) {
			rejectRow("tax_rules")
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const listOrderCharges = `
SELECT code, kind, amount, percent_bps, tiers, apply_to, payment_methods,
       conditions, priority, taxable, after_discount, enabled
FROM order_charges
ORDER BY priority ASC, code ASC
`

// ListOrderCharges loads every order charge, skipping rows that fail
// validation.
func (q *Queries) ListOrderCharges(ctx context.Context) ([]charge.Charge, error) {
	rows, err := q.db.Query(ctx, listOrderCharges)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []charge.Charge
	for rows.Next() {
		var (
			c         charge.Charge
			kind      string
			applyTo   string
			tiersJSON []byte
			condJSON  []byte
		)
		if err := rows.Scan(&c.Code, &kind, &c.Amount, &c.PercentBps, &tiersJSON, &applyTo,
			&c.PaymentMethods, &condJSON, &c.Priority, &c.Taxable, &c.AfterDiscount, &c.Enabled); err != nil {
			return nil, err
		}
		c.Kind = charge.Kind(kind)
		c.ApplyTo = charge.ApplyTo(applyTo)
		if err := unmarshalInto(tiersJSON, &c.Tiers); err != nil {
			rejectRow("order_charges")
			continue
		}
		if err := unmarshalInto(condJSON, &c.Conditions); err != nil {
			rejectRow("order_charges")
			continue
		}
		if !q.valid(c) {
			rejectRow("order_charges")
			continue
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const listRateCards = `
SELECT id, carrier_service_id, zone_code, weight_min_g, weight_max_g,
       base_rate, per_kg, per_500g, fuel_bps, gst_bps, handling, oda_charge,
       cod_fixed, cod_percent_bps, min_cod, insurance_bps, min_insurance,
       effective_from, effective_to, active
FROM carrier_rate_cards
ORDER BY zone_code ASC, weight_min_g ASC
`

// ListRateCards loads every carrier rate card, skipping rows that fail
// validation.
func (q *Queries) ListRateCards(ctx context.Context) ([]carrier.RateCard, error) {
	rows, err := q.db.Query(ctx, listRateCards)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []carrier.RateCard
	for rows.Next() {
		var rc carrier.RateCard
		if err := rows.Scan(&rc.ID, &rc.CarrierServiceID, &rc.ZoneCode, &rc.WeightMinG, &rc.WeightMaxG,
			&rc.BaseRate, &rc.PerKg, &rc.Per500g, &rc.FuelBps, &rc.GSTBps, &rc.Handling, &rc.ODACharge,
			&rc.CODFixed, &rc.CODPercentBps, &rc.MinCOD, &rc.InsuranceBps, &rc.MinInsurance,
			&rc.EffectiveFrom, &rc.EffectiveTo, &rc.Active); err != nil {
			return nil, err
		}
		if !q.valid(rc) || (rc.WeightMaxG != nil && *rc.WeightMaxG < rc.WeightMinG) {
			rejectRow("carrier_rate_cards")
			continue
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

const listDeliveryOptions = `
SELECT code, days_min, days_max, multiplier_bps, fixed_surcharge, zones,
       conditions, cutoff_time, restricted_days, min_order_value, active
FROM delivery_options
ORDER BY code ASC
`

// ListDeliveryOptions loads every delivery option, skipping rows that fail
// validation.
func (q *Queries) ListDeliveryOptions(ctx context.Context) ([]delivery.Option, error) {
	rows, err := q.db.Query(ctx, listDeliveryOptions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []delivery.Option
	for rows.Next() {
		var (
			o        delivery.Option
			condJSON []byte
			daysJSON []byte
		)
		if err := rows.Scan(&o.Code, &o.DaysMin, &o.DaysMax, &o.MultiplierBps, &o.FixedSurcharge,
			&o.Zones, &condJSON, &o.CutoffTime, &daysJSON, &o.MinOrderValue, &o.Active); err != nil {
			return nil, err
		}
		if err := unmarshalInto(condJSON, &o.Conditions); err != nil {
			rejectRow("delivery_options")
			continue
		}
		if err := unmarshalList(daysJSON, &o.RestrictedDays); err != nil {
			rejectRow("delivery_options")
			continue
		}
		if !q.valid(o) {
			rejectRow("delivery_options")
			continue
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

const listInsurancePlans = `
SELECT min_order_value, max_order_value, coverage_bps, premium_bps,
       min_premium, max_premium, mandatory, conditions, claim_processing_days
FROM insurance_plans
ORDER BY min_order_value ASC
`

// ListInsurancePlans loads every shipping insurance plan.
func (q *Queries) ListInsurancePlans(ctx context.Context) ([]insurance.Plan, error) {
	rows, err := q.db.Query(ctx, listInsurancePlans)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []insurance.Plan
	for rows.Next() {
		var (
			p        insurance.Plan
			condJSON []byte
		)
		if err := rows.Scan(&p.MinOrderValue, &p.MaxOrderValue, &p.CoverageBps, &p.PremiumBps,
			&p.MinPremium, &p.MaxPremium, &p.Mandatory, &condJSON, &p.ClaimProcessingDays); err != nil {
			return nil, err
		}
		if err := unmarshalInto(condJSON, &p.Conditions); err != nil {
			rejectRow("insurance_plans")
			continue
		}
		if !q.valid(p) {
			rejectRow("insurance_plans")
			continue
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const listBundleRules = `
SELECT id, min_products, max_products, kind, percent_bps, fixed_discount,
       category_id, customer_tier, active, priority, valid_from, valid_until,
       conditions
FROM bundle_discount_rules
ORDER BY priority DESC, percent_bps DESC
`

// ListBundleRules loads every bundle discount rule.
func (q *Queries) ListBundleRules(ctx context.Context) ([]bundle.Rule, error) {
	rows, err := q.db.Query(ctx, listBundleRules)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bundle.Rule
	for rows.Next() {
		var (
			r        bundle.Rule
			kind     string
			condJSON []byte
		)
		if err := rows.Scan(&r.ID, &r.MinProducts, &r.MaxProducts, &kind, &r.PercentBps, &r.FixedDiscount,
			&r.CategoryID, &r.CustomerTier, &r.Active, &r.Priority, &r.ValidFrom, &r.ValidUntil, &condJSON); err != nil {
			return nil, err
		}
		r.Kind = bundle.Kind(kind)
		if err := unmarshalInto(condJSON, &r.Conditions); err != nil {
			rejectRow("bundle_discount_rules")
			continue
		}
		if !q.valid(r) {
			rejectRow("bundle_discount_rules")
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func rejectRow(table string) {
	if obs.RuleRowsRejected != nil {
		obs.RuleRowsRejected.WithLabelValues(table).Inc()
	}
}

func unmarshalInto(data []byte, dst any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

// unmarshalList tolerates SQL NULL for JSON array columns.
func unmarshalList[T any](data []byte, dst *[]T) error {
	if len(data) == 0 {
		*dst = nil
		return nil
	}
	return json.Unmarshal(data, dst)
}
