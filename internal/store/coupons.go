package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pricing/internal/coupon"
)

const couponColumns = `
id, code, kind, value, percent_bps, min_order_amount, max_discount_amount,
usage_limit, per_user_limit, usage_count, starts_at, expires_at, active,
stackable, applicable_products, applicable_categories, excluded_products,
excluded_categories, first_order_only, customer_groups, buy_x_get_y, day_time
`

const getCouponByCode = `SELECT ` + couponColumns + ` FROM coupons WHERE lower(code) = lower($1)`

const getCouponByCodeForUpdate = getCouponByCode + ` FOR UPDATE`

func (q *Queries) GetCouponByCode(ctx context.Context, code string) (coupon.Coupon, error) {
	return q.scanCoupon(q.db.QueryRow(ctx, getCouponByCode, code))
}

// GetCouponByCodeForUpdate locks the coupon row for the duration of the
// surrounding transaction so concurrent redemptions serialize on it.
func (q *Queries) GetCouponByCodeForUpdate(ctx context.Context, code string) (coupon.Coupon, error) {
	return q.scanCoupon(q.db.QueryRow(ctx, getCouponByCodeForUpdate, code))
}

func (q *Queries) scanCoupon(row rowScanner) (coupon.Coupon, error) {
	var (
		c        coupon.Coupon
		kind     string
		apJSON   []byte
		acJSON   []byte
		epJSON   []byte
		ecJSON   []byte
		bxgyJSON []byte
		dtJSON   []byte
	)
	err := row.Scan(&c.ID, &c.Code, &kind, &c.Value, &c.PercentBps, &c.MinOrderAmount,
		&c.MaxDiscountAmount, &c.UsageLimit, &c.PerUserLimit, &c.UsageCount,
		&c.StartsAt, &c.ExpiresAt, &c.Active, &c.Stackable,
		&apJSON, &acJSON, &epJSON, &ecJSON,
		&c.FirstOrderOnly, &c.CustomerGroups, &bxgyJSON, &dtJSON)
	if err != nil {
		return coupon.Coupon{}, err
	}
	c.Kind = coupon.Kind(kind)
	if err := unmarshalList(apJSON, &c.ApplicableProducts); err != nil {
		return coupon.Coupon{}, err
	}
	if err := unmarshalList(acJSON, &c.ApplicableCategories); err != nil {
		return coupon.Coupon{}, err
	}
	if err := unmarshalList(epJSON, &c.ExcludedProducts); err != nil {
		return coupon.Coupon{}, err
	}
	if err := unmarshalList(ecJSON, &c.ExcludedCategories); err != nil {
		return coupon.Coupon{}, err
	}
	if err := unmarshalInto(bxgyJSON, &c.BuyXGetY); err != nil {
		return coupon.Coupon{}, err
	}
	if err := unmarshalInto(dtJSON, &c.DayTime); err != nil {
		return coupon.Coupon{}, err
	}
	return c, nil
}

const countUsageByUser = `
SELECT count(*) FROM coupon_usages WHERE coupon_id = $1 AND user_id = $2
`

func (q *Queries) CountUsageByUser(ctx context.Context, couponID, userID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countUsageByUser, couponID, userID).Scan(&n)
	return n, err
}

const countPriorOrders = `
SELECT count(*) FROM orders WHERE user_id = $1 AND status NOT IN ('cancelled', 'failed')
`

// CountPriorOrders reads the platform orders table to enforce
// first-order-only coupons.
func (q *Queries) CountPriorOrders(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countPriorOrders, userID).Scan(&n)
	return n, err
}

const getUsageByOrder = `
SELECT id, coupon_id, order_id, user_id, amount, created_at
FROM coupon_usages
WHERE coupon_id = $1 AND order_id = $2
`

func (q *Queries) GetUsageByOrder(ctx context.Context, couponID, orderID uuid.UUID) (coupon.Usage, error) {
	var u coupon.Usage
	err := q.db.QueryRow(ctx, getUsageByOrder, couponID, orderID).
		Scan(&u.ID, &u.CouponID, &u.OrderID, &u.UserID, &u.Amount, &u.CreatedAt)
	return u, err
}

const insertUsage = `
INSERT INTO coupon_usages (id, coupon_id, order_id, user_id, amount, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

func (q *Queries) InsertUsage(ctx context.Context, u coupon.Usage) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := q.db.Exec(ctx, insertUsage, u.ID, u.CouponID, u.OrderID, u.UserID, u.Amount, u.CreatedAt)
	return err
}

const incrementUsageIfBelowLimit = `
UPDATE coupons
SET usage_count = usage_count + 1, updated_at = now()
WHERE id = $1 AND (usage_limit IS NULL OR usage_count < usage_limit)
`

// IncrementUsageIfBelowLimit bumps the redemption counter only while it is
// under the coupon's global limit. It reports false when the limit was
// already reached, leaving the row untouched.
func (q *Queries) IncrementUsageIfBelowLimit(ctx context.Context, couponID uuid.UUID) (bool, error) {
	tag, err := q.db.Exec(ctx, incrementUsageIfBelowLimit, couponID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

const deactivateExpiredCoupons = `
UPDATE coupons
SET active = false, updated_at = now()
WHERE active = true AND expires_at IS NOT NULL AND expires_at < $1
`

// DeactivateExpiredCoupons flips expired coupons inactive and returns how
// many rows changed. Run periodically from the worker.
func (q *Queries) DeactivateExpiredCoupons(ctx context.Context, now time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, deactivateExpiredCoupons, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
