package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pricing/internal/coupon"
)

const insertCoupon = `
INSERT INTO coupons (
	id, code, kind, value, percent_bps, min_order_amount, max_discount_amount,
	usage_limit, per_user_limit, usage_count, starts_at, expires_at, active,
	stackable, applicable_products, applicable_categories, excluded_products,
	excluded_categories, first_order_only, customer_groups, buy_x_get_y, day_time
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, $11, $12, $13, $14, $15, $16,
	$17, $18, $19, $20, $21
)
`

// CreateCoupon inserts a new coupon with a zero usage counter.
func (q *Queries) CreateCoupon(ctx context.Context, c coupon.Coupon) (coupon.Coupon, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	args, err := couponArgs(c)
	if err != nil {
		return coupon.Coupon{}, err
	}
	if _, err := q.db.Exec(ctx, insertCoupon, args...); err != nil {
		return coupon.Coupon{}, err
	}
	return c, nil
}

const updateCoupon = `
UPDATE coupons SET
	code = $2, kind = $3, value = $4, percent_bps = $5, min_order_amount = $6,
	max_discount_amount = $7, usage_limit = $8, per_user_limit = $9,
	starts_at = $10, expires_at = $11, active = $12, stackable = $13,
	applicable_products = $14, applicable_categories = $15,
	excluded_products = $16, excluded_categories = $17, first_order_only = $18,
	customer_groups = $19, buy_x_get_y = $20, day_time = $21,
	updated_at = now()
WHERE id = $1
`

// UpdateCoupon rewrites every admin-editable column. The usage counter is
// deliberately untouched; it only moves through IncrementUsageIfBelowLimit.
func (q *Queries) UpdateCoupon(ctx context.Context, c coupon.Coupon) error {
	args, err := couponArgs(c)
	if err != nil {
		return err
	}
	tag, err := q.db.Exec(ctx, updateCoupon, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const deactivateCoupon = `
UPDATE coupons SET active = false, updated_at = now() WHERE id = $1
`

// DeactivateCoupon retires a coupon without deleting its usage history.
func (q *Queries) DeactivateCoupon(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, deactivateCoupon, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const listCoupons = `SELECT ` + couponColumns + ` FROM coupons ORDER BY code ASC LIMIT $1 OFFSET $2`

func (q *Queries) ListCoupons(ctx context.Context, limit, offset int32) ([]coupon.Coupon, error) {
	rows, err := q.db.Query(ctx, listCoupons, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []coupon.Coupon
	for rows.Next() {
		c, err := q.scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func couponArgs(c coupon.Coupon) ([]any, error) {
	ap, err := marshalList(c.ApplicableProducts)
	if err != nil {
		return nil, err
	}
	ac, err := marshalList(c.ApplicableCategories)
	if err != nil {
		return nil, err
	}
	ep, err := marshalList(c.ExcludedProducts)
	if err != nil {
		return nil, err
	}
	ec, err := marshalList(c.ExcludedCategories)
	if err != nil {
		return nil, err
	}
	bxgy, err := marshalNullable(c.BuyXGetY)
	if err != nil {
		return nil, err
	}
	dt, err := marshalNullable(c.DayTime)
	if err != nil {
		return nil, err
	}
	return []any{
		c.ID, c.Code, string(c.Kind), c.Value, c.PercentBps, c.MinOrderAmount,
		c.MaxDiscountAmount, c.UsageLimit, c.PerUserLimit, c.StartsAt,
		c.ExpiresAt, c.Active, c.Stackable, ap, ac, ep, ec,
		c.FirstOrderOnly, c.CustomerGroups, bxgy, dt,
	}, nil
}

func marshalList[T any](v []T) ([]byte, error) {
	if len(v) == 0 {
		return nil, nil
	}
	return json.Marshal(v)
}

func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
