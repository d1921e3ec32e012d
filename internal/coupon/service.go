package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-pricing/internal/pricing"
)

// Usage is the immutable audit record written once per (coupon, order) pair.
type Usage struct {
	ID        uuid.UUID
	CouponID  uuid.UUID
	OrderID   uuid.UUID
	UserID    *uuid.UUID
	Amount    pricing.Money
	CreatedAt time.Time
}

// Querier captures the store methods required by the coupon service.
type Querier interface {
	GetCouponByCode(ctx context.Context, code string) (Coupon, error)
	GetCouponByCodeForUpdate(ctx context.Context, code string) (Coupon, error)
	CountUsageByUser(ctx context.Context, couponID, userID uuid.UUID) (int64, error)
	CountPriorOrders(ctx context.Context, userID uuid.UUID) (int64, error)
	GetUsageByOrder(ctx context.Context, couponID, orderID uuid.UUID) (Usage, error)
	InsertUsage(ctx context.Context, u Usage) error
	IncrementUsageIfBelowLimit(ctx context.Context, couponID uuid.UUID) (bool, error)
}

// TxRunner runs the provided function inside a database transaction, handing
// it a transaction-scoped Querier.
type TxRunner interface {
	InTx(ctx context.Context, fn func(Querier) error) error
}

// PreviewResult describes the outcome of evaluating a coupon without
// mutating state.
type PreviewResult struct {
	Code         string        `json:"code"`
	Discount     pricing.Money `json:"discount"`
	FreeShipping bool          `json:"free_shipping"`
	FreeUnits    int           `json:"free_units,omitempty"`
}

// Service encapsulates coupon evaluation and settlement behaviour.
type Service struct {
	Q   Querier
	Tx  TxRunner
	Now func() time.Time
}

// Preview performs a dry-run evaluation for the given cart context.
func (s *Service) Preview(ctx context.Context, code string, userID *uuid.UUID, orderTotal pricing.Money, items []Item) (PreviewResult, error) {
	if s == nil || s.Q == nil {
		return PreviewResult{}, errors.New("coupon service not configured")
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return PreviewResult{}, fmt.Errorf("code is required: %w", ErrNotEligible)
	}
	c, err := s.Q.GetCouponByCode(ctx, trimmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PreviewResult{}, ErrNotEligible
		}
		return PreviewResult{}, err
	}
	now := s.now()
	if err := c.Validate(now, orderTotal); err != nil {
		return PreviewResult{}, err
	}
	if userID != nil {
		user, err := s.userContext(ctx, c, *userID)
		if err != nil {
			return PreviewResult{}, err
		}
		if err := c.CanBeUsedBy(now, user); err != nil {
			return PreviewResult{}, err
		}
	}
	res := c.Discount(orderTotal, items)
	if res.Discount <= 0 && !res.FreeShipping {
		return PreviewResult{}, ErrNotEligible
	}
	return PreviewResult{Code: c.Code, Discount: res.Discount, FreeShipping: res.FreeShipping, FreeUnits: res.FreeUnits}, nil
}

// Redeem records coupon usage at order placement time. The row is locked,
// the usage counter is incremented only while below the usage limit, and the
// audit row is unique per (coupon, order) so replays are idempotent. The
// whole sequence runs in one transaction; concurrent redemption past the
// limit surfaces as ErrUsageLimitExceeded instead of silently over-counting.
func (s *Service) Redeem(ctx context.Context, code string, orderID uuid.UUID, userID *uuid.UUID, amount pricing.Money) error {
	if s == nil || s.Tx == nil {
		return errors.New("coupon service not configured")
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" || orderID == uuid.Nil {
		return nil
	}
	if amount < 0 {
		amount = 0
	}
	return s.Tx.InTx(ctx, func(q Querier) error {
		c, err := q.GetCouponByCodeForUpdate(ctx, trimmed)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotEligible
			}
			return err
		}
		if _, err := q.GetUsageByOrder(ctx, c.ID, orderID); err == nil {
			// Already settled for this order.
			return nil
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		ok, err := q.IncrementUsageIfBelowLimit(ctx, c.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUsageLimitExceeded
		}
		return q.InsertUsage(ctx, Usage{
			CouponID:  c.ID,
			OrderID:   orderID,
			UserID:    userID,
			Amount:    amount,
			CreatedAt: s.now(),
		})
	})
}

func (s *Service) userContext(ctx context.Context, c Coupon, userID uuid.UUID) (UserContext, error) {
	user := UserContext{UserID: userID}
	if c.PerUserLimit != nil && *c.PerUserLimit > 0 {
		used, err := s.Q.CountUsageByUser(ctx, c.ID, userID)
		if err != nil {
			return user, err
		}
		user.PerUserUsed = int(used)
	}
	if c.FirstOrderOnly {
		prior, err := s.Q.CountPriorOrders(ctx, userID)
		if err != nil {
			return user, err
		}
		user.PriorOrders = int(prior)
	}
	return user, nil
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
