package coupon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/backend-pricing/internal/common"
	"github.com/noah-isme/backend-pricing/internal/events"
	"github.com/noah-isme/backend-pricing/internal/obs"
	"github.com/noah-isme/backend-pricing/internal/pricing"
)

type adminStore interface {
	CreateCoupon(ctx context.Context, c Coupon) (Coupon, error)
	UpdateCoupon(ctx context.Context, c Coupon) error
	DeactivateCoupon(ctx context.Context, id uuid.UUID) error
	ListCoupons(ctx context.Context, limit, offset int32) ([]Coupon, error)
}

// Handler exposes coupon preview and redemption plus admin management.
type Handler struct {
	Svc    *Service
	Admin  adminStore
	Events *events.Bus
}

type previewRequest struct {
	Code      string               `json:"code"`
	CartTotal int64                `json:"cartTotal"`
	UserID    *string              `json:"userId"`
	Items     []previewRequestItem `json:"items"`
}

type previewRequestItem struct {
	ProductID  string `json:"productId"`
	CategoryID string `json:"categoryId,omitempty"`
	Qty        int    `json:"qty"`
	UnitPrice  int64  `json:"unitPrice"`
}

// Preview returns the simulated discount for a coupon without persisting state.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon service not configured", nil)
		return
	}
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	items, err := toEngineItems(req.Items)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	userID, err := parseOptionalUUID(req.UserID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid userId", nil)
		return
	}
	result, err := h.Svc.Preview(r.Context(), req.Code, userID, pricing.Money(req.CartTotal), items)
	if err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "NOT_ELIGIBLE", err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

type redeemRequest struct {
	OrderID string  `json:"orderId"`
	UserID  *string `json:"userId"`
	Amount  int64   `json:"amount"`
}

// Redeem settles a coupon against an order. Replays for the same order are
// idempotent; an exhausted usage limit maps to 409.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon service not configured", nil)
		return
	}
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	orderID, err := uuid.Parse(strings.TrimSpace(req.OrderID))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid orderId", nil)
		return
	}
	userID, err := parseOptionalUUID(req.UserID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid userId", nil)
		return
	}

	err = h.Svc.Redeem(r.Context(), code, orderID, userID, pricing.Money(req.Amount))
	h.countRedemption(err)
	if err != nil {
		switch {
		case errors.Is(err, ErrUsageLimitExceeded):
			h.emit(r, events.TopicCouponExhausted, map[string]any{"code": code})
			common.JSONError(w, http.StatusConflict, "USAGE_LIMIT_EXCEEDED", err.Error(), nil)
		case errors.Is(err, ErrNotEligible):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
		case isEligibilityError(err):
			common.JSONError(w, http.StatusUnprocessableEntity, "NOT_ELIGIBLE", err.Error(), nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to redeem coupon", nil)
		}
		return
	}
	h.emit(r, events.TopicCouponRedeemed, map[string]any{
		"code":    code,
		"orderId": orderID.String(),
		"amount":  req.Amount,
	})
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"redeemed": true}})
}

type couponPayload struct {
	Code                 string         `json:"code"`
	Kind                 string         `json:"kind"`
	Value                int64          `json:"value"`
	PercentBps           int32          `json:"percentBps"`
	MinOrderAmount       int64          `json:"minOrderAmount"`
	MaxDiscountAmount    *int64         `json:"maxDiscountAmount"`
	UsageLimit           *int32         `json:"usageLimit"`
	PerUserLimit         *int32         `json:"perUserLimit"`
	StartsAt             *time.Time     `json:"startsAt"`
	ExpiresAt            *time.Time     `json:"expiresAt"`
	Active               *bool          `json:"active"`
	Stackable            bool           `json:"stackable"`
	ApplicableProducts   []string       `json:"applicableProducts"`
	ApplicableCategories []string       `json:"applicableCategories"`
	ExcludedProducts     []string       `json:"excludedProducts"`
	ExcludedCategories   []string       `json:"excludedCategories"`
	FirstOrderOnly       bool           `json:"firstOrderOnly"`
	CustomerGroups       []string       `json:"customerGroups"`
	BuyXGetY             *BuyXGetY      `json:"buyXGetY"`
	DayTime              *DayTimeWindow `json:"dayTime"`
}

// Create inserts a new coupon.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Admin == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon store not configured", nil)
		return
	}
	var payload couponPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	c, err := payload.toCoupon()
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	created, err := h.Admin.CreateCoupon(r.Context(), c)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			common.JSONError(w, http.StatusConflict, "CONFLICT", "coupon code already exists", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to create coupon", nil)
		return
	}
	h.emit(r, events.TopicRulesUpdated, events.RulesUpdatedPayload{Families: []string{"coupons"}})
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// Update rewrites an existing coupon identified by id.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Admin == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon store not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid id", nil)
		return
	}
	var payload couponPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	c, err := payload.toCoupon()
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	c.ID = id
	if err := h.Admin.UpdateCoupon(r.Context(), c); err != nil {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
		return
	}
	h.emit(r, events.TopicRulesUpdated, events.RulesUpdatedPayload{Families: []string{"coupons"}})
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// Deactivate retires a coupon without deleting its usage history.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if h.Admin == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon store not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid id", nil)
		return
	}
	if err := h.Admin.DeactivateCoupon(r.Context(), id); err != nil {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "coupon not found", nil)
		return
	}
	h.emit(r, events.TopicRulesUpdated, events.RulesUpdatedPayload{Families: []string{"coupons"}})
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deactivated": true}})
}

// List pages through configured coupons.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Admin == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "coupon store not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	coupons, err := h.Admin.ListCoupons(r.Context(), int32(perPage), int32((page-1)*perPage))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list coupons", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": coupons,
		"meta": map[string]any{"page": page, "perPage": perPage},
	})
}

func (h *Handler) emit(r *http.Request, topic string, payload any) {
	if h.Events == nil {
		return
	}
	_, _ = h.Events.Emit(r.Context(), topic, payload)
}

func (h *Handler) countRedemption(err error) {
	if obs.CouponRedemptions == nil {
		return
	}
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrUsageLimitExceeded):
		result = "exhausted"
	default:
		result = "rejected"
	}
	obs.CouponRedemptions.WithLabelValues(result).Inc()
}

func isEligibilityError(err error) bool {
	for _, sentinel := range []error{
		ErrInactive, ErrNotStarted, ErrExpired, ErrPerUserLimitReached,
		ErrMinimumSpendUnmet, ErrFirstOrderOnly, ErrCustomerGroup, ErrOutsideWindow,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func (p couponPayload) toCoupon() (Coupon, error) {
	code := strings.TrimSpace(p.Code)
	if code == "" {
		return Coupon{}, errors.New("code is required")
	}
	kind := Kind(strings.TrimSpace(p.Kind))
	switch kind {
	case KindPercentage, KindFixedAmount, KindFreeShipping, KindBuyXGetY:
	default:
		return Coupon{}, errors.New("invalid kind")
	}
	if kind == KindBuyXGetY && (p.BuyXGetY == nil || p.BuyXGetY.BuyQty <= 0 || p.BuyXGetY.GetQty <= 0) {
		return Coupon{}, errors.New("buyXGetY config is required")
	}
	applicableProducts, err := parseUUIDList(p.ApplicableProducts)
	if err != nil {
		return Coupon{}, err
	}
	applicableCategories, err := parseUUIDList(p.ApplicableCategories)
	if err != nil {
		return Coupon{}, err
	}
	excludedProducts, err := parseUUIDList(p.ExcludedProducts)
	if err != nil {
		return Coupon{}, err
	}
	excludedCategories, err := parseUUIDList(p.ExcludedCategories)
	if err != nil {
		return Coupon{}, err
	}
	active := true
	if p.Active != nil {
		active = *p.Active
	}
	var maxDiscount *pricing.Money
	if p.MaxDiscountAmount != nil {
		m := pricing.Money(*p.MaxDiscountAmount)
		maxDiscount = &m
	}
	return Coupon{
		Code:                 code,
		Kind:                 kind,
		Value:                pricing.Money(p.Value),
		PercentBps:           p.PercentBps,
		MinOrderAmount:       pricing.Money(p.MinOrderAmount),
		MaxDiscountAmount:    maxDiscount,
		UsageLimit:           p.UsageLimit,
		PerUserLimit:         p.PerUserLimit,
		StartsAt:             p.StartsAt,
		ExpiresAt:            p.ExpiresAt,
		Active:               active,
		Stackable:            p.Stackable,
		ApplicableProducts:   applicableProducts,
		ApplicableCategories: applicableCategories,
		ExcludedProducts:     excludedProducts,
		ExcludedCategories:   excludedCategories,
		FirstOrderOnly:       p.FirstOrderOnly,
		CustomerGroups:       p.CustomerGroups,
		BuyXGetY:             p.BuyXGetY,
		DayTime:              p.DayTime,
	}, nil
}

func toEngineItems(items []previewRequestItem) ([]Item, error) {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		productID, err := uuid.Parse(strings.TrimSpace(it.ProductID))
		if err != nil {
			return nil, errors.New("invalid productId")
		}
		item := Item{ProductID: productID, Qty: it.Qty, UnitPrice: pricing.Money(it.UnitPrice)}
		if it.CategoryID != "" {
			id, err := uuid.Parse(it.CategoryID)
			if err != nil {
				return nil, errors.New("invalid categoryId")
			}
			item.CategoryID = &id
		}
		out = append(out, item)
	}
	return out, nil
}

func parseOptionalUUID(raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseUUIDList(values []string) ([]uuid.UUID, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]uuid.UUID, 0, len(values))
	for _, raw := range values {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		id, err := uuid.Parse(trimmed)
		if err != nil {
			return nil, errors.New("invalid uuid in list")
		}
		out = append(out, id)
	}
	return out, nil
}
