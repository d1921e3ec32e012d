package quote

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pricing/internal/carrier"
	"github.com/noah-isme/backend-pricing/internal/common"
	"github.com/noah-isme/backend-pricing/internal/delivery"
	"github.com/noah-isme/backend-pricing/internal/pricing"
)

// Handler exposes quote computation and shipping lookup endpoints.
type Handler struct {
	Svc *Service
}

type quoteItemPayload struct {
	ProductID  string `json:"productId"`
	CategoryID string `json:"categoryId,omitempty"`
	BrandID    string `json:"brandId,omitempty"`
	Qty        int    `json:"qty"`
	UnitPrice  int64  `json:"unitPrice"`
}

type quoteRequest struct {
	Items          []quoteItemPayload `json:"items"`
	WeightG        int64              `json:"weightG"`
	Zone           string             `json:"zone"`
	Pincode        string             `json:"pincode"`
	State          string             `json:"state"`
	PaymentMethod  string             `json:"paymentMethod"`
	CustomerTier   string             `json:"customerTier"`
	CustomerGroups []string           `json:"customerGroups"`
	UserID         *string            `json:"userId"`
	CouponCode     string             `json:"couponCode"`
	DeliveryOption string             `json:"deliveryOption"`
	WantInsurance  bool               `json:"insurance"`
	Metro          bool               `json:"metro"`
	Remote         bool               `json:"remote"`
	ODA            bool               `json:"oda"`
	Fragile        bool               `json:"fragile"`
	Electronics    bool               `json:"electronics"`
	DeclaredValue  int64              `json:"declaredValue"`
}

type quoteResponse struct {
	Subtotal           pricing.Money           `json:"subtotal"`
	BundleDiscount     pricing.Money           `json:"bundleDiscount"`
	CouponDiscount     pricing.Money           `json:"couponDiscount"`
	DiscountedSubtotal pricing.Money           `json:"discountedSubtotal"`
	FreeShipping       bool                    `json:"freeShipping"`
	Shipping           pricing.Money           `json:"shipping"`
	DeliveryDays       int                     `json:"deliveryDays,omitempty"`
	InsurancePremium   pricing.Money           `json:"insurancePremium"`
	Charges            []pricing.AppliedCharge `json:"charges,omitempty"`
	AdvancePayment     pricing.Money           `json:"advancePayment,omitempty"`
	Taxes              []pricing.AppliedTax    `json:"taxes,omitempty"`
	Tax                pricing.Money           `json:"tax"`
	Total              pricing.Money           `json:"total"`
	CouponError        string                  `json:"couponError,omitempty"`
}

// Compute prices the submitted cart and returns the full breakdown.
func (h *Handler) Compute(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	var payload quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	in, err := payload.toInput()
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	res, err := h.Svc.Quote(r.Context(), in)
	if err != nil {
		if errors.Is(err, ErrNoItems) {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to compute quote", nil)
		return
	}
	q := res.Quote
	resp := quoteResponse{
		Subtotal:           q.Subtotal,
		BundleDiscount:     q.BundleDiscount,
		CouponDiscount:     q.CouponDiscount,
		DiscountedSubtotal: q.DiscountedSubtotal(),
		FreeShipping:       q.FreeShipping,
		Shipping:           q.ShippingPayable(),
		DeliveryDays:       q.DeliveryDays,
		InsurancePremium:   q.InsurancePremium,
		Charges:            q.Charges,
		AdvancePayment:     q.AdvancePayment,
		Taxes:              q.Taxes,
		Tax:                q.Tax,
		Total:              q.Total,
	}
	if res.CouponError != nil {
		resp.CouponError = res.CouponError.Error()
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": resp})
}

// ShippingRates returns the matched rate card breakdown for a weight and zone.
func (h *Handler) ShippingRates(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	qs := r.URL.Query()
	weightG := int64(common.AtoiDefault(qs.Get("weightG"), 0))
	zone := strings.TrimSpace(qs.Get("zone"))
	if weightG <= 0 || zone == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "weightG and zone are required", nil)
		return
	}
	cards, err := h.Svc.rateCards(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load rate cards", nil)
		return
	}
	card := carrier.Select(cards, weightG, zone, h.Svc.now())
	if card == nil {
		common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"available": false}})
		return
	}
	breakdown := card.Calculate(weightG, carrier.Options{
		COD:           qs.Get("cod") == "true",
		CODAmount:     pricing.Money(common.AtoiDefault(qs.Get("codAmount"), 0)),
		ODA:           qs.Get("oda") == "true",
		DeclaredValue: pricing.Money(common.AtoiDefault(qs.Get("declaredValue"), 0)),
	})
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"available": true,
		"breakdown": breakdown,
	}})
}

type deliveryOptionView struct {
	Code          string                 `json:"code"`
	DaysMin       int                    `json:"daysMin"`
	DaysMax       int                    `json:"daysMax"`
	EstimatedDate string                 `json:"estimatedDate"`
	Cost          delivery.CostBreakdown `json:"cost"`
}

// DeliveryOptions lists the available delivery options for an order context
// with their cost against the supplied base shipping charge.
func (h *Handler) DeliveryOptions(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	qs := r.URL.Query()
	zone := strings.TrimSpace(qs.Get("zone"))
	if zone == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "zone is required", nil)
		return
	}
	orderValue := pricing.Money(common.AtoiDefault(qs.Get("orderValue"), 0))
	base := pricing.Money(common.AtoiDefault(qs.Get("shippingBase"), 0))
	options, err := h.Svc.deliveryOptions(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load delivery options", nil)
		return
	}
	now := h.Svc.now()
	dctx := delivery.Context{
		OrderTime: now.Format("15:04:05"),
		OrderDate: now,
		Metro:     qs.Get("metro") == "true",
		Remote:    qs.Get("remote") == "true",
	}
	views := make([]deliveryOptionView, 0, len(options))
	for _, opt := range options {
		if !opt.Available(zone, orderValue, dctx) {
			continue
		}
		eta := opt.EstimatedDelivery(now, opt.DaysMax, qs.Get("businessDays") == "true")
		views = append(views, deliveryOptionView{
			Code:          opt.Code,
			DaysMin:       opt.DaysMin,
			DaysMax:       opt.DaysMax,
			EstimatedDate: eta.Format("2006-01-02"),
			Cost:          opt.Cost(base, orderValue, dctx),
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": views})
}

func (p quoteRequest) toInput() (Input, error) {
	items := make([]pricing.Item, 0, len(p.Items))
	for _, it := range p.Items {
		productID, err := uuid.Parse(it.ProductID)
		if err != nil {
			return Input{}, errors.New("invalid productId")
		}
		if it.Qty <= 0 || it.UnitPrice < 0 {
			return Input{}, errors.New("qty must be positive and unitPrice non-negative")
		}
		item := pricing.Item{ProductID: productID, Qty: it.Qty, UnitPrice: pricing.Money(it.UnitPrice)}
		if it.CategoryID != "" {
			id, err := uuid.Parse(it.CategoryID)
			if err != nil {
				return Input{}, errors.New("invalid categoryId")
			}
			item.CategoryID = &id
		}
		if it.BrandID != "" {
			id, err := uuid.Parse(it.BrandID)
			if err != nil {
				return Input{}, errors.New("invalid brandId")
			}
			item.BrandID = &id
		}
		items = append(items, item)
	}
	in := Input{
		Items:          items,
		WeightG:        p.WeightG,
		Zone:           strings.TrimSpace(p.Zone),
		Pincode:        strings.TrimSpace(p.Pincode),
		State:          strings.TrimSpace(p.State),
		PaymentMethod:  strings.TrimSpace(strings.ToLower(p.PaymentMethod)),
		CustomerTier:   p.CustomerTier,
		CustomerGroups: p.CustomerGroups,
		CouponCode:     strings.TrimSpace(p.CouponCode),
		DeliveryOption: strings.TrimSpace(p.DeliveryOption),
		WantInsurance:  p.WantInsurance,
		Metro:          p.Metro,
		Remote:         p.Remote,
		ODA:            p.ODA,
		Fragile:        p.Fragile,
		Electronics:    p.Electronics,
		DeclaredValue:  pricing.Money(p.DeclaredValue),
	}
	if p.UserID != nil && *p.UserID != "" {
		id, err := uuid.Parse(*p.UserID)
		if err != nil {
			return Input{}, errors.New("invalid userId")
		}
		in.UserID = &id
	}
	return in, nil
}
