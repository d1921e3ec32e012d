package quote

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-pricing/internal/common"
	"github.com/noah-isme/backend-pricing/internal/store"
)

type eventSource interface {
	ListDomainEvents(ctx context.Context, since time.Time, limit int32) ([]store.DomainEventRow, error)
}

// AdminHandler exposes read-only listings of the configured rule families.
// Listings bypass the cache so admins always see the stored rows.
type AdminHandler struct {
	Rules  ruleSource
	Events eventSource
}

// ListRules serves GET /admin/rules/{family}.
func (h *AdminHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	if h.Rules == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rule store not configured", nil)
		return
	}
	var (
		data any
		err  error
	)
	switch family := chi.URLParam(r, "family"); family {
	case familyTax:
		data, err = h.Rules.ListTaxRules(r.Context())
	case familyCharges:
		data, err = h.Rules.ListOrderCharges(r.Context())
	case familyRateCards:
		data, err = h.Rules.ListRateCards(r.Context())
	case familyDelivery:
		data, err = h.Rules.ListDeliveryOptions(r.Context())
	case familyInsurance:
		data, err = h.Rules.ListInsurancePlans(r.Context())
	case familyBundles:
		data, err = h.Rules.ListBundleRules(r.Context())
	default:
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "unknown rule family", nil)
		return
	}
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list rules", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": data})
}

// ListEvents serves GET /admin/events. It returns recent domain events for
// auditing rule changes and coupon activity.
func (h *AdminHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if h.Events == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "event store not configured", nil)
		return
	}
	qs := r.URL.Query()
	since := time.Now().UTC().Add(-24 * time.Hour)
	if raw := qs.Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "since must be RFC 3339", nil)
			return
		}
		since = parsed
	}
	limit := int32(common.AtoiDefault(qs.Get("limit"), 100))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := h.Events.ListDomainEvents(r.Context(), since, limit)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list events", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}
