package quote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pricing/internal/store"
	"github.com/noah-isme/backend-pricing/internal/tax"
)

type fakeEvents struct {
	rows  []store.DomainEventRow
	since time.Time
	limit int32
}

func (f *fakeEvents) ListDomainEvents(_ context.Context, since time.Time, limit int32) ([]store.DomainEventRow, error) {
	f.since = since
	f.limit = limit
	return f.rows, nil
}

func adminRouter(h *AdminHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/admin/rules/{family}", h.ListRules)
	r.Get("/admin/events", h.ListEvents)
	return r
}

func TestAdminListRules(t *testing.T) {
	rules := &fakeRules{taxes: []tax.Rule{{Code: "GST", RateBps: 1800}}}
	h := &AdminHandler{Rules: rules}

	req := httptest.NewRequest(http.MethodGet, "/admin/rules/tax", nil)
	rec := httptest.NewRecorder()
	adminRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []tax.Rule `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "GST", body.Data[0].Code)
}

func TestAdminListRulesUnknownFamily(t *testing.T) {
	h := &AdminHandler{Rules: &fakeRules{}}

	req := httptest.NewRequest(http.MethodGet, "/admin/rules/surcharges", nil)
	rec := httptest.NewRecorder()
	adminRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminListEvents(t *testing.T) {
	events := &fakeEvents{rows: []store.DomainEventRow{{
		ID:        uuid.New(),
		Topic:     "rules.updated",
		Payload:   json.RawMessage(`{"families":["coupons"]}`),
		CreatedAt: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
	}}}
	h := &AdminHandler{Events: events}

	req := httptest.NewRequest(http.MethodGet, "/admin/events?since=2025-06-01T00:00:00Z&limit=10", nil)
	rec := httptest.NewRecorder()
	adminRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, events.since.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, int32(10), events.limit)

	var body struct {
		Data []store.DomainEventRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "rules.updated", body.Data[0].Topic)
}

func TestAdminListEventsBadSince(t *testing.T) {
	h := &AdminHandler{Events: &fakeEvents{}}

	req := httptest.NewRequest(http.MethodGet, "/admin/events?since=yesterday", nil)
	rec := httptest.NewRecorder()
	adminRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
