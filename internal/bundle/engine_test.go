package bundle

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

var now = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func intp(v int) *int { return &v }

func TestSelectPriorityThenPercent(t *testing.T) {
	rules := []Rule{
		{ID: uuid.New(), MinProducts: 3, MaxProducts: intp(10), Kind: KindPercentage, PercentBps: 500, Priority: 1, Active: true},
		{ID: uuid.New(), MinProducts: 3, MaxProducts: intp(10), Kind: KindPercentage, PercentBps: 1000, Priority: 2, Active: true},
	}
	got := Select(rules, 5, nil, "", now)
	if got == nil || got.PercentBps != 1000 {
		t.Fatalf("expected higher priority rule, got %+v", got)
	}

	// Equal priority: higher percentage wins.
	rules[0].Priority = 2
	got = Select(rules, 5, nil, "", now)
	if got == nil || got.PercentBps != 1000 {
		t.Fatalf("expected percent tie-break, got %+v", got)
	}
}

func TestSelectFilters(t *testing.T) {
	cat := uuid.New()
	tier := "gold"
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	rules := []Rule{
		{MinProducts: 3, Active: false},
		{MinProducts: 3, Active: true, ValidFrom: &future},
		{MinProducts: 3, Active: true, ValidUntil: &past},
		{MinProducts: 6, Active: true},
		{MinProducts: 3, MaxProducts: intp(4), Active: true},
		{MinProducts: 3, Active: true, CategoryID: &cat},
		{MinProducts: 3, Active: true, CustomerTier: &tier},
	}

	if got := Select(rules, 5, nil, "", now); got != nil {
		t.Fatalf("expected no match, got %+v", got)
	}
	if got := Select(rules, 5, &cat, "", now); got == nil || got.CategoryID == nil {
		t.Fatalf("expected category rule, got %+v", got)
	}
	if got := Select(rules, 5, nil, "gold", now); got == nil || got.CustomerTier == nil {
		t.Fatalf("expected tier rule, got %+v", got)
	}
	if got := Select(rules, 4, nil, "", now); got == nil || got.MaxProducts == nil {
		t.Fatalf("expected bounded range rule at count 4, got %+v", got)
	}
}

func TestMatchesConditions(t *testing.T) {
	brand := uuid.New()
	prod := uuid.New()
	r := Rule{Conditions: Conditions{
		BrandIDs:   []uuid.UUID{brand},
		MinTotal:   50000,
		ProductIDs: []uuid.UUID{prod},
	}}

	products := []Product{{ID: prod, BrandID: &brand}}
	if !r.MatchesConditions(products, 60000) {
		t.Fatal("expected all gates to pass")
	}
	if r.MatchesConditions(products, 40000) {
		t.Fatal("expected min total gate to fail")
	}
	if r.MatchesConditions([]Product{{ID: prod}}, 60000) {
		t.Fatal("expected brand gate to fail")
	}
	if r.MatchesConditions([]Product{{ID: uuid.New(), BrandID: &brand}}, 60000) {
		t.Fatal("expected product gate to fail")
	}

	empty := Rule{}
	if !empty.MatchesConditions(nil, 0) {
		t.Fatal("absent conditions must pass")
	}
}

func TestDiscount(t *testing.T) {
	pct := Rule{Kind: KindPercentage, PercentBps: 1500}
	if got := pct.Discount(10000); got != 1500 {
		t.Fatalf("expected 1500, got %d", got)
	}

	fixed := Rule{Kind: KindFixed, FixedDiscount: 20000}
	if got := fixed.Discount(15000); got != 15000 {
		t.Fatalf("fixed discount must never exceed total, got %d", got)
	}
	if got := fixed.Discount(30000); got != 20000 {
		t.Fatalf("expected 20000, got %d", got)
	}
}
