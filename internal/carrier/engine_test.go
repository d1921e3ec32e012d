package carrier

import (
	"testing"
	"time"
)

func TestHalfKgRoundingBillsUp(t *testing.T) {
	rc := RateCard{BaseRate: 5000, Per500g: 1500, Active: true}

	// 0.5kg steps: anything in (n*500, (n+1)*500] grams above min bills the
	// same number of half-kg units.
	cases := []struct {
		weightG int64
		want    int64
	}{
		{0, 5000},
		{1, 5000 + 1500},
		{499, 5000 + 1500},
		{500, 5000 + 1500},
		{501, 5000 + 3000},
		{1000, 5000 + 3000},
		{1001, 5000 + 4500},
	}
	for _, tc := range cases {
		got := rc.Calculate(tc.weightG, Options{})
		if got.Base != tc.want {
			t.Fatalf("weight %dg: expected base %d, got %d", tc.weightG, tc.want, got.Base)
		}
	}
}

func TestBaseMonotonicInWeight(t *testing.T) {
	rc := RateCard{BaseRate: 4000, Per500g: 1000, Active: true}
	var prev int64 = -1
	for w := int64(0); w <= 5000; w += 137 {
		b := rc.Calculate(w, Options{})
		if b.Base < prev {
			t.Fatalf("base decreased at weight %dg: %d < %d", w, b.Base, prev)
		}
		prev = b.Base
	}
}

func TestPerKgCheckedBeforePer500g(t *testing.T) {
	rc := RateCard{BaseRate: 5000, PerKg: 2000, Per500g: 1500}
	got := rc.Calculate(2000, Options{})
	if got.Base != 5000+2*2000 {
		t.Fatalf("expected per-kg pricing to win, got base %d", got.Base)
	}
}

func TestBreakdownAccumulationOrder(t *testing.T) {
	rc := RateCard{
		BaseRate:      10000,
		FuelBps:       1000, // 10%
		GSTBps:        1800, // 18%
		Handling:      500,
		ODACharge:     2000,
		CODFixed:      1000,
		CODPercentBps: 200, // 2%
		MinCOD:        1500,
		InsuranceBps:  100, // 1%
		MinInsurance:  800,
	}
	got := rc.Calculate(0, Options{COD: true, CODAmount: 100000, ODA: true, DeclaredValue: 50000})

	if got.FuelSurcharge != 1000 {
		t.Fatalf("fuel surcharge: expected 1000, got %d", got.FuelSurcharge)
	}
	// COD = max(1000 + 2% of 100000, 1500) = 3000
	if got.COD != 3000 {
		t.Fatalf("cod: expected 3000, got %d", got.COD)
	}
	// Insurance = max(1% of 50000, 800) = 800
	if got.Insurance != 800 {
		t.Fatalf("insurance: expected min premium 800, got %d", got.Insurance)
	}
	wantSubtotal := int64(10000 + 1000 + 500 + 2000 + 3000 + 800)
	if got.Subtotal != wantSubtotal {
		t.Fatalf("subtotal: expected %d, got %d", wantSubtotal, got.Subtotal)
	}
	// GST applies to the subtotal only, never to itself.
	if got.GST != wantSubtotal*1800/10000 {
		t.Fatalf("gst: expected %d, got %d", wantSubtotal*1800/10000, got.GST)
	}
	if got.Total != got.Subtotal+got.GST {
		t.Fatalf("total: expected subtotal+gst, got %d", got.Total)
	}
}

func TestSelectFiltersByWindowZoneAndWeight(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)
	maxW := int64(2000)

	cards := []RateCard{
		{ZoneCode: "metro", WeightMinG: 0, WeightMaxG: &maxW, Active: false},
		{ZoneCode: "remote", WeightMinG: 0, Active: true},
		{ZoneCode: "metro", WeightMinG: 0, WeightMaxG: &maxW, Active: true, EffectiveFrom: &future},
		{ZoneCode: "metro", WeightMinG: 0, WeightMaxG: &maxW, Active: true, EffectiveFrom: &past, BaseRate: 4200},
		{ZoneCode: "metro", WeightMinG: 2001, Active: true, BaseRate: 9000},
	}

	got := Select(cards, 1500, "metro", now)
	if got == nil || got.BaseRate != 4200 {
		t.Fatalf("expected the in-window metro card, got %+v", got)
	}

	// Above the slab max the unbounded heavier slab wins.
	got = Select(cards, 3000, "metro", now)
	if got == nil || got.BaseRate != 9000 {
		t.Fatalf("expected heavy slab, got %+v", got)
	}

	if got := Select(cards, 1500, "nowhere", now); got != nil {
		t.Fatalf("expected nil for unserved zone, got %+v", got)
	}
}
