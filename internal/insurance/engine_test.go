package insurance

import "testing"

func money(v int64) *int64 { return &v }

func TestEligibilityWindow(t *testing.T) {
	plan := Plan{MinOrderValue: 100000, MaxOrderValue: money(1000000), PremiumBps: 200}

	if got := plan.Premium(99900, Context{}); got.Eligible {
		t.Fatal("expected order below minimum to be ineligible")
	}
	if got := plan.Premium(1000001, Context{}); got.Eligible {
		t.Fatal("expected order above maximum to be ineligible")
	}
	if got := plan.Premium(100000, Context{}); !got.Eligible {
		t.Fatal("expected order at minimum to be eligible")
	}
}

func TestPremiumClamping(t *testing.T) {
	plan := Plan{MinOrderValue: 0, PremiumBps: 100, MinPremium: 500, MaxPremium: money(2000)}

	if got := plan.Premium(10000, Context{}); got.Premium != 500 {
		t.Fatalf("expected minimum premium 500, got %d", got.Premium)
	}
	if got := plan.Premium(1000000, Context{}); got.Premium != 2000 {
		t.Fatalf("expected maximum premium 2000, got %d", got.Premium)
	}
}

func TestModifiersApplyInListOrder(t *testing.T) {
	// zone multiplier then flat surcharge is not the same as the reverse.
	a := Plan{PremiumBps: 100, Conditions: []Modifier{
		{Kind: ModZoneMultiplier, Zone: "remote", MultiplierBps: 20000},
		{Kind: ModRemoteSurcharge, Amount: 1000},
	}}
	b := Plan{PremiumBps: 100, Conditions: []Modifier{
		{Kind: ModRemoteSurcharge, Amount: 1000},
		{Kind: ModZoneMultiplier, Zone: "remote", MultiplierBps: 20000},
	}}
	ctx := Context{Zone: "remote", Remote: true}

	// base premium 1% of 100000 = 1000
	gotA := a.Premium(100000, ctx).Premium
	gotB := b.Premium(100000, ctx).Premium
	if gotA != 3000 {
		t.Fatalf("expected multiply-then-add 3000, got %d", gotA)
	}
	if gotB != 4000 {
		t.Fatalf("expected add-then-multiply 4000, got %d", gotB)
	}
}

func TestCategorySurchargesAndDiscount(t *testing.T) {
	plan := Plan{PremiumBps: 100, Conditions: []Modifier{
		{Kind: ModFragileSurcharge, PercentBps: 5000},
		{Kind: ModElectronicsSurcharge, Amount: 250},
		{Kind: ModHighValueDiscount, Threshold: 500000, PercentBps: 1000},
	}}

	// order 500000 -> base 5000, fragile +50% = 7500, electronics +250 = 7750,
	// high value -10% = 6975.
	got := plan.Premium(500000, Context{Fragile: true, Electronics: true})
	if got.Premium != 6975 {
		t.Fatalf("expected 6975, got %d", got.Premium)
	}
}

func TestCoverageCapped(t *testing.T) {
	plan := Plan{CoverageBps: 15000, PremiumBps: 100, MaxOrderValue: money(200000)}
	got := plan.Premium(150000, Context{})
	// 150% coverage would exceed the plan cap.
	if got.Coverage != 200000 {
		t.Fatalf("expected coverage capped at 200000, got %d", got.Coverage)
	}

	uncapped := Plan{CoverageBps: 15000, PremiumBps: 100}
	got = uncapped.Premium(150000, Context{})
	if got.Coverage != 150000 {
		t.Fatalf("expected coverage capped at order value, got %d", got.Coverage)
	}
}
