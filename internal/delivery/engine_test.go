package delivery

import (
	"testing"
	"time"
)

var monday = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
var saturday = time.Date(2025, 6, 7, 10, 0, 0, 0, time.UTC)

func TestSameDayCutoff(t *testing.T) {
	opt := Option{Code: CodeSameDay, CutoffTime: "14:00:00", Active: true}

	if opt.Available("metro", 10000, Context{OrderTime: "15:30:00", OrderDate: monday}) {
		t.Fatal("expected unavailable after cutoff")
	}
	if !opt.Available("metro", 10000, Context{OrderTime: "13:59:59", OrderDate: monday}) {
		t.Fatal("expected available before cutoff")
	}

	// Cutoff only applies to the same-day option.
	express := Option{Code: "express", CutoffTime: "14:00:00", Active: true}
	if !express.Available("metro", 10000, Context{OrderTime: "15:30:00", OrderDate: monday}) {
		t.Fatal("cutoff must not gate non same-day options")
	}
}

func TestAvailabilityGates(t *testing.T) {
	opt := Option{
		Code:           "express",
		Active:         true,
		Zones:          []string{"metro", "tier2"},
		MinOrderValue:  5000,
		RestrictedDays: []time.Weekday{time.Sunday},
		Conditions: []Condition{
			{Kind: CondMetroOnly},
			{Kind: CondExcludeRemote},
			{Kind: CondHighValueOnly, Threshold: 10000},
		},
	}
	base := Context{OrderDate: monday, Metro: true}

	if !opt.Available("metro", 20000, base) {
		t.Fatal("expected available")
	}
	if opt.Available("remote-zone", 20000, base) {
		t.Fatal("expected zone mismatch to gate")
	}
	if opt.Available("metro", 4000, base) {
		t.Fatal("expected min order value to gate")
	}
	if opt.Available("metro", 8000, base) {
		t.Fatal("expected high_value_only to gate")
	}
	if opt.Available("metro", 20000, Context{OrderDate: monday, Metro: false}) {
		t.Fatal("expected metro_only to gate")
	}
	if opt.Available("metro", 20000, Context{OrderDate: monday, Metro: true, Remote: true}) {
		t.Fatal("expected exclude_remote to gate")
	}
	sunday := time.Date(2025, 6, 8, 10, 0, 0, 0, time.UTC)
	if opt.Available("metro", 20000, Context{OrderDate: sunday, Metro: true}) {
		t.Fatal("expected restricted weekday to gate")
	}
}

func TestCostAdjustments(t *testing.T) {
	opt := Option{
		Code:           "express",
		Active:         true,
		MultiplierBps:  15000, // x1.5
		FixedSurcharge: 2000,
		Conditions: []Condition{
			{Kind: CondHighValueDiscount, Threshold: 100000, PercentBps: 1000},
			{Kind: CondWeekendSurcharge, Amount: 1500},
			{Kind: CondRemoteSurcharge, Amount: 3000},
		},
	}

	// Weekday, low value, not remote: just multiplier + surcharge.
	got := opt.Cost(10000, 50000, Context{OrderDate: monday})
	if got.Total != 17000 {
		t.Fatalf("expected 17000, got %d", got.Total)
	}

	// High value on a weekend in a remote area: 10% discount then both surcharges.
	got = opt.Cost(10000, 120000, Context{OrderDate: saturday, Remote: true})
	want := int64(17000 - 1700 + 1500 + 3000)
	if got.Total != want {
		t.Fatalf("expected %d, got %d", want, got.Total)
	}
	if got.Adjustments != -1700+1500+3000 {
		t.Fatalf("unexpected adjustments %d", got.Adjustments)
	}
}

func TestZeroMultiplierDefaultsToIdentity(t *testing.T) {
	opt := Option{Code: "standard", Active: true}
	if got := opt.Cost(12345, 0, Context{OrderDate: monday}); got.Total != 12345 {
		t.Fatalf("expected pass-through cost, got %d", got.Total)
	}
}

func TestEstimatedDelivery(t *testing.T) {
	opt := Option{Code: "standard", RestrictedDays: []time.Weekday{time.Sunday}}

	// 3 valid days from Friday 2025-06-06: Sat, (skip Sun), Mon, Tue.
	friday := time.Date(2025, 6, 6, 9, 0, 0, 0, time.UTC)
	got := opt.EstimatedDelivery(friday, 3, false)
	want := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}

	// Business days only also skips Saturday.
	got = opt.EstimatedDelivery(friday, 3, true)
	want = time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestEstimatedDeliveryAllDaysRestricted(t *testing.T) {
	opt := Option{Code: "standard", RestrictedDays: []time.Weekday{
		time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
		time.Thursday, time.Friday, time.Saturday,
	}}

	// No weekday is valid; the walk must still stop within its cap.
	got := opt.EstimatedDelivery(monday, 3, false)
	want := monday.AddDate(0, 0, maxEstimateWalkDays)
	if !got.Equal(want) {
		t.Fatalf("expected walk capped at %s, got %s", want, got)
	}

	// Weekday-only option combined with a business-day walk is equally stuck.
	weekdaysOff := Option{Code: "standard", RestrictedDays: []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
	}}
	got = weekdaysOff.EstimatedDelivery(monday, 1, true)
	want = monday.AddDate(0, 0, maxEstimateWalkDays)
	if !got.Equal(want) {
		t.Fatalf("expected walk capped at %s, got %s", want, got)
	}
}
