package coupon

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func money(v int64) *int64 { return &v }

func i32(v int32) *int32 { return &v }

func TestValidateGates(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name   string
		coupon Coupon
		total  int64
		want   error
	}{
		{"inactive", Coupon{}, 10000, ErrInactive},
		{"not started", Coupon{Active: true, StartsAt: &future}, 10000, ErrNotStarted},
		{"expired", Coupon{Active: true, ExpiresAt: &past}, 10000, ErrExpired},
		{"exhausted", Coupon{Active: true, UsageLimit: i32(5), UsageCount: 5}, 10000, ErrUsageLimitExceeded},
		{"min spend", Coupon{Active: true, MinOrderAmount: 20000}, 10000, ErrMinimumSpendUnmet},
		{"ok", Coupon{Active: true, StartsAt: &past, ExpiresAt: &future, UsageLimit: i32(5), UsageCount: 4}, 10000, nil},
	}
	for _, tc := range cases {
		if err := tc.coupon.Validate(now, tc.total); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestCanBeUsedBy(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC) // Monday, 12:00

	c := Coupon{Active: true, PerUserLimit: i32(2), FirstOrderOnly: true, CustomerGroups: []string{"gold"}}

	if err := c.CanBeUsedBy(now, UserContext{PerUserUsed: 2, Groups: []string{"gold"}}); !errors.Is(err, ErrPerUserLimitReached) {
		t.Fatalf("expected per-user limit, got %v", err)
	}
	if err := c.CanBeUsedBy(now, UserContext{PriorOrders: 1, Groups: []string{"gold"}}); !errors.Is(err, ErrFirstOrderOnly) {
		t.Fatalf("expected first-order-only, got %v", err)
	}
	if err := c.CanBeUsedBy(now, UserContext{Groups: []string{"silver"}}); !errors.Is(err, ErrCustomerGroup) {
		t.Fatalf("expected customer group gate, got %v", err)
	}
	if err := c.CanBeUsedBy(now, UserContext{Groups: []string{"gold"}}); err != nil {
		t.Fatalf("expected pass, got %v", err)
	}
}

func TestDayTimeWindow(t *testing.T) {
	c := Coupon{Active: true, DayTime: &DayTimeWindow{
		Days:      []time.Weekday{time.Monday},
		HourStart: 9,
		HourEnd:   17,
	}}
	monday11 := time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC)
	monday18 := time.Date(2025, 6, 2, 18, 0, 0, 0, time.UTC)
	tuesday11 := time.Date(2025, 6, 3, 11, 0, 0, 0, time.UTC)

	if err := c.CanBeUsedBy(monday11, UserContext{}); err != nil {
		t.Fatalf("expected in-window pass, got %v", err)
	}
	if err := c.CanBeUsedBy(monday18, UserContext{}); !errors.Is(err, ErrOutsideWindow) {
		t.Fatalf("expected hour gate, got %v", err)
	}
	if err := c.CanBeUsedBy(tuesday11, UserContext{}); !errors.Is(err, ErrOutsideWindow) {
		t.Fatalf("expected weekday gate, got %v", err)
	}
}

func TestPercentageClampedToMaxDiscount(t *testing.T) {
	c := Coupon{Kind: KindPercentage, PercentBps: 2000, MaxDiscountAmount: money(5000)}
	if got := c.Discount(100_000, nil); got.Discount != 5000 {
		t.Fatalf("expected clamp at 5000, got %d", got.Discount)
	}
	if got := c.Discount(10_000, nil); got.Discount != 2000 {
		t.Fatalf("expected 2000, got %d", got.Discount)
	}
}

func TestFixedAmountNeverExceedsTotal(t *testing.T) {
	c := Coupon{Kind: KindFixedAmount, Value: 15000}
	if got := c.Discount(10000, nil); got.Discount != 10000 {
		t.Fatalf("expected discount capped at total, got %d", got.Discount)
	}
	if got := c.Discount(20000, nil); got.Discount != 15000 {
		t.Fatalf("expected full value, got %d", got.Discount)
	}
}

func TestFreeShipping(t *testing.T) {
	c := Coupon{Kind: KindFreeShipping}
	got := c.Discount(10000, nil)
	if got.Discount != 0 || !got.FreeShipping {
		t.Fatalf("expected zero discount with free shipping flag, got %+v", got)
	}
}

func TestBuyXGetYCheapestFirst(t *testing.T) {
	c := Coupon{Kind: KindBuyXGetY, BuyXGetY: &BuyXGetY{BuyQty: 2, GetQty: 1}}
	items := []Item{
		{ProductID: uuid.New(), Qty: 3, UnitPrice: 10000},
		{ProductID: uuid.New(), Qty: 3, UnitPrice: 5000},
	}
	got := c.Discount(45000, items)
	// 6 eligible units, free = 3, all three taken from the 50.00 item.
	if got.FreeUnits != 3 {
		t.Fatalf("expected 3 free units, got %d", got.FreeUnits)
	}
	if got.Discount != 15000 {
		t.Fatalf("expected discount 150.00, got %d", got.Discount)
	}
}

func TestBuyXGetYSpecificProduct(t *testing.T) {
	target := uuid.New()
	c := Coupon{Kind: KindBuyXGetY, BuyXGetY: &BuyXGetY{BuyQty: 3, GetQty: 1, ProductID: &target}}
	items := []Item{
		{ProductID: target, Qty: 4, UnitPrice: 2000},
		{ProductID: uuid.New(), Qty: 10, UnitPrice: 100},
	}
	got := c.Discount(9000, items)
	if got.FreeUnits != 1 || got.Discount != 2000 {
		t.Fatalf("expected 1 free target unit, got %+v", got)
	}
}

func TestBuyXGetYSpillsToNextCheapest(t *testing.T) {
	c := Coupon{Kind: KindBuyXGetY, BuyXGetY: &BuyXGetY{BuyQty: 2, GetQty: 2}}
	items := []Item{
		{ProductID: uuid.New(), Qty: 2, UnitPrice: 8000},
		{ProductID: uuid.New(), Qty: 2, UnitPrice: 3000},
	}
	// 4 units, free = 4: both cheap units plus both expensive ones.
	got := c.Discount(22000, items)
	if got.Discount != 22000 || got.FreeUnits != 4 {
		t.Fatalf("expected all units free, got %+v", got)
	}
}

func TestAppliesToItemExclusionsFirst(t *testing.T) {
	prod := uuid.New()
	cat := uuid.New()
	c := Coupon{
		ApplicableProducts: []uuid.UUID{prod},
		ExcludedProducts:   []uuid.UUID{prod},
	}
	if c.AppliesToItem(Item{ProductID: prod}) {
		t.Fatal("exclusion must win over allow-list")
	}

	allowCat := Coupon{ApplicableCategories: []uuid.UUID{cat}}
	if allowCat.AppliesToItem(Item{ProductID: uuid.New()}) {
		t.Fatal("item without category must not match category allow-list")
	}
	if !allowCat.AppliesToItem(Item{ProductID: uuid.New(), CategoryID: &cat}) {
		t.Fatal("expected category allow-list match")
	}

	open := Coupon{}
	if !open.AppliesToItem(Item{ProductID: uuid.New()}) {
		t.Fatal("coupon without scoping applies to all items")
	}
}
