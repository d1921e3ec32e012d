package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedTaxRules(ctx, pool)
	seedOrderCharges(ctx, pool)
	seedRateCards(ctx, pool)
	seedDeliveryOptions(ctx, pool)
	seedInsurancePlans(ctx, pool)
	seedBundleRules(ctx, pool)
	seedCoupons(ctx, pool)

	log.Println("Seeding completed successfully!")
}

func seedTaxRules(ctx context.Context, pool *pgxpool.Pool) {
	rules := []struct {
		Code    string
		RateBps int32
		ApplyOn string
		States  []string
	}{
		{"GST_STANDARD", 1800, "subtotal_with_shipping", nil},
		{"GST_REDUCED", 500, "subtotal", []string{"DL", "HR"}},
	}

	fmt.Println("Seeding Tax Rules...")
	for _, r := range rules {
		_, err := pool.Exec(ctx, `
			INSERT INTO tax_rules (code, rate_bps, apply_on, states, priority)
			VALUES ($1, $2, $3, $4, 0)
			ON CONFLICT (code) DO UPDATE SET rate_bps = EXCLUDED.rate_bps;
		`, r.Code, r.RateBps, r.ApplyOn, r.States)
		if err != nil {
			log.Printf("Failed to seed tax rule %s: %v", r.Code, err)
		}
	}
}

func seedOrderCharges(ctx context.Context, pool *pgxpool.Pool) {
	charges := []struct {
		Code       string
		Kind       string
		Amount     int64
		PercentBps int32
		ApplyTo    string
		Conditions string
	}{
		{"PACKAGING", "fixed", 1500, 0, "all", `{}`},
		{"COD_FEE", "percentage", 0, 200, "cod_only", `{}`},
		{"SMALL_ORDER", "fixed", 2500, 0, "all", `{"max_order_value": 50000}`},
	}

	fmt.Println("Seeding Order Charges...")
	for _, c := range charges {
		_, err := pool.Exec(ctx, `
			INSERT INTO order_charges (code, kind, amount, percent_bps, apply_to, conditions)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (code) DO UPDATE SET amount = EXCLUDED.amount, percent_bps = EXCLUDED.percent_bps;
		`, c.Code, c.Kind, c.Amount, c.PercentBps, c.ApplyTo, []byte(c.Conditions))
		if err != nil {
			log.Printf("Failed to seed charge %s: %v", c.Code, err)
		}
	}
}

func seedRateCards(ctx context.Context, pool *pgxpool.Pool) {
	cards := []struct {
		Zone      string
		MinG      int64
		MaxG      any
		BaseRate  int64
		PerKg     int64
		FuelBps   int32
		GSTBps    int32
		Handling  int64
		CODFixed  int64
		CODPctBps int32
	}{
		{"Z_LOCAL", 0, int64(500), 3000, 0, 500, 1800, 500, 2000, 100},
		{"Z_LOCAL", 500, nil, 4000, 1500, 500, 1800, 500, 2000, 100},
		{"Z_NATIONAL", 0, nil, 6000, 2500, 800, 1800, 1000, 2500, 150},
	}

	fmt.Println("Seeding Rate Cards...")
	for _, c := range cards {
		_, err := pool.Exec(ctx, `
			INSERT INTO carrier_rate_cards
				(carrier_service_id, zone_code, weight_min_g, weight_max_g, base_rate, per_kg,
				 fuel_bps, gst_bps, handling, cod_fixed, cod_percent_bps, active)
			VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, true);
		`, c.Zone, c.MinG, c.MaxG, c.BaseRate, c.PerKg, c.FuelBps, c.GSTBps, c.Handling, c.CODFixed, c.CODPctBps)
		if err != nil {
			log.Printf("Failed to seed rate card for zone %s: %v", c.Zone, err)
		}
	}
}

func seedDeliveryOptions(ctx context.Context, pool *pgxpool.Pool) {
	options := []struct {
		Code          string
		DaysMin       int32
		DaysMax       int32
		MultiplierBps int32
		Surcharge     int64
		Cutoff        string
	}{
		{"standard", 3, 5, 10000, 0, ""},
		{"express", 1, 2, 15000, 2000, "14:00:00"},
		{"same_day", 0, 0, 20000, 5000, "11:00:00"},
	}

	fmt.Println("Seeding Delivery Options...")
	for _, o := range options {
		_, err := pool.Exec(ctx, `
			INSERT INTO delivery_options (code, days_min, days_max, multiplier_bps, fixed_surcharge, cutoff_time, active)
			VALUES ($1, $2, $3, $4, $5, $6, true)
			ON CONFLICT (code) DO UPDATE SET multiplier_bps = EXCLUDED.multiplier_bps;
		`, o.Code, o.DaysMin, o.DaysMax, o.MultiplierBps, o.Surcharge, o.Cutoff)
		if err != nil {
			log.Printf("Failed to seed delivery option %s: %v", o.Code, err)
		}
	}
}

func seedInsurancePlans(ctx context.Context, pool *pgxpool.Pool) {
	plans := []struct {
		MinValue   int64
		MaxValue   any
		PremiumBps int32
		MinPremium int64
		Mandatory  bool
	}{
		{0, int64(5000000), 50, 500, false},
		{5000000, nil, 100, 2500, true},
	}

	fmt.Println("Seeding Insurance Plans...")
	for _, p := range plans {
		_, err := pool.Exec(ctx, `
			INSERT INTO insurance_plans (min_order_value, max_order_value, coverage_bps, premium_bps, min_premium, mandatory, claim_processing_days)
			VALUES ($1, $2, 10000, $3, $4, $5, 7);
		`, p.MinValue, p.MaxValue, p.PremiumBps, p.MinPremium, p.Mandatory)
		if err != nil {
			log.Printf("Failed to seed insurance plan: %v", err)
		}
	}
}

func seedBundleRules(ctx context.Context, pool *pgxpool.Pool) {
	fmt.Println("Seeding Bundle Rules...")
	_, err := pool.Exec(ctx, `
		INSERT INTO bundle_discount_rules (min_products, kind, percent_bps, active, priority)
		VALUES (3, 'percentage', 500, true, 0);
	`)
	if err != nil {
		log.Printf("Failed to seed bundle rule: %v", err)
	}
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) {
	coupons := []struct {
		Code       string
		Kind       string
		Value      int64
		PercentBps int32
		MinOrder   int64
		UsageLimit any
	}{
		{"WELCOME10", "percentage", 0, 1000, 50000, nil},
		{"FLAT50", "fixed_amount", 5000, 0, 100000, int32(1000)},
		{"FREESHIP", "free_shipping", 0, 0, 75000, nil},
	}

	fmt.Println("Seeding Coupons...")
	for _, c := range coupons {
		_, err := pool.Exec(ctx, `
			INSERT INTO coupons (code, kind, value, percent_bps, min_order_amount, usage_limit, active)
			VALUES ($1, $2, $3, $4, $5, $6, true)
			ON CONFLICT (lower(code)) DO NOTHING;
		`, c.Code, c.Kind, c.Value, c.PercentBps, c.MinOrder, c.UsageLimit)
		if err != nil {
			log.Printf("Failed to seed coupon %s: %v", c.Code, err)
		}
	}
}
