package core_test

import (
	"math"
	"testing"

	"retail-sim/internal/core"

	"github.com/shopspring/decimal"
)

func baselineJacket() core.DemandInput {
	return core.DemandInput{
		Product:        "jacket",
		Week:           6,
		RRP:            d("100"),
		Discount:       decimal.Zero,
		MarketingSpend: d("216667"),
		HasPrint:       false,
	}
}

func TestDemand_ScenarioA(t *testing.T) {
	m := core.NewDemandModel(core.DefaultCatalog())

	b, err := m.Breakdown(baselineJacket())
	if err != nil {
		t.Fatalf("Breakdown: %v", err)
	}
	if b.PriceEffect != 1 {
		t.Errorf("price effect = %v, want 1", b.PriceEffect)
	}
	if b.PromoLift != 1 {
		t.Errorf("promo lift = %v, want 1", b.PromoLift)
	}
	if math.Abs(b.Positioning-1.0314234095) > 1e-9 {
		t.Errorf("positioning = %v, want 1.0314234095", b.Positioning)
	}
	if b.DesignEffect != 0.95 {
		t.Errorf("design effect = %v, want 0.95", b.DesignEffect)
	}
	if b.Units != 97985 {
		t.Errorf("units = %d, want 97985", b.Units)
	}
}

func TestDemand_Idempotent(t *testing.T) {
	m := core.NewDemandModel(core.DefaultCatalog())
	in := baselineJacket()
	in.Week = 9
	in.Discount = d("0.15")
	in.HasPrint = true

	first, err := m.Forecast(in)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _ := m.Forecast(in)
		if again != first {
			t.Fatalf("call %d returned %d, first call %d", i, again, first)
		}
	}
}

func TestDemand_Factors(t *testing.T) {
	m := core.NewDemandModel(core.DefaultCatalog())
	base, _ := m.Breakdown(baselineJacket())

	tests := []struct {
		name  string
		tweak func(in *core.DemandInput)
		check func(b core.DemandBreakdown) bool
	}{
		{"zero marketing hits promo floor", func(in *core.DemandInput) { in.MarketingSpend = decimal.Zero },
			func(b core.DemandBreakdown) bool { return b.PromoLift == 0.2 }},
		{"double marketing doubles lift", func(in *core.DemandInput) { in.MarketingSpend = d("433334") },
			func(b core.DemandBreakdown) bool { return b.PromoLift == 2 }},
		{"print uplift", func(in *core.DemandInput) { in.HasPrint = true },
			func(b core.DemandBreakdown) bool { return b.DesignEffect == 1.05 && b.Units > base.Units }},
		{"discount suppresses demand", func(in *core.DemandInput) { in.Discount = d("0.2") },
			func(b core.DemandBreakdown) bool {
				return math.Abs(b.PriceEffect-math.Pow(1.25, -1.40)) < 1e-12 && b.Units < base.Units
			}},
		{"premium price suppresses positioning", func(in *core.DemandInput) { in.RRP = d("200") },
			func(b core.DemandBreakdown) bool { return b.Positioning < base.Positioning && b.Positioning >= 0.5 }},
		{"seasonality follows the week", func(in *core.DemandInput) { in.Week = 9 },
			func(b core.DemandBreakdown) bool { return b.Seasonality == 1.25 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baselineJacket()
			tt.tweak(&in)
			b, err := m.Breakdown(in)
			if err != nil {
				t.Fatalf("Breakdown: %v", err)
			}
			if !tt.check(b) {
				t.Errorf("unexpected breakdown %+v", b)
			}
			if b.Units < 0 {
				t.Errorf("units negative: %d", b.Units)
			}
		})
	}
}

func TestDemand_RejectsBadInput(t *testing.T) {
	m := core.NewDemandModel(core.DefaultCatalog())
	tests := []struct {
		name  string
		tweak func(in *core.DemandInput)
	}{
		{"unknown product", func(in *core.DemandInput) { in.Product = "scarf" }},
		{"week zero", func(in *core.DemandInput) { in.Week = 0 }},
		{"week after season", func(in *core.DemandInput) { in.Week = 16 }},
		{"zero price", func(in *core.DemandInput) { in.RRP = decimal.Zero }},
		{"full discount", func(in *core.DemandInput) { in.Discount = d("1") }},
		{"negative marketing", func(in *core.DemandInput) { in.MarketingSpend = d("-1") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baselineJacket()
			tt.tweak(&in)
			if _, err := m.Forecast(in); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestDemand_PriceEffect(t *testing.T) {
	m := core.NewDemandModel(core.DefaultCatalog())
	tests := []struct {
		discount string
		want     float64
	}{
		{"0", 1},
		{"0.2", 0.7316880830837221}, // (100/80)^-1.40
		{"0.5", 0.3789291416275996}, // run-out week 15: 2^-1.40
	}
	for _, tt := range tests {
		in := baselineJacket()
		in.Discount = d(tt.discount)
		b, err := m.Breakdown(in)
		if err != nil {
			t.Fatalf("Breakdown: %v", err)
		}
		if math.Abs(b.PriceEffect-tt.want) > 1e-9 {
			t.Errorf("discount %s: price effect = %v, want %v", tt.discount, b.PriceEffect, tt.want)
		}
	}
}
