package core

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// DemandInput carries everything the demand model depends on.
type DemandInput struct {
	Product        string          `json:"product"`
	Week           int             `json:"week"`
	RRP            decimal.Decimal `json:"rrp"`
	Discount       decimal.Decimal `json:"discount"`
	MarketingSpend decimal.Decimal `json:"marketing_spend"`
	HasPrint       bool            `json:"has_print"`
}

// DemandBreakdown exposes each multiplier so previews can explain a forecast.
type DemandBreakdown struct {
	BaseForecast float64 `json:"base_forecast"`
	Seasonality  float64 `json:"seasonality"`
	PriceEffect  float64 `json:"price_effect"`
	PromoLift    float64 `json:"promo_lift"`
	Positioning  float64 `json:"positioning"`
	DesignEffect float64 `json:"design_effect"`
	Units        int     `json:"units"`
}

// DemandModel maps pricing, marketing and design choices to weekly unit demand.
// It holds no mutable state and is safe for concurrent use.
type DemandModel struct {
	cat *Catalog
}

func NewDemandModel(cat *Catalog) *DemandModel {
	return &DemandModel{cat: cat}
}

// Forecast returns the unit demand for in.
func (m *DemandModel) Forecast(in DemandInput) (int, error) {
	b, err := m.Breakdown(in)
	if err != nil {
		return 0, err
	}
	return b.Units, nil
}

// Breakdown computes demand and returns every factor that went into it.
func (m *DemandModel) Breakdown(in DemandInput) (DemandBreakdown, error) {
	spec, ok := m.cat.Products[in.Product]
	if !ok {
		return DemandBreakdown{}, fmt.Errorf("unknown product %q", in.Product)
	}
	if in.Week < 1 || in.Week > m.cat.Season.Weeks {
		return DemandBreakdown{}, fmt.Errorf("week %d outside season 1..%d", in.Week, m.cat.Season.Weeks)
	}
	if !in.RRP.IsPositive() {
		return DemandBreakdown{}, fmt.Errorf("retail price must be > 0 for %s", in.Product)
	}
	if in.Discount.IsNegative() || in.Discount.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return DemandBreakdown{}, fmt.Errorf("discount must be in [0,1), got %s", in.Discount)
	}
	if in.MarketingSpend.IsNegative() {
		return DemandBreakdown{}, fmt.Errorf("marketing spend cannot be negative")
	}

	cfg := m.cat.Demand
	rrp := in.RRP.InexactFloat64()
	discount := in.Discount.InexactFloat64()

	b := DemandBreakdown{
		BaseForecast: spec.BaseForecast,
		Seasonality:  m.cat.SeasonalityFactor(in.Week),
		// rrp / discounted price, raised to the elasticity.
		PriceEffect: math.Pow(1/(1-discount), spec.Elasticity),
		PromoLift:   math.Max(cfg.PromoFloor, in.MarketingSpend.InexactFloat64()/cfg.BaselineMarketingSpend),
		Positioning: positioningEffect(cfg, rrp/spec.HMPrice-1),
	}
	if in.HasPrint {
		b.DesignEffect = cfg.PrintUplift
	} else {
		b.DesignEffect = cfg.PlainFactor
	}

	units := b.BaseForecast * b.Seasonality * b.PriceEffect * b.PromoLift * b.Positioning * b.DesignEffect
	b.Units = int(math.Max(0, math.Round(units)))
	return b, nil
}

// positioningEffect falls from max to min as the premium over the mass-market reference
// moves past the centre of the sweet zone.
func positioningEffect(cfg DemandConfig, priceRatio float64) float64 {
	sigma := 1 / (1 + math.Exp(-cfg.PositioningSteepness*(priceRatio-cfg.PositioningCenter)))
	return cfg.PositioningMin + (cfg.PositioningMax-cfg.PositioningMin)*(1-sigma)
}
