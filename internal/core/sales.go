package core

import (
	"github.com/shopspring/decimal"
)

// LotTake records units drawn from one finished-goods lot.
type LotTake struct {
	LotID         string          `json:"lot_id"`
	Units         int             `json:"units"`
	UnitCostBasis decimal.Decimal `json:"unit_cost_basis"`
}

// Consumption is the cost of units drawn from finished goods, split by component.
type Consumption struct {
	Units      int
	Material   decimal.Decimal
	Production decimal.Decimal
	Shipping   decimal.Decimal
	Takes      []LotTake
}

// COGS is the fully-loaded cost of the consumed units.
func (c Consumption) COGS() decimal.Decimal {
	return c.Material.Add(c.Production).Add(c.Shipping)
}

// ConsumeFIFO draws units of product from the oldest lots first and returns the updated
// lots with depleted ones pruned. The input slice is not modified.
func ConsumeFIFO(lots []FinishedGoodsLot, product string, units int) ([]FinishedGoodsLot, Consumption) {
	out := make([]FinishedGoodsLot, 0, len(lots))
	var c Consumption
	remaining := units
	for _, lot := range lots {
		if lot.Product == product && remaining > 0 {
			take := lot.Quantity
			if take > remaining {
				take = remaining
			}
			n := decimal.NewFromInt(int64(take))
			c.Units += take
			c.Material = c.Material.Add(lot.MaterialUnitCost.Mul(n).Round(2))
			c.Production = c.Production.Add(lot.ProductionUnitCost.Mul(n).Round(2))
			c.Shipping = c.Shipping.Add(lot.ShippingUnitCost.Mul(n).Round(2))
			c.Takes = append(c.Takes, LotTake{LotID: lot.LotID, Units: take, UnitCostBasis: lot.UnitCostBasis})
			lot.Quantity -= take
			remaining -= take
		}
		if lot.Quantity > 0 {
			out = append(out, lot)
		}
	}
	return out, c
}

// sell resolves every product's demand against finished goods from the first selling week.
func (s *settlement) sell() {
	if s.week < s.cat.Season.SalesStartWeek {
		return
	}
	for _, key := range s.cat.ProductKeys() {
		s.sellProduct(key)
	}
	s.st.WeeklyRevenue = s.st.WeeklyRevenue.Round(2)
}

func (s *settlement) sellProduct(key string) {
	st := s.st
	pd := st.ProductData[key]
	if !pd.RetailPrice.IsPositive() {
		return
	}

	discount := st.WeeklyDiscounts[key]
	if md, ok := s.cat.Markdown(s.week); ok {
		discount = md
		st.WeeklyDiscounts[key] = md
	}

	demand, err := s.demand.Forecast(DemandInput{
		Product:        key,
		Week:           s.week,
		RRP:            pd.RetailPrice,
		Discount:       discount,
		MarketingSpend: st.MarketingPlan.TotalSpend,
		HasPrint:       pd.HasPrint,
	})
	if err != nil {
		is := errorIssue(CodeInvalidValue, "%s: %v", key, err)
		is.Product = key
		s.addIssue(is)
		return
	}

	units := st.AvailableUnits(key)
	if demand < units {
		units = demand
	}

	price := DiscountedPrice(pd.RetailPrice, discount)
	if cost := s.actualUnitCost(key); units > 0 && price.LessThan(cost) {
		is := warningIssue(CodeSalesBlocked, "%s: no sales at %s, below unit cost %s", key, price.StringFixed(2), cost.StringFixed(2))
		is.Product = key
		s.addIssue(is)
		units = 0
	}

	var used Consumption
	st.FinishedGoods, used = ConsumeFIFO(st.FinishedGoods, key, units)
	revenue := price.Mul(decimal.NewFromInt(int64(units))).Round(2)

	st.WeeklyDemand[key] = demand
	st.WeeklySales[key] = units
	st.LostSales[key] = demand - units
	st.WeeklyRevenue = st.WeeklyRevenue.Add(revenue)

	t := &st.Totals
	t.Revenue = t.Revenue.Add(revenue)
	t.UnitsSold += units
	t.MaterialCOGS = t.MaterialCOGS.Add(used.Material)
	t.ProductionCOGS = t.ProductionCOGS.Add(used.Production)
	t.ShippingCOGS = t.ShippingCOGS.Add(used.Shipping)
	if s.week >= s.cat.Season.ServiceLevelFrom && s.week <= s.cat.Season.ServiceLevelTo {
		t.ServiceDemand += demand
		t.ServiceSales += units
	}

	pt := t.Products[key]
	pt.Revenue = pt.Revenue.Add(revenue)
	pt.UnitsSold += units
	pt.UnitsDemanded += demand
	pt.MaterialCOGS = pt.MaterialCOGS.Add(used.Material)
	pt.ProductionCOGS = pt.ProductionCOGS.Add(used.Production)
	pt.ShippingCOGS = pt.ShippingCOGS.Add(used.Shipping)
	t.Products[key] = pt
}

// actualUnitCost is the trailing season-to-date cost per unit sold. Before the first sale
// it falls back to the weighted cost basis of the lots on hand.
func (s *settlement) actualUnitCost(key string) decimal.Decimal {
	pt := s.st.Totals.Products[key]
	if pt.UnitsSold > 0 {
		return pt.COGS().Div(decimal.NewFromInt(int64(pt.UnitsSold))).Round(2)
	}
	value, units := decimal.Zero, 0
	for _, lot := range s.st.FinishedGoods {
		if lot.Product != key {
			continue
		}
		value = value.Add(lot.UnitCostBasis.Mul(decimal.NewFromInt(int64(lot.Quantity))))
		units += lot.Quantity
	}
	if units == 0 {
		return decimal.Zero
	}
	return value.Div(decimal.NewFromInt(int64(units))).Round(2)
}

// DiscountedPrice is the shelf price after discount, to the cent.
func DiscountedPrice(rrp, discount decimal.Decimal) decimal.Decimal {
	return rrp.Mul(decimal.NewFromInt(1).Sub(discount)).Round(2)
}
