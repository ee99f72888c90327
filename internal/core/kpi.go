package core

import (
	"github.com/shopspring/decimal"
)

const weeksPerYear = 52

// ComputeSeasonResult derives the terminal KPIs from the committed final week.
func ComputeSeasonResult(cat *Catalog, final *WeeklyState) SeasonResult {
	t := final.Totals
	res := SeasonResult{
		ServiceLevel:  ServiceLevel(t.ServiceSales, t.ServiceDemand),
		TotalRevenue:  t.Revenue,
		TotalCost:     t.Costs.Total(),
		CapitalCharge: CapitalCharge(cat),
	}
	res.EconomicProfit = res.TotalRevenue.Sub(res.TotalCost).Sub(res.CapitalCharge)

	res.DeadStockValue = decimal.Zero
	for _, lot := range final.FinishedGoods {
		res.DeadStockUnits += lot.Quantity
		res.DeadStockValue = res.DeadStockValue.Add(lot.UnitCostBasis.Mul(decimal.NewFromInt(int64(lot.Quantity))).Round(2))
	}
	res.FinalScore = res.EconomicProfit.Sub(res.DeadStockValue)
	return res
}

// ServiceLevel is sold over demanded, to four places. No demand yields zero.
func ServiceLevel(sold, demanded int) decimal.Decimal {
	if demanded <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(sold)).Div(decimal.NewFromInt(int64(demanded))).Round(4)
}

// CapitalCharge pro-rates the annual charge on starting capital over the season.
func CapitalCharge(cat *Catalog) decimal.Decimal {
	return dec(cat.Finance.StartingCash).
		Mul(dec(cat.Finance.AnnualCapitalChargeRate)).
		Mul(decimal.NewFromInt(int64(cat.Season.Weeks))).
		Div(decimal.NewFromInt(weeksPerYear)).
		Round(2)
}
