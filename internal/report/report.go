package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"retail-sim/internal/core"

	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// WeekRow is one committed week in the season summary.
type WeekRow struct {
	Week      int             `json:"week"`
	Phase     core.Phase      `json:"phase"`
	Revenue   decimal.Decimal `json:"revenue"`
	Costs     decimal.Decimal `json:"costs"`
	Cash      decimal.Decimal `json:"cash"`
	Credit    decimal.Decimal `json:"credit"`
	UnitsSold int             `json:"units_sold"`
	LostSales int             `json:"lost_sales"`
	Warnings  int             `json:"warnings"`
}

// ProductRow is the season-to-date performance of one product.
type ProductRow struct {
	Product       string          `json:"product"`
	UnitsSold     int             `json:"units_sold"`
	UnitsDemanded int             `json:"units_demanded"`
	Revenue       decimal.Decimal `json:"revenue"`
	COGS          decimal.Decimal `json:"cogs"`
	GrossMargin   decimal.Decimal `json:"gross_margin"`
	EndingStock   int             `json:"ending_stock"`
}

// SeasonReport covers every committed week of a session.
type SeasonReport struct {
	SessionID      string             `json:"session_id"`
	PlayerName     string             `json:"player_name"`
	Status         core.SessionStatus `json:"status"`
	CatalogVersion string             `json:"catalog_version"`
	Weeks          []WeekRow          `json:"weeks"`
	Products       []ProductRow       `json:"products"`
	Costs          core.CostBuckets   `json:"costs"`
	ServiceLevel   decimal.Decimal    `json:"service_level"`
	Result         *core.SeasonResult `json:"result,omitempty"`
}

// Build summarizes the committed weeks of a session. Drafts are skipped.
func Build(session *core.GameSession, weeks []*core.WeeklyState) *SeasonReport {
	r := &SeasonReport{
		SessionID:      session.ID,
		PlayerName:     session.PlayerName,
		Status:         session.Status,
		CatalogVersion: session.CatalogVersion,
		Result:         session.Result,
	}

	var last *core.WeeklyState
	for _, st := range weeks {
		if !st.IsCommitted {
			continue
		}
		row := WeekRow{
			Week:     st.WeekNumber,
			Phase:    st.Phase,
			Revenue:  st.WeeklyRevenue,
			Costs:    st.Costs.Total(),
			Cash:     st.CashOnHand,
			Credit:   st.CreditUsed,
			Warnings: len(st.Warnings),
		}
		for _, n := range st.WeeklySales {
			row.UnitsSold += n
		}
		for _, n := range st.LostSales {
			row.LostSales += n
		}
		r.Weeks = append(r.Weeks, row)
		if last == nil || st.WeekNumber > last.WeekNumber {
			last = st
		}
	}
	sort.Slice(r.Weeks, func(i, j int) bool { return r.Weeks[i].Week < r.Weeks[j].Week })
	if last == nil {
		return r
	}

	r.Costs = last.Totals.Costs
	r.ServiceLevel = core.ServiceLevel(last.Totals.ServiceSales, last.Totals.ServiceDemand)
	keys := make([]string, 0, len(last.Totals.Products))
	for k := range last.Totals.Products {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pt := last.Totals.Products[k]
		cogs := pt.COGS()
		r.Products = append(r.Products, ProductRow{
			Product:       k,
			UnitsSold:     pt.UnitsSold,
			UnitsDemanded: pt.UnitsDemanded,
			Revenue:       pt.Revenue,
			COGS:          cogs,
			GrossMargin:   pt.Revenue.Sub(cogs),
			EndingStock:   last.AvailableUnits(k),
		})
	}
	return r
}

// Markdown renders the report as GitHub-flavoured markdown.
func (r *SeasonReport) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Season report: %s\n\n", r.PlayerName)
	fmt.Fprintf(&b, "Session `%s`, catalog %s, status %s.\n\n", r.SessionID, r.CatalogVersion, r.Status)

	if r.Result != nil {
		b.WriteString("## Result\n\n| KPI | Value |\n|---|---:|\n")
		kpis := []struct {
			name string
			v    decimal.Decimal
		}{
			{"Revenue", r.Result.TotalRevenue},
			{"Total cost", r.Result.TotalCost},
			{"Capital charge", r.Result.CapitalCharge},
			{"Economic profit", r.Result.EconomicProfit},
			{"Dead stock value", r.Result.DeadStockValue},
			{"Final score", r.Result.FinalScore},
		}
		for _, k := range kpis {
			fmt.Fprintf(&b, "| %s | %s |\n", k.name, k.v.StringFixed(2))
		}
		fmt.Fprintf(&b, "| Service level | %s%% |\n", r.Result.ServiceLevel.Mul(decimal.NewFromInt(100)).StringFixed(2))
		fmt.Fprintf(&b, "| Dead stock units | %d |\n\n", r.Result.DeadStockUnits)
	}

	b.WriteString("## Weeks\n\n| Week | Phase | Revenue | Costs | Cash | Credit | Sold | Lost | Warnings |\n")
	b.WriteString("|---:|---|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, w := range r.Weeks {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s | %d | %d | %d |\n",
			w.Week, w.Phase, w.Revenue.StringFixed(2), w.Costs.StringFixed(2),
			w.Cash.StringFixed(2), w.Credit.StringFixed(2), w.UnitsSold, w.LostSales, w.Warnings)
	}

	if len(r.Products) > 0 {
		b.WriteString("\n## Products\n\n| Product | Sold | Demanded | Revenue | COGS | Gross margin | Stock left |\n")
		b.WriteString("|---|---:|---:|---:|---:|---:|---:|\n")
		for _, p := range r.Products {
			fmt.Fprintf(&b, "| %s | %d | %d | %s | %s | %s | %d |\n",
				p.Product, p.UnitsSold, p.UnitsDemanded, p.Revenue.StringFixed(2),
				p.COGS.StringFixed(2), p.GrossMargin.StringFixed(2), p.EndingStock)
		}
	}

	c := r.Costs
	b.WriteString("\n## Costs to date\n\n| Bucket | Amount |\n|---|---:|\n")
	for _, line := range []struct {
		name string
		v    decimal.Decimal
	}{
		{"Material", c.Material}, {"Production", c.Production}, {"Logistics", c.Logistics},
		{"Marketing", c.Marketing}, {"Holding", c.Holding}, {"Interest", c.Interest},
		{"Penalties", c.Penalties},
	} {
		fmt.Fprintf(&b, "| %s | %s |\n", line.name, line.v.StringFixed(2))
	}
	fmt.Fprintf(&b, "| **Total** | **%s** |\n", c.Total().StringFixed(2))
	return b.String()
}

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// HTML renders markdown into a standalone HTML document.
func HTML(markdown string) (string, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Season report</title></head><body>\n" +
		body.String() + "</body></html>\n", nil
}
