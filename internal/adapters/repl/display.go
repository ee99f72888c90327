package repl

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"retail-sim/internal/app"
	"retail-sim/internal/core"
)

// PrintSession writes a one-block summary of a session and its draft week.
func PrintSession(w io.Writer, res *app.SessionResult) {
	s := res.Session
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 62))
	fmt.Fprintf(w, "  Session  : %s\n", s.ID)
	if s.PlayerName != "" {
		fmt.Fprintf(w, "  Player   : %s\n", s.PlayerName)
	}
	fmt.Fprintf(w, "  Status   : %s (catalog %s)\n", s.Status, s.CatalogVersion)
	fmt.Fprintf(w, "  Week     : %d\n", s.CurrentWeek)
	fmt.Fprintln(w, strings.Repeat("=", 62))
	if res.Draft != nil {
		PrintWeek(w, res.Draft)
	}
	if s.Result != nil {
		PrintResult(w, s.Result)
	}
}

// PrintWeek writes the cash position, product decisions and inventory of one week.
func PrintWeek(w io.Writer, st *core.WeeklyState) {
	status := "DRAFT"
	if st.IsCommitted {
		status = "COMMITTED"
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  WEEK %d  %s  [%s]\n", st.WeekNumber, st.Phase, status)
	fmt.Fprintln(w, strings.Repeat("-", 62))
	fmt.Fprintf(w, "  %-20s %15s\n", "Cash on hand", st.CashOnHand.StringFixed(2))
	fmt.Fprintf(w, "  %-20s %15s\n", "Credit used", st.CreditUsed.StringFixed(2))
	fmt.Fprintf(w, "  %-20s %15s\n", "Marketing spend", st.MarketingPlan.TotalSpend.StringFixed(2))

	fmt.Fprintln(w, strings.Repeat("-", 62))
	fmt.Fprintf(w, "  %-10s %-8s %10s %6s %8s %8s %8s\n", "PRODUCT", "FABRIC", "PRICE", "LOCK", "STOCK", "DEMAND", "SOLD")
	for _, key := range sortedKeys(st.ProductData) {
		pd := st.ProductData[key]
		lock := "-"
		switch {
		case pd.PriceLocked:
			lock = "P+D"
		case pd.DesignLocked:
			lock = "D"
		}
		fmt.Fprintf(w, "  %-10s %-8s %10s %6s %8d %8d %8d\n",
			key, pd.Fabric, pd.RetailPrice.StringFixed(2), lock,
			st.AvailableUnits(key), st.WeeklyDemand[key], st.WeeklySales[key])
	}

	if len(st.RawMaterials) > 0 {
		fmt.Fprintln(w, strings.Repeat("-", 62))
		fmt.Fprintf(w, "  %-16s %10s %10s %12s\n", "MATERIAL", "ON HAND", "ALLOCATED", "AVG COST")
		for _, key := range sortedKeys(st.RawMaterials) {
			rm := st.RawMaterials[key]
			fmt.Fprintf(w, "  %-16s %10d %10d %12s\n", key, rm.OnHand, rm.Allocated, rm.AverageCost().StringFixed(4))
		}
	}

	if n := len(st.ProductionSchedule) + len(st.WorkInProcess) + len(st.ShipmentsInTransit); n > 0 {
		fmt.Fprintln(w, strings.Repeat("-", 62))
		for _, b := range st.ProductionSchedule {
			fmt.Fprintf(w, "  planned   %-7s %-9s %-10s %8d from week %d (%s)\n", b.ID, b.Product, b.Method, b.Quantity, b.StartWeek, b.ShippingMethod)
		}
		for _, b := range st.WorkInProcess {
			fmt.Fprintf(w, "  wip       %-7s %-9s %-10s %8d until week %d\n", b.BatchID, b.Product, b.Method, b.Quantity, b.EndWeek)
		}
		for _, s := range st.ShipmentsInTransit {
			fmt.Fprintf(w, "  transit   %-7s %-9s %-10s %8d arrives week %d\n", s.BatchID, s.Product, s.ShippingMethod, s.Quantity, s.ArrivalWeek)
		}
	}

	if len(st.ProcurementContracts) > 0 {
		fmt.Fprintln(w, strings.Repeat("-", 62))
		fmt.Fprintf(w, "  %-9s %-10s %-14s %10s %10s %8s\n", "CONTRACT", "SUPPLIER", "MATERIAL", "ORDERED", "DELIVERED", "DISC")
		for _, c := range st.ProcurementContracts {
			fmt.Fprintf(w, "  %-9s %-10s %-14s %10d %10d %8s\n",
				c.ID, c.Supplier, c.MaterialKey(), c.OrderedUnits(), c.DeliveredUnits, c.DiscountApplied.String())
		}
	}

	if st.IsCommitted {
		fmt.Fprintln(w, strings.Repeat("-", 62))
		fmt.Fprintf(w, "  %-20s %15s\n", "Revenue", st.WeeklyRevenue.StringFixed(2))
		fmt.Fprintf(w, "  %-20s %15s\n", "Costs", st.Costs.Total().StringFixed(2))
	}
	printIssues(w, "WARN", st.Warnings)
}

// PrintOutcome writes the result of a validate or commit call.
func PrintOutcome(w io.Writer, out *core.CommitOutcome) {
	switch {
	case out.Committed:
		fmt.Fprintf(w, "Week %d COMMITTED.\n", out.Week)
	case out.Validation.CanCommit:
		fmt.Fprintf(w, "Week %d is valid and can be committed.\n", out.Week)
	default:
		fmt.Fprintf(w, "Week %d cannot be committed.\n", out.Week)
	}
	printIssues(w, "ERROR", out.Validation.Errors)
	printIssues(w, "WARN", out.Validation.Warnings)
	if out.State != nil {
		fmt.Fprintf(w, "  revenue %s, costs %s, cash %s, credit %s\n",
			out.State.WeeklyRevenue.StringFixed(2), out.State.Costs.Total().StringFixed(2),
			out.State.CashOnHand.StringFixed(2), out.State.CreditUsed.StringFixed(2))
	}
	if out.Result != nil {
		PrintResult(w, out.Result)
	}
}

// PrintResult writes the end-of-season KPIs.
func PrintResult(w io.Writer, r *core.SeasonResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 62))
	fmt.Fprintf(w, "  %-58s\n", "SEASON RESULT")
	fmt.Fprintln(w, strings.Repeat("=", 62))
	rows := []struct{ k, v string }{
		{"Revenue", r.TotalRevenue.StringFixed(2)},
		{"Total cost", r.TotalCost.StringFixed(2)},
		{"Capital charge", r.CapitalCharge.StringFixed(2)},
		{"Economic profit", r.EconomicProfit.StringFixed(2)},
		{"Dead stock units", fmt.Sprint(r.DeadStockUnits)},
		{"Dead stock value", r.DeadStockValue.StringFixed(2)},
		{"Service level", r.ServiceLevel.StringFixed(4)},
		{"Final score", r.FinalScore.StringFixed(2)},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "  %-24s %20s\n", row.k, row.v)
	}
	fmt.Fprintln(w, strings.Repeat("=", 62))
}

// PrintDemand writes a demand forecast with each multiplier.
func PrintDemand(w io.Writer, res *app.DemandPreviewResult) {
	b := res.Breakdown
	fmt.Fprintf(w, "Demand for %s in week %d at %s: %d units\n", res.Input.Product, res.Input.Week, res.Input.RRP.StringFixed(2), b.Units)
	fmt.Fprintf(w, "  base %.0f x season %.3f x price %.3f x promo %.3f x position %.3f x design %.3f\n",
		b.BaseForecast, b.Seasonality, b.PriceEffect, b.PromoLift, b.Positioning, b.DesignEffect)
}

// PrintDecisionError lists the issues that rejected a submission.
func PrintDecisionError(w io.Writer, de *core.DecisionError) {
	fmt.Fprintln(w, "Decisions REJECTED:")
	printIssues(w, "ERROR", de.Issues)
}

func printIssues(w io.Writer, label string, issues []core.Issue) {
	for _, is := range issues {
		where := ""
		if is.Product != "" {
			where = " " + is.Product
		}
		if is.Week > 0 {
			where += fmt.Sprintf(" week %d", is.Week)
		}
		fmt.Fprintf(w, "  [%s] %s%s: %s\n", label, is.Code, where, is.Message)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
