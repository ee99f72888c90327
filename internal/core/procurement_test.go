package core_test

import (
	"errors"
	"testing"

	"retail-sim/internal/core"

	"github.com/shopspring/decimal"
)

func TestProcurement_ScenarioB_SpotTierIsBasketOnly(t *testing.T) {
	cat := core.DefaultCatalog()
	eng := core.NewEngine(cat)

	st := mustMerge(t, cat, draftAt(cat, 1), core.Decisions{
		SpotOrders:     []core.MaterialOrder{{Supplier: "supplier1", Fabric: "cotton", Units: 130000}},
		GMCCommitments: []core.MaterialOrder{{Supplier: "supplier1", Fabric: "cotton", Units: 50000}},
	})
	out := mustSettle(t, eng, st)

	spot := contractOfType(out.State, core.ContractSpot)
	gmc := contractOfType(out.State, core.ContractGMC)
	if spot == nil || gmc == nil {
		t.Fatalf("contracts missing: %+v", out.State.ProcurementContracts)
	}
	equalDec(t, "spot discount", spot.DiscountApplied, d("0.03"))
	equalDec(t, "gmc discount", gmc.DiscountApplied, decimal.Zero)
	equalDec(t, "spot net price", spot.NetUnitPrice(), d("3.104"))

	// A later, smaller basket gets no tier even though the supplier sold 130k before.
	next := core.NextDraft(out.State, testNow)
	next = mustMerge(t, cat, next, core.Decisions{
		SpotOrders: []core.MaterialOrder{{Supplier: "supplier1", Fabric: "cotton", Units: 50000}},
	})
	out2 := mustSettle(t, eng, next)
	later := out2.State.ContractByID("SPT-0003")
	if later == nil {
		t.Fatalf("second spot contract missing: %+v", out2.State.ProcurementContracts)
	}
	equalDec(t, "later spot discount", later.DiscountApplied, decimal.Zero)
	equalDec(t, "first spot discount unchanged", out2.State.ContractByID(spot.ID).DiscountApplied, d("0.03"))
}

func TestProcurement_SpotPaidOnDeliveryForGoodUnits(t *testing.T) {
	cat := core.DefaultCatalog()
	eng := core.NewEngine(cat)

	st := mustMerge(t, cat, draftAt(cat, 1), core.Decisions{
		SpotOrders: []core.MaterialOrder{{Supplier: "supplier1", Fabric: "cotton", Units: 130000}},
	})
	w1 := mustSettle(t, eng, st)
	equalDec(t, "week 1 material", w1.State.Costs.Material, decimal.Zero)

	w2 := mustSettle(t, eng, core.NextDraft(w1.State, testNow))
	equalDec(t, "week 2 material", w2.State.Costs.Material, decimal.Zero)
	if got := w2.State.RawMaterials["cotton"].OnHand; got != 0 {
		t.Errorf("cotton on hand before delivery = %d", got)
	}

	w3 := mustSettle(t, eng, core.NextDraft(w2.State, testNow))
	// 130000 units at 2% defects, 3.20 less 3%
	equalDec(t, "week 3 material", w3.State.Costs.Material, d("395449.60"))
	rm := w3.State.RawMaterials["cotton"]
	if rm.OnHand != 127400 {
		t.Errorf("cotton on hand = %d, want 127400", rm.OnHand)
	}
	equalDec(t, "cotton value", rm.OnHandValue, d("395449.60"))
	equalDec(t, "average cost", rm.AverageCost(), d("3.104"))
}

func TestProcurement_GMCSettlesAfterLag(t *testing.T) {
	cat := core.DefaultCatalog()
	eng := core.NewEngine(cat)

	st := mustMerge(t, cat, draftAt(cat, 1), core.Decisions{
		GMCCommitments: []core.MaterialOrder{{Supplier: "supplier2", Fabric: "cotton", Units: 200000}},
	})
	st = mustMerge(t, cat, st, core.Decisions{
		GMCOrders: []core.GMCOrder{{ContractID: "gmc-0001", Units: 60000}},
	})

	w1 := mustSettle(t, eng, st)
	gmc := contractOfType(w1.State, core.ContractGMC)
	equalDec(t, "gmc discount", gmc.DiscountApplied, d("0.02"))
	if len(gmc.Installments) != 1 || gmc.Installments[0].DueWeek != 3 {
		t.Fatalf("installments = %+v, want one due week 3", gmc.Installments)
	}

	w2 := mustSettle(t, eng, core.NextDraft(w1.State, testNow))
	if got := w2.State.RawMaterials["cotton"].OnHand; got != 57000 {
		t.Errorf("cotton delivered in week 2 = %d, want 57000", got)
	}
	equalDec(t, "week 2 material", w2.State.Costs.Material, decimal.Zero)

	w3 := mustSettle(t, eng, core.NextDraft(w2.State, testNow))
	equalDec(t, "week 3 settlement", w3.State.Costs.Material, d("161994.00"))
}

func TestProcurement_GMCLineCannotExceedCommitment(t *testing.T) {
	cat := core.DefaultCatalog()
	st := mustMerge(t, cat, draftAt(cat, 1), core.Decisions{
		GMCCommitments: []core.MaterialOrder{{Supplier: "supplier2", Fabric: "cotton", Units: 100000}},
	})
	_, err := core.MergeDecisions(cat, st, core.Decisions{
		GMCOrders: []core.GMCOrder{{ContractID: "GMC-0001", Units: 100001}},
	})
	var de *core.DecisionError
	if !errors.As(err, &de) || !hasIssue(de.Issues, core.CodeGMCOverCommitment) {
		t.Fatalf("expected over-commitment rejection, got %v", err)
	}
}

func TestProcurement_ForwardContract(t *testing.T) {
	cat := core.DefaultCatalog()
	eng := core.NewEngine(cat)

	st := mustMerge(t, cat, draftAt(cat, 1), core.Decisions{
		ForwardContracts: []core.MaterialOrder{{Supplier: "supplier1", Fabric: "wool", Units: 100000}},
	})
	w1 := mustSettle(t, eng, st)
	// 98000 good units at 9.80 less 3%: value 931588.00, 30% up front
	equalDec(t, "deposit", w1.State.Costs.Material, d("279476.40"))

	fvc := contractOfType(w1.State, core.ContractForward)
	var balance core.Installment
	for _, inst := range fvc.Installments {
		if inst.Kind == core.InstallmentBalance {
			balance = inst
		}
	}
	if balance.DueWeek != 9 {
		t.Errorf("balance due week = %d, want 9", balance.DueWeek)
	}
	equalDec(t, "balance", balance.Amount, d("652111.60"))

	_, err := core.MergeDecisions(cat, draftAt(cat, 2), core.Decisions{
		ForwardContracts: []core.MaterialOrder{{Supplier: "supplier1", Fabric: "wool", Units: 100000}},
	})
	var de *core.DecisionError
	if !errors.As(err, &de) || !hasIssue(de.Issues, core.CodeForwardOutsideWeek) {
		t.Errorf("expected forward contract rejection in week 2, got %v", err)
	}
}

func TestProcurement_ForwardOutsideWeekOneFailsValidation(t *testing.T) {
	cat := core.DefaultCatalog()
	st := draftAt(cat, 3)
	st.ProcurementContracts = []core.Contract{{
		ID: "FVC-0001", Type: core.ContractForward, Supplier: "supplier1", Fabric: "wool",
		SignedWeek: 3, CommittedUnits: 1000,
		Lines: []core.ContractLine{{PlacedWeek: 3, Units: 1000}},
	}}
	out := mustSettle(t, core.NewEngine(cat), st)
	if !hasIssue(out.Validation.Errors, core.CodeForwardOutsideWeek) {
		t.Errorf("expected %s, got %+v", core.CodeForwardOutsideWeek, out.Validation.Errors)
	}
	if out.Validation.CanCommit {
		t.Error("CanCommit = true, want false")
	}
}

func TestProcurement_SingleSupplierDeal(t *testing.T) {
	cat := core.DefaultCatalog()
	eng := core.NewEngine(cat)

	st := mustMerge(t, cat, draftAt(cat, 1), core.Decisions{
		SingleSupplierDeal: "supplier1",
		SpotOrders:         []core.MaterialOrder{{Supplier: "supplier1", Fabric: "cotton", Units: 130000}},
	})
	out := mustSettle(t, eng, st)
	equalDec(t, "discount with bonus", contractOfType(out.State, core.ContractSpot).DiscountApplied, d("0.05"))

	_, err := core.MergeDecisions(cat, st, core.Decisions{
		SpotOrders: []core.MaterialOrder{{Supplier: "supplier2", Fabric: "cotton", Units: 1000}},
	})
	var de *core.DecisionError
	if !errors.As(err, &de) || !hasIssue(de.Issues, core.CodeSupplierExclusive) {
		t.Errorf("expected exclusivity rejection, got %v", err)
	}

	_, err = core.MergeDecisions(cat, st, core.Decisions{SingleSupplierDeal: "supplier2"})
	if !errors.As(err, &de) {
		t.Errorf("expected second deal to be rejected, got %v", err)
	}
}

// shortfallContract is a supplier1 GMC for 50000 cotton of which only 40000 were called off.
func shortfallContract() core.Contract {
	return core.Contract{
		ID: "GMC-0001", Type: core.ContractGMC, Supplier: "supplier1", Fabric: "cotton",
		SignedWeek: 1, CommittedUnits: 50000, Priced: true,
		UnitBasePrice: d("3.20"), PrintSurcharge: decimal.Zero, DiscountApplied: d("0.03"),
		Lines: []core.ContractLine{
			{PlacedWeek: 2, Units: 40000, GoodUnits: 39200, Scheduled: true, DeliveryWeek: 4, Delivered: true},
		},
		Installments:   []core.Installment{{Kind: core.InstallmentSettlement, DueWeek: 4, Amount: d("121676.80"), Paid: true}},
		PaidSoFar:      d("121676.80"),
		DeliveredUnits: 40000,
	}
}

func TestProcurement_ScenarioD_ShortfallPenalty(t *testing.T) {
	cat := core.DefaultCatalog()
	st := draftAt(cat, 15)
	st.ProcurementContracts = []core.Contract{shortfallContract()}

	out := mustSettle(t, core.NewEngine(cat), st)

	// 10000 missing units x 3.104 x 20%
	equalDec(t, "penalties", out.State.Costs.Penalties, d("6208.00"))
	equalDec(t, "cash", out.State.CashOnHand, d("4993792.00"))
	if out.Result == nil {
		t.Fatal("expected season result at week 15")
	}
	equalDec(t, "total cost", out.Result.TotalCost, d("6208.00"))
	equalDec(t, "capital charge", out.Result.CapitalCharge, d("144230.77"))
	equalDec(t, "economic profit", out.Result.EconomicProfit, d("-150438.77"))
}

func TestProcurement_PenaltySettlesAfterInterest(t *testing.T) {
	cat := core.DefaultCatalog()
	st := draftAt(cat, 15)
	st.CashOnHand = decimal.Zero
	st.CreditUsed = d("100000")
	st.ProcurementContracts = []core.Contract{shortfallContract()}

	out := mustSettle(t, core.NewEngine(cat), st)

	// interest accrues on the opening balance only; the penalty is drawn afterwards
	equalDec(t, "interest", out.State.Costs.Interest, d("200.00"))
	equalDec(t, "penalties", out.State.Costs.Penalties, d("6208.00"))
	equalDec(t, "credit", out.State.CreditUsed, d("106408.00"))

	want := []struct {
		kind   core.EntryKind
		amount string
	}{
		{core.EntryInterest, "200"},
		{core.EntryCreditDraw, "200"},
		{core.EntryPenalty, "6208"},
		{core.EntryCreditDraw, "6208"},
	}
	entries := out.State.CashEntries
	if len(entries) != len(want) {
		t.Fatalf("cash entries = %+v, want %d entries", entries, len(want))
	}
	for i, w := range want {
		if entries[i].Kind != w.kind {
			t.Errorf("entry %d kind = %s, want %s", i, entries[i].Kind, w.kind)
		}
		equalDec(t, string(w.kind), entries[i].Amount, d(w.amount))
	}
}

func TestGoodUnits(t *testing.T) {
	tests := []struct {
		units int
		rate  float64
		want  int
	}{
		{130000, 0.02, 127400},
		{60000, 0.05, 57000},
		{10, 0.05, 10}, // 9.5 rounds half away from zero
		{0, 0.05, 0},
	}
	for _, tt := range tests {
		if got := core.GoodUnits(tt.units, tt.rate); got != tt.want {
			t.Errorf("GoodUnits(%d, %v) = %d, want %d", tt.units, tt.rate, got, tt.want)
		}
	}
}
