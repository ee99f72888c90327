package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrWeekCommitted = errors.New("week is already committed")
	ErrSeasonOver    = errors.New("season is over")
)

// Settlement is the prospective outcome of committing a draft week.
type Settlement struct {
	State      *WeeklyState     `json:"state"`
	Validation ValidationResult `json:"validation"`
	Result     *SeasonResult    `json:"result,omitempty"`
}

// Engine resolves a draft week into the next committed state. It is deterministic and
// holds no per-session state, so a single Engine serves every session concurrently.
type Engine struct {
	cat       *Catalog
	demand    *DemandModel
	validator *Validator
}

func NewEngine(cat *Catalog) *Engine {
	return &Engine{cat: cat, demand: NewDemandModel(cat), validator: NewValidator(cat)}
}

func (e *Engine) Catalog() *Catalog { return e.cat }

func (e *Engine) Demand() *DemandModel { return e.demand }

// Settle computes the full committed state for draft without touching draft itself.
// Business-rule failures are reported in the validation result, not as errors.
func (e *Engine) Settle(draft *WeeklyState) (*Settlement, error) {
	if draft == nil {
		return nil, errors.New("draft state is nil")
	}
	if draft.IsCommitted {
		return nil, fmt.Errorf("week %d: %w", draft.WeekNumber, ErrWeekCommitted)
	}
	if draft.WeekNumber < 1 || draft.WeekNumber > e.cat.Season.Weeks {
		return nil, fmt.Errorf("week %d: %w", draft.WeekNumber, ErrSeasonOver)
	}

	s := newSettlement(e, draft)
	s.procure()
	s.produce()
	s.sell()
	s.accrueHolding()
	s.settleCash()
	s.lockDecisions()
	s.st.IsCommitted = true

	out := &Settlement{State: s.st}
	out.Validation = e.validator.Validate(draft, s.st, s.issues)
	s.st.Warnings = out.Validation.Warnings
	if s.final() {
		res := ComputeSeasonResult(e.cat, s.st)
		out.Result = &res
	}
	return out, nil
}

// settlement is the copy-on-write builder for one commit. Every step mutates only the
// clone held in st, in the fixed order procurement, production, sales, cash.
type settlement struct {
	cat       *Catalog
	demand    *DemandModel
	st        *WeeklyState
	week      int
	flows     CostBuckets
	penalties decimal.Decimal
	issues    []Issue
}

func newSettlement(e *Engine, draft *WeeklyState) *settlement {
	st := draft.Clone()
	st.ensureMaps()
	st.resetFlows()
	return &settlement{cat: e.cat, demand: e.demand, st: st, week: st.WeekNumber}
}

func (s *settlement) final() bool {
	return s.week == s.cat.Season.Weeks
}

func (s *settlement) addIssue(is Issue) {
	if is.Week == 0 {
		is.Week = s.week
	}
	s.issues = append(s.issues, is)
}

// accrueHolding charges the weekly holding rate on end-of-week inventory value.
func (s *settlement) accrueHolding() {
	value := InventoryValue(s.st)
	s.flows.Holding = value.Mul(dec(s.cat.Finance.WeeklyHoldingRate)).Round(2)
}

// settleCash runs the cash waterfall. The order of steps matters: revenue first,
// interest on the post-outflow balance, then pay-down.
func (s *settlement) settleCash() {
	st := s.st
	l := NewCashLedger(st.CashOnHand, st.CreditUsed, dec(s.cat.Finance.CreditLimit).Round(2))

	l.Receive(EntryRevenue, st.WeeklyRevenue)

	s.flows.Marketing = st.MarketingPlan.TotalSpend.Round(2)
	l.Pay(EntryMaterial, s.flows.Material)
	l.Pay(EntryProduction, s.flows.Production)
	l.Pay(EntryLogistics, s.flows.Logistics)
	l.Pay(EntryMarketing, s.flows.Marketing)
	l.Pay(EntryHolding, s.flows.Holding)

	s.flows.Interest = l.AccrueInterest(dec(s.cat.Finance.WeeklyInterestRate))
	l.PayDown()

	if s.final() && s.penalties.IsPositive() {
		s.flows.Penalties = s.penalties.Round(2)
		l.Pay(EntryPenalty, s.flows.Penalties)
		l.PayDown()
	}

	if l.Shortfall().IsPositive() {
		s.addIssue(errorIssue(CodeInsufficientFunds, "outflows exceed cash and available credit by %s",
			l.Shortfall().StringFixed(2)))
	}

	st.CashOnHand = l.Cash()
	st.CreditUsed = l.Credit()
	st.CashEntries = l.Entries()
	st.Costs = s.flows
	st.Totals.Costs = st.Totals.Costs.Add(s.flows)
}

// lockDecisions freezes design at the end of the strategy phase and price at the end of
// the development phase.
func (s *settlement) lockDecisions() {
	for key, pd := range s.st.ProductData {
		if s.week >= s.cat.Season.DesignLockWeek && !pd.DesignLocked && pd.Fabric != "" {
			pd.DesignLocked = true
			pd.ConfirmedMaterialCost, _ = s.cat.CheapestMaterialCost(pd.Fabric, pd.HasPrint)
		}
		if s.week >= s.cat.Season.PriceLockWeek && pd.RetailPrice.IsPositive() {
			pd.PriceLocked = true
		}
		s.st.ProductData[key] = pd
	}
}

// InventoryValue is raw material plus work in process plus finished goods at cost.
func InventoryValue(st *WeeklyState) decimal.Decimal {
	total := decimal.Zero
	for _, rm := range st.RawMaterials {
		total = total.Add(rm.OnHandValue)
	}
	for _, b := range st.WorkInProcess {
		unit := b.MaterialUnitCost.Add(b.ProductionUnitCost)
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(b.Quantity))).Round(2))
	}
	for _, lot := range st.FinishedGoods {
		total = total.Add(lot.UnitCostBasis.Mul(decimal.NewFromInt(int64(lot.Quantity))).Round(2))
	}
	return total
}

func (s *WeeklyState) ensureMaps() {
	if s.ProductData == nil {
		s.ProductData = map[string]ProductDecision{}
	}
	if s.RawMaterials == nil {
		s.RawMaterials = map[string]RawMaterial{}
	}
	if s.GMCCommitments == nil {
		s.GMCCommitments = map[string]int{}
	}
	if s.WeeklyDiscounts == nil {
		s.WeeklyDiscounts = map[string]decimal.Decimal{}
	}
	if s.Totals.Products == nil {
		s.Totals.Products = map[string]ProductTotals{}
	}
}
