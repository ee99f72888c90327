package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewInitialState seeds the week-1 draft of a new session.
func NewInitialState(cat *Catalog, sessionID string, now time.Time) *WeeklyState {
	st := &WeeklyState{
		ID:              uuid.NewString(),
		SessionID:       sessionID,
		WeekNumber:      1,
		Phase:           PhaseForWeek(1),
		CashOnHand:      dec(cat.Finance.StartingCash).Round(2),
		CreditUsed:      decimal.Zero,
		ProductData:     make(map[string]ProductDecision, len(cat.Products)),
		RawMaterials:    map[string]RawMaterial{},
		GMCCommitments:  map[string]int{},
		WeeklyDiscounts: map[string]decimal.Decimal{},
		CreatedAt:       now,
	}
	for _, key := range cat.ProductKeys() {
		st.ProductData[key] = ProductDecision{}
	}
	st.resetFlows()
	st.Totals.Products = map[string]ProductTotals{}
	return st
}

// NextDraft seeds the following week's draft from a committed state. Carry-over
// structures are copied; weekly flows start empty.
func NextDraft(committed *WeeklyState, now time.Time) *WeeklyState {
	next := committed.Clone()
	next.ID = uuid.NewString()
	next.WeekNumber = committed.WeekNumber + 1
	next.Phase = PhaseForWeek(next.WeekNumber)
	next.IsCommitted = false
	next.CommittedAt = nil
	next.CreatedAt = now
	next.resetFlows()
	return next
}

func (s *WeeklyState) resetFlows() {
	s.WeeklyDemand = map[string]int{}
	s.WeeklySales = map[string]int{}
	s.LostSales = map[string]int{}
	s.WeeklyRevenue = decimal.Zero
	s.Costs = CostBuckets{}
	s.CashEntries = nil
	s.Warnings = nil
}

// Clone returns a deep copy that shares no mutable memory with s.
func (s *WeeklyState) Clone() *WeeklyState {
	if s == nil {
		return nil
	}
	c := *s
	c.ProductData = cloneMap(s.ProductData)
	c.RawMaterials = cloneMap(s.RawMaterials)
	c.WorkInProcess = cloneSlice(s.WorkInProcess)
	c.ShipmentsInTransit = cloneSlice(s.ShipmentsInTransit)
	c.FinishedGoods = cloneSlice(s.FinishedGoods)
	c.ProductionSchedule = cloneSlice(s.ProductionSchedule)
	c.GMCCommitments = cloneMap(s.GMCCommitments)
	c.WeeklyDiscounts = cloneMap(s.WeeklyDiscounts)
	c.WeeklyDemand = cloneMap(s.WeeklyDemand)
	c.WeeklySales = cloneMap(s.WeeklySales)
	c.LostSales = cloneMap(s.LostSales)
	c.CashEntries = cloneSlice(s.CashEntries)
	c.Warnings = cloneSlice(s.Warnings)
	c.MarketingPlan.Channels = cloneMap(s.MarketingPlan.Channels)
	c.Totals.Products = cloneMap(s.Totals.Products)
	if s.CommittedAt != nil {
		t := *s.CommittedAt
		c.CommittedAt = &t
	}
	if s.ProcurementContracts != nil {
		c.ProcurementContracts = make([]Contract, len(s.ProcurementContracts))
		for i, ct := range s.ProcurementContracts {
			ct.Lines = cloneSlice(ct.Lines)
			ct.Installments = cloneSlice(ct.Installments)
			c.ProcurementContracts[i] = ct
		}
	}
	return &c
}

// AvailableUnits sums finished goods of product.
func (s *WeeklyState) AvailableUnits(product string) int {
	n := 0
	for _, lot := range s.FinishedGoods {
		if lot.Product == product {
			n += lot.Quantity
		}
	}
	return n
}

// ContractByID returns a pointer into the contract list, or nil.
func (s *WeeklyState) ContractByID(id string) *Contract {
	for i := range s.ProcurementContracts {
		if s.ProcurementContracts[i].ID == id {
			return &s.ProcurementContracts[i]
		}
	}
	return nil
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
