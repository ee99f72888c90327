package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeWeeklyState parses a stored snapshot and rejects anything that is not a
// well-formed WeeklyState: unknown fields, bad enums, negative balances or quantities.
func DecodeWeeklyState(data []byte) (*WeeklyState, error) {
	jd := json.NewDecoder(bytes.NewReader(data))
	jd.DisallowUnknownFields()
	var st WeeklyState
	if err := jd.Decode(&st); err != nil {
		return nil, fmt.Errorf("failed to decode weekly state: %w", err)
	}
	if err := st.CheckIntegrity(); err != nil {
		return nil, err
	}
	st.ensureMaps()
	return &st, nil
}

// EncodeWeeklyState is the inverse of DecodeWeeklyState.
func EncodeWeeklyState(st *WeeklyState) ([]byte, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("failed to encode weekly state: %w", err)
	}
	return data, nil
}

// CheckIntegrity verifies structural invariants that hold for every stored state.
func (s *WeeklyState) CheckIntegrity() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: week %d: %s", ErrStateIntegrity, s.WeekNumber, fmt.Sprintf(format, args...))
	}
	if s.SessionID == "" || s.ID == "" {
		return fail("missing id or session id")
	}
	if s.WeekNumber < 1 {
		return fail("week number must be >= 1")
	}
	if s.Phase != PhaseForWeek(s.WeekNumber) {
		return fail("phase %s does not match week", s.Phase)
	}
	if s.CashOnHand.IsNegative() || s.CreditUsed.IsNegative() {
		return fail("cash and credit must be >= 0")
	}
	for key, rm := range s.RawMaterials {
		if rm.OnHand < 0 || rm.Allocated < 0 || rm.Allocated > rm.OnHand || rm.OnHandValue.IsNegative() {
			return fail("raw material %s out of range", key)
		}
	}
	for _, b := range s.WorkInProcess {
		if b.Quantity <= 0 || b.EndWeek <= b.StartWeek {
			return fail("WIP batch %s malformed", b.BatchID)
		}
	}
	for _, sh := range s.ShipmentsInTransit {
		if sh.Quantity <= 0 {
			return fail("shipment %s has no units", sh.BatchID)
		}
	}
	for _, lot := range s.FinishedGoods {
		if lot.Quantity <= 0 || lot.UnitCostBasis.IsNegative() {
			return fail("finished goods lot %s malformed", lot.LotID)
		}
	}
	for _, b := range s.ProductionSchedule {
		if b.Quantity <= 0 || b.ID == "" {
			return fail("planned batch %q malformed", b.ID)
		}
	}
	for _, c := range s.ProcurementContracts {
		switch c.Type {
		case ContractSpot, ContractGMC, ContractForward:
		default:
			return fail("contract %s has unknown type %q", c.ID, c.Type)
		}
		if c.CommittedUnits <= 0 || c.DeliveredUnits < 0 {
			return fail("contract %s units out of range", c.ID)
		}
		for _, inst := range c.Installments {
			switch inst.Kind {
			case InstallmentDelivery, InstallmentSettlement, InstallmentDeposit, InstallmentBalance:
			default:
				return fail("contract %s has unknown installment kind %q", c.ID, inst.Kind)
			}
		}
	}
	for key, d := range s.WeeklyDiscounts {
		if d.IsNegative() || d.GreaterThanOrEqual(dec(1)) {
			return fail("discount for %s out of range", key)
		}
	}
	return nil
}

// ApplyPatch returns a copy of st with the non-nil fields of p applied.
func ApplyPatch(st *WeeklyState, p StatePatch) *WeeklyState {
	out := st.Clone()
	if p.ProductData != nil {
		out.ProductData = cloneMap(p.ProductData)
	}
	if p.WeeklyDiscounts != nil {
		out.WeeklyDiscounts = cloneMap(p.WeeklyDiscounts)
	}
	if p.MarketingPlan != nil {
		out.MarketingPlan = MarketingPlan{TotalSpend: p.MarketingPlan.TotalSpend, Channels: cloneMap(p.MarketingPlan.Channels)}
	}
	if p.ProductionSchedule != nil {
		out.ProductionSchedule = cloneSlice(*p.ProductionSchedule)
	}
	if p.ProcurementContracts != nil {
		tmp := &WeeklyState{ProcurementContracts: *p.ProcurementContracts}
		out.ProcurementContracts = tmp.Clone().ProcurementContracts
	}
	if p.GMCCommitments != nil {
		out.GMCCommitments = cloneMap(p.GMCCommitments)
	}
	if p.SingleSupplierDeal != nil {
		out.SingleSupplierDeal = *p.SingleSupplierDeal
	}
	if p.ContractSeq != nil {
		out.ContractSeq = *p.ContractSeq
	}
	if p.BatchSeq != nil {
		out.BatchSeq = *p.BatchSeq
	}
	return out
}

// DraftPatch captures every decision-bearing field of a merged draft.
func DraftPatch(st *WeeklyState) StatePatch {
	schedule := st.ProductionSchedule
	contracts := st.ProcurementContracts
	plan := st.MarketingPlan
	deal := st.SingleSupplierDeal
	cseq, bseq := st.ContractSeq, st.BatchSeq
	return StatePatch{
		ProductData:          st.ProductData,
		WeeklyDiscounts:      st.WeeklyDiscounts,
		MarketingPlan:        &plan,
		ProductionSchedule:   &schedule,
		ProcurementContracts: &contracts,
		GMCCommitments:       st.GMCCommitments,
		SingleSupplierDeal:   &deal,
		ContractSeq:          &cseq,
		BatchSeq:             &bseq,
	}
}
