package core

import (
	"github.com/shopspring/decimal"
)

// procure runs the contract calendar for the week: price, schedule, pay, receive.
func (s *settlement) procure() {
	s.priceContracts()
	s.scheduleContracts()
	s.payInstallments()
	s.receiveDeliveries()
	if s.final() {
		s.assessShortfalls()
	}
}

// priceContracts locks base price, surcharge and discount on contracts not yet priced.
// Spot discounts come from this week's basket per supplier; GMC and forward discounts
// from the committed size.
func (s *settlement) priceContracts() {
	basket := SpotBaskets(s.st.ProcurementContracts, s.week)
	for i := range s.st.ProcurementContracts {
		c := &s.st.ProcurementContracts[i]
		if c.Priced {
			continue
		}
		base, ok := s.cat.MaterialPrice(c.Supplier, c.Fabric)
		if !ok {
			s.addIssue(errorIssue(CodeUnknownKey, "contract %s: supplier %s does not sell %s", c.ID, c.Supplier, c.Fabric))
			continue
		}
		volume := c.CommittedUnits
		if c.Type == ContractSpot {
			volume = basket[c.Supplier]
		}
		c.UnitBasePrice = base
		c.PrintSurcharge = decimal.Zero
		if c.Printed {
			c.PrintSurcharge = dec(s.cat.Suppliers[c.Supplier].PrintSurcharge)
		}
		c.DiscountApplied = s.cat.SupplierDiscount(c.Supplier, volume, s.st.SingleSupplierDeal == c.Supplier)
		c.Priced = true
	}
}

// SpotBaskets sums the spot units placed with each supplier in week.
func SpotBaskets(contracts []Contract, week int) map[string]int {
	basket := map[string]int{}
	for _, c := range contracts {
		if c.Type == ContractSpot && c.SignedWeek == week {
			basket[c.Supplier] += c.CommittedUnits
		}
	}
	return basket
}

// scheduleContracts fixes delivery weeks, good units and the payment calendar for every
// line not yet scheduled.
func (s *settlement) scheduleContracts() {
	terms := s.cat.Contracts
	for i := range s.st.ProcurementContracts {
		c := &s.st.ProcurementContracts[i]
		if !c.Priced {
			continue
		}
		sp := s.cat.Suppliers[c.Supplier]
		net := c.NetUnitPrice()
		for j := range c.Lines {
			line := &c.Lines[j]
			if line.Scheduled {
				continue
			}
			line.GoodUnits = GoodUnits(line.Units, sp.DefectRate)
			line.DeliveryWeek = line.PlacedWeek + sp.LeadTimeWeeks
			line.Scheduled = true
			value := net.Mul(decimal.NewFromInt(int64(line.GoodUnits))).Round(2)

			switch c.Type {
			case ContractSpot:
				c.Installments = append(c.Installments, Installment{
					Kind: InstallmentDelivery, DueWeek: line.DeliveryWeek, Amount: value,
				})
			case ContractGMC:
				c.Installments = append(c.Installments, Installment{
					Kind: InstallmentSettlement, DueWeek: s.clampDue(line.PlacedWeek + terms.GMCSettlementLagWeeks), Amount: value,
				})
			case ContractForward:
				deposit := value.Mul(dec(terms.ForwardDepositRate)).Round(2)
				c.Installments = append(c.Installments,
					Installment{Kind: InstallmentDeposit, DueWeek: c.SignedWeek, Amount: deposit},
					Installment{Kind: InstallmentBalance, DueWeek: s.clampDue(c.SignedWeek + terms.ForwardBalanceLagWeeks), Amount: value.Sub(deposit)},
				)
			}
		}
	}
}

// clampDue pulls settlement dates past the season end into the final week.
func (s *settlement) clampDue(week int) int {
	if week > s.cat.Season.Weeks {
		return s.cat.Season.Weeks
	}
	return week
}

// GoodUnits is the non-defective share of a delivery, rounded to whole units.
func GoodUnits(units int, defectRate float64) int {
	good := decimal.NewFromInt(int64(units)).Mul(decimal.NewFromInt(1).Sub(dec(defectRate))).Round(0)
	return int(good.IntPart())
}

func (s *settlement) payInstallments() {
	for i := range s.st.ProcurementContracts {
		c := &s.st.ProcurementContracts[i]
		for j := range c.Installments {
			inst := &c.Installments[j]
			if inst.Paid || inst.DueWeek > s.week {
				continue
			}
			inst.Paid = true
			c.PaidSoFar = c.PaidSoFar.Add(inst.Amount)
			s.flows.Material = s.flows.Material.Add(inst.Amount)
		}
	}
}

// receiveDeliveries books good units into raw material at the contract's net price,
// updating the weighted-average value.
func (s *settlement) receiveDeliveries() {
	for i := range s.st.ProcurementContracts {
		c := &s.st.ProcurementContracts[i]
		net := c.NetUnitPrice()
		for j := range c.Lines {
			line := &c.Lines[j]
			if !line.Scheduled || line.Delivered || line.DeliveryWeek > s.week {
				continue
			}
			line.Delivered = true
			c.DeliveredUnits += line.Units

			key := c.MaterialKey()
			rm := s.st.RawMaterials[key]
			rm.OnHand += line.GoodUnits
			rm.OnHandValue = rm.OnHandValue.Add(net.Mul(decimal.NewFromInt(int64(line.GoodUnits))).Round(2))
			s.st.RawMaterials[key] = rm
		}
	}
}

// assessShortfalls charges the GMC penalty on committed units never delivered.
func (s *settlement) assessShortfalls() {
	rate := dec(s.cat.Contracts.GMCShortfallPenaltyRate)
	for i := range s.st.ProcurementContracts {
		c := &s.st.ProcurementContracts[i]
		if c.Type != ContractGMC {
			continue
		}
		penalty := ShortfallPenalty(*c, rate)
		if !penalty.IsPositive() {
			continue
		}
		c.PenaltyCharged = penalty
		s.penalties = s.penalties.Add(penalty)
	}
}

// ShortfallPenalty values the committed units a GMC contract never delivered.
func ShortfallPenalty(c Contract, rate decimal.Decimal) decimal.Decimal {
	missing := c.CommittedUnits - c.DeliveredUnits
	if missing <= 0 {
		return decimal.Zero
	}
	return c.NetUnitPrice().Mul(decimal.NewFromInt(int64(missing))).Mul(rate).Round(2)
}
