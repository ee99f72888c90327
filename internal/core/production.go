package core

import (
	"github.com/shopspring/decimal"
)

// produce advances the pipeline: start planned batches, ship finished WIP, land arrivals.
func (s *settlement) produce() {
	s.startBatches()
	s.completeBatches()
	s.receiveShipments()
}

func (s *settlement) startBatches() {
	remaining := s.st.ProductionSchedule[:0:0]
	for _, b := range s.st.ProductionSchedule {
		if b.StartWeek != s.week {
			remaining = append(remaining, b)
			continue
		}
		s.startBatch(b)
	}
	s.st.ProductionSchedule = remaining
}

// startBatch allocates material and pays production for b. In-house batches short of
// material run at reduced quantity but are billed and occupy capacity as full batches.
func (s *settlement) startBatch(b PlannedBatch) {
	pd := s.st.ProductData[b.Product]
	method, ok := s.cat.Manufacturing[b.Method]
	if !ok || pd.Fabric == "" {
		is := errorIssue(CodeMissingDecision, "batch %s cannot start: product design or method missing", b.ID)
		is.Product = b.Product
		s.addIssue(is)
		return
	}

	key := MaterialKey(pd.Fabric, pd.HasPrint)
	rm := s.st.RawMaterials[key]
	available := rm.Available()
	if available <= 0 {
		is := errorIssue(CodeNoRawMaterial, "batch %s needs %s but none is on hand", b.ID, key)
		is.Product = b.Product
		s.addIssue(is)
		return
	}
	qty := b.Quantity
	if available < qty {
		qty = available
		is := warningIssue(CodePartialBatch, "batch %s starts with %d of %d units: not enough %s", b.ID, qty, b.Quantity, key)
		is.Product = b.Product
		s.addIssue(is)
	}

	materialUnit, _ := allocateMaterial(&rm, qty)
	s.st.RawMaterials[key] = rm

	billed := qty
	if method.CapacityLimited {
		billed = s.cat.CapacityUnits(b.Quantity)
	}
	cost := dec(method.UnitCosts[b.Product]).Mul(decimal.NewFromInt(int64(billed))).Round(2)
	s.flows.Production = s.flows.Production.Add(cost)

	s.st.WorkInProcess = append(s.st.WorkInProcess, WIPBatch{
		BatchID:            b.ID,
		Product:            b.Product,
		Method:             b.Method,
		StartWeek:          s.week,
		EndWeek:            s.week + method.LeadTimeWeeks,
		Quantity:           qty,
		PlannedQuantity:    b.Quantity,
		ShippingMethod:     b.ShippingMethod,
		MaterialUnitCost:   materialUnit,
		ProductionUnitCost: cost.Div(decimal.NewFromInt(int64(qty))).Round(4),
	})
}

// allocateMaterial claims qty units at weighted-average cost and removes them from stock.
// It returns the unit cost and the value removed.
func allocateMaterial(rm *RawMaterial, qty int) (decimal.Decimal, decimal.Decimal) {
	rm.Allocated += qty
	unit := rm.AverageCost()
	value := unit.Mul(decimal.NewFromInt(int64(qty))).Round(2)
	if qty == rm.OnHand || value.GreaterThan(rm.OnHandValue) {
		value = rm.OnHandValue
	}
	rm.OnHand -= qty
	rm.Allocated -= qty
	rm.OnHandValue = rm.OnHandValue.Sub(value)
	return unit, value
}

// completeBatches ships WIP whose production ends this week. Shipping is paid on dispatch
// and goods are sellable the week after transit completes.
func (s *settlement) completeBatches() {
	remaining := s.st.WorkInProcess[:0:0]
	for _, b := range s.st.WorkInProcess {
		if b.EndWeek > s.week {
			remaining = append(remaining, b)
			continue
		}
		ship := s.cat.Shipping[b.ShippingMethod]
		unit := dec(ship.UnitCost)
		cost := unit.Mul(decimal.NewFromInt(int64(b.Quantity))).Round(2)
		s.flows.Logistics = s.flows.Logistics.Add(cost)

		s.st.ShipmentsInTransit = append(s.st.ShipmentsInTransit, Shipment{
			BatchID:            b.BatchID,
			Product:            b.Product,
			Quantity:           b.Quantity,
			ShippingMethod:     b.ShippingMethod,
			MaterialUnitCost:   b.MaterialUnitCost,
			ProductionUnitCost: b.ProductionUnitCost,
			ShippingUnitCost:   unit,
			ArrivalWeek:        s.week + ship.LeadTimeWeeks + 1,
		})
	}
	s.st.WorkInProcess = remaining
}

func (s *settlement) receiveShipments() {
	remaining := s.st.ShipmentsInTransit[:0:0]
	for _, sh := range s.st.ShipmentsInTransit {
		if sh.ArrivalWeek > s.week {
			remaining = append(remaining, sh)
			continue
		}
		s.st.FinishedGoods = append(s.st.FinishedGoods, FinishedGoodsLot{
			LotID:              sh.BatchID,
			Product:            sh.Product,
			Quantity:           sh.Quantity,
			MaterialUnitCost:   sh.MaterialUnitCost,
			ProductionUnitCost: sh.ProductionUnitCost,
			ShippingUnitCost:   sh.ShippingUnitCost,
			UnitCostBasis:      sh.MaterialUnitCost.Add(sh.ProductionUnitCost).Add(sh.ShippingUnitCost),
			ArrivalWeek:        s.week,
		})
	}
	s.st.ShipmentsInTransit = remaining
}
