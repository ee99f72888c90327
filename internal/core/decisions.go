package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Decisions is one submission of player input for the current draft week. Every field is
// optional; only what is present is merged.
type Decisions struct {
	Products           map[string]ProductChoice   `json:"products,omitempty" yaml:"products,omitempty" jsonschema:"description=Pricing and design per product key"`
	Discounts          map[string]decimal.Decimal `json:"discounts,omitempty" yaml:"discounts,omitempty" jsonschema:"description=Weekly discount fraction per product key in [0,1)"`
	Marketing          *MarketingPlan             `json:"marketing,omitempty" yaml:"marketing,omitempty"`
	SpotOrders         []MaterialOrder            `json:"spot_orders,omitempty" yaml:"spot_orders,omitempty"`
	GMCCommitments     []MaterialOrder            `json:"gmc_commitments,omitempty" yaml:"gmc_commitments,omitempty"`
	GMCOrders          []GMCOrder                 `json:"gmc_orders,omitempty" yaml:"gmc_orders,omitempty"`
	ForwardContracts   []MaterialOrder            `json:"forward_contracts,omitempty" yaml:"forward_contracts,omitempty"`
	SingleSupplierDeal string                     `json:"single_supplier_deal,omitempty" yaml:"single_supplier_deal,omitempty"`
	Production         []BatchRequest             `json:"production,omitempty" yaml:"production,omitempty"`
	CancelBatches      []string                   `json:"cancel_batches,omitempty" yaml:"cancel_batches,omitempty"`
	CancelContracts    []string                   `json:"cancel_contracts,omitempty" yaml:"cancel_contracts,omitempty"`
}

type ProductChoice struct {
	RetailPrice *decimal.Decimal `json:"retail_price,omitempty" yaml:"retail_price,omitempty"`
	Fabric      *string          `json:"fabric,omitempty" yaml:"fabric,omitempty"`
	HasPrint    *bool            `json:"has_print,omitempty" yaml:"has_print,omitempty"`
}

// MaterialOrder signs a spot, GMC or forward contract.
type MaterialOrder struct {
	Supplier string `json:"supplier" yaml:"supplier"`
	Fabric   string `json:"fabric" yaml:"fabric"`
	Printed  bool   `json:"printed,omitempty" yaml:"printed,omitempty"`
	Units    int    `json:"units" yaml:"units"`
}

// GMCOrder places a weekly line against an existing GMC contract.
type GMCOrder struct {
	ContractID string `json:"contract_id" yaml:"contract_id"`
	Units      int    `json:"units" yaml:"units"`
}

type BatchRequest struct {
	Product        string `json:"product" yaml:"product"`
	Method         string `json:"method" yaml:"method"`
	StartWeek      int    `json:"start_week" yaml:"start_week"`
	Quantity       int    `json:"quantity" yaml:"quantity"`
	ShippingMethod string `json:"shipping_method" yaml:"shipping_method"`
}

// Normalize cleans up keys and free text from player or advisor input.
func (d *Decisions) Normalize() {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	if d.Products != nil {
		out := make(map[string]ProductChoice, len(d.Products))
		for k, v := range d.Products {
			if v.Fabric != nil {
				f := norm(*v.Fabric)
				v.Fabric = &f
			}
			out[norm(k)] = v
		}
		d.Products = out
	}
	if d.Discounts != nil {
		out := make(map[string]decimal.Decimal, len(d.Discounts))
		for k, v := range d.Discounts {
			out[norm(k)] = v
		}
		d.Discounts = out
	}
	for _, orders := range [][]MaterialOrder{d.SpotOrders, d.GMCCommitments, d.ForwardContracts} {
		for i := range orders {
			orders[i].Supplier = norm(orders[i].Supplier)
			orders[i].Fabric = norm(orders[i].Fabric)
		}
	}
	for i := range d.GMCOrders {
		d.GMCOrders[i].ContractID = strings.ToUpper(strings.TrimSpace(d.GMCOrders[i].ContractID))
	}
	for i := range d.Production {
		b := &d.Production[i]
		b.Product = norm(b.Product)
		b.Method = norm(b.Method)
		b.ShippingMethod = norm(b.ShippingMethod)
	}
	d.SingleSupplierDeal = norm(d.SingleSupplierDeal)
}

// MergeDecisions applies d to a copy of draft. If any part of d is invalid the whole
// submission is rejected with a *DecisionError and draft is returned unchanged.
func MergeDecisions(cat *Catalog, draft *WeeklyState, d Decisions) (*WeeklyState, error) {
	if draft == nil {
		return nil, fmt.Errorf("draft state is nil")
	}
	if draft.IsCommitted {
		return nil, fmt.Errorf("week %d: %w", draft.WeekNumber, ErrWeekCommitted)
	}
	d.Normalize()

	m := &merger{cat: cat, st: draft.Clone()}
	m.st.ensureMaps()
	m.products(d.Products)
	m.discounts(d.Discounts)
	m.marketing(d.Marketing)
	m.cancelContracts(d.CancelContracts)
	m.deal(d.SingleSupplierDeal)
	for _, o := range d.SpotOrders {
		m.signContract(ContractSpot, o)
	}
	for _, o := range d.GMCCommitments {
		m.signContract(ContractGMC, o)
	}
	for _, o := range d.ForwardContracts {
		m.signContract(ContractForward, o)
	}
	for _, o := range d.GMCOrders {
		m.placeGMCLine(o)
	}
	m.cancelBatches(d.CancelBatches)
	for _, b := range d.Production {
		m.schedule(b)
	}
	if len(d.Production) > 0 {
		m.issues = append(m.issues, CheckCapacity(cat, m.st.WorkInProcess, m.st.ProductionSchedule)...)
	}

	if len(m.issues) > 0 {
		return draft, &DecisionError{Issues: m.issues}
	}
	return m.st, nil
}

type merger struct {
	cat    *Catalog
	st     *WeeklyState
	issues []Issue
}

func (m *merger) reject(code, format string, args ...any) {
	m.issues = append(m.issues, errorIssue(code, format, args...))
}

func (m *merger) products(choices map[string]ProductChoice) {
	for _, key := range sortedKeys(choices) {
		ch := choices[key]
		pd, ok := m.st.ProductData[key]
		if _, known := m.cat.Products[key]; !known || !ok {
			m.reject(CodeUnknownKey, "unknown product %q", key)
			continue
		}
		if ch.RetailPrice != nil {
			switch {
			case pd.PriceLocked && !ch.RetailPrice.Equal(pd.RetailPrice):
				m.reject(CodeLockedField, "%s retail price is locked", key)
			case !ch.RetailPrice.IsPositive():
				m.reject(CodeInvalidValue, "%s retail price must be > 0", key)
			default:
				pd.RetailPrice = ch.RetailPrice.Round(2)
			}
		}
		if ch.Fabric != nil && *ch.Fabric != pd.Fabric {
			switch {
			case pd.DesignLocked:
				m.reject(CodeLockedField, "%s design is locked", key)
			case !m.cat.AllowsFabric(key, *ch.Fabric):
				m.reject(CodeInvalidValue, "fabric %s is not available for %s", *ch.Fabric, key)
			default:
				pd.Fabric = *ch.Fabric
			}
		}
		if ch.HasPrint != nil && *ch.HasPrint != pd.HasPrint {
			if pd.DesignLocked {
				m.reject(CodeLockedField, "%s design is locked", key)
			} else {
				pd.HasPrint = *ch.HasPrint
			}
		}
		m.st.ProductData[key] = pd
	}
}

func (m *merger) discounts(discounts map[string]decimal.Decimal) {
	one := decimal.NewFromInt(1)
	for _, key := range sortedKeys(discounts) {
		d := discounts[key]
		if _, ok := m.cat.Products[key]; !ok {
			m.reject(CodeUnknownKey, "unknown product %q", key)
			continue
		}
		if d.IsNegative() || d.GreaterThanOrEqual(one) {
			m.reject(CodeInvalidValue, "%s discount must be in [0,1), got %s", key, d)
			continue
		}
		m.st.WeeklyDiscounts[key] = d
	}
}

func (m *merger) marketing(plan *MarketingPlan) {
	if plan == nil {
		return
	}
	total := decimal.Zero
	for ch, v := range plan.Channels {
		if v.IsNegative() {
			m.reject(CodeInvalidValue, "marketing channel %s cannot be negative", ch)
			return
		}
		total = total.Add(v)
	}
	spend := plan.TotalSpend
	switch {
	case spend.IsZero() && len(plan.Channels) > 0:
		spend = total
	case len(plan.Channels) > 0 && !spend.Equal(total):
		m.reject(CodeInvalidValue, "marketing total %s does not match channel sum %s", spend, total)
		return
	}
	if spend.IsNegative() {
		m.reject(CodeInvalidValue, "marketing spend cannot be negative")
		return
	}
	m.st.MarketingPlan = MarketingPlan{TotalSpend: spend.Round(2), Channels: cloneMap(plan.Channels)}
}

func (m *merger) deal(supplier string) {
	if supplier == "" || supplier == m.st.SingleSupplierDeal {
		return
	}
	if _, ok := m.cat.Suppliers[supplier]; !ok {
		m.reject(CodeUnknownKey, "unknown supplier %q", supplier)
		return
	}
	if m.st.SingleSupplierDeal != "" {
		m.reject(CodeSupplierExclusive, "a single-supplier deal with %s is already signed", m.st.SingleSupplierDeal)
		return
	}
	m.st.SingleSupplierDeal = supplier
}

func (m *merger) signContract(kind ContractType, o MaterialOrder) {
	if !m.checkOrder(o.Supplier, o.Fabric, o.Units) {
		return
	}
	if kind == ContractForward && m.st.WeekNumber != m.cat.Contracts.ForwardSigningWeek {
		m.reject(CodeForwardOutsideWeek, "forward contracts can only be signed in week %d", m.cat.Contracts.ForwardSigningWeek)
		return
	}
	c := Contract{
		ID:             m.nextContractID(kind),
		Type:           kind,
		Supplier:       o.Supplier,
		Fabric:         o.Fabric,
		Printed:        o.Printed,
		SignedWeek:     m.st.WeekNumber,
		CommittedUnits: o.Units,
	}
	if kind != ContractGMC {
		c.Lines = []ContractLine{{PlacedWeek: m.st.WeekNumber, Units: o.Units}}
	} else {
		m.st.GMCCommitments[o.Supplier] += o.Units
	}
	m.st.ProcurementContracts = append(m.st.ProcurementContracts, c)
}

func (m *merger) checkOrder(supplier, fabric string, units int) bool {
	if _, ok := m.cat.MaterialPrice(supplier, fabric); !ok {
		m.reject(CodeUnknownKey, "supplier %q does not sell %q", supplier, fabric)
		return false
	}
	if units <= 0 {
		m.reject(CodeInvalidValue, "order units must be > 0")
		return false
	}
	if deal := m.st.SingleSupplierDeal; deal != "" && deal != supplier {
		m.reject(CodeSupplierExclusive, "cannot order from %s: single-supplier deal with %s", supplier, deal)
		return false
	}
	return true
}

func (m *merger) placeGMCLine(o GMCOrder) {
	c := m.st.ContractByID(o.ContractID)
	if c == nil || c.Type != ContractGMC {
		m.reject(CodeUnknownKey, "no GMC contract %q", o.ContractID)
		return
	}
	if !m.checkOrder(c.Supplier, c.Fabric, o.Units) {
		return
	}
	if c.OrderedUnits()+o.Units > c.CommittedUnits {
		m.reject(CodeGMCOverCommitment, "contract %s: %d units would exceed the %d unit commitment",
			c.ID, c.OrderedUnits()+o.Units, c.CommittedUnits)
		return
	}
	c.Lines = append(c.Lines, ContractLine{PlacedWeek: m.st.WeekNumber, Units: o.Units})
}

// cancelContracts drops contracts signed this week. Anything older is binding.
func (m *merger) cancelContracts(ids []string) {
	for _, id := range ids {
		id = strings.ToUpper(strings.TrimSpace(id))
		idx := -1
		for i, c := range m.st.ProcurementContracts {
			if c.ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			m.reject(CodeUnknownKey, "no contract %q", id)
			continue
		}
		c := m.st.ProcurementContracts[idx]
		if c.SignedWeek != m.st.WeekNumber || c.Priced {
			m.reject(CodeLockedField, "contract %s is binding", id)
			continue
		}
		if c.Type == ContractGMC {
			m.st.GMCCommitments[c.Supplier] -= c.CommittedUnits
		}
		m.st.ProcurementContracts = append(m.st.ProcurementContracts[:idx], m.st.ProcurementContracts[idx+1:]...)
	}
}

func (m *merger) cancelBatches(ids []string) {
	for _, id := range ids {
		id = strings.ToUpper(strings.TrimSpace(id))
		found := false
		kept := m.st.ProductionSchedule[:0:0]
		for _, b := range m.st.ProductionSchedule {
			if b.ID == id {
				found = true
				continue
			}
			kept = append(kept, b)
		}
		if !found {
			m.reject(CodeUnknownKey, "no planned batch %q", id)
			continue
		}
		m.st.ProductionSchedule = kept
	}
}

func (m *merger) schedule(r BatchRequest) {
	before := len(m.issues)
	if _, ok := m.cat.Products[r.Product]; !ok {
		m.reject(CodeUnknownKey, "unknown product %q", r.Product)
	}
	if _, ok := m.cat.Manufacturing[r.Method]; !ok {
		m.reject(CodeUnknownKey, "unknown manufacturing method %q", r.Method)
	}
	if _, ok := m.cat.Shipping[r.ShippingMethod]; !ok {
		m.reject(CodeUnknownKey, "unknown shipping method %q", r.ShippingMethod)
	}
	if r.Quantity <= 0 || r.Quantity%m.cat.Season.BatchSize != 0 {
		m.reject(CodeInvalidValue, "batch quantity %d is not a positive multiple of %d", r.Quantity, m.cat.Season.BatchSize)
	}
	if r.StartWeek < m.st.WeekNumber || r.StartWeek > m.cat.Season.Weeks {
		m.reject(CodeInvalidValue, "batch start week %d must be between %d and %d", r.StartWeek, m.st.WeekNumber, m.cat.Season.Weeks)
	}
	if len(m.issues) > before {
		return
	}
	m.st.ProductionSchedule = append(m.st.ProductionSchedule, PlannedBatch{
		ID:             m.nextBatchID(),
		Product:        r.Product,
		Method:         r.Method,
		StartWeek:      r.StartWeek,
		Quantity:       r.Quantity,
		ShippingMethod: r.ShippingMethod,
	})
}

// nextContractID hands out sequential per-session contract numbers.
func (m *merger) nextContractID(kind ContractType) string {
	m.st.ContractSeq++
	return fmt.Sprintf("%s-%04d", kind, m.st.ContractSeq)
}

func (m *merger) nextBatchID() string {
	m.st.BatchSeq++
	return fmt.Sprintf("B-%04d", m.st.BatchSeq)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
