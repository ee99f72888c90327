package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type Phase string

const (
	PhaseStrategy    Phase = "STRATEGY"
	PhaseDevelopment Phase = "DEVELOPMENT"
	PhaseSales       Phase = "SALES"
	PhaseRunout      Phase = "RUNOUT"
)

// PhaseForWeek derives the season phase from the week number.
func PhaseForWeek(week int) Phase {
	switch {
	case week <= 2:
		return PhaseStrategy
	case week <= 6:
		return PhaseDevelopment
	case week <= 12:
		return PhaseSales
	default:
		return PhaseRunout
	}
}

type ContractType string

const (
	ContractSpot    ContractType = "SPT"
	ContractGMC     ContractType = "GMC"
	ContractForward ContractType = "FVC"
)

type InstallmentKind string

const (
	InstallmentDelivery   InstallmentKind = "DELIVERY"
	InstallmentSettlement InstallmentKind = "SETTLEMENT"
	InstallmentDeposit    InstallmentKind = "DEPOSIT"
	InstallmentBalance    InstallmentKind = "BALANCE"
)

// WeeklyState is the complete snapshot of one week of one game session.
type WeeklyState struct {
	ID         string `json:"id"`
	SessionID  string `json:"session_id"`
	WeekNumber int    `json:"week_number"`
	Phase      Phase  `json:"phase"`

	CashOnHand decimal.Decimal `json:"cash_on_hand"`
	CreditUsed decimal.Decimal `json:"credit_used"`

	ProductData  map[string]ProductDecision `json:"product_data"`
	RawMaterials map[string]RawMaterial     `json:"raw_materials"`

	WorkInProcess      []WIPBatch         `json:"work_in_process"`
	ShipmentsInTransit []Shipment         `json:"shipments_in_transit"`
	FinishedGoods      []FinishedGoodsLot `json:"finished_goods"`
	ProductionSchedule []PlannedBatch     `json:"production_schedule"`

	ProcurementContracts []Contract     `json:"procurement_contracts"`
	GMCCommitments       map[string]int `json:"gmc_commitments"`
	SingleSupplierDeal   string         `json:"single_supplier_deal,omitempty"`

	MarketingPlan   MarketingPlan              `json:"marketing_plan"`
	WeeklyDiscounts map[string]decimal.Decimal `json:"weekly_discounts"`

	WeeklyDemand  map[string]int  `json:"weekly_demand"`
	WeeklySales   map[string]int  `json:"weekly_sales"`
	LostSales     map[string]int  `json:"lost_sales"`
	WeeklyRevenue decimal.Decimal `json:"weekly_revenue"`
	Costs         CostBuckets     `json:"costs"`
	CashEntries   []LedgerEntry   `json:"cash_entries"`

	Totals SeasonTotals `json:"totals"`

	// Sequence counters for contract and batch numbering.
	ContractSeq int `json:"contract_seq"`
	BatchSeq    int `json:"batch_seq"`

	Warnings    []Issue    `json:"warnings"`
	IsCommitted bool       `json:"is_committed"`
	CommittedAt *time.Time `json:"committed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ProductDecision is the player's standing choice for one product.
type ProductDecision struct {
	RetailPrice           decimal.Decimal `json:"retail_price"`
	Fabric                string          `json:"fabric"`
	HasPrint              bool            `json:"has_print"`
	DesignLocked          bool            `json:"design_locked"`
	PriceLocked           bool            `json:"price_locked"`
	ConfirmedMaterialCost decimal.Decimal `json:"confirmed_material_cost"`
}

// RawMaterial tracks fabric stock with a weighted-average cost.
type RawMaterial struct {
	OnHand      int             `json:"on_hand"`
	Allocated   int             `json:"allocated"`
	OnHandValue decimal.Decimal `json:"on_hand_value"`
}

// Available is the net quantity not yet claimed by a starting batch.
func (r RawMaterial) Available() int {
	return r.OnHand - r.Allocated
}

// AverageCost is the weighted-average unit cost of stock on hand.
func (r RawMaterial) AverageCost() decimal.Decimal {
	if r.OnHand <= 0 {
		return decimal.Zero
	}
	return r.OnHandValue.Div(decimal.NewFromInt(int64(r.OnHand))).Round(4)
}

type PlannedBatch struct {
	ID             string `json:"id"`
	Product        string `json:"product"`
	Method         string `json:"method"`
	StartWeek      int    `json:"start_week"`
	Quantity       int    `json:"quantity"`
	ShippingMethod string `json:"shipping_method"`
}

type WIPBatch struct {
	BatchID            string          `json:"batch_id"`
	Product            string          `json:"product"`
	Method             string          `json:"method"`
	StartWeek          int             `json:"start_week"`
	EndWeek            int             `json:"end_week"`
	Quantity           int             `json:"quantity"`
	PlannedQuantity    int             `json:"planned_quantity"`
	ShippingMethod     string          `json:"shipping_method"`
	MaterialUnitCost   decimal.Decimal `json:"material_unit_cost"`
	ProductionUnitCost decimal.Decimal `json:"production_unit_cost"`
}

type Shipment struct {
	BatchID            string          `json:"batch_id"`
	Product            string          `json:"product"`
	Quantity           int             `json:"quantity"`
	ShippingMethod     string          `json:"shipping_method"`
	MaterialUnitCost   decimal.Decimal `json:"material_unit_cost"`
	ProductionUnitCost decimal.Decimal `json:"production_unit_cost"`
	ShippingUnitCost   decimal.Decimal `json:"shipping_unit_cost"`
	ArrivalWeek        int             `json:"arrival_week"`
}

// FinishedGoodsLot is sellable stock. Lots are kept oldest first.
type FinishedGoodsLot struct {
	LotID              string          `json:"lot_id"`
	Product            string          `json:"product"`
	Quantity           int             `json:"quantity"`
	MaterialUnitCost   decimal.Decimal `json:"material_unit_cost"`
	ProductionUnitCost decimal.Decimal `json:"production_unit_cost"`
	ShippingUnitCost   decimal.Decimal `json:"shipping_unit_cost"`
	UnitCostBasis      decimal.Decimal `json:"unit_cost_basis"`
	ArrivalWeek        int             `json:"arrival_week"`
}

// Contract is a procurement agreement with one supplier for one material.
type Contract struct {
	ID              string          `json:"id"`
	Type            ContractType    `json:"type"`
	Supplier        string          `json:"supplier"`
	Fabric          string          `json:"fabric"`
	Printed         bool            `json:"printed"`
	SignedWeek      int             `json:"signed_week"`
	CommittedUnits  int             `json:"committed_units"`
	Priced          bool            `json:"priced"`
	UnitBasePrice   decimal.Decimal `json:"unit_base_price"`
	PrintSurcharge  decimal.Decimal `json:"print_surcharge"`
	DiscountApplied decimal.Decimal `json:"discount_applied"`
	Lines           []ContractLine  `json:"lines"`
	Installments    []Installment   `json:"installments"`
	PaidSoFar       decimal.Decimal `json:"paid_so_far"`
	DeliveredUnits  int             `json:"delivered_units"`
	PenaltyCharged  decimal.Decimal `json:"penalty_charged"`
}

// MaterialKey is the raw-material key deliveries of this contract are stocked under.
func (c Contract) MaterialKey() string {
	return MaterialKey(c.Fabric, c.Printed)
}

// NetUnitPrice is the locked price per good unit after discount.
func (c Contract) NetUnitPrice() decimal.Decimal {
	one := decimal.NewFromInt(1)
	return c.UnitBasePrice.Add(c.PrintSurcharge).Mul(one.Sub(c.DiscountApplied)).Round(4)
}

// OrderedUnits sums every line placed against the contract.
func (c Contract) OrderedUnits() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Units
	}
	return n
}

type ContractLine struct {
	PlacedWeek   int  `json:"placed_week"`
	Units        int  `json:"units"`
	GoodUnits    int  `json:"good_units"`
	Scheduled    bool `json:"scheduled"`
	DeliveryWeek int  `json:"delivery_week"`
	Delivered    bool `json:"delivered"`
}

type Installment struct {
	Kind    InstallmentKind `json:"kind"`
	DueWeek int             `json:"due_week"`
	Amount  decimal.Decimal `json:"amount"`
	Paid    bool            `json:"paid"`
}

type MarketingPlan struct {
	TotalSpend decimal.Decimal            `json:"total_spend" yaml:"total_spend"`
	Channels   map[string]decimal.Decimal `json:"channels,omitempty" yaml:"channels,omitempty"`
}

// CostBuckets splits outflows by category.
type CostBuckets struct {
	Material   decimal.Decimal `json:"material"`
	Production decimal.Decimal `json:"production"`
	Logistics  decimal.Decimal `json:"logistics"`
	Marketing  decimal.Decimal `json:"marketing"`
	Holding    decimal.Decimal `json:"holding"`
	Interest   decimal.Decimal `json:"interest"`
	Penalties  decimal.Decimal `json:"penalties"`
}

// Total sums every bucket.
func (c CostBuckets) Total() decimal.Decimal {
	return c.Material.Add(c.Production).Add(c.Logistics).Add(c.Marketing).
		Add(c.Holding).Add(c.Interest).Add(c.Penalties)
}

// Add returns the bucket-wise sum of c and o.
func (c CostBuckets) Add(o CostBuckets) CostBuckets {
	return CostBuckets{
		Material:   c.Material.Add(o.Material),
		Production: c.Production.Add(o.Production),
		Logistics:  c.Logistics.Add(o.Logistics),
		Marketing:  c.Marketing.Add(o.Marketing),
		Holding:    c.Holding.Add(o.Holding),
		Interest:   c.Interest.Add(o.Interest),
		Penalties:  c.Penalties.Add(o.Penalties),
	}
}

// SeasonTotals are running season-to-date aggregates.
type SeasonTotals struct {
	Revenue        decimal.Decimal          `json:"revenue"`
	UnitsSold      int                      `json:"units_sold"`
	MaterialCOGS   decimal.Decimal          `json:"material_cogs"`
	ProductionCOGS decimal.Decimal          `json:"production_cogs"`
	ShippingCOGS   decimal.Decimal          `json:"shipping_cogs"`
	Costs          CostBuckets              `json:"costs"`
	ServiceDemand  int                      `json:"service_demand"`
	ServiceSales   int                      `json:"service_sales"`
	Products       map[string]ProductTotals `json:"products"`
}

type ProductTotals struct {
	Revenue        decimal.Decimal `json:"revenue"`
	UnitsSold      int             `json:"units_sold"`
	UnitsDemanded  int             `json:"units_demanded"`
	MaterialCOGS   decimal.Decimal `json:"material_cogs"`
	ProductionCOGS decimal.Decimal `json:"production_cogs"`
	ShippingCOGS   decimal.Decimal `json:"shipping_cogs"`
}

// COGS is the fully-loaded cost of units sold to date.
func (p ProductTotals) COGS() decimal.Decimal {
	return p.MaterialCOGS.Add(p.ProductionCOGS).Add(p.ShippingCOGS)
}

type SessionStatus string

const (
	SessionActive    SessionStatus = "ACTIVE"
	SessionCompleted SessionStatus = "COMPLETED"
)

// GameSession is one player's run through the season.
type GameSession struct {
	ID             string        `json:"id"`
	PlayerName     string        `json:"player_name"`
	CatalogVersion string        `json:"catalog_version"`
	CurrentWeek    int           `json:"current_week"`
	Status         SessionStatus `json:"status"`
	Result         *SeasonResult `json:"result,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// SeasonResult holds the terminal KPIs, set only when the final week commits.
type SeasonResult struct {
	ServiceLevel   decimal.Decimal `json:"service_level"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	CapitalCharge  decimal.Decimal `json:"capital_charge"`
	EconomicProfit decimal.Decimal `json:"economic_profit"`
	DeadStockUnits int             `json:"dead_stock_units"`
	DeadStockValue decimal.Decimal `json:"dead_stock_value"`
	FinalScore     decimal.Decimal `json:"final_score"`
}
