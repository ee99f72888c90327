package core

// Catalog is the immutable game-constants object. A session is played against a single
// catalog version; the engine never reads constants from anywhere else.
type Catalog struct {
	Version       string                  `yaml:"version" json:"version"`
	Season        SeasonConfig            `yaml:"season" json:"season"`
	Finance       FinanceConfig           `yaml:"finance" json:"finance"`
	Demand        DemandConfig            `yaml:"demand" json:"demand"`
	Contracts     ContractTerms           `yaml:"contracts" json:"contracts"`
	Products      map[string]ProductSpec  `yaml:"products" json:"products"`
	Suppliers     map[string]SupplierSpec `yaml:"suppliers" json:"suppliers"`
	Manufacturing map[string]MethodSpec   `yaml:"manufacturing" json:"manufacturing"`
	Shipping      map[string]ShippingSpec `yaml:"shipping" json:"shipping"`
}

// SeasonConfig holds the calendar of the season. Slices are indexed by week-1.
type SeasonConfig struct {
	Weeks               int             `yaml:"weeks" json:"weeks"`
	DesignLockWeek      int             `yaml:"design_lock_week" json:"design_lock_week"`
	PriceLockWeek       int             `yaml:"price_lock_week" json:"price_lock_week"`
	SalesStartWeek      int             `yaml:"sales_start_week" json:"sales_start_week"`
	ServiceLevelFrom    int             `yaml:"service_level_from" json:"service_level_from"`
	ServiceLevelTo      int             `yaml:"service_level_to" json:"service_level_to"`
	ArrivalDeadlineWeek int             `yaml:"arrival_deadline_week" json:"arrival_deadline_week"`
	BatchSize           int             `yaml:"batch_size" json:"batch_size"`
	Seasonality         []float64       `yaml:"seasonality" json:"seasonality"`
	Capacity            []int           `yaml:"capacity" json:"capacity"`
	RunoutMarkdowns     map[int]float64 `yaml:"runout_markdowns" json:"runout_markdowns"`
}

type FinanceConfig struct {
	StartingCash            float64 `yaml:"starting_cash" json:"starting_cash"`
	CreditLimit             float64 `yaml:"credit_limit" json:"credit_limit"`
	WeeklyInterestRate      float64 `yaml:"weekly_interest_rate" json:"weekly_interest_rate"`
	WeeklyHoldingRate       float64 `yaml:"weekly_holding_rate" json:"weekly_holding_rate"`
	AnnualCapitalChargeRate float64 `yaml:"annual_capital_charge_rate" json:"annual_capital_charge_rate"`
	LowCashThreshold        float64 `yaml:"low_cash_threshold" json:"low_cash_threshold"`
}

type DemandConfig struct {
	BaselineMarketingSpend float64 `yaml:"baseline_marketing_spend" json:"baseline_marketing_spend"`
	PromoFloor             float64 `yaml:"promo_floor" json:"promo_floor"`
	PrintUplift            float64 `yaml:"print_uplift" json:"print_uplift"`
	PlainFactor            float64 `yaml:"plain_factor" json:"plain_factor"`
	PositioningCenter      float64 `yaml:"positioning_center" json:"positioning_center"`
	PositioningSteepness   float64 `yaml:"positioning_steepness" json:"positioning_steepness"`
	PositioningMin         float64 `yaml:"positioning_min" json:"positioning_min"`
	PositioningMax         float64 `yaml:"positioning_max" json:"positioning_max"`
	AggressiveDiscount     float64 `yaml:"aggressive_discount" json:"aggressive_discount"`
}

type ContractTerms struct {
	GMCSettlementLagWeeks    int     `yaml:"gmc_settlement_lag_weeks" json:"gmc_settlement_lag_weeks"`
	GMCShortfallPenaltyRate  float64 `yaml:"gmc_shortfall_penalty_rate" json:"gmc_shortfall_penalty_rate"`
	GMCMinCommitmentFraction float64 `yaml:"gmc_min_commitment_fraction" json:"gmc_min_commitment_fraction"`
	ForwardSigningWeek       int     `yaml:"forward_signing_week" json:"forward_signing_week"`
	ForwardDepositRate       float64 `yaml:"forward_deposit_rate" json:"forward_deposit_rate"`
	ForwardBalanceLagWeeks   int     `yaml:"forward_balance_lag_weeks" json:"forward_balance_lag_weeks"`
	SingleSupplierBonus      float64 `yaml:"single_supplier_bonus" json:"single_supplier_bonus"`
}

// ProductSpec is the fixed economics of one product line.
type ProductSpec struct {
	Name           string   `yaml:"name" json:"name"`
	BaseForecast   float64  `yaml:"base_forecast" json:"base_forecast"`
	ReferencePrice float64  `yaml:"reference_price" json:"reference_price"`
	HMPrice        float64  `yaml:"hm_price" json:"hm_price"`
	Elasticity     float64  `yaml:"elasticity" json:"elasticity"`
	Fabrics        []string `yaml:"fabrics" json:"fabrics"`
}

type SupplierSpec struct {
	Name           string             `yaml:"name" json:"name"`
	LeadTimeWeeks  int                `yaml:"lead_time_weeks" json:"lead_time_weeks"`
	DefectRate     float64            `yaml:"defect_rate" json:"defect_rate"`
	PrintSurcharge float64            `yaml:"print_surcharge" json:"print_surcharge"`
	MaterialPrices map[string]float64 `yaml:"material_prices" json:"material_prices"`
	Tiers          []DiscountTier     `yaml:"tiers" json:"tiers"`
}

// DiscountTier applies Discount to any volume of at least MinUnits.
type DiscountTier struct {
	MinUnits int     `yaml:"min_units" json:"min_units"`
	Discount float64 `yaml:"discount" json:"discount"`
}

type MethodSpec struct {
	LeadTimeWeeks   int                `yaml:"lead_time_weeks" json:"lead_time_weeks"`
	CapacityLimited bool               `yaml:"capacity_limited" json:"capacity_limited"`
	UnitCosts       map[string]float64 `yaml:"unit_costs" json:"unit_costs"`
}

type ShippingSpec struct {
	LeadTimeWeeks int     `yaml:"lead_time_weeks" json:"lead_time_weeks"`
	UnitCost      float64 `yaml:"unit_cost" json:"unit_cost"`
}
