package core

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// DefaultCatalog returns the built-in constants used when no catalog file is configured.
// Every call returns a fresh value so callers can tweak it in tests.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Version: "2025.1",
		Season: SeasonConfig{
			Weeks:               15,
			DesignLockWeek:      2,
			PriceLockWeek:       6,
			SalesStartWeek:      7,
			ServiceLevelFrom:    7,
			ServiceLevelTo:      12,
			ArrivalDeadlineWeek: 15,
			BatchSize:           25000,
			Seasonality:         []float64{0.60, 0.70, 0.80, 0.90, 0.95, 1.00, 1.10, 1.20, 1.25, 1.20, 1.10, 1.00, 0.85, 0.70, 0.55},
			Capacity:            []int{0, 0, 50000, 50000, 50000, 50000, 50000, 50000, 50000, 50000, 25000, 25000, 0, 0, 0},
			RunoutMarkdowns:     map[int]float64{13: 0.20, 14: 0.35, 15: 0.50},
		},
		Finance: FinanceConfig{
			StartingCash:            5000000,
			CreditLimit:             10000000,
			WeeklyInterestRate:      0.002,
			WeeklyHoldingRate:       0.004,
			AnnualCapitalChargeRate: 0.10,
			LowCashThreshold:        250000,
		},
		Demand: DemandConfig{
			BaselineMarketingSpend: 216667,
			PromoFloor:             0.2,
			PrintUplift:            1.05,
			PlainFactor:            0.95,
			PositioningCenter:      0.5,
			PositioningSteepness:   6,
			PositioningMin:         0.5,
			PositioningMax:         1.15,
			AggressiveDiscount:     0.40,
		},
		Contracts: ContractTerms{
			GMCSettlementLagWeeks:    2,
			GMCShortfallPenaltyRate:  0.20,
			GMCMinCommitmentFraction: 0.20,
			ForwardSigningWeek:       1,
			ForwardDepositRate:       0.30,
			ForwardBalanceLagWeeks:   8,
			SingleSupplierBonus:      0.02,
		},
		Products: map[string]ProductSpec{
			"jacket": {
				Name: "Jacket", BaseForecast: 100000, ReferencePrice: 120, HMPrice: 80, Elasticity: -1.40,
				Fabrics: []string{"wool", "denim", "polyester"},
			},
			"trousers": {
				Name: "Trousers", BaseForecast: 120000, ReferencePrice: 70, HMPrice: 40, Elasticity: -1.25,
				Fabrics: []string{"denim", "cotton", "polyester"},
			},
			"tshirt": {
				Name: "T-Shirt", BaseForecast: 180000, ReferencePrice: 25, HMPrice: 12.99, Elasticity: -1.60,
				Fabrics: []string{"cotton", "polyester"},
			},
		},
		Suppliers: map[string]SupplierSpec{
			"supplier1": {
				Name: "Porto Textiles", LeadTimeWeeks: 2, DefectRate: 0.02, PrintSurcharge: 1.50,
				MaterialPrices: map[string]float64{"cotton": 3.20, "wool": 9.80, "denim": 5.40, "polyester": 2.60},
				Tiers:          []DiscountTier{{MinUnits: 100000, Discount: 0.03}, {MinUnits: 250000, Discount: 0.05}, {MinUnits: 500000, Discount: 0.08}},
			},
			"supplier2": {
				Name: "Anatolia Mills", LeadTimeWeeks: 1, DefectRate: 0.05, PrintSurcharge: 1.10,
				MaterialPrices: map[string]float64{"cotton": 2.90, "wool": 10.60, "denim": 5.10, "polyester": 2.30},
				Tiers:          []DiscountTier{{MinUnits: 150000, Discount: 0.02}, {MinUnits: 300000, Discount: 0.04}, {MinUnits: 600000, Discount: 0.07}},
			},
		},
		Manufacturing: map[string]MethodSpec{
			"inhouse": {
				LeadTimeWeeks: 3, CapacityLimited: true,
				UnitCosts: map[string]float64{"jacket": 14.00, "trousers": 8.50, "tshirt": 2.40},
			},
			"outsourced": {
				LeadTimeWeeks: 2,
				UnitCosts:     map[string]float64{"jacket": 19.50, "trousers": 11.75, "tshirt": 3.60},
			},
		},
		Shipping: map[string]ShippingSpec{
			"sea":  {LeadTimeWeeks: 2, UnitCost: 0.60},
			"rail": {LeadTimeWeeks: 1, UnitCost: 1.10},
			"air":  {LeadTimeWeeks: 0, UnitCost: 2.40},
		},
	}
}

// LoadCatalog reads a YAML catalog file and validates it.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes YAML catalog data and validates it.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &c, nil
}

// Validate checks the catalog for internal consistency.
func (c *Catalog) Validate() error {
	s := c.Season
	if strings.TrimSpace(c.Version) == "" {
		return errors.New("catalog must specify a version")
	}
	if s.Weeks <= 0 {
		return errors.New("season must have at least one week")
	}
	if len(s.Seasonality) != s.Weeks {
		return fmt.Errorf("seasonality has %d entries, want %d", len(s.Seasonality), s.Weeks)
	}
	if len(s.Capacity) != s.Weeks {
		return fmt.Errorf("capacity schedule has %d entries, want %d", len(s.Capacity), s.Weeks)
	}
	if s.BatchSize <= 0 {
		return errors.New("batch size must be > 0")
	}
	if s.SalesStartWeek < 1 || s.SalesStartWeek > s.Weeks {
		return fmt.Errorf("sales start week %d outside season", s.SalesStartWeek)
	}
	if s.ServiceLevelFrom > s.ServiceLevelTo {
		return errors.New("service level window is empty")
	}
	for week, md := range s.RunoutMarkdowns {
		if week < 1 || week > s.Weeks || md < 0 || md >= 1 {
			return fmt.Errorf("invalid run-out markdown %v for week %d", md, week)
		}
	}
	if c.Finance.CreditLimit < 0 || c.Finance.StartingCash < 0 {
		return errors.New("starting cash and credit limit must be >= 0")
	}
	if c.Demand.BaselineMarketingSpend <= 0 {
		return errors.New("baseline marketing spend must be > 0")
	}
	if len(c.Products) == 0 {
		return errors.New("catalog must define at least one product")
	}
	for key, p := range c.Products {
		if p.BaseForecast < 0 || p.HMPrice <= 0 {
			return fmt.Errorf("product %s: forecast must be >= 0 and hm price > 0", key)
		}
		if len(p.Fabrics) == 0 {
			return fmt.Errorf("product %s: no fabrics", key)
		}
		for _, m := range c.Manufacturing {
			if _, ok := m.UnitCosts[key]; !ok {
				return fmt.Errorf("product %s: missing manufacturing cost", key)
			}
		}
	}
	for key, sp := range c.Suppliers {
		if sp.DefectRate < 0 || sp.DefectRate >= 1 {
			return fmt.Errorf("supplier %s: defect rate must be in [0,1)", key)
		}
		for i := 1; i < len(sp.Tiers); i++ {
			if sp.Tiers[i].MinUnits <= sp.Tiers[i-1].MinUnits {
				return fmt.Errorf("supplier %s: tiers must be ascending", key)
			}
		}
	}
	if len(c.Manufacturing) == 0 || len(c.Shipping) == 0 {
		return errors.New("catalog must define manufacturing and shipping methods")
	}
	return nil
}

// ProductKeys returns product keys in a stable order.
func (c *Catalog) ProductKeys() []string {
	keys := make([]string, 0, len(c.Products))
	for k := range c.Products {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Catalog) SupplierKeys() []string {
	keys := make([]string, 0, len(c.Suppliers))
	for k := range c.Suppliers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Catalog) SeasonalityFactor(week int) float64 {
	if week < 1 || week > len(c.Season.Seasonality) {
		return 0
	}
	return c.Season.Seasonality[week-1]
}

// CapacityCeiling is the in-house unit ceiling for week. Weeks outside the season have none.
func (c *Catalog) CapacityCeiling(week int) int {
	if week < 1 || week > len(c.Season.Capacity) {
		return 0
	}
	return c.Season.Capacity[week-1]
}

// Markdown returns the forced run-out markdown for week, if any.
func (c *Catalog) Markdown(week int) (decimal.Decimal, bool) {
	md, ok := c.Season.RunoutMarkdowns[week]
	if !ok {
		return decimal.Zero, false
	}
	return dec(md), true
}

// SupplierDiscount resolves the volume tier for units, plus the single-supplier bonus.
func (c *Catalog) SupplierDiscount(supplier string, units int, dealBonus bool) decimal.Decimal {
	sp, ok := c.Suppliers[supplier]
	if !ok {
		return decimal.Zero
	}
	pct := 0.0
	for _, t := range sp.Tiers {
		if units >= t.MinUnits {
			pct = t.Discount
		}
	}
	d := dec(pct)
	if dealBonus {
		d = d.Add(dec(c.Contracts.SingleSupplierBonus))
	}
	return d
}

// MaterialPrice is the undiscounted base price of fabric at supplier.
func (c *Catalog) MaterialPrice(supplier, fabric string) (decimal.Decimal, bool) {
	sp, ok := c.Suppliers[supplier]
	if !ok {
		return decimal.Zero, false
	}
	p, ok := sp.MaterialPrices[fabric]
	if !ok {
		return decimal.Zero, false
	}
	return dec(p), true
}

func (c *Catalog) AllowsFabric(product, fabric string) bool {
	p, ok := c.Products[product]
	if !ok {
		return false
	}
	for _, f := range p.Fabrics {
		if f == fabric {
			return true
		}
	}
	return false
}

// CheapestMaterialCost is the lowest undiscounted unit price of fabric (plus print surcharge)
// across all suppliers that stock it.
func (c *Catalog) CheapestMaterialCost(fabric string, printed bool) (decimal.Decimal, bool) {
	var best decimal.Decimal
	found := false
	for _, key := range c.SupplierKeys() {
		price, ok := c.MaterialPrice(key, fabric)
		if !ok {
			continue
		}
		if printed {
			price = price.Add(dec(c.Suppliers[key].PrintSurcharge))
		}
		if !found || price.LessThan(best) {
			best, found = price, true
		}
	}
	return best, found
}

// CostFloor is the lowest fully-loaded unit cost a product can be made at. Retail prices
// below it are rejected.
func (c *Catalog) CostFloor(product string, materialCost decimal.Decimal) decimal.Decimal {
	floor := materialCost
	var prod, ship decimal.Decimal
	first := true
	for _, m := range c.Manufacturing {
		cost := dec(m.UnitCosts[product])
		if first || cost.LessThan(prod) {
			prod = cost
		}
		first = false
	}
	first = true
	for _, s := range c.Shipping {
		cost := dec(s.UnitCost)
		if first || cost.LessThan(ship) {
			ship = cost
		}
		first = false
	}
	return floor.Add(prod).Add(ship).Round(2)
}

// SeasonNeed is the forecast demand over the selling weeks of every product that consumes
// materialKey under the given product decisions.
func (c *Catalog) SeasonNeed(materialKey string, products map[string]ProductDecision) int {
	total := 0.0
	for _, key := range c.ProductKeys() {
		pd, ok := products[key]
		if !ok || pd.Fabric == "" || MaterialKey(pd.Fabric, pd.HasPrint) != materialKey {
			continue
		}
		spec := c.Products[key]
		for w := c.Season.SalesStartWeek; w <= c.Season.Weeks; w++ {
			total += spec.BaseForecast * c.SeasonalityFactor(w)
		}
	}
	return int(total + 0.5)
}

// MaterialKey identifies a raw material. Printed fabric is stocked separately.
func MaterialKey(fabric string, printed bool) string {
	if printed {
		return fabric + "-printed"
	}
	return fabric
}

// CapacityUnits is the in-house capacity a batch of quantity occupies: whole standard batches.
func (c *Catalog) CapacityUnits(quantity int) int {
	size := c.Season.BatchSize
	if quantity <= 0 {
		return size
	}
	return ((quantity + size - 1) / size) * size
}

func dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
