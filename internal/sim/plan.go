package sim

import (
	"fmt"
	"os"

	"retail-sim/internal/core"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// Plan is a scripted strategy: the decisions to submit before committing each week.
// Weeks without an entry are committed as they stand.
type Plan struct {
	Name  string                 `yaml:"name"`
	Weeks map[int]core.Decisions `yaml:"weeks"`
}

// LoadPlan reads a YAML plan from path.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	return ParsePlan(data)
}

// ParsePlan decodes a YAML plan.
func ParsePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.UnmarshalStrict(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	for week := range p.Weeks {
		if week < 1 {
			return nil, fmt.Errorf("plan %q: week %d out of range", p.Name, week)
		}
	}
	if p.Name == "" {
		p.Name = "unnamed"
	}
	return &p, nil
}

// DefaultPlan is an all-outsourced season: designs and a spot basket in week 1, sea
// freight batches from week 3 and a t-shirt promotion in the second half of sales.
func DefaultPlan() *Plan {
	price := func(s string) *decimal.Decimal {
		v := decimal.RequireFromString(s)
		return &v
	}
	fabric := func(s string) *string { return &s }

	return &Plan{
		Name: "outsourced-sea",
		Weeks: map[int]core.Decisions{
			1: {
				Products: map[string]core.ProductChoice{
					"jacket":   {RetailPrice: price("120"), Fabric: fabric("wool")},
					"trousers": {RetailPrice: price("70"), Fabric: fabric("denim")},
					"tshirt":   {RetailPrice: price("25"), Fabric: fabric("cotton")},
				},
				Marketing: &core.MarketingPlan{TotalSpend: decimal.NewFromInt(150000)},
				SpotOrders: []core.MaterialOrder{
					{Supplier: "supplier2", Fabric: "wool", Units: 215000},
					{Supplier: "supplier2", Fabric: "denim", Units: 265000},
					{Supplier: "supplier2", Fabric: "cotton", Units: 400000},
				},
				Production: []core.BatchRequest{
					{Product: "jacket", Method: "outsourced", StartWeek: 3, Quantity: 200000, ShippingMethod: "sea"},
					{Product: "trousers", Method: "outsourced", StartWeek: 3, Quantity: 250000, ShippingMethod: "sea"},
					{Product: "tshirt", Method: "outsourced", StartWeek: 3, Quantity: 375000, ShippingMethod: "sea"},
				},
			},
			9: {Discounts: map[string]decimal.Decimal{"tshirt": decimal.RequireFromString("0.10")}},
		},
	}
}
