package ai

import (
	"fmt"
	"strings"

	"retail-sim/internal/core"

	"github.com/shopspring/decimal"
)

// Advice is the structured reply the model must produce. Maps are spelled as lists and
// every field is required so the schema can be strict.
type Advice struct {
	Rationale      string           `json:"rationale"`
	Products       []ProductAdvice  `json:"products"`
	Discounts      []DiscountAdvice `json:"discounts"`
	MarketingSpend string           `json:"marketing_spend" jsonschema:"description=Weekly marketing spend or empty to keep"`
	SpotOrders     []OrderAdvice    `json:"spot_orders"`
	GMCCommitments []OrderAdvice    `json:"gmc_commitments"`
	Production     []BatchAdvice    `json:"production"`
}

type ProductAdvice struct {
	Product     string `json:"product"`
	RetailPrice string `json:"retail_price"`
	Fabric      string `json:"fabric"`
	HasPrint    bool   `json:"has_print"`
}

type DiscountAdvice struct {
	Product  string `json:"product"`
	Discount string `json:"discount"`
}

type OrderAdvice struct {
	Supplier string `json:"supplier"`
	Fabric   string `json:"fabric"`
	Printed  bool   `json:"printed"`
	Units    int    `json:"units"`
}

type BatchAdvice struct {
	Product        string `json:"product"`
	Method         string `json:"method"`
	StartWeek      int    `json:"start_week"`
	Quantity       int    `json:"quantity"`
	ShippingMethod string `json:"shipping_method"`
}

func parseOptional(field, s string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid decimal %q", field, s)
	}
	return &v, nil
}

// Decisions converts the advice into intake form. Empty strings leave fields untouched.
func (a Advice) Decisions() (core.Decisions, error) {
	var d core.Decisions
	if len(a.Products) > 0 {
		d.Products = make(map[string]core.ProductChoice, len(a.Products))
	}
	for _, p := range a.Products {
		price, err := parseOptional("retail_price for "+p.Product, p.RetailPrice)
		if err != nil {
			return d, err
		}
		choice := core.ProductChoice{RetailPrice: price}
		if f := strings.TrimSpace(p.Fabric); f != "" {
			choice.Fabric = &f
			hp := p.HasPrint
			choice.HasPrint = &hp
		}
		d.Products[p.Product] = choice
	}
	for _, da := range a.Discounts {
		v, err := parseOptional("discount for "+da.Product, da.Discount)
		if err != nil {
			return d, err
		}
		if v == nil {
			continue
		}
		if d.Discounts == nil {
			d.Discounts = map[string]decimal.Decimal{}
		}
		d.Discounts[da.Product] = *v
	}
	spend, err := parseOptional("marketing_spend", a.MarketingSpend)
	if err != nil {
		return d, err
	}
	if spend != nil {
		d.Marketing = &core.MarketingPlan{TotalSpend: *spend}
	}
	for _, o := range a.SpotOrders {
		d.SpotOrders = append(d.SpotOrders, core.MaterialOrder(o))
	}
	for _, o := range a.GMCCommitments {
		d.GMCCommitments = append(d.GMCCommitments, core.MaterialOrder(o))
	}
	for _, b := range a.Production {
		d.Production = append(d.Production, core.BatchRequest(b))
	}
	d.Normalize()
	return d, nil
}
