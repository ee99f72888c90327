package ai_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"retail-sim/internal/ai"

	"github.com/shopspring/decimal"
)

func TestParseAdvice(t *testing.T) {
	reply := `{
		"rationale": "price near reference, buy cotton in one basket",
		"products": [{"product": "TShirt", "retail_price": "24.99", "fabric": "Cotton", "has_print": false},
		             {"product": "jacket", "retail_price": "", "fabric": "", "has_print": false}],
		"discounts": [{"product": "tshirt", "discount": "0.10"}, {"product": "jacket", "discount": ""}],
		"marketing_spend": "200000",
		"spot_orders": [{"supplier": "Supplier1", "fabric": "cotton", "printed": false, "units": 250000}],
		"gmc_commitments": [],
		"production": [{"product": "tshirt", "method": "outsourced", "start_week": 3, "quantity": 50000, "shipping_method": "sea"}]
	}`
	advice, err := ai.ParseAdvice([]byte(reply))
	if err != nil {
		t.Fatalf("ParseAdvice: %v", err)
	}
	d, err := advice.Decisions()
	if err != nil {
		t.Fatalf("Decisions: %v", err)
	}

	tee, ok := d.Products["tshirt"]
	if !ok || tee.RetailPrice == nil || !tee.RetailPrice.Equal(decimal.RequireFromString("24.99")) {
		t.Errorf("tshirt choice = %+v", tee)
	}
	if tee.Fabric == nil || *tee.Fabric != "cotton" {
		t.Errorf("fabric not normalized: %v", tee.Fabric)
	}
	if jk := d.Products["jacket"]; jk.RetailPrice != nil || jk.Fabric != nil || jk.HasPrint != nil {
		t.Errorf("empty advice fields should leave jacket untouched: %+v", jk)
	}
	if len(d.Discounts) != 1 {
		t.Errorf("discounts = %v, want only tshirt", d.Discounts)
	}
	if d.Marketing == nil || !d.Marketing.TotalSpend.Equal(decimal.NewFromInt(200000)) {
		t.Errorf("marketing = %+v", d.Marketing)
	}
	if len(d.SpotOrders) != 1 || d.SpotOrders[0].Supplier != "supplier1" {
		t.Errorf("spot orders = %+v", d.SpotOrders)
	}
	if len(d.Production) != 1 || d.Production[0].Quantity != 50000 {
		t.Errorf("production = %+v", d.Production)
	}
}

func TestParseAdvice_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"not json", "sure, here is my plan"},
		{"bad decimal", `{"rationale":"","products":[],"discounts":[],"marketing_spend":"lots","spot_orders":[],"gmc_commitments":[],"production":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ai.ParseAdvice([]byte(tt.reply)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestDecisionSchema_DecimalsAreStrings(t *testing.T) {
	s := ai.DecisionSchema()
	disc, ok := s.Properties.Get("discounts")
	if !ok {
		t.Fatal("schema has no discounts property")
	}
	if disc.AdditionalProperties == nil || disc.AdditionalProperties.Type != "string" {
		t.Errorf("discount values should be strings, got %+v", disc.AdditionalProperties)
	}
	if _, ok := s.Properties.Get("production"); !ok {
		t.Error("schema has no production property")
	}
}

func TestBriefing_Render(t *testing.T) {
	b := ai.NewBriefing().
		Fact("state", "current week", map[string]int{"week": 3}).
		Add("catalog", "", func(ctx context.Context) (any, error) {
			return map[string]int{"weeks": 15}, nil
		})

	out, err := b.Render(context.Background())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Index(out, "## state") > strings.Index(out, "## catalog") {
		t.Errorf("sections out of order:\n%s", out)
	}
	if !strings.Contains(out, `{"week":3}`) || !strings.Contains(out, "current week") {
		t.Errorf("missing section body:\n%s", out)
	}
	if got := b.Titles(); len(got) != 2 || got[1] != "catalog" {
		t.Errorf("Titles() = %v", got)
	}

	b.Add("broken", "", func(ctx context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	if _, err := b.Render(context.Background()); err == nil || !strings.Contains(err.Error(), "broken") {
		t.Errorf("err = %v, want briefing error", err)
	}
}
