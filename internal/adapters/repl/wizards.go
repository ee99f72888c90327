package repl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"retail-sim/internal/core"

	"github.com/shopspring/decimal"
)

var errWizardCancelled = errors.New("cancelled")

// runDecisionWizard collects product, marketing and discount choices line by line
// and submits them as one decision set.
func (s *Session) runDecisionWizard(ctx context.Context) error {
	res, err := s.svc.GetSession(ctx, s.id)
	if err != nil {
		return err
	}
	draft := res.Draft
	cat := s.svc.Catalog()

	fmt.Fprintf(s.out, "Decisions for week %d. Blank keeps the current value, 'cancel' aborts.\n", draft.WeekNumber)
	var d core.Decisions

	for _, key := range cat.ProductKeys() {
		pd := draft.ProductData[key]
		if pd.PriceLocked {
			continue
		}
		hint := "<price> <fabric> [print]"
		if pd.DesignLocked {
			hint = "<price>"
		}
		line, err := s.prompt(fmt.Sprintf("  %s %s (now %s %s): ", key, hint, pd.RetailPrice.StringFixed(2), pd.Fabric))
		if err != nil {
			return nil
		}
		if line == "" {
			continue
		}
		choice, err := parseProductLine(line, pd.DesignLocked)
		if err != nil {
			fmt.Fprintf(s.out, "  %v, %s left unchanged\n", err, key)
			continue
		}
		if d.Products == nil {
			d.Products = map[string]core.ProductChoice{}
		}
		d.Products[key] = choice
	}

	line, err := s.prompt(fmt.Sprintf("  marketing spend (now %s): ", draft.MarketingPlan.TotalSpend.StringFixed(2)))
	if err != nil {
		return nil
	}
	if line != "" {
		spend, perr := decimal.NewFromString(line)
		if perr != nil || spend.IsNegative() {
			fmt.Fprintln(s.out, "  invalid amount, marketing left unchanged")
		} else {
			d.Marketing = &core.MarketingPlan{TotalSpend: spend}
		}
	}

	if draft.WeekNumber >= cat.Season.SalesStartWeek {
		fmt.Fprintln(s.out, "  discounts as '<product> <fraction>', 'done' to finish")
		for {
			line, err := s.prompt("    discount: ")
			if err != nil {
				return nil
			}
			if line == "" || strings.EqualFold(line, "done") {
				break
			}
			parts := strings.Fields(line)
			if len(parts) != 2 {
				fmt.Fprintln(s.out, "    use: <product> <fraction>")
				continue
			}
			frac, perr := decimal.NewFromString(parts[1])
			if perr != nil {
				fmt.Fprintln(s.out, "    invalid fraction")
				continue
			}
			if d.Discounts == nil {
				d.Discounts = map[string]decimal.Decimal{}
			}
			d.Discounts[parts[0]] = frac
		}
	}

	if d.Products == nil && d.Marketing == nil && d.Discounts == nil {
		fmt.Fprintln(s.out, "Nothing to submit.")
		return nil
	}
	return s.submit(ctx, d)
}

// prompt reads one trimmed line. It returns errWizardCancelled on "cancel" or end of input.
func (s *Session) prompt(label string) (string, error) {
	fmt.Fprint(s.out, label)
	raw, err := s.reader.ReadString('\n')
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "cancel") || (err != nil && raw == "") {
		fmt.Fprintln(s.out, "Decision entry cancelled.")
		return "", errWizardCancelled
	}
	return raw, nil
}

func parseProductLine(line string, designLocked bool) (core.ProductChoice, error) {
	parts := strings.Fields(line)
	price, err := decimal.NewFromString(parts[0])
	if err != nil || !price.IsPositive() {
		return core.ProductChoice{}, fmt.Errorf("invalid price %q", parts[0])
	}
	choice := core.ProductChoice{RetailPrice: &price}
	if designLocked {
		if len(parts) > 1 {
			return core.ProductChoice{}, fmt.Errorf("design is locked")
		}
		return choice, nil
	}
	if len(parts) > 1 {
		fabric := strings.ToLower(parts[1])
		choice.Fabric = &fabric
	}
	if len(parts) > 2 {
		printed := strings.EqualFold(parts[2], "print")
		choice.HasPrint = &printed
	}
	return choice, nil
}
