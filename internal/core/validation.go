package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Issue codes surfaced to players.
const (
	CodeMissingDecision    = "MISSING_DECISION"
	CodeUnknownKey         = "UNKNOWN_KEY"
	CodeInvalidValue       = "INVALID_VALUE"
	CodeLockedField        = "LOCKED_FIELD"
	CodePriceBelowFloor    = "PRICE_BELOW_COST_FLOOR"
	CodeArrivalDeadline    = "ARRIVAL_AFTER_DEADLINE"
	CodeCapacityExceeded   = "CAPACITY_EXCEEDED"
	CodeNoRawMaterial      = "NO_RAW_MATERIAL"
	CodeGMCBelowMinimum    = "GMC_BELOW_MINIMUM"
	CodeInsufficientFunds  = "INSUFFICIENT_FUNDS"
	CodeForwardOutsideWeek = "FORWARD_OUTSIDE_SIGNING_WEEK"
	CodeSupplierExclusive  = "SUPPLIER_EXCLUSIVE"
	CodeGMCOverCommitment  = "GMC_ORDER_EXCEEDS_COMMITMENT"
	CodePartialBatch       = "PARTIAL_BATCH"
	CodeLateDelivery       = "DELIVERY_AFTER_SEASON"
	CodeZeroMarketing      = "ZERO_MARKETING"
	CodeAggressiveDiscount = "AGGRESSIVE_DISCOUNT"
	CodeLowCash            = "LOW_CASH"
	CodeOverstock          = "OVERSTOCK"
	CodeUnderstock         = "UNDERSTOCK"
	CodeSalesBlocked       = "SALES_BLOCKED_BELOW_COST"
)

// Issue is a single business-rule finding. Errors block a commit, warnings do not.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Product  string   `json:"product,omitempty"`
	Week     int      `json:"week,omitempty"`
}

func errorIssue(code, format string, args ...any) Issue {
	return Issue{Severity: SeverityError, Code: code, Message: fmt.Sprintf(format, args...)}
}

func warningIssue(code, format string, args ...any) Issue {
	return Issue{Severity: SeverityWarning, Code: code, Message: fmt.Sprintf(format, args...)}
}

// ValidationResult is the structured outcome of validating a prospective state.
type ValidationResult struct {
	Errors    []Issue `json:"errors"`
	Warnings  []Issue `json:"warnings"`
	CanCommit bool    `json:"can_commit"`
}

// NewValidationResult splits issues by severity.
func NewValidationResult(issues []Issue) ValidationResult {
	res := ValidationResult{Errors: []Issue{}, Warnings: []Issue{}}
	for _, is := range issues {
		if is.Severity == SeverityError {
			res.Errors = append(res.Errors, is)
		} else {
			res.Warnings = append(res.Warnings, is)
		}
	}
	res.CanCommit = len(res.Errors) == 0
	return res
}

// DecisionError rejects a decision submission. The draft is left untouched.
type DecisionError struct {
	Issues []Issue
}

func (e *DecisionError) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		msgs = append(msgs, is.Message)
	}
	return "decisions rejected: " + strings.Join(msgs, "; ")
}

// Validator checks a prospective next state against the draft it was settled from.
// It is a pure function of its inputs.
type Validator struct {
	cat    *Catalog
	demand *DemandModel
}

func NewValidator(cat *Catalog) *Validator {
	return &Validator{cat: cat, demand: NewDemandModel(cat)}
}

// Validate returns every hard error and warning for committing draft into next.
// settleIssues are findings raised while the settlement itself was computed.
func (v *Validator) Validate(draft, next *WeeklyState, settleIssues []Issue) ValidationResult {
	var issues []Issue
	issues = append(issues, v.checkProducts(draft)...)
	issues = append(issues, v.checkSchedule(draft)...)
	issues = append(issues, CheckCapacity(v.cat, draft.WorkInProcess, draft.ProductionSchedule)...)
	issues = append(issues, v.checkContracts(draft)...)
	issues = append(issues, settleIssues...)
	if next != nil {
		issues = append(issues, v.warnings(draft, next)...)
	}
	return NewValidationResult(issues)
}

func (v *Validator) checkProducts(st *WeeklyState) []Issue {
	var issues []Issue
	week := st.WeekNumber
	for _, key := range v.cat.ProductKeys() {
		pd := st.ProductData[key]
		if week >= v.cat.Season.DesignLockWeek {
			if !pd.RetailPrice.IsPositive() {
				is := errorIssue(CodeMissingDecision, "%s has no retail price", key)
				is.Product = key
				issues = append(issues, is)
			}
			if pd.Fabric == "" {
				is := errorIssue(CodeMissingDecision, "%s has no fabric selected", key)
				is.Product = key
				issues = append(issues, is)
			}
		}
		if pd.Fabric != "" && !v.cat.AllowsFabric(key, pd.Fabric) {
			is := errorIssue(CodeInvalidValue, "fabric %s is not available for %s", pd.Fabric, key)
			is.Product = key
			issues = append(issues, is)
		}
		if pd.RetailPrice.IsPositive() && pd.Fabric != "" {
			floor := v.costFloor(key, pd)
			if pd.RetailPrice.LessThan(floor) {
				is := errorIssue(CodePriceBelowFloor, "%s retail price %s is below the cost floor %s",
					key, pd.RetailPrice.StringFixed(2), floor.StringFixed(2))
				is.Product = key
				issues = append(issues, is)
			}
		}
	}
	return issues
}

func (v *Validator) costFloor(product string, pd ProductDecision) decimal.Decimal {
	material := pd.ConfirmedMaterialCost
	if !material.IsPositive() {
		material, _ = v.cat.CheapestMaterialCost(pd.Fabric, pd.HasPrint)
	}
	return v.cat.CostFloor(product, material)
}

func (v *Validator) checkSchedule(st *WeeklyState) []Issue {
	var issues []Issue
	for _, b := range st.ProductionSchedule {
		issues = append(issues, v.checkBatch(st.WeekNumber, b)...)
	}
	return issues
}

func (v *Validator) checkBatch(week int, b PlannedBatch) []Issue {
	var issues []Issue
	method, okM := v.cat.Manufacturing[b.Method]
	ship, okS := v.cat.Shipping[b.ShippingMethod]
	if _, ok := v.cat.Products[b.Product]; !ok {
		issues = append(issues, errorIssue(CodeUnknownKey, "batch %s: unknown product %q", b.ID, b.Product))
	}
	if !okM {
		issues = append(issues, errorIssue(CodeUnknownKey, "batch %s: unknown manufacturing method %q", b.ID, b.Method))
	}
	if !okS {
		issues = append(issues, errorIssue(CodeUnknownKey, "batch %s: unknown shipping method %q", b.ID, b.ShippingMethod))
	}
	if b.Quantity <= 0 || b.Quantity%v.cat.Season.BatchSize != 0 {
		issues = append(issues, errorIssue(CodeInvalidValue, "batch %s: quantity %d is not a positive multiple of %d",
			b.ID, b.Quantity, v.cat.Season.BatchSize))
	}
	if b.StartWeek < week {
		issues = append(issues, errorIssue(CodeInvalidValue, "batch %s: start week %d is in the past", b.ID, b.StartWeek))
	}
	if okM && okS {
		arrival := b.StartWeek + method.LeadTimeWeeks + ship.LeadTimeWeeks + 1
		if arrival > v.cat.Season.ArrivalDeadlineWeek {
			is := errorIssue(CodeArrivalDeadline, "batch %s would arrive in week %d, after the week %d deadline",
				b.ID, arrival, v.cat.Season.ArrivalDeadlineWeek)
			is.Product = b.Product
			issues = append(issues, is)
		}
	}
	return issues
}

// CheckCapacity verifies that in-house batches in progress plus those planned never use more
// than a week's ceiling. Each batch holds whole standard batches for its whole lead time.
func CheckCapacity(cat *Catalog, wip []WIPBatch, schedule []PlannedBatch) []Issue {
	usage := CapacityUsage(cat, wip, schedule)
	weeks := make([]int, 0, len(usage))
	for w := range usage {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)

	var issues []Issue
	for _, w := range weeks {
		if ceiling := cat.CapacityCeiling(w); usage[w] > ceiling {
			is := errorIssue(CodeCapacityExceeded, "in-house capacity exceeded in week %d: %d units scheduled, ceiling %d",
				w, usage[w], ceiling)
			is.Week = w
			issues = append(issues, is)
		}
	}
	return issues
}

// CapacityUsage returns in-house units occupied per week.
func CapacityUsage(cat *Catalog, wip []WIPBatch, schedule []PlannedBatch) map[int]int {
	usage := map[int]int{}
	occupy := func(method string, start, quantity int) {
		m, ok := cat.Manufacturing[method]
		if !ok || !m.CapacityLimited {
			return
		}
		units := cat.CapacityUnits(quantity)
		for w := start; w < start+m.LeadTimeWeeks; w++ {
			usage[w] += units
		}
	}
	for _, b := range wip {
		occupy(b.Method, b.StartWeek, b.PlannedQuantity)
	}
	for _, b := range schedule {
		occupy(b.Method, b.StartWeek, b.Quantity)
	}
	return usage
}

func (v *Validator) checkContracts(st *WeeklyState) []Issue {
	var issues []Issue
	terms := v.cat.Contracts
	gmcByMaterial := map[string]int{}
	for _, c := range st.ProcurementContracts {
		if c.Type == ContractForward && c.SignedWeek != terms.ForwardSigningWeek {
			issues = append(issues, errorIssue(CodeForwardOutsideWeek, "forward contract %s signed in week %d; only week %d allowed",
				c.ID, c.SignedWeek, terms.ForwardSigningWeek))
		}
		if st.SingleSupplierDeal != "" && c.Supplier != st.SingleSupplierDeal && placedInWeek(c, st.WeekNumber) {
			issues = append(issues, errorIssue(CodeSupplierExclusive, "contract %s orders from %s despite the single-supplier deal with %s",
				c.ID, c.Supplier, st.SingleSupplierDeal))
		}
		if c.Type == ContractGMC {
			gmcByMaterial[c.MaterialKey()] += c.CommittedUnits
			if c.OrderedUnits() > c.CommittedUnits {
				issues = append(issues, errorIssue(CodeGMCOverCommitment, "contract %s: %d units ordered against a %d unit commitment",
					c.ID, c.OrderedUnits(), c.CommittedUnits))
			}
		}
		for _, l := range c.Lines {
			if l.PlacedWeek != st.WeekNumber {
				continue
			}
			if sp, ok := v.cat.Suppliers[c.Supplier]; ok && l.PlacedWeek+sp.LeadTimeWeeks > v.cat.Season.Weeks {
				issues = append(issues, warningIssue(CodeLateDelivery, "contract %s: units placed in week %d arrive after the season ends",
					c.ID, l.PlacedWeek))
			}
		}
	}

	keys := make([]string, 0, len(gmcByMaterial))
	for k := range gmcByMaterial {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, material := range keys {
		need := v.cat.SeasonNeed(material, st.ProductData)
		minimum := int(float64(need)*terms.GMCMinCommitmentFraction + 0.5)
		if gmcByMaterial[material] < minimum {
			issues = append(issues, errorIssue(CodeGMCBelowMinimum, "GMC commitments for %s total %d units, minimum is %d",
				material, gmcByMaterial[material], minimum))
		}
	}
	return issues
}

func placedInWeek(c Contract, week int) bool {
	for _, l := range c.Lines {
		if l.PlacedWeek == week {
			return true
		}
	}
	return c.SignedWeek == week
}

func (v *Validator) warnings(draft, next *WeeklyState) []Issue {
	var issues []Issue
	week := draft.WeekNumber
	cfg := v.cat.Demand

	if week >= v.cat.Season.SalesStartWeek && !draft.MarketingPlan.TotalSpend.IsPositive() {
		issues = append(issues, warningIssue(CodeZeroMarketing, "no marketing spend during the sales phase"))
	}
	aggressive := dec(cfg.AggressiveDiscount)
	for _, key := range v.cat.ProductKeys() {
		d := draft.WeeklyDiscounts[key]
		if _, forced := v.cat.Markdown(week); forced || !d.IsPositive() {
			continue
		}
		if d.GreaterThanOrEqual(aggressive) {
			is := warningIssue(CodeAggressiveDiscount, "%s discount of %s%% is projected to suppress demand significantly", key, d.Mul(decimal.NewFromInt(100)).StringFixed(0))
			is.Product = key
			issues = append(issues, is)
		}
	}
	if next.CashOnHand.LessThan(dec(v.cat.Finance.LowCashThreshold)) {
		issues = append(issues, warningIssue(CodeLowCash, "cash on hand %s is below %s", next.CashOnHand.StringFixed(2),
			dec(v.cat.Finance.LowCashThreshold).StringFixed(2)))
	}
	issues = append(issues, v.stockWarnings(next)...)
	return issues
}

// stockWarnings compares sellable stock for the next two weeks against forecast demand.
func (v *Validator) stockWarnings(next *WeeklyState) []Issue {
	var issues []Issue
	from := next.WeekNumber + 1
	to := next.WeekNumber + 2
	if to > v.cat.Season.Weeks {
		to = v.cat.Season.Weeks
	}
	if from > to || to < v.cat.Season.SalesStartWeek {
		return nil
	}
	if from < v.cat.Season.SalesStartWeek {
		from = v.cat.Season.SalesStartWeek
	}
	for _, key := range v.cat.ProductKeys() {
		pd := next.ProductData[key]
		if !pd.RetailPrice.IsPositive() {
			continue
		}
		forecast := 0
		for w := from; w <= to; w++ {
			discount := next.WeeklyDiscounts[key]
			if md, ok := v.cat.Markdown(w); ok {
				discount = md
			}
			units, err := v.demand.Forecast(DemandInput{
				Product: key, Week: w, RRP: pd.RetailPrice, Discount: discount,
				MarketingSpend: next.MarketingPlan.TotalSpend, HasPrint: pd.HasPrint,
			})
			if err == nil {
				forecast += units
			}
		}
		if forecast == 0 {
			continue
		}
		stock := next.AvailableUnits(key)
		for _, s := range next.ShipmentsInTransit {
			if s.Product == key && s.ArrivalWeek <= to {
				stock += s.Quantity
			}
		}
		switch {
		case stock > 3*forecast:
			is := warningIssue(CodeOverstock, "%s: %d units available against %d forecast over the next weeks", key, stock, forecast)
			is.Product = key
			issues = append(issues, is)
		case stock*2 < forecast:
			is := warningIssue(CodeUnderstock, "%s: only %d units available against %d forecast over the next weeks", key, stock, forecast)
			is.Product = key
			issues = append(issues, is)
		}
	}
	return issues
}
