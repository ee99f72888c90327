package core_test

import (
	"testing"
	"time"

	"retail-sim/internal/core"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

// draftAt returns a fresh session draft moved to week.
func draftAt(cat *core.Catalog, week int) *core.WeeklyState {
	st := core.NewInitialState(cat, "session-1", testNow)
	st.WeekNumber = week
	st.Phase = core.PhaseForWeek(week)
	return st
}

func mustMerge(t *testing.T, cat *core.Catalog, st *core.WeeklyState, dec core.Decisions) *core.WeeklyState {
	t.Helper()
	out, err := core.MergeDecisions(cat, st, dec)
	if err != nil {
		t.Fatalf("MergeDecisions: %v", err)
	}
	return out
}

func mustSettle(t *testing.T, eng *core.Engine, st *core.WeeklyState) *core.Settlement {
	t.Helper()
	out, err := eng.Settle(st)
	if err != nil {
		t.Fatalf("Settle week %d: %v", st.WeekNumber, err)
	}
	return out
}

// advance settles st and returns the next draft, ignoring validation findings.
func advance(t *testing.T, eng *core.Engine, st *core.WeeklyState) *core.WeeklyState {
	t.Helper()
	return core.NextDraft(mustSettle(t, eng, st).State, testNow)
}

func hasIssue(issues []core.Issue, code string) bool {
	for _, is := range issues {
		if is.Code == code {
			return true
		}
	}
	return false
}

func contractOfType(st *core.WeeklyState, kind core.ContractType) *core.Contract {
	for i := range st.ProcurementContracts {
		if st.ProcurementContracts[i].Type == kind {
			return &st.ProcurementContracts[i]
		}
	}
	return nil
}

func equalDec(t *testing.T, name string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %s, want %s", name, got.String(), want.String())
	}
}
