package store

import "retail-sim/internal/core"

// checkStates rejects a write if any non-nil snapshot fails its integrity check.
// Every store runs it before touching storage.
func checkStates(states ...*core.WeeklyState) error {
	for _, st := range states {
		if st == nil {
			continue
		}
		if err := st.CheckIntegrity(); err != nil {
			return err
		}
	}
	return nil
}
