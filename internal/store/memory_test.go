package store_test

import (
	"context"
	"testing"

	"retail-sim/internal/core"
	"retail-sim/internal/store"
)

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) core.StateStore { return store.NewMemoryStore() })
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := store.NewMemoryStore()
	gs, _ := newSession(t, s)

	got, _ := s.Get(context.Background(), gs.ID, 1)
	got.ProductData["jacket"] = core.ProductDecision{Fabric: "wool"}

	again, _ := s.Get(context.Background(), gs.ID, 1)
	if again.ProductData["jacket"].Fabric != "" {
		t.Error("mutating a returned state changed the stored one")
	}
}
