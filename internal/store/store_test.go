package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"retail-sim/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

// newSession seeds a session with its week-1 draft.
func newSession(t *testing.T, s core.StateStore) (*core.GameSession, *core.WeeklyState) {
	t.Helper()
	ctx := context.Background()
	cat := core.DefaultCatalog()
	gs := &core.GameSession{
		ID:             uuid.NewString(),
		PlayerName:     "tester",
		CatalogVersion: cat.Version,
		CurrentWeek:    1,
		Status:         core.SessionActive,
		CreatedAt:      testNow,
		UpdatedAt:      testNow,
	}
	if err := s.CreateSession(ctx, gs); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	draft, err := s.Create(ctx, core.NewInitialState(cat, gs.ID, testNow))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return gs, draft
}

// runStoreContract exercises the behaviour every StateStore must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) core.StateStore) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Get(ctx, "nope", 1); !errors.Is(err, core.ErrWeekNotFound) {
			t.Errorf("Get err = %v, want ErrWeekNotFound", err)
		}
		if _, err := s.GetSession(ctx, "nope"); !errors.Is(err, core.ErrSessionNotFound) {
			t.Errorf("GetSession err = %v, want ErrSessionNotFound", err)
		}
	})

	t.Run("duplicate week", func(t *testing.T) {
		s := newStore(t)
		gs, _ := newSession(t, s)
		dup := core.NewInitialState(core.DefaultCatalog(), gs.ID, testNow)
		if _, err := s.Create(ctx, dup); !errors.Is(err, core.ErrDuplicateWeek) {
			t.Errorf("Create err = %v, want ErrDuplicateWeek", err)
		}
	})

	t.Run("update patches draft", func(t *testing.T) {
		s := newStore(t)
		gs, draft := newSession(t, s)
		deal := "supplier1"
		plan := core.MarketingPlan{TotalSpend: decimal.NewFromInt(1000)}
		if _, err := s.Update(ctx, draft.ID, core.StatePatch{SingleSupplierDeal: &deal, MarketingPlan: &plan}); err != nil {
			t.Fatalf("Update: %v", err)
		}
		got, err := s.Get(ctx, gs.ID, 1)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.SingleSupplierDeal != "supplier1" || !got.MarketingPlan.TotalSpend.Equal(decimal.NewFromInt(1000)) {
			t.Errorf("patch not applied: deal=%q spend=%s", got.SingleSupplierDeal, got.MarketingPlan.TotalSpend)
		}
		if !got.CashOnHand.Equal(draft.CashOnHand) {
			t.Errorf("untouched field changed: cash %s", got.CashOnHand)
		}
	})

	t.Run("commit is atomic and final", func(t *testing.T) {
		s := newStore(t)
		gs, draft := newSession(t, s)
		cat := core.DefaultCatalog()

		out, err := core.NewEngine(cat).Settle(draft)
		if err != nil {
			t.Fatalf("Settle: %v", err)
		}
		committedAt := testNow.Add(time.Hour)
		out.State.CommittedAt = &committedAt
		next := core.NextDraft(out.State, committedAt)
		updated := *gs
		updated.CurrentWeek = 2
		updated.UpdatedAt = committedAt

		if err := s.CommitWeek(ctx, out.State, next, &updated); err != nil {
			t.Fatalf("CommitWeek: %v", err)
		}

		w1, _ := s.Get(ctx, gs.ID, 1)
		if !w1.IsCommitted {
			t.Error("week 1 not committed")
		}
		if _, err := s.Update(ctx, w1.ID, core.StatePatch{}); !errors.Is(err, core.ErrWeekCommitted) {
			t.Errorf("Update committed err = %v, want ErrWeekCommitted", err)
		}
		latest, err := s.GetLatest(ctx, gs.ID)
		if err != nil || latest.WeekNumber != 2 || latest.IsCommitted {
			t.Errorf("latest = %+v, err %v", latest, err)
		}
		sess, _ := s.GetSession(ctx, gs.ID)
		if sess.CurrentWeek != 2 {
			t.Errorf("session current week = %d", sess.CurrentWeek)
		}

		// a second commit of the same week fails and leaves week 2 alone
		again := *gs
		if err := s.CommitWeek(ctx, out.State, core.NextDraft(out.State, committedAt), &again); !errors.Is(err, core.ErrWeekCommitted) {
			t.Errorf("second CommitWeek err = %v, want ErrWeekCommitted", err)
		}
		all, _ := s.GetAll(ctx, gs.ID)
		if len(all) != 2 || all[0].WeekNumber != 1 || all[1].WeekNumber != 2 {
			t.Errorf("weeks after commit = %d", len(all))
		}
	})

	t.Run("corrupt snapshots are rejected", func(t *testing.T) {
		s := newStore(t)
		gs, draft := newSession(t, s)
		cat := core.DefaultCatalog()

		bad := core.NewInitialState(cat, gs.ID, testNow)
		bad.WeekNumber = 2
		bad.Phase = core.PhaseForWeek(2)
		bad.CashOnHand = decimal.NewFromInt(-1)
		if _, err := s.Create(ctx, bad); !errors.Is(err, core.ErrStateIntegrity) {
			t.Errorf("Create err = %v, want ErrStateIntegrity", err)
		}

		out, err := core.NewEngine(cat).Settle(draft)
		if err != nil {
			t.Fatalf("Settle: %v", err)
		}
		next := core.NextDraft(out.State, testNow)
		next.Phase = core.PhaseRunout
		updated := *gs
		updated.CurrentWeek = 2
		if err := s.CommitWeek(ctx, out.State, next, &updated); !errors.Is(err, core.ErrStateIntegrity) {
			t.Errorf("CommitWeek err = %v, want ErrStateIntegrity", err)
		}
		w1, err := s.Get(ctx, gs.ID, 1)
		if err != nil || w1.IsCommitted {
			t.Errorf("week 1 changed by a rejected commit: %+v, err %v", w1, err)
		}
		if _, err := s.Get(ctx, gs.ID, 2); !errors.Is(err, core.ErrWeekNotFound) {
			t.Errorf("week 2 err = %v, want ErrWeekNotFound", err)
		}
	})

	t.Run("list sessions", func(t *testing.T) {
		s := newStore(t)
		newSession(t, s)
		list, err := s.ListSessions(ctx)
		if err != nil || len(list) == 0 {
			t.Errorf("ListSessions = %d, err %v", len(list), err)
		}
	})
}
