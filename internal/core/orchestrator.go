package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrWeekNotFound      = errors.New("week not found")
	ErrCommitInProgress  = errors.New("a commit is already in progress for this session")
	ErrSessionCompleted  = errors.New("session is completed")
	ErrDuplicateWeek     = errors.New("a state for this week already exists")
	ErrValidationFailed  = errors.New("validation failed")
	ErrStateIntegrity    = errors.New("stored state failed integrity checks")
	ErrCatalogMismatched = errors.New("session was started with a different catalog version")
)

// StatePatch is a partial update of a draft week. Nil fields are left untouched.
type StatePatch struct {
	ProductData          map[string]ProductDecision
	WeeklyDiscounts      map[string]decimal.Decimal
	MarketingPlan        *MarketingPlan
	ProductionSchedule   *[]PlannedBatch
	ProcurementContracts *[]Contract
	GMCCommitments       map[string]int
	SingleSupplierDeal   *string
	ContractSeq          *int
	BatchSeq             *int
}

// StateStore durably keeps weekly snapshots and sessions.
type StateStore interface {
	Get(ctx context.Context, sessionID string, week int) (*WeeklyState, error)
	GetLatest(ctx context.Context, sessionID string) (*WeeklyState, error)
	GetAll(ctx context.Context, sessionID string) ([]*WeeklyState, error)
	Create(ctx context.Context, st *WeeklyState) (*WeeklyState, error)
	Update(ctx context.Context, id string, patch StatePatch) (*WeeklyState, error)

	// CommitWeek atomically replaces the draft with its committed version, stores the
	// next draft when there is one, and saves the session.
	CommitWeek(ctx context.Context, committed, next *WeeklyState, session *GameSession) error

	CreateSession(ctx context.Context, s *GameSession) error
	GetSession(ctx context.Context, id string) (*GameSession, error)
	ListSessions(ctx context.Context) ([]*GameSession, error)
}

// SessionLocker serializes commits per session. TryLock fails fast with
// ErrCommitInProgress rather than queueing.
type SessionLocker interface {
	TryLock(ctx context.Context, sessionID string) (unlock func(), err error)
}

// CommitOutcome reports what a commit or dry run produced.
type CommitOutcome struct {
	Week       int              `json:"week"`
	Committed  bool             `json:"committed"`
	State      *WeeklyState     `json:"state"`
	Next       *WeeklyState     `json:"next,omitempty"`
	Validation ValidationResult `json:"validation"`
	Result     *SeasonResult    `json:"result,omitempty"`
}

// WeekCommitter drives draft -> validating -> committed for one session at a time.
type WeekCommitter struct {
	engine *Engine
	store  StateStore
	locks  SessionLocker
	now    func() time.Time
}

func NewWeekCommitter(engine *Engine, store StateStore, locks SessionLocker) *WeekCommitter {
	return &WeekCommitter{engine: engine, store: store, locks: locks, now: time.Now}
}

// Commit settles the session's draft week and persists it if validation passes.
func (c *WeekCommitter) Commit(ctx context.Context, sessionID string) (*CommitOutcome, error) {
	return c.execute(ctx, sessionID, true)
}

// Validate runs the full settlement without persisting anything.
func (c *WeekCommitter) Validate(ctx context.Context, sessionID string) (*CommitOutcome, error) {
	return c.execute(ctx, sessionID, false)
}

func (c *WeekCommitter) execute(ctx context.Context, sessionID string, commit bool) (*CommitOutcome, error) {
	if commit {
		unlock, err := c.locks.TryLock(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == SessionCompleted {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionCompleted)
	}
	if session.CatalogVersion != c.engine.Catalog().Version {
		return nil, fmt.Errorf("session %s uses catalog %s: %w", sessionID, session.CatalogVersion, ErrCatalogMismatched)
	}

	draft, err := c.store.Get(ctx, sessionID, session.CurrentWeek)
	if err != nil {
		return nil, err
	}

	settled, err := c.engine.Settle(draft)
	if err != nil {
		return nil, fmt.Errorf("failed to settle week %d: %w", draft.WeekNumber, err)
	}

	out := &CommitOutcome{
		Week:       draft.WeekNumber,
		State:      settled.State,
		Validation: settled.Validation,
		Result:     settled.Result,
	}
	if !commit || !settled.Validation.CanCommit {
		return out, nil
	}

	now := c.now().UTC()
	settled.State.CommittedAt = &now

	updated := *session
	updated.UpdatedAt = now
	if settled.Result != nil {
		updated.Status = SessionCompleted
		updated.Result = settled.Result
	} else {
		out.Next = NextDraft(settled.State, now)
		updated.CurrentWeek = out.Next.WeekNumber
	}

	if err := c.store.CommitWeek(ctx, settled.State, out.Next, &updated); err != nil {
		return nil, fmt.Errorf("failed to persist week %d: %w", draft.WeekNumber, err)
	}
	out.Committed = true
	return out, nil
}
