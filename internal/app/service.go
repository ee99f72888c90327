package app

import (
	"context"

	"retail-sim/internal/core"

	"github.com/invopop/jsonschema"
)

// ApplicationService is the single interface all UI adapters (REPL, CLI, Web) call.
// It decouples presentation from the simulation. Implementations contain no display
// logic of any kind.
type ApplicationService interface {
	// Catalog returns the constants every session of this service plays with.
	Catalog() *core.Catalog

	// NewSession starts a season and stores its week-1 draft.
	NewSession(ctx context.Context, req NewSessionRequest) (*SessionResult, error)

	// GetSession returns the session with its current draft.
	GetSession(ctx context.Context, sessionID string) (*SessionResult, error)

	ListSessions(ctx context.Context) ([]*core.GameSession, error)

	// ListWeeks returns every stored week of a session, committed ones first by number.
	ListWeeks(ctx context.Context, sessionID string) (*WeekListResult, error)

	GetWeek(ctx context.Context, sessionID string, week int) (*core.WeeklyState, error)

	// SubmitDecisions merges decisions into the current draft. Rejected submissions
	// return a *core.DecisionError and leave the stored draft unchanged.
	SubmitDecisions(ctx context.Context, sessionID string, d core.Decisions) (*DecisionResult, error)

	// ValidateWeek runs the full settlement of the current draft without persisting it.
	ValidateWeek(ctx context.Context, sessionID string) (*core.CommitOutcome, error)

	// CommitWeek settles and persists the current draft when validation allows it.
	// A blocked commit is not an error: the outcome carries Committed=false.
	CommitWeek(ctx context.Context, sessionID string) (*core.CommitOutcome, error)

	// PreviewDemand evaluates the demand model without touching any session.
	PreviewDemand(ctx context.Context, in core.DemandInput) (*DemandPreviewResult, error)

	// SeasonReport summarizes the committed weeks of a session.
	SeasonReport(ctx context.Context, sessionID string) (*ReportResult, error)

	// SuggestDecisions asks the advisor for next-week decisions. Nothing is merged:
	// callers submit the suggestion through SubmitDecisions like any other input.
	SuggestDecisions(ctx context.Context, sessionID, brief string) (*AdviceResult, error)

	// DecisionSchema describes the decisions payload.
	DecisionSchema() *jsonschema.Schema
}
