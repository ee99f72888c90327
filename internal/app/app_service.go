package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"retail-sim/internal/ai"
	"retail-sim/internal/archive"
	"retail-sim/internal/core"
	"retail-sim/internal/report"

	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
	"github.com/rs/zerolog"
)

// ErrAdvisorUnavailable is returned by SuggestDecisions when no advisor is configured.
var ErrAdvisorUnavailable = errors.New("decision advisor is not configured")

type appService struct {
	engine    *core.Engine
	store     core.StateStore
	locks     core.SessionLocker
	committer *core.WeekCommitter
	advisor   ai.Advisor
	archiver  archive.Archiver
	log       zerolog.Logger
	now       func() time.Time
}

// Deps groups the collaborators of the application service. Advisor and Archiver are optional.
type Deps struct {
	Engine   *core.Engine
	Store    core.StateStore
	Locks    core.SessionLocker
	Advisor  ai.Advisor
	Archiver archive.Archiver
	Log      zerolog.Logger
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(d Deps) ApplicationService {
	if d.Archiver == nil {
		d.Archiver = archive.Noop{}
	}
	return &appService{
		engine:    d.Engine,
		store:     d.Store,
		locks:     d.Locks,
		committer: core.NewWeekCommitter(d.Engine, d.Store, d.Locks),
		advisor:   d.Advisor,
		archiver:  d.Archiver,
		log:       d.Log,
		now:       time.Now,
	}
}

func (s *appService) Catalog() *core.Catalog { return s.engine.Catalog() }

func (s *appService) NewSession(ctx context.Context, req NewSessionRequest) (*SessionResult, error) {
	now := s.now().UTC()
	gs := &core.GameSession{
		ID:             uuid.NewString(),
		PlayerName:     req.PlayerName,
		CatalogVersion: s.engine.Catalog().Version,
		CurrentWeek:    1,
		Status:         core.SessionActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateSession(ctx, gs); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	draft, err := s.store.Create(ctx, core.NewInitialState(s.engine.Catalog(), gs.ID, now))
	if err != nil {
		return nil, fmt.Errorf("failed to create week 1: %w", err)
	}
	s.log.Info().Str("session_id", gs.ID).Str("player", gs.PlayerName).Msg("session started")
	return &SessionResult{Session: gs, Draft: draft}, nil
}

func (s *appService) GetSession(ctx context.Context, sessionID string) (*SessionResult, error) {
	gs, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st, err := s.store.Get(ctx, sessionID, gs.CurrentWeek)
	if err != nil {
		return nil, err
	}
	return &SessionResult{Session: gs, Draft: st}, nil
}

func (s *appService) ListSessions(ctx context.Context) ([]*core.GameSession, error) {
	return s.store.ListSessions(ctx)
}

func (s *appService) ListWeeks(ctx context.Context, sessionID string) (*WeekListResult, error) {
	weeks, err := s.store.GetAll(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &WeekListResult{SessionID: sessionID, Weeks: weeks}, nil
}

func (s *appService) GetWeek(ctx context.Context, sessionID string, week int) (*core.WeeklyState, error) {
	return s.store.Get(ctx, sessionID, week)
}

// SubmitDecisions holds the session lock so a submission can never interleave with a commit.
func (s *appService) SubmitDecisions(ctx context.Context, sessionID string, d core.Decisions) (*DecisionResult, error) {
	unlock, err := s.locks.TryLock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	gs, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if gs.Status == core.SessionCompleted {
		return nil, fmt.Errorf("session %s: %w", sessionID, core.ErrSessionCompleted)
	}
	draft, err := s.store.Get(ctx, sessionID, gs.CurrentWeek)
	if err != nil {
		return nil, err
	}

	merged, err := core.MergeDecisions(s.engine.Catalog(), draft, d)
	if err != nil {
		var de *core.DecisionError
		if errors.As(err, &de) {
			s.log.Info().Str("session_id", sessionID).Int("week", draft.WeekNumber).
				Int("issues", len(de.Issues)).Msg("decisions rejected")
		}
		return nil, err
	}
	updated, err := s.store.Update(ctx, draft.ID, core.DraftPatch(merged))
	if err != nil {
		return nil, fmt.Errorf("failed to save decisions: %w", err)
	}
	return &DecisionResult{Draft: updated}, nil
}

func (s *appService) ValidateWeek(ctx context.Context, sessionID string) (*core.CommitOutcome, error) {
	return s.committer.Validate(ctx, sessionID)
}

func (s *appService) CommitWeek(ctx context.Context, sessionID string) (*core.CommitOutcome, error) {
	out, err := s.committer.Commit(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ev := s.log.Info()
	if !out.Committed {
		ev = s.log.Warn()
	}
	ev.Str("session_id", sessionID).
		Int("week", out.Week).
		Bool("committed", out.Committed).
		Int("errors", len(out.Validation.Errors)).
		Int("warnings", len(out.Validation.Warnings)).
		Str("cash", out.State.CashOnHand.StringFixed(2)).
		Msg("week commit")

	if out.Committed && out.Result != nil {
		s.exportSeason(ctx, sessionID)
	}
	return out, nil
}

// exportSeason archives the finished season. Failures are logged: the commit already happened.
func (s *appService) exportSeason(ctx context.Context, sessionID string) {
	rep, err := s.SeasonReport(ctx, sessionID)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("season report for archive failed")
		return
	}
	html, err := report.HTML(rep.Markdown)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("season report html failed")
		return
	}
	weeks, err := s.store.GetAll(ctx, sessionID)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("loading weeks for archive failed")
		return
	}
	weeksJSON, err := json.MarshalIndent(weeks, "", "  ")
	if err != nil {
		s.log.Error().Err(err).Msg("encoding weeks for archive failed")
		return
	}
	keys, err := s.archiver.Export(ctx, sessionID, []archive.File{
		{Name: "report.md", ContentType: "text/markdown", Data: []byte(rep.Markdown)},
		{Name: "report.html", ContentType: "text/html", Data: []byte(html)},
		{Name: "weeks.json", ContentType: "application/json", Data: weeksJSON},
	})
	if err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("season archive failed")
		return
	}
	if len(keys) > 0 {
		s.log.Info().Str("session_id", sessionID).Strs("objects", keys).Msg("season archived")
	}
}

func (s *appService) PreviewDemand(ctx context.Context, in core.DemandInput) (*DemandPreviewResult, error) {
	b, err := s.engine.Demand().Breakdown(in)
	if err != nil {
		return nil, err
	}
	return &DemandPreviewResult{Input: in, Breakdown: b}, nil
}

func (s *appService) SeasonReport(ctx context.Context, sessionID string) (*ReportResult, error) {
	gs, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	weeks, err := s.store.GetAll(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	r := report.Build(gs, weeks)
	return &ReportResult{Report: r, Markdown: r.Markdown()}, nil
}

func (s *appService) SuggestDecisions(ctx context.Context, sessionID, brief string) (*AdviceResult, error) {
	if s.advisor == nil {
		return nil, ErrAdvisorUnavailable
	}
	current, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if current.Session.Status == core.SessionCompleted {
		return nil, fmt.Errorf("session %s: %w", sessionID, core.ErrSessionCompleted)
	}

	advice, err := s.advisor.Suggest(ctx, brief, s.briefing(current.Draft))
	if err != nil {
		return nil, fmt.Errorf("advisor failed: %w", err)
	}
	decisions, err := advice.Decisions()
	if err != nil {
		return nil, err
	}
	return &AdviceResult{Advice: advice, Decisions: decisions}, nil
}

// briefing gives the advisor the catalog, the draft and a dry-run of the draft.
func (s *appService) briefing(draft *core.WeeklyState) *ai.Briefing {
	return ai.NewBriefing().
		Fact("catalog", "Season constants: products, suppliers, methods, shipping, finance.", s.engine.Catalog()).
		Fact("draft_week", "The current draft week with decisions made so far.", draft).
		Add("dry_run", "Validation findings if the draft were committed unchanged.", func(ctx context.Context) (any, error) {
			out, err := s.engine.Settle(draft)
			if err != nil {
				return nil, err
			}
			return out.Validation, nil
		})
}

func (s *appService) DecisionSchema() *jsonschema.Schema {
	return ai.DecisionSchema()
}
