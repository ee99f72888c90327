package app_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"retail-sim/internal/ai"
	"retail-sim/internal/app"
	"retail-sim/internal/archive"
	"retail-sim/internal/config"
	"retail-sim/internal/core"
	"retail-sim/internal/lock"
	"retail-sim/internal/logger"
	"retail-sim/internal/store"

	"github.com/shopspring/decimal"
)

type fakeAdvisor struct {
	advice   *ai.Advice
	sections []string
}

func (f *fakeAdvisor) Suggest(ctx context.Context, brief string, facts *ai.Briefing) (*ai.Advice, error) {
	f.sections = append(f.sections, facts.Titles()...)
	if _, err := facts.Render(ctx); err != nil {
		return nil, err
	}
	return f.advice, nil
}

type recordingArchiver struct {
	mu    sync.Mutex
	files map[string][]archive.File
}

func (r *recordingArchiver) Export(ctx context.Context, sessionID string, files []archive.File) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.files == nil {
		r.files = map[string][]archive.File{}
	}
	r.files[sessionID] = files
	return archive.ObjectKeys(sessionID, files), nil
}

func newService(t *testing.T, advisor ai.Advisor, arch archive.Archiver) app.ApplicationService {
	t.Helper()
	return app.NewAppService(app.Deps{
		Engine:   core.NewEngine(core.DefaultCatalog()),
		Store:    store.NewMemoryStore(),
		Locks:    lock.NewLocalLocker(),
		Advisor:  advisor,
		Archiver: arch,
		Log:      logger.Discard(),
	})
}

func d(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func str(s string) *string { return &s }

var basicDesign = core.Decisions{Products: map[string]core.ProductChoice{
	"jacket":   {RetailPrice: d("120"), Fabric: str("wool")},
	"trousers": {RetailPrice: d("70"), Fabric: str("denim")},
	"tshirt":   {RetailPrice: d("25"), Fabric: str("cotton")},
}}

func TestNewSessionAndSubmit(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil, nil)

	res, err := svc.NewSession(ctx, app.NewSessionRequest{PlayerName: "Ada"})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if res.Draft.WeekNumber != 1 || res.Session.CurrentWeek != 1 {
		t.Fatalf("new session at week %d", res.Draft.WeekNumber)
	}

	if _, err := svc.SubmitDecisions(ctx, res.Session.ID, basicDesign); err != nil {
		t.Fatalf("SubmitDecisions: %v", err)
	}
	got, err := svc.GetWeek(ctx, res.Session.ID, 1)
	if err != nil {
		t.Fatalf("GetWeek: %v", err)
	}
	if got.ProductData["jacket"].Fabric != "wool" {
		t.Errorf("decisions not stored: %+v", got.ProductData["jacket"])
	}

	// a rejected submission leaves the stored draft as it was
	_, err = svc.SubmitDecisions(ctx, res.Session.ID, core.Decisions{Products: map[string]core.ProductChoice{
		"jacket": {Fabric: str("cotton")},
	}})
	var de *core.DecisionError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *core.DecisionError", err)
	}
	again, _ := svc.GetWeek(ctx, res.Session.ID, 1)
	if again.ProductData["jacket"].Fabric != "wool" {
		t.Error("rejected submission changed the draft")
	}
}

func TestCommitWeek_AdvancesAndBlocks(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil, nil)
	res, _ := svc.NewSession(ctx, app.NewSessionRequest{PlayerName: "Ada"})
	id := res.Session.ID

	out, err := svc.CommitWeek(ctx, id)
	if err != nil {
		t.Fatalf("CommitWeek 1: %v", err)
	}
	if !out.Committed || out.Next == nil || out.Next.WeekNumber != 2 {
		t.Fatalf("week 1 outcome = %+v", out)
	}

	// week 2 requires price and fabric
	out, err = svc.CommitWeek(ctx, id)
	if err != nil {
		t.Fatalf("CommitWeek 2: %v", err)
	}
	if out.Committed || out.Validation.CanCommit {
		t.Fatal("week 2 committed without product decisions")
	}
	if s, _ := svc.GetSession(ctx, id); s.Session.CurrentWeek != 2 {
		t.Errorf("blocked commit moved the session to week %d", s.Session.CurrentWeek)
	}

	if _, err := svc.SubmitDecisions(ctx, id, basicDesign); err != nil {
		t.Fatalf("SubmitDecisions: %v", err)
	}
	dry, err := svc.ValidateWeek(ctx, id)
	if err != nil || !dry.Validation.CanCommit || dry.Committed {
		t.Fatalf("ValidateWeek = %+v, %v", dry, err)
	}
	out, err = svc.CommitWeek(ctx, id)
	if err != nil || !out.Committed {
		t.Fatalf("CommitWeek 2 after decisions = %+v, %v", out, err)
	}

	weeks, _ := svc.ListWeeks(ctx, id)
	if len(weeks.Weeks) != 3 {
		t.Errorf("stored weeks = %d, want 3", len(weeks.Weeks))
	}
	w1, _ := svc.GetWeek(ctx, id, 1)
	if !w1.IsCommitted || w1.CommittedAt == nil {
		t.Error("week 1 should be committed and stamped")
	}
}

func TestFullSeason_ArchivesAndCompletes(t *testing.T) {
	ctx := context.Background()
	arch := &recordingArchiver{}
	svc := newService(t, nil, arch)
	res, _ := svc.NewSession(ctx, app.NewSessionRequest{PlayerName: "Ada"})
	id := res.Session.ID

	if _, err := svc.SubmitDecisions(ctx, id, basicDesign); err != nil {
		t.Fatalf("SubmitDecisions: %v", err)
	}
	var last *core.CommitOutcome
	for week := 1; week <= 15; week++ {
		out, err := svc.CommitWeek(ctx, id)
		if err != nil {
			t.Fatalf("CommitWeek %d: %v", week, err)
		}
		if !out.Committed {
			t.Fatalf("week %d blocked: %+v", week, out.Validation.Errors)
		}
		last = out
	}
	if last.Result == nil || last.Next != nil {
		t.Fatalf("final outcome = %+v", last)
	}

	s, _ := svc.GetSession(ctx, id)
	if s.Session.Status != core.SessionCompleted || s.Session.Result == nil {
		t.Errorf("session = %+v", s.Session)
	}
	if _, err := svc.CommitWeek(ctx, id); !errors.Is(err, core.ErrSessionCompleted) {
		t.Errorf("commit after season err = %v", err)
	}
	if _, err := svc.SubmitDecisions(ctx, id, basicDesign); !errors.Is(err, core.ErrSessionCompleted) {
		t.Errorf("submit after season err = %v", err)
	}

	files := arch.files[id]
	if len(files) != 3 {
		t.Fatalf("archived %d files, want 3", len(files))
	}
	if !strings.Contains(string(files[0].Data), "## Result") {
		t.Error("archived report lacks the result section")
	}

	rep, err := svc.SeasonReport(ctx, id)
	if err != nil || len(rep.Report.Weeks) != 15 {
		t.Errorf("report weeks = %v, err %v", rep, err)
	}
}

func TestCommitWeek_ConcurrentCommitsRejected(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil, nil)
	res, _ := svc.NewSession(ctx, app.NewSessionRequest{})
	id := res.Session.ID

	var wg sync.WaitGroup
	var mu sync.Mutex
	committed, busy := 0, 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := svc.CommitWeek(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && out.Committed:
				committed++
			case errors.Is(err, core.ErrCommitInProgress):
				busy++
			}
		}()
	}
	wg.Wait()

	s, _ := svc.GetSession(ctx, id)
	if committed != s.Session.CurrentWeek-1 {
		t.Errorf("%d commits reported but session is at week %d", committed, s.Session.CurrentWeek)
	}
	if committed+busy == 0 {
		t.Error("no commit succeeded")
	}
}

func TestPreviewDemand(t *testing.T) {
	svc := newService(t, nil, nil)
	in := core.DemandInput{Product: "jacket", Week: 8, RRP: *d("120"), MarketingSpend: *d("216667")}
	a, err := svc.PreviewDemand(context.Background(), in)
	if err != nil {
		t.Fatalf("PreviewDemand: %v", err)
	}
	b, _ := svc.PreviewDemand(context.Background(), in)
	if a.Breakdown.Units != b.Breakdown.Units || a.Breakdown.Units <= 0 {
		t.Errorf("preview not stable: %d vs %d", a.Breakdown.Units, b.Breakdown.Units)
	}
	if _, err := svc.PreviewDemand(context.Background(), core.DemandInput{Product: "hat", Week: 8, RRP: *d("10")}); err == nil {
		t.Error("expected unknown product error")
	}
}

func TestSuggestDecisions(t *testing.T) {
	ctx := context.Background()
	if _, err := newService(t, nil, nil).SuggestDecisions(ctx, "x", ""); !errors.Is(err, app.ErrAdvisorUnavailable) {
		t.Errorf("err = %v, want ErrAdvisorUnavailable", err)
	}

	adv := &fakeAdvisor{advice: &ai.Advice{
		Products:       []ai.ProductAdvice{{Product: "tshirt", RetailPrice: "24", Fabric: "cotton"}},
		MarketingSpend: "100000",
	}}
	svc := newService(t, adv, nil)
	res, _ := svc.NewSession(ctx, app.NewSessionRequest{})

	out, err := svc.SuggestDecisions(ctx, res.Session.ID, "cheap tees")
	if err != nil {
		t.Fatalf("SuggestDecisions: %v", err)
	}
	if len(adv.sections) != 3 {
		t.Errorf("advisor saw sections %v", adv.sections)
	}
	if p := out.Decisions.Products["tshirt"]; p.RetailPrice == nil || !p.RetailPrice.Equal(*d("24")) {
		t.Errorf("suggested decisions = %+v", out.Decisions)
	}
	// suggestions are not merged until submitted
	draft, _ := svc.GetWeek(ctx, res.Session.ID, 1)
	if draft.ProductData["tshirt"].Fabric != "" {
		t.Error("suggestion was merged without submission")
	}
	if _, err := svc.SubmitDecisions(ctx, res.Session.ID, out.Decisions); err != nil {
		t.Errorf("submitting suggestion: %v", err)
	}
}

func TestDecisionSchema(t *testing.T) {
	s := newService(t, nil, nil).DecisionSchema()
	if _, ok := s.Properties.Get("spot_orders"); !ok {
		t.Error("schema lacks spot_orders")
	}
}

func TestUnknownSession(t *testing.T) {
	svc := newService(t, nil, nil)
	if _, err := svc.GetSession(context.Background(), "missing"); !errors.Is(err, core.ErrSessionNotFound) {
		t.Errorf("err = %v", err)
	}
	if _, err := svc.CommitWeek(context.Background(), "missing"); !errors.Is(err, core.ErrSessionNotFound) {
		t.Errorf("commit err = %v", err)
	}
}

func TestBootstrap_InMemory(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Database.URL = ""
	cfg.Redis = config.RedisConfig{}
	cfg.Archive = config.ArchiveConfig{}
	cfg.AI.OpenAIKey = ""

	svc, cleanup, err := app.Bootstrap(context.Background(), cfg, logger.Discard())
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	defer cleanup()

	if svc.Catalog().Version != core.DefaultCatalog().Version {
		t.Errorf("catalog = %s", svc.Catalog().Version)
	}
	if _, err := svc.SuggestDecisions(context.Background(), "x", ""); !errors.Is(err, app.ErrAdvisorUnavailable) {
		t.Errorf("advisor should be disabled, err = %v", err)
	}
}

func TestBootstrap_BadCatalogFile(t *testing.T) {
	cfg, _ := config.Load()
	cfg.Database.URL = ""
	cfg.Redis = config.RedisConfig{}
	cfg.Archive = config.ArchiveConfig{}
	cfg.Game.CatalogFile = "does-not-exist.yaml"
	if _, _, err := app.Bootstrap(context.Background(), cfg, logger.Discard()); err == nil {
		t.Error("expected catalog error")
	}
}
