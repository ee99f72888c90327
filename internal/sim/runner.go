// Package sim plays scripted seasons through the application service.
package sim

import (
	"context"
	"fmt"
	"sort"

	"retail-sim/internal/app"
	"retail-sim/internal/core"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Outcome summarises one simulated season.
type Outcome struct {
	SessionID   string             `json:"session_id"`
	Player      string             `json:"player"`
	WeeksPlayed int                `json:"weeks_played"`
	Completed   bool               `json:"completed"`
	BlockedWeek int                `json:"blocked_week,omitempty"`
	Errors      []core.Issue       `json:"errors,omitempty"`
	Result      *core.SeasonResult `json:"result,omitempty"`
}

// Options control a simulation run.
type Options struct {
	Sessions    int
	Parallelism int
	PlayerName  string
}

// Runner plays a plan through svc.
type Runner struct {
	svc app.ApplicationService
	log zerolog.Logger
}

func NewRunner(svc app.ApplicationService, log zerolog.Logger) *Runner {
	return &Runner{svc: svc, log: log}
}

// Run plays opts.Sessions independent seasons with the same plan, at most
// opts.Parallelism at a time. The first hard error cancels the remaining sessions.
// A blocked week is not an error: that session stops and reports the issues.
func (r *Runner) Run(ctx context.Context, plan *Plan, opts Options) ([]Outcome, error) {
	if opts.Sessions < 1 {
		opts.Sessions = 1
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}

	outcomes := make([]Outcome, opts.Sessions)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallelism)
	for i := range outcomes {
		player := fmt.Sprintf("%s-%d", opts.PlayerName, i+1)
		if opts.PlayerName == "" {
			player = fmt.Sprintf("%s-%d", plan.Name, i+1)
		}
		g.Go(func() error {
			out, err := r.play(gctx, plan, player)
			if err != nil {
				return fmt.Errorf("%s: %w", player, err)
			}
			outcomes[i] = *out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// play runs one session from week 1 until it completes or a week is blocked.
func (r *Runner) play(ctx context.Context, plan *Plan, player string) (*Outcome, error) {
	res, err := r.svc.NewSession(ctx, app.NewSessionRequest{PlayerName: player})
	if err != nil {
		return nil, err
	}
	out := &Outcome{SessionID: res.Session.ID, Player: player}
	weeks := r.svc.Catalog().Season.Weeks

	for week := 1; week <= weeks; week++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d, ok := plan.Weeks[week]; ok {
			if _, err := r.svc.SubmitDecisions(ctx, out.SessionID, d); err != nil {
				return nil, fmt.Errorf("week %d decisions: %w", week, err)
			}
		}
		co, err := r.svc.CommitWeek(ctx, out.SessionID)
		if err != nil {
			return nil, fmt.Errorf("week %d commit: %w", week, err)
		}
		if !co.Committed {
			out.BlockedWeek = week
			out.Errors = co.Validation.Errors
			r.log.Warn().Str("session_id", out.SessionID).Int("week", week).
				Int("errors", len(co.Validation.Errors)).Msg("simulated week blocked")
			return out, nil
		}
		out.WeeksPlayed = week
		if co.Result != nil {
			out.Result = co.Result
			out.Completed = true
		}
	}
	return out, nil
}

// Ranked returns completed outcomes by final score, best first.
func Ranked(outcomes []Outcome) []Outcome {
	ranked := make([]Outcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Result != nil {
			ranked = append(ranked, o)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Result.FinalScore.GreaterThan(ranked[j].Result.FinalScore)
	})
	return ranked
}

// MeanScore averages final scores over completed outcomes.
func MeanScore(outcomes []Outcome) decimal.Decimal {
	ranked := Ranked(outcomes)
	if len(ranked) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, o := range ranked {
		sum = sum.Add(o.Result.FinalScore)
	}
	return sum.Div(decimal.NewFromInt(int64(len(ranked)))).Round(2)
}
