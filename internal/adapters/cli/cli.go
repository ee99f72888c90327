package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"retail-sim/internal/adapters/repl"
	"retail-sim/internal/app"
	"retail-sim/internal/core"
	"retail-sim/internal/report"
	"retail-sim/internal/sim"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v2"
)

// ExitBlocked is the exit code of a commit that validation refused.
const ExitBlocked = 2

// Runner holds what every command needs.
type Runner struct {
	svc app.ApplicationService
	in  io.Reader
	out io.Writer
	log zerolog.Logger
}

// NewApp builds the command tree. With no subcommand it starts the interactive REPL.
func NewApp(svc app.ApplicationService, in io.Reader, out io.Writer, log zerolog.Logger) *cli.App {
	r := &Runner{svc: svc, in: in, out: out, log: log}
	jsonFlag := &cli.BoolFlag{Name: "json", Usage: "print JSON instead of tables"}

	return &cli.App{
		Name:      "retail-sim",
		Usage:     "Fashion retail season simulator",
		Writer:    out,
		ErrWriter: out,
		// Exit codes are left to main; the default handler calls os.Exit.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "session", Aliases: []string{"s"}, Usage: "session to resume in the REPL"},
			&cli.StringFlag{Name: "player", Usage: "player name for a new REPL session"},
		},
		Action: r.play,
		Commands: []*cli.Command{
			{
				Name:   "new",
				Usage:  "Start a new session",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "player"}, jsonFlag},
				Action: r.newSession,
			},
			{
				Name:   "sessions",
				Usage:  "List sessions",
				Flags:  []cli.Flag{jsonFlag},
				Action: r.listSessions,
			},
			{
				Name:      "show",
				Usage:     "Show a session's draft week, or a stored week",
				ArgsUsage: "<session>",
				Flags:     []cli.Flag{&cli.IntFlag{Name: "week", Aliases: []string{"w"}}, jsonFlag},
				Action:    r.show,
			},
			{
				Name:      "decide",
				Aliases:   []string{"d"},
				Usage:     "Submit decisions as JSON or YAML",
				ArgsUsage: "<session>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Value: "-", Usage: "decisions file, - for stdin"},
				},
				Action: r.decide,
			},
			{
				Name:      "validate",
				Aliases:   []string{"val", "v"},
				Usage:     "Dry-run the draft week",
				ArgsUsage: "<session>",
				Flags:     []cli.Flag{jsonFlag},
				Action:    r.settle(false),
			},
			{
				Name:      "commit",
				Aliases:   []string{"c"},
				Usage:     "Settle and commit the draft week",
				ArgsUsage: "<session>",
				Flags:     []cli.Flag{jsonFlag},
				Action:    r.settle(true),
			},
			{
				Name:  "preview",
				Usage: "Forecast demand for one product",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "product", Required: true},
					&cli.IntFlag{Name: "week", Value: 7},
					&cli.StringFlag{Name: "price", Required: true},
					&cli.StringFlag{Name: "discount", Value: "0"},
					&cli.StringFlag{Name: "marketing", Value: "216667"},
					&cli.BoolFlag{Name: "print"},
					jsonFlag,
				},
				Action: r.preview,
			},
			{
				Name:      "report",
				Usage:     "Season report as markdown or HTML",
				ArgsUsage: "<session>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "html"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write to file instead of stdout"},
				},
				Action: r.report,
			},
			{
				Name:      "advise",
				Usage:     "Ask the advisor for decisions",
				ArgsUsage: "<session> <brief>",
				Flags:     []cli.Flag{&cli.BoolFlag{Name: "submit", Usage: "submit the suggestion"}},
				Action:    r.advise,
			},
			{
				Name:   "schema",
				Usage:  "Print the decisions JSON schema",
				Action: r.schema,
			},
			{
				Name:  "simulate",
				Usage: "Play scripted seasons concurrently",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "plan", Aliases: []string{"p"}, Usage: "YAML plan file (default: built-in plan)"},
					&cli.IntFlag{Name: "sessions", Aliases: []string{"n"}, Value: 1},
					&cli.IntFlag{Name: "parallel", Value: 4},
					jsonFlag,
				},
				Action: r.simulate,
			},
		},
	}
}

// Run executes one CLI invocation. args is os.Args.
func Run(ctx context.Context, svc app.ApplicationService, args []string, log zerolog.Logger) error {
	return NewApp(svc, os.Stdin, os.Stdout, log).RunContext(ctx, args)
}

func sessionArg(c *cli.Context) (string, error) {
	id := c.Args().First()
	if id == "" {
		return "", cli.Exit(fmt.Sprintf("usage: %s %s", c.Command.Name, c.Command.ArgsUsage), 1)
	}
	return id, nil
}

func (r *Runner) printJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *Runner) play(c *cli.Context) error {
	id := c.String("session")
	if id == "" {
		res, err := r.svc.NewSession(c.Context, app.NewSessionRequest{PlayerName: c.String("player")})
		if err != nil {
			return err
		}
		id = res.Session.ID
	}
	return repl.Run(c.Context, r.svc, id, r.in, r.out)
}

func (r *Runner) newSession(c *cli.Context) error {
	res, err := r.svc.NewSession(c.Context, app.NewSessionRequest{PlayerName: c.String("player")})
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return r.printJSON(res)
	}
	repl.PrintSession(r.out, res)
	return nil
}

func (r *Runner) listSessions(c *cli.Context) error {
	list, err := r.svc.ListSessions(c.Context)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return r.printJSON(list)
	}
	fmt.Fprintf(r.out, "%-36s  %-16s  %-9s  %4s\n", "ID", "PLAYER", "STATUS", "WEEK")
	for _, s := range list {
		fmt.Fprintf(r.out, "%-36s  %-16s  %-9s  %4d\n", s.ID, s.PlayerName, s.Status, s.CurrentWeek)
	}
	return nil
}

func (r *Runner) show(c *cli.Context) error {
	id, err := sessionArg(c)
	if err != nil {
		return err
	}
	if week := c.Int("week"); week > 0 {
		st, err := r.svc.GetWeek(c.Context, id, week)
		if err != nil {
			return err
		}
		if c.Bool("json") {
			return r.printJSON(st)
		}
		repl.PrintWeek(r.out, st)
		return nil
	}
	res, err := r.svc.GetSession(c.Context, id)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return r.printJSON(res)
	}
	repl.PrintSession(r.out, res)
	return nil
}

// ReadDecisions decodes decisions from JSON or YAML. JSON is accepted as YAML flow syntax.
func ReadDecisions(rd io.Reader) (core.Decisions, error) {
	var d core.Decisions
	data, err := io.ReadAll(rd)
	if err != nil {
		return d, err
	}
	if err := yaml.UnmarshalStrict(data, &d); err != nil {
		return d, fmt.Errorf("invalid decisions: %w", err)
	}
	return d, nil
}

func (r *Runner) decide(c *cli.Context) error {
	id, err := sessionArg(c)
	if err != nil {
		return err
	}
	src := r.in
	if path := c.String("file"); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}
	d, err := ReadDecisions(src)
	if err != nil {
		return err
	}
	res, err := r.svc.SubmitDecisions(c.Context, id, d)
	if err != nil {
		var de *core.DecisionError
		if errors.As(err, &de) {
			repl.PrintDecisionError(r.out, de)
			return cli.Exit("decisions rejected", 1)
		}
		return err
	}
	fmt.Fprintf(r.out, "Decisions saved to week %d draft.\n", res.Draft.WeekNumber)
	return nil
}

func (r *Runner) settle(commit bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		id, err := sessionArg(c)
		if err != nil {
			return err
		}
		var out *core.CommitOutcome
		if commit {
			out, err = r.svc.CommitWeek(c.Context, id)
		} else {
			out, err = r.svc.ValidateWeek(c.Context, id)
		}
		if err != nil {
			return err
		}
		if c.Bool("json") {
			if err := r.printJSON(out); err != nil {
				return err
			}
		} else {
			repl.PrintOutcome(r.out, out)
		}
		if !out.Validation.CanCommit {
			return cli.Exit("", ExitBlocked)
		}
		return nil
	}
}

func (r *Runner) preview(c *cli.Context) error {
	price, err := decimal.NewFromString(c.String("price"))
	if err != nil {
		return fmt.Errorf("invalid price: %w", err)
	}
	disc, err := decimal.NewFromString(c.String("discount"))
	if err != nil {
		return fmt.Errorf("invalid discount: %w", err)
	}
	spend, err := decimal.NewFromString(c.String("marketing"))
	if err != nil {
		return fmt.Errorf("invalid marketing spend: %w", err)
	}
	res, err := r.svc.PreviewDemand(c.Context, core.DemandInput{
		Product:        c.String("product"),
		Week:           c.Int("week"),
		RRP:            price,
		Discount:       disc,
		MarketingSpend: spend,
		HasPrint:       c.Bool("print"),
	})
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return r.printJSON(res)
	}
	repl.PrintDemand(r.out, res)
	return nil
}

func (r *Runner) report(c *cli.Context) error {
	id, err := sessionArg(c)
	if err != nil {
		return err
	}
	res, err := r.svc.SeasonReport(c.Context, id)
	if err != nil {
		return err
	}
	body := res.Markdown
	if c.Bool("html") {
		if body, err = report.HTML(res.Markdown); err != nil {
			return err
		}
	}
	if path := c.String("out"); path != "" {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Report written to %s\n", path)
		return nil
	}
	_, err = io.WriteString(r.out, body)
	return err
}

func (r *Runner) advise(c *cli.Context) error {
	id, err := sessionArg(c)
	if err != nil {
		return err
	}
	res, err := r.svc.SuggestDecisions(c.Context, id, c.Args().Get(1))
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, res.Advice.Rationale)
	if err := r.printJSON(res.Decisions); err != nil {
		return err
	}
	if !c.Bool("submit") {
		return nil
	}
	if _, err := r.svc.SubmitDecisions(c.Context, id, res.Decisions); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Suggestion submitted.")
	return nil
}

func (r *Runner) schema(c *cli.Context) error {
	return r.printJSON(r.svc.DecisionSchema())
}

func (r *Runner) simulate(c *cli.Context) error {
	plan := sim.DefaultPlan()
	if path := c.String("plan"); path != "" {
		p, err := sim.LoadPlan(path)
		if err != nil {
			return err
		}
		plan = p
	}
	outcomes, err := sim.NewRunner(r.svc, r.log).Run(c.Context, plan, sim.Options{
		Sessions:    c.Int("sessions"),
		Parallelism: c.Int("parallel"),
	})
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return r.printJSON(outcomes)
	}

	fmt.Fprintf(r.out, "Plan %s, %d session(s)\n", plan.Name, len(outcomes))
	fmt.Fprintf(r.out, "%-20s %-36s %6s %16s %10s\n", "PLAYER", "SESSION", "WEEKS", "SCORE", "SERVICE")
	for _, o := range outcomes {
		score, service := "blocked wk "+strconv.Itoa(o.BlockedWeek), "-"
		if o.Result != nil {
			score = o.Result.FinalScore.StringFixed(2)
			service = o.Result.ServiceLevel.StringFixed(4)
		}
		fmt.Fprintf(r.out, "%-20s %-36s %6d %16s %10s\n", o.Player, o.SessionID, o.WeeksPlayed, score, service)
	}
	if len(sim.Ranked(outcomes)) > 0 {
		fmt.Fprintf(r.out, "Mean score: %s\n", sim.MeanScore(outcomes).StringFixed(2))
	}
	return nil
}
