package repl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"retail-sim/internal/app"
	"retail-sim/internal/core"

	"github.com/shopspring/decimal"
)

var errExit = errors.New("exit")

// Session drives one game session interactively.
type Session struct {
	svc    app.ApplicationService
	id     string
	reader *bufio.Reader
	out    io.Writer
}

// Run starts the interactive loop for sessionID.
// Slash commands are dispatched deterministically, JSON lines are submitted as
// decisions and any other text is sent to the advisor as a brief.
func Run(ctx context.Context, svc app.ApplicationService, sessionID string, in io.Reader, out io.Writer) error {
	s := &Session{svc: svc, id: sessionID, reader: bufio.NewReader(in), out: out}

	res, err := svc.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Retail Season Simulator")
	fmt.Fprintf(out, "Session %s, week %d. Type JSON decisions, a brief for the advisor, or /help.\n", res.Session.ID, res.Session.CurrentWeek)
	fmt.Fprintln(out, strings.Repeat("-", 70))

	for {
		fmt.Fprint(out, "\n> ")
		input, readErr := s.reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input != "" {
			if err := s.handle(ctx, input); err != nil {
				if errors.Is(err, errExit) {
					fmt.Fprintln(out, "Goodbye!")
					return nil
				}
				s.printError(err)
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return nil
			}
			return readErr
		}
	}
}

func (s *Session) handle(ctx context.Context, input string) error {
	switch {
	case strings.HasPrefix(input, "/"):
		return s.dispatchSlash(ctx, input)
	case strings.HasPrefix(input, "{"):
		var d core.Decisions
		if err := json.Unmarshal([]byte(input), &d); err != nil {
			return fmt.Errorf("invalid decisions JSON: %w", err)
		}
		return s.submit(ctx, d)
	default:
		return s.advise(ctx, input)
	}
}

func (s *Session) dispatchSlash(ctx context.Context, input string) error {
	tokens := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(tokens) == 0 {
		return nil
	}
	cmd := strings.ToLower(tokens[0])
	args := tokens[1:]

	switch cmd {
	case "week", "w":
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				fmt.Fprintln(s.out, "Usage: /week [number]")
				return nil
			}
			st, err := s.svc.GetWeek(ctx, s.id, n)
			if err != nil {
				return err
			}
			PrintWeek(s.out, st)
			return nil
		}
		res, err := s.svc.GetSession(ctx, s.id)
		if err != nil {
			return err
		}
		PrintSession(s.out, res)

	case "preview", "p":
		if len(args) < 1 {
			fmt.Fprintln(s.out, "Usage: /preview <product> [discount]")
			return nil
		}
		return s.preview(ctx, args[0], args[1:])

	case "decide", "d":
		return s.runDecisionWizard(ctx)

	case "validate", "v":
		out, err := s.svc.ValidateWeek(ctx, s.id)
		if err != nil {
			return err
		}
		PrintOutcome(s.out, out)

	case "commit", "c":
		out, err := s.svc.CommitWeek(ctx, s.id)
		if err != nil {
			return err
		}
		PrintOutcome(s.out, out)

	case "report", "r":
		res, err := s.svc.SeasonReport(ctx, s.id)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, res.Markdown)

	case "schema":
		enc := json.NewEncoder(s.out)
		enc.SetIndent("", "  ")
		return enc.Encode(s.svc.DecisionSchema())

	case "help", "h":
		printHelp(s.out)

	case "exit", "quit", "e", "q":
		return errExit

	default:
		fmt.Fprintf(s.out, "Unknown command: /%s  (type /help for all commands)\n", cmd)
	}
	return nil
}

func (s *Session) submit(ctx context.Context, d core.Decisions) error {
	res, err := s.svc.SubmitDecisions(ctx, s.id, d)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Decisions saved to week %d draft.\n", res.Draft.WeekNumber)
	printIssues(s.out, "WARN", res.Draft.Warnings)
	return nil
}

// preview forecasts demand for product using the draft's price and marketing plan.
func (s *Session) preview(ctx context.Context, product string, rest []string) error {
	res, err := s.svc.GetSession(ctx, s.id)
	if err != nil {
		return err
	}
	draft := res.Draft
	pd, ok := draft.ProductData[product]
	if !ok {
		return fmt.Errorf("unknown product %q", product)
	}
	in := core.DemandInput{
		Product:        product,
		Week:           draft.WeekNumber,
		RRP:            pd.RetailPrice,
		Discount:       draft.WeeklyDiscounts[product],
		MarketingSpend: draft.MarketingPlan.TotalSpend,
		HasPrint:       pd.HasPrint,
	}
	if len(rest) > 0 {
		disc, err := decimal.NewFromString(rest[0])
		if err != nil {
			return fmt.Errorf("invalid discount %q", rest[0])
		}
		in.Discount = disc
	}
	if in.Week < s.svc.Catalog().Season.SalesStartWeek {
		in.Week = s.svc.Catalog().Season.SalesStartWeek
	}
	out, err := s.svc.PreviewDemand(ctx, in)
	if err != nil {
		return err
	}
	PrintDemand(s.out, out)
	return nil
}

// advise sends brief to the advisor and offers to submit what comes back.
func (s *Session) advise(ctx context.Context, brief string) error {
	fmt.Fprintln(s.out, "[AI] Thinking...")
	res, err := s.svc.SuggestDecisions(ctx, s.id, brief)
	if err != nil {
		if errors.Is(err, app.ErrAdvisorUnavailable) {
			fmt.Fprintln(s.out, "No advisor configured. Paste decisions as JSON or use /decide.")
			return nil
		}
		return err
	}
	fmt.Fprintf(s.out, "\n[AI]: %s\n", res.Advice.Rationale)
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Decisions); err != nil {
		return err
	}
	if !s.confirm("Submit these decisions? (y/n): ") {
		fmt.Fprintln(s.out, "Suggestion discarded.")
		return nil
	}
	return s.submit(ctx, res.Decisions)
}

func (s *Session) confirm(prompt string) bool {
	fmt.Fprint(s.out, prompt)
	choice, _ := s.reader.ReadString('\n')
	choice = strings.TrimSpace(strings.ToLower(choice))
	return choice == "y" || choice == "yes"
}

func (s *Session) printError(err error) {
	var de *core.DecisionError
	if errors.As(err, &de) {
		PrintDecisionError(s.out, de)
		return
	}
	fmt.Fprintf(s.out, "Error: %v\n", err)
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  /week [n]              show the draft week, or a stored week")
	fmt.Fprintln(w, "  /decide                enter product, marketing and discount choices step by step")
	fmt.Fprintln(w, "  /preview <product> [d] forecast demand at the draft price, optionally with discount d")
	fmt.Fprintln(w, "  /validate              dry-run the week without saving")
	fmt.Fprintln(w, "  /commit                settle and commit the week")
	fmt.Fprintln(w, "  /report                season report so far")
	fmt.Fprintln(w, "  /schema                JSON schema of the decisions object")
	fmt.Fprintln(w, "  /exit                  leave")
	fmt.Fprintln(w, "Anything starting with { is submitted as decisions JSON.")
	fmt.Fprintln(w, "Any other text is sent to the advisor as a brief.")
}
