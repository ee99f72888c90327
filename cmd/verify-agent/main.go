// verify-agent asks the live advisor for week 1 decisions on a throwaway in-memory
// session and dry-runs them, to check the model still honours the decision schema.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"retail-sim/internal/ai"
	"retail-sim/internal/app"
	"retail-sim/internal/config"
	"retail-sim/internal/core"
	"retail-sim/internal/lock"
	"retail-sim/internal/logger"
	"retail-sim/internal/store"
)

func main() {
	brief := flag.String("brief", "Set prices and fabrics for all three products and order enough fabric for the season.", "brief for the advisor")
	flag.Parse()

	log := logger.Log
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if cfg.AI.OpenAIKey == "" {
		log.Fatal().Msg("OPENAI_API_KEY not set")
	}

	svc := app.NewAppService(app.Deps{
		Engine:  core.NewEngine(core.DefaultCatalog()),
		Store:   store.NewMemoryStore(),
		Locks:   lock.NewLocalLocker(),
		Advisor: ai.NewAgent(cfg.AI.OpenAIKey, cfg.AI.Model),
		Log:     log,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res, err := svc.NewSession(ctx, app.NewSessionRequest{PlayerName: "verify-agent"})
	if err != nil {
		log.Fatal().Err(err).Msg("session")
	}

	fmt.Printf("BRIEF: %s\n", *brief)
	advice, err := svc.SuggestDecisions(ctx, res.Session.ID, *brief)
	if err != nil {
		log.Fatal().Err(err).Msg("advisor")
	}

	fmt.Printf("\n--- RATIONALE ---\n%s\n", advice.Advice.Rationale)
	fmt.Printf("\n--- DECISIONS ---\n")
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(advice.Decisions)

	if _, err := svc.SubmitDecisions(ctx, res.Session.ID, advice.Decisions); err != nil {
		var de *core.DecisionError
		if errors.As(err, &de) {
			for _, is := range de.Issues {
				fmt.Printf("REJECTED %s: %s\n", is.Code, is.Message)
			}
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("submit")
	}

	out, err := svc.ValidateWeek(ctx, res.Session.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("validate")
	}
	fmt.Printf("\n--- DRY RUN ---\ncan commit: %v, errors: %d, warnings: %d\n",
		out.Validation.CanCommit, len(out.Validation.Errors), len(out.Validation.Warnings))
	if !out.Validation.CanCommit {
		os.Exit(1)
	}
}
