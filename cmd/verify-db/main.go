// verify-db applies pending migrations and then round-trips one throwaway session
// through the Postgres store to prove the schema and JSONB snapshots line up.
package main

import (
	"context"
	"flag"
	"time"

	"retail-sim/internal/app"
	"retail-sim/internal/config"
	"retail-sim/internal/core"
	"retail-sim/internal/db"
	"retail-sim/internal/lock"
	"retail-sim/internal/logger"
	"retail-sim/internal/store"
	"retail-sim/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

func main() {
	smoke := flag.Bool("smoke", true, "round-trip a throwaway session after migrating")
	flag.Parse()

	log := logger.Log
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("connect")
	}
	defer pool.Close()
	log.Info().Msg("connected")

	applied, err := db.Migrate(ctx, pool, migrations.FS, log)
	if err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
	log.Info().Int("applied", applied).Msg("all migrations processed")

	if *smoke {
		if err := roundTrip(ctx, pool, cfg, log); err != nil {
			log.Fatal().Err(err).Msg("smoke check failed")
		}
		log.Info().Msg("smoke check passed")
	}
}

func roundTrip(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config, log zerolog.Logger) error {
	svc := app.NewAppService(app.Deps{
		Engine: core.NewEngine(core.DefaultCatalog()),
		Store:  store.NewPostgresStore(pool, cfg.Database.MaxConcurrency, log),
		Locks:  lock.NewLocalLocker(),
		Log:    log,
	})

	res, err := svc.NewSession(ctx, app.NewSessionRequest{PlayerName: "verify-db"})
	if err != nil {
		return err
	}
	defer func() {
		if _, err := pool.Exec(context.Background(), "DELETE FROM game_sessions WHERE id = $1", res.Session.ID); err != nil {
			log.Warn().Err(err).Str("session_id", res.Session.ID).Msg("failed to remove smoke session")
		}
	}()

	out, err := svc.CommitWeek(ctx, res.Session.ID)
	if err != nil {
		return err
	}
	if !out.Committed {
		log.Error().Interface("errors", out.Validation.Errors).Msg("week 1 did not commit")
		return core.ErrValidationFailed
	}

	weeks, err := svc.ListWeeks(ctx, res.Session.ID)
	if err != nil {
		return err
	}
	if len(weeks.Weeks) != 2 || !weeks.Weeks[0].IsCommitted || weeks.Weeks[1].IsCommitted {
		return core.ErrStateIntegrity
	}
	if !weeks.Weeks[0].CashOnHand.Equal(out.State.CashOnHand) {
		return core.ErrStateIntegrity
	}
	return nil
}
