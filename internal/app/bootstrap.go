package app

import (
	"context"
	"fmt"

	"retail-sim/internal/ai"
	"retail-sim/internal/archive"
	"retail-sim/internal/config"
	"retail-sim/internal/core"
	"retail-sim/internal/db"
	"retail-sim/internal/lock"
	"retail-sim/internal/store"

	"github.com/rs/zerolog"
)

// Bootstrap builds the service from configuration. Postgres is used when DATABASE_URL
// is set, otherwise sessions live in memory. The returned cleanup closes every
// connection that was opened.
func Bootstrap(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ApplicationService, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (ApplicationService, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	cat := core.DefaultCatalog()
	if cfg.Game.CatalogFile != "" {
		loaded, err := core.LoadCatalog(cfg.Game.CatalogFile)
		if err != nil {
			return fail(err)
		}
		cat = loaded
	}
	log.Info().Str("catalog", cat.Version).Msg("catalog loaded")

	var st core.StateStore
	if cfg.Database.URL != "" {
		pool, err := db.NewPool(ctx, cfg.Database)
		if err != nil {
			return fail(fmt.Errorf("database: %w", err))
		}
		closers = append(closers, pool.Close)
		st = store.NewPostgresStore(pool, cfg.Database.MaxConcurrency, log)
		log.Info().Msg("using postgres state store")
	} else {
		st = store.NewMemoryStore()
		log.Warn().Msg("DATABASE_URL not set, sessions are kept in memory")
	}

	locks, closeLocks, err := lock.New(ctx, cfg.Redis, log)
	if err != nil {
		return fail(fmt.Errorf("lock: %w", err))
	}
	closers = append(closers, closeLocks)

	arch, err := archive.New(ctx, cfg.Archive)
	if err != nil {
		return fail(fmt.Errorf("archive: %w", err))
	}

	var advisor ai.Advisor
	if cfg.AI.OpenAIKey != "" {
		advisor = ai.NewAgent(cfg.AI.OpenAIKey, cfg.AI.Model)
	} else {
		log.Info().Msg("OPENAI_API_KEY is not set, advisor disabled")
	}

	svc := NewAppService(Deps{
		Engine:   core.NewEngine(cat),
		Store:    st,
		Locks:    locks,
		Advisor:  advisor,
		Archiver: arch,
		Log:      log,
	})
	return svc, cleanup, nil
}
