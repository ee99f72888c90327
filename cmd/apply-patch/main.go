// apply-patch runs one SQL file against the database without recording it in
// schema_migrations. Use it for ad-hoc fixes; versioned changes go through verify-db.
package main

import (
	"context"
	"flag"
	"os"

	"retail-sim/internal/config"
	"retail-sim/internal/db"
	"retail-sim/internal/logger"
)

func main() {
	file := flag.String("file", "", "path of the SQL file to apply")
	flag.Parse()

	log := logger.Log
	if *file == "" {
		log.Fatal().Msg("usage: apply-patch -file <path.sql>")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to DB")
	}
	defer pool.Close()

	sqlFile, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read sql file")
	}

	if _, err := pool.Exec(ctx, string(sqlFile)); err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("patch failed")
	}
	log.Info().Str("file", *file).Msg("patch applied")
}
