package db

import (
	"context"
	"fmt"

	"retail-sim/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool connects to the database named by cfg and pings it.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse DATABASE_URL: %w", err)
	}
	// Leave headroom above the transaction limiter for reads outside transactions.
	if cfg.MaxConcurrency > 0 && pc.MaxConns < int32(cfg.MaxConcurrency)+2 {
		pc.MaxConns = int32(cfg.MaxConcurrency) + 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}
